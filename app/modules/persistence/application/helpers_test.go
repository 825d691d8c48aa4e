package persistenceservice

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/brianvoe/gofakeit/v7"
	kvservice "github.com/matchops/matchops/app/modules/kvstore/application"
	kvbackends "github.com/matchops/matchops/app/modules/kvstore/infrastructure/backends"
	storageservice "github.com/matchops/matchops/app/modules/storage/application"
	"github.com/matchops/matchops/app/shared/types"
)

var testNow = time.Date(2024, 9, 14, 10, 30, 0, 0, time.UTC)

// recordingPublisher captures published topics.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(topic string, msgs ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for range msgs {
		p.topics = append(p.topics, topic)
	}
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

type testEnv struct {
	svc       *Service
	kv        *kvservice.Adapter
	backend   *kvbackends.MemoryBackend
	publisher *recordingPublisher
}

// newTestEnv builds a Service over an in-memory backend in local-only mode.
func newTestEnv(quota int64) testEnv {
	logger := slog.Default()
	backend := kvbackends.NewMemory(quota)
	kv := kvservice.NewAdapterWithBackend(backend, logger)
	tx := storageservice.NewTransactionManager(logger, nil, nil, time.Second)
	storage := storageservice.NewUnifiedStorage(kv, nil, tx, storageservice.NewConflictResolver(logger), logger)
	pub := &recordingPublisher{}

	svc := NewService(NewLocalEntityStore(kv, logger), storage, tx, pub, logger, nil, nil)
	svc.now = func() time.Time { return testNow }
	var counter int
	var mu sync.Mutex
	svc.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		counter++
		return fmt.Sprintf("id%08d", counter)
	}
	return testEnv{svc: svc, kv: kv, backend: backend, publisher: pub}
}

// TestDataGenerator builds realistic roster and game documents.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

func NewTestDataGenerator(seed int64) *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(uint64(seed))}
}

func (g *TestDataGenerator) Players(count int) []types.Player {
	players := make([]types.Player, count)
	for i := range players {
		players[i] = types.Player{
			ID:           fmt.Sprintf("p%d", i+1),
			Name:         g.faker.FirstName() + " " + g.faker.LastName(),
			JerseyNumber: g.faker.Numerify("##"),
			IsActive:     true,
			IsGoalie:     i == 0,
		}
	}
	return players
}

func (g *TestDataGenerator) Game(id string, roster []types.Player) types.GameState {
	selected := make([]string, 0, len(roster))
	for _, p := range roster {
		selected = append(selected, p.ID)
	}
	return types.GameState{
		GameID:                id,
		TeamName:              g.faker.City() + " FC",
		OpponentName:          g.faker.City() + " United",
		GameDate:              g.faker.DateRange(testNow.AddDate(0, -6, 0), testNow).Format("2006-01-02"),
		HomeOrAway:            types.Home,
		NumberOfPeriods:       2,
		PeriodDurationMinutes: 10,
		CurrentPeriod:         1,
		GameStatus:            types.GameStatusNotStarted,
		SubIntervalMinutes:    5,
		NextSubDueTimeSeconds: 300,
		SubAlertLevel:         types.SubAlertNone,
		AvailablePlayers:      types.ClonePlayers(roster),
		SelectedPlayerIDs:     selected,
		GameEvents:            []types.GameEvent{},
		IsPlayed:              types.BoolPtr(true),
	}
}

func goal(id, scorer, assister string, at int) types.GameEvent {
	return types.GameEvent{ID: id, Type: types.EventGoal, Time: at, Period: 1, ScorerID: scorer, AssisterID: assister}
}
