package persistenceservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	kvservice "github.com/matchops/matchops/app/modules/kvstore/application"
	storagedomain "github.com/matchops/matchops/app/modules/storage/domain"
	"github.com/matchops/matchops/app/shared/types"
)

// LocalEntityStore keeps each collection as one document in the key-value adapter.
// Collections are written bare; reads also accept an enveloped document, as
// written by the storage passthrough.
type LocalEntityStore struct {
	kv     kvservice.Store
	logger *slog.Logger
	// mu serializes read-modify-write cycles on the collection documents.
	mu sync.Mutex
}

// NewLocalEntityStore creates a LocalEntityStore.
func NewLocalEntityStore(kv kvservice.Store, logger *slog.Logger) *LocalEntityStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalEntityStore{kv: kv, logger: logger}
}

func (l *LocalEntityStore) Kind() string { return "local" }

func (l *LocalEntityStore) sealed() {}

// --- Games ---

func (l *LocalEntityStore) LoadGames(ctx context.Context) (map[string]types.GameState, error) {
	raw, found, err := l.kv.Get(ctx, types.KeySavedGames)
	if err != nil {
		if errors.Is(err, kvservice.ErrSerialization) {
			l.logger.WarnContext(ctx, "Saved games document is malformed, treating as empty")
			return map[string]types.GameState{}, nil
		}
		return nil, err
	}
	if !found {
		return map[string]types.GameState{}, nil
	}

	raw, _ = storagedomain.Unwrap(raw)
	var docs map[string]json.RawMessage
	if err := json.Unmarshal(raw, &docs); err != nil {
		l.logger.WarnContext(ctx, "Saved games document has unexpected shape", slog.String("error", err.Error()))
		return map[string]types.GameState{}, nil
	}

	games := make(map[string]types.GameState, len(docs))
	for id, doc := range docs {
		g, err := types.DecodeGame(doc)
		if err != nil {
			l.logger.WarnContext(ctx, "Skipping undecodable game", slog.String("game_id", id), slog.String("error", err.Error()))
			continue
		}
		if g.GameID == "" {
			g.GameID = id
		}
		games[id] = g
	}
	return games, nil
}

func (l *LocalEntityStore) SaveGame(ctx context.Context, game types.GameState) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	games, err := l.LoadGames(ctx)
	if err != nil {
		return err
	}
	games[game.GameID] = game
	return l.kv.Set(ctx, types.KeySavedGames, games)
}

func (l *LocalEntityStore) DeleteGame(ctx context.Context, gameID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	games, err := l.LoadGames(ctx)
	if err != nil {
		return err
	}
	if _, ok := games[gameID]; !ok {
		return fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	delete(games, gameID)
	return l.kv.Set(ctx, types.KeySavedGames, games)
}

func (l *LocalEntityStore) ReplaceGames(ctx context.Context, games map[string]types.GameState) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if games == nil {
		games = map[string]types.GameState{}
	}
	return l.kv.Set(ctx, types.KeySavedGames, games)
}

// --- Versioned collections ---

// collection describes one versioned list document.
type collection[T any] struct {
	key        string
	notFound   error
	id         func(T) string
	version    func(T) int
	setVersion func(*T, int)
}

var (
	playerCollection = collection[types.Player]{
		key:        types.KeyMasterRoster,
		notFound:   ErrPlayerNotFound,
		id:         func(p types.Player) string { return p.ID },
		version:    func(p types.Player) int { return p.Version },
		setVersion: func(p *types.Player, v int) { p.Version = v },
	}
	seasonCollection = collection[types.Season]{
		key:        types.KeySeasons,
		notFound:   ErrSeasonNotFound,
		id:         func(s types.Season) string { return s.ID },
		version:    func(s types.Season) int { return s.Version },
		setVersion: func(s *types.Season, v int) { s.Version = v },
	}
	tournamentCollection = collection[types.Tournament]{
		key:        types.KeyTournaments,
		notFound:   ErrTournamentNotFound,
		id:         func(t types.Tournament) string { return t.ID },
		version:    func(t types.Tournament) int { return t.Version },
		setVersion: func(t *types.Tournament, v int) { t.Version = v },
	}
)

func loadList[T any](ctx context.Context, l *LocalEntityStore, c collection[T]) ([]T, error) {
	raw, found, err := l.kv.Get(ctx, c.key)
	if err != nil {
		if errors.Is(err, kvservice.ErrSerialization) {
			l.logger.WarnContext(ctx, "Collection document is malformed, treating as empty", slog.String("key", c.key))
			return []T{}, nil
		}
		return nil, err
	}
	if !found {
		return []T{}, nil
	}
	raw, _ = storagedomain.Unwrap(raw)
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		l.logger.WarnContext(ctx, "Collection document has unexpected shape",
			slog.String("key", c.key),
			slog.String("error", err.Error()),
		)
		return []T{}, nil
	}
	return items, nil
}

func indexOf[T any](items []T, c collection[T], id string) int {
	for i, item := range items {
		if c.id(item) == id {
			return i
		}
	}
	return -1
}

func saveVersioned[T any](ctx context.Context, l *LocalEntityStore, c collection[T], item T, expectedVersion int) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var zero T
	items, err := loadList(ctx, l, c)
	if err != nil {
		return zero, err
	}

	id := c.id(item)
	idx := indexOf(items, c, id)
	switch {
	case idx < 0 && expectedVersion != 0:
		return zero, fmt.Errorf("%w: %s %s was removed", ErrVersionConflict, c.key, id)
	case idx >= 0 && c.version(items[idx]) != expectedVersion:
		return zero, fmt.Errorf("%w: %s %s is at version %d, expected %d",
			ErrVersionConflict, c.key, id, c.version(items[idx]), expectedVersion)
	}

	c.setVersion(&item, expectedVersion+1)
	if idx < 0 {
		items = append(items, item)
	} else {
		items[idx] = item
	}
	if err := l.kv.Set(ctx, c.key, items); err != nil {
		return zero, err
	}
	return item, nil
}

func deleteFromList[T any](ctx context.Context, l *LocalEntityStore, c collection[T], id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	items, err := loadList(ctx, l, c)
	if err != nil {
		return err
	}
	idx := indexOf(items, c, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", c.notFound, id)
	}
	items = append(items[:idx], items[idx+1:]...)
	return l.kv.Set(ctx, c.key, items)
}

func replaceList[T any](ctx context.Context, l *LocalEntityStore, c collection[T], items []T) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]T, len(items))
	for i, item := range items {
		if c.version(item) == 0 {
			c.setVersion(&item, 1)
		}
		out[i] = item
	}
	return l.kv.Set(ctx, c.key, out)
}

// --- Players ---

func (l *LocalEntityStore) LoadPlayers(ctx context.Context) ([]types.Player, error) {
	return loadList(ctx, l, playerCollection)
}

func (l *LocalEntityStore) SavePlayer(ctx context.Context, player types.Player, expectedVersion int) (types.Player, error) {
	return saveVersioned(ctx, l, playerCollection, player, expectedVersion)
}

func (l *LocalEntityStore) DeletePlayer(ctx context.Context, playerID string) error {
	return deleteFromList(ctx, l, playerCollection, playerID)
}

func (l *LocalEntityStore) ReplacePlayers(ctx context.Context, players []types.Player) error {
	return replaceList(ctx, l, playerCollection, players)
}

// --- Seasons ---

func (l *LocalEntityStore) LoadSeasons(ctx context.Context) ([]types.Season, error) {
	return loadList(ctx, l, seasonCollection)
}

func (l *LocalEntityStore) SaveSeason(ctx context.Context, season types.Season, expectedVersion int) (types.Season, error) {
	return saveVersioned(ctx, l, seasonCollection, season, expectedVersion)
}

func (l *LocalEntityStore) DeleteSeason(ctx context.Context, seasonID string) error {
	return deleteFromList(ctx, l, seasonCollection, seasonID)
}

func (l *LocalEntityStore) ReplaceSeasons(ctx context.Context, seasons []types.Season) error {
	return replaceList(ctx, l, seasonCollection, seasons)
}

// --- Tournaments ---

func (l *LocalEntityStore) LoadTournaments(ctx context.Context) ([]types.Tournament, error) {
	return loadList(ctx, l, tournamentCollection)
}

func (l *LocalEntityStore) SaveTournament(ctx context.Context, tournament types.Tournament, expectedVersion int) (types.Tournament, error) {
	return saveVersioned(ctx, l, tournamentCollection, tournament, expectedVersion)
}

func (l *LocalEntityStore) DeleteTournament(ctx context.Context, tournamentID string) error {
	return deleteFromList(ctx, l, tournamentCollection, tournamentID)
}

func (l *LocalEntityStore) ReplaceTournaments(ctx context.Context, tournaments []types.Tournament) error {
	return replaceList(ctx, l, tournamentCollection, tournaments)
}

var _ EntityStore = (*LocalEntityStore)(nil)
