package persistencehandlers

import (
	"context"

	"github.com/matchops/matchops/app/shared/types"
)

// ------------------------
// Fake Persistence Service
// ------------------------

type FakeService struct {
	trace []string

	SaveGameFunc func(ctx context.Context, gameID string, game types.GameState) error
	LoadAllFunc  func(ctx context.Context) error
}

func (f *FakeService) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeService) Trace() []string {
	return append([]string(nil), f.trace...)
}

func (f *FakeService) SaveGame(ctx context.Context, gameID string, game types.GameState) error {
	f.record("SaveGame:" + gameID)
	if f.SaveGameFunc != nil {
		return f.SaveGameFunc(ctx, gameID, game)
	}
	return nil
}

func (f *FakeService) LoadAll(ctx context.Context) error {
	f.record("LoadAll")
	if f.LoadAllFunc != nil {
		return f.LoadAllFunc(ctx)
	}
	return nil
}

// ------------------------
// Fake Session
// ------------------------

type FakeSession struct {
	Game types.GameState
}

func (f *FakeSession) ToGameState(gameID string) types.GameState {
	g := f.Game
	g.GameID = gameID
	return g
}

var (
	_ Service       = (*FakeService)(nil)
	_ SessionSource = (*FakeSession)(nil)
)
