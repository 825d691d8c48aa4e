package remotedb

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// Table names of the versioned record tables.
const (
	TablePlayers     = "players"
	TableSeasons     = "seasons"
	TableTournaments = "tournaments"
)

// Game is one saved game document owned by a user.
type Game struct {
	bun.BaseModel `bun:"table:games,alias:g"`
	UserID        string          `bun:"user_id,pk,type:varchar(64)"`
	GameID        string          `bun:"game_id,pk,type:varchar(128)"`
	Data          json.RawMessage `bun:"data,type:jsonb,notnull"`
	SeasonID      string          `bun:"season_id,nullzero,type:varchar(128)"`
	TournamentID  string          `bun:"tournament_id,nullzero,type:varchar(128)"`
	IsPlayed      *bool           `bun:"is_played"`
	CreatedAt     time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Record is a versioned document row shared by the players, seasons and
// tournaments tables. Queries pick the table with ModelTableExpr.
type Record struct {
	bun.BaseModel `bun:"alias:r"`
	UserID        string          `bun:"user_id,pk"`
	ID            string          `bun:"id,pk"`
	Name          string          `bun:"name"`
	Data          json.RawMessage `bun:"data,type:jsonb"`
	Version       int             `bun:"version"`
	UpdatedAt     time.Time       `bun:"updated_at"`
}

// AppData is a generic keyed document, the remote side of the unified storage API.
type AppData struct {
	bun.BaseModel `bun:"table:app_data,alias:ad"`
	UserID        string          `bun:"user_id,pk,type:varchar(64)"`
	Key           string          `bun:"data_key,pk,type:varchar(128)"`
	Value         json.RawMessage `bun:"value,type:jsonb,notnull"`
	UpdatedAt     time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
