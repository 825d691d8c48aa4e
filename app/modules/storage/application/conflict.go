package storageservice

import (
	"encoding/json"
	"log/slog"
	"time"
)

// Origin names the backend a resolved value came from.
type Origin string

const (
	OriginNone   Origin = ""
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

// Source is one backend's answer for a key.
type Source struct {
	Value     json.RawMessage
	Timestamp *time.Time
	Err       error
	Found     bool
}

func (s Source) hasData() bool {
	return s.Err == nil && s.Found
}

// Resolution is the value chosen between the two sources.
type Resolution struct {
	Value  json.RawMessage
	Origin Origin
	Found  bool
}

// ConflictResolver picks between a remote and a local copy of the same key
// by last-write-wins on timestamps. Remote wins ties and untimestamped pairs.
type ConflictResolver struct {
	logger *slog.Logger
}

// NewConflictResolver creates a ConflictResolver.
func NewConflictResolver(logger *slog.Logger) *ConflictResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConflictResolver{logger: logger}
}

// Resolve is deterministic for a given pair of sources.
func (r *ConflictResolver) Resolve(remote, local Source, key string) Resolution {
	switch {
	case !remote.hasData() && !local.hasData():
		return Resolution{}
	case remote.hasData() && !local.hasData():
		return Resolution{Value: remote.Value, Origin: OriginRemote, Found: true}
	case !remote.hasData() && local.hasData():
		return Resolution{Value: local.Value, Origin: OriginLocal, Found: true}
	}

	winner := r.pick(remote, local)
	if winner == OriginLocal {
		r.logger.Debug("Local copy is newer than remote",
			slog.String("key", key),
		)
		return Resolution{Value: local.Value, Origin: OriginLocal, Found: true}
	}
	return Resolution{Value: remote.Value, Origin: OriginRemote, Found: true}
}

func (r *ConflictResolver) pick(remote, local Source) Origin {
	switch {
	case remote.Timestamp != nil && local.Timestamp != nil:
		if local.Timestamp.After(*remote.Timestamp) {
			return OriginLocal
		}
		// Equal timestamps resolve to remote.
		return OriginRemote
	case local.Timestamp != nil:
		return OriginLocal
	default:
		return OriginRemote
	}
}
