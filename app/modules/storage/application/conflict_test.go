package storageservice

import (
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConflictResolverResolve(t *testing.T) {
	older := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Minute)
	remoteVal := json.RawMessage(`"remote"`)
	localVal := json.RawMessage(`"local"`)

	tests := []struct {
		name       string
		remote     Source
		local      Source
		wantFound  bool
		wantOrigin Origin
	}{
		{
			name:   "both absent",
			remote: Source{},
			local:  Source{},
		},
		{
			name:   "both errored",
			remote: Source{Err: errors.New("down")},
			local:  Source{Err: errors.New("corrupt")},
		},
		{
			name:       "only remote",
			remote:     Source{Value: remoteVal, Found: true},
			local:      Source{Err: errors.New("corrupt")},
			wantFound:  true,
			wantOrigin: OriginRemote,
		},
		{
			name:       "only local",
			remote:     Source{Err: errors.New("offline")},
			local:      Source{Value: localVal, Found: true, Timestamp: &older},
			wantFound:  true,
			wantOrigin: OriginLocal,
		},
		{
			name:       "local newer",
			remote:     Source{Value: remoteVal, Found: true, Timestamp: &older},
			local:      Source{Value: localVal, Found: true, Timestamp: &newer},
			wantFound:  true,
			wantOrigin: OriginLocal,
		},
		{
			name:       "remote newer",
			remote:     Source{Value: remoteVal, Found: true, Timestamp: &newer},
			local:      Source{Value: localVal, Found: true, Timestamp: &older},
			wantFound:  true,
			wantOrigin: OriginRemote,
		},
		{
			name:       "tie goes to remote",
			remote:     Source{Value: remoteVal, Found: true, Timestamp: &older},
			local:      Source{Value: localVal, Found: true, Timestamp: &older},
			wantFound:  true,
			wantOrigin: OriginRemote,
		},
		{
			name:       "only local timestamped",
			remote:     Source{Value: remoteVal, Found: true},
			local:      Source{Value: localVal, Found: true, Timestamp: &older},
			wantFound:  true,
			wantOrigin: OriginLocal,
		},
		{
			name:       "only remote timestamped",
			remote:     Source{Value: remoteVal, Found: true, Timestamp: &older},
			local:      Source{Value: localVal, Found: true},
			wantFound:  true,
			wantOrigin: OriginRemote,
		},
		{
			name:       "no timestamps",
			remote:     Source{Value: remoteVal, Found: true},
			local:      Source{Value: localVal, Found: true},
			wantFound:  true,
			wantOrigin: OriginRemote,
		},
	}

	resolver := NewConflictResolver(slog.Default())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolver.Resolve(tt.remote, tt.local, "k")
			assert.Equal(t, tt.wantFound, got.Found)
			assert.Equal(t, tt.wantOrigin, got.Origin)

			again := resolver.Resolve(tt.remote, tt.local, "k")
			assert.Equal(t, got, again, "resolution must be deterministic")
		})
	}
}
