package storagedomain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matchops/matchops/app/shared/types"
)

// MetadataField is the reserved key carrying persistence metadata in a local document.
const MetadataField = "_persistenceMetadata"

// Metadata is stamped onto every locally written document.
type Metadata struct {
	// Timestamp is the write time in unix milliseconds.
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
}

// Time returns the metadata timestamp as a time.Time.
func (m Metadata) Time() time.Time {
	return time.UnixMilli(m.Timestamp).UTC()
}

// Envelope wraps a stored value with its metadata.
type Envelope struct {
	Data     json.RawMessage `json:"data"`
	Metadata Metadata        `json:"_persistenceMetadata"`
}

// Wrap builds the envelope for value written at now.
func Wrap(value json.RawMessage, now time.Time) (json.RawMessage, error) {
	if !json.Valid(value) {
		return nil, fmt.Errorf("cannot wrap invalid JSON document")
	}
	raw, err := json.Marshal(Envelope{
		Data: value,
		Metadata: Metadata{
			Timestamp: now.UnixMilli(),
			Version:   types.SchemaVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return raw, nil
}

// Unwrap splits a stored document into its payload and write time.
// Documents written without an envelope are returned as-is with a nil timestamp.
func Unwrap(raw json.RawMessage) (json.RawMessage, *time.Time) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return raw, nil
	}
	metaRaw, hasMeta := fields[MetadataField]
	data, hasData := fields["data"]
	if !hasMeta || !hasData {
		return raw, nil
	}

	var meta Metadata
	if err := json.Unmarshal(metaRaw, &meta); err != nil || meta.Timestamp <= 0 {
		return data, nil
	}
	ts := meta.Time()
	return data, &ts
}
