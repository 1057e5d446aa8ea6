package store

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrETagMismatch is returned when a conditional write loses the race:
	// the stored entity tag no longer matches the one the client read.
	ErrETagMismatch = errors.New("etag mismatch")
)

// ProfileRecord is the stored editor/schema configuration of one content
// profile. The JSON columns are decoded lazily by the profile accessor.
type ProfileRecord struct {
	ID           string
	Label        string
	Editor       json.RawMessage
	Schema       json.RawMessage
	CustomFields json.RawMessage
	Labels       json.RawMessage
	UpdatedAt    time.Time
}

// AutosaveRecord is a persisted autosave snapshot. The durable fallback
// behind the redis snapshot store.
type AutosaveRecord struct {
	ArticleID string
	Doc       json.RawMessage
	UpdatedAt time.Time
}

// MediaAsset is the metadata of an uploaded binary; the bytes themselves
// live in object storage under StorageKey.
type MediaAsset struct {
	ID         string
	Filename   string
	MimeType   string
	SizeBytes  int64
	StorageKey string
	CreatedAt  time.Time
}
