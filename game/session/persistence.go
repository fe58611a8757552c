package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wricardo/mcp-training/idleclicker/game/engine"
)

// SessionPersistence defines the interface for persisting player worlds
type SessionPersistence interface {
	// Save persists a world record to storage
	Save(record *Record) error

	// Load retrieves a world record from storage by ID
	Load(id string) (*Record, error)

	// Delete removes a world record from storage
	Delete(id string) error

	// ListAll returns all persisted player IDs
	ListAll() ([]string, error)

	// Exists checks if a world exists in storage
	Exists(id string) bool
}

// Record is the persisted form of one player world. Snapshot holds the raw
// engine snapshot and is decoded by engine.LoadSnapshot, which tolerates
// corruption field by field.
type Record struct {
	ID             string          `json:"id"`
	DisplayName    string          `json:"display_name"`
	Economy        string          `json:"economy"`
	CreatedAt      time.Time       `json:"created_at"`
	LastAccessedAt time.Time       `json:"last_accessed_at"`
	Revision       int64           `json:"revision"`
	Snapshot       json.RawMessage `json:"snapshot"`
}

// NewRecord builds a record from a snapshot
func NewRecord(id, economy string, createdAt time.Time, snapshot *engine.Snapshot) (*Record, error) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	lastAccessed := snapshot.SavedAt
	if lastAccessed.IsZero() {
		lastAccessed = createdAt
	}
	return &Record{
		ID:             id,
		DisplayName:    snapshot.Player.DisplayName,
		Economy:        economy,
		CreatedAt:      createdAt,
		LastAccessedAt: lastAccessed,
		Revision:       snapshot.Revision,
		Snapshot:       raw,
	}, nil
}
