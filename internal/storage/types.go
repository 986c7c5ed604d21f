package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines delivery log + dedup snapshot/journal
//   - "sqlite": SQLite database file (modernc.org/sqlite, no cgo)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// DeliveryEntry records one delivery outcome for one gateway.
// Keep it compact and schema-stable.
type DeliveryEntry struct {
	At      time.Time `json:"at"`
	Job     string    `json:"job"`
	Title   string    `json:"title"`
	Gateway string    `json:"gateway"`
	OK      bool      `json:"ok"`
	Attempt int       `json:"attempt"`
	Error   string    `json:"error,omitempty"`
	PushID  string    `json:"push_id,omitempty"`
	TookMS  int64     `json:"took_ms"`
}
