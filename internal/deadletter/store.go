// Package deadletter persists failed processing attempts so no lead is ever
// lost, even with Salesforce down. Entries are appended on failure, read back
// for replay, and relocated (never deleted) when the store is cleared.
package deadletter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entry is one durably recorded failure. ChatPayload holds the original
// inbound chat object verbatim so replay re-runs exactly what arrived.
type Entry struct {
	EntryID     string          `json:"entry_id"`
	Timestamp   time.Time       `json:"timestamp"`
	ChatID      string          `json:"chat_id"`
	ContactID   string          `json:"contact_id"`
	JobID       string          `json:"job_id"`
	Stage       string          `json:"stage"`
	Tier        string          `json:"tier"`
	Error       string          `json:"error"`
	ChatPayload json.RawMessage `json:"chat_payload"`
}

// NewEntry stamps a failure with an id and the current UTC time.
func NewEntry(chatID, contactID, jobID, stage, tier, errText string, payload json.RawMessage) *Entry {
	return &Entry{
		EntryID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		ChatID:      chatID,
		ContactID:   contactID,
		JobID:       jobID,
		Stage:       stage,
		Tier:        tier,
		Error:       errText,
		ChatPayload: payload,
	}
}

// Store is a durable ordered append-only record of failures.
type Store interface {
	// Append adds one entry. It never overwrites or truncates.
	Append(ctx context.Context, entry *Entry) error

	// ReadAll returns every well-formed entry in order. Malformed entries
	// (for example a line torn by a crash) are skipped, not fatal.
	ReadAll(ctx context.Context) ([]*Entry, error)

	// Count returns the number of well-formed entries without materializing
	// them.
	Count(ctx context.Context) (int, error)

	// Clear archives the current entries and resets the store. It returns
	// where the entries went and how many there were; an empty store is a
	// no-op returning ("", 0). Entries are relocated, never deleted.
	Clear(ctx context.Context) (archive string, n int, err error)
}
