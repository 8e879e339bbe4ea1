package api

import (
	"sync"
	"time"
)

const maxRecentEvents = 50

// RecentEvent is one row of the status page's activity feed.
type RecentEvent struct {
	Time   string `json:"time"`
	Type   string `json:"type"`
	ChatID string `json:"chat_id"`
	Detail string `json:"detail"`
}

// Stats holds advisory in-memory counters. Reset on restart; the durable
// record is the dead-letter store, not this.
type Stats struct {
	mu sync.Mutex

	startTime        time.Time
	webhooksReceived int
	created          int
	duplicates       int
	skipped          int
	errors           int
	lastWebhook      time.Time
	lastCreated      time.Time
	recent           []RecentEvent
}

func NewStats() *Stats {
	return &Stats{startTime: time.Now().UTC()}
}

// Record updates counters for one terminal outcome.
func (s *Stats) Record(eventType, chatID, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	s.webhooksReceived++
	s.lastWebhook = now

	switch eventType {
	case "created":
		s.created++
		s.lastCreated = now
	case "duplicate":
		s.duplicates++
	case "skip":
		s.skipped++
	case "error":
		s.errors++
	}

	if len(chatID) > 12 {
		chatID = chatID[:12] + "..."
	}
	if len(detail) > 100 {
		detail = detail[:100]
	}
	s.recent = append(s.recent, RecentEvent{
		Time:   now.Format("15:04:05"),
		Type:   eventType,
		ChatID: chatID,
		Detail: detail,
	})
	if len(s.recent) > maxRecentEvents {
		s.recent = s.recent[len(s.recent)-maxRecentEvents:]
	}
}

// Snapshot is a point-in-time copy for rendering.
type Snapshot struct {
	UptimeSeconds    int
	WebhooksReceived int
	Created          int
	Duplicates       int
	Skipped          int
	Errors           int
	LastWebhook      string
	LastCreated      string
	Recent           []RecentEvent
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		UptimeSeconds:    int(time.Since(s.startTime).Seconds()),
		WebhooksReceived: s.webhooksReceived,
		Created:          s.created,
		Duplicates:       s.duplicates,
		Skipped:          s.skipped,
		Errors:           s.errors,
		LastWebhook:      "never",
		LastCreated:      "never",
	}
	if !s.lastWebhook.IsZero() {
		snap.LastWebhook = s.lastWebhook.Format(time.RFC3339)
	}
	if !s.lastCreated.IsZero() {
		snap.LastCreated = s.lastCreated.Format(time.RFC3339)
	}

	// Newest first, capped at 20 for the dashboard.
	n := len(s.recent)
	limit := n
	if limit > 20 {
		limit = 20
	}
	for i := 0; i < limit; i++ {
		snap.Recent = append(snap.Recent, s.recent[n-1-i])
	}
	return snap
}
