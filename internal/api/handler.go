package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"violet-sync/internal/deadletter"
	"violet-sync/internal/pipeline"
	"violet-sync/internal/retell"
)

// ConnectionChecker is the slice of the Salesforce client the health
// endpoints need.
type ConnectionChecker interface {
	CheckConnection(ctx context.Context) (string, error)
}

type API struct {
	processor    *pipeline.Processor
	store        deadletter.Store
	sf           ConnectionChecker
	stats        *Stats
	retellAPIKey string
}

func NewAPI(processor *pipeline.Processor, store deadletter.Store, sf ConnectionChecker, retellAPIKey string) *API {
	if retellAPIKey == "" {
		log.Println("Warning: RETELL_API_KEY not set, webhook signature verification disabled")
	}
	return &API{
		processor:    processor,
		store:        store,
		sf:           sf,
		stats:        NewStats(),
		retellAPIKey: retellAPIKey,
	}
}

// WebhookHandler receives chat_analyzed webhooks and runs them through the
// pipeline
// @Summary Receive Retell webhook
// @Description Verifies the signature, processes chat_analyzed events, dead-letters failures. Always acks processed events with 204.
// @Tags webhook
// @Accept json
// @Success 204
// @Failure 400 {string} string "malformed payload"
// @Failure 401 {string} string "bad signature"
// @Router /webhook/retell [post]
func (a *API) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	if !a.verifySignature(body, r.Header.Get("x-retell-signature")) {
		log.Println("[Webhook] Invalid webhook signature, rejecting request")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var envelope retell.WebhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		log.Println("[Webhook] Invalid JSON in webhook body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if envelope.Event != retell.EventChatAnalyzed {
		log.Printf("[Webhook] Ignoring event type: %s", envelope.Event)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	chatPayload := envelope.ChatPayload(body)
	var chat retell.ChatEvent
	if err := json.Unmarshal(chatPayload, &chat); err != nil {
		log.Println("[Webhook] Invalid chat object in webhook body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	log.Printf("[Webhook] [%.12s] Received chat_analyzed webhook", chat.ChatID)

	result := a.processor.Process(r.Context(), &chat)
	a.stats.Record(string(result.Action), result.ChatID, result.Detail)

	if result.Action == pipeline.ActionError {
		entry := deadletter.NewEntry(result.ChatID, result.ContactID, result.JobID,
			result.Stage, result.Tier, result.Detail, chatPayload)
		if err := a.store.Append(r.Context(), entry); err != nil {
			log.Printf("[Webhook] [%.12s] dead letter append failed: %v", result.ChatID, err)
		}
	}

	// Always 204: the dead-letter store is the retry mechanism, not the
	// sender's redelivery.
	w.WriteHeader(http.StatusNoContent)
}

// verifySignature checks the HMAC-SHA256 hex digest of the raw body. With no
// key configured, verification is disabled rather than rejecting all traffic.
func (a *API) verifySignature(body []byte, signature string) bool {
	if a.retellAPIKey == "" {
		return true
	}
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(a.retellAPIKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// HealthHandler reports service health
// @Summary Health check
// @Description Salesforce connectivity, uptime, dead-letter depth, core counters
// @Tags ops
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	instance, err := a.sf.CheckConnection(r.Context())
	sfOK := err == nil

	salesforceStatus := map[string]interface{}{"connected": sfOK}
	if sfOK {
		salesforceStatus["instance"] = instance
	} else {
		detail := err.Error()
		if len(detail) > 200 {
			detail = detail[:200]
		}
		salesforceStatus["error"] = detail
	}

	dlCount, err := a.store.Count(r.Context())
	if err != nil {
		log.Printf("[Health] dead letter count failed: %v", err)
	}

	status := "healthy"
	if !sfOK {
		status = "degraded"
	}

	snap := a.stats.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":            status,
		"salesforce":        salesforceStatus,
		"uptime_seconds":    snap.UptimeSeconds,
		"dead_letter_count": dlCount,
		"stats": map[string]int{
			"webhooks_received": snap.WebhooksReceived,
			"created":           snap.Created,
			"errors":            snap.Errors,
		},
	})
}

// RetryFailedHandler replays the dead letter queue
// @Summary Replay failed creates
// @Description Re-runs every dead-letter entry through the pipeline, archives the store once, re-queues fresh failures
// @Tags ops
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/retry-failed [post]
func (a *API) RetryFailedHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()

	entries, err := a.store.ReadAll(ctx)
	if err != nil {
		http.Error(w, "dead letter read failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if len(entries) == 0 {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": "Dead letter queue is empty",
			"retried": 0,
		})
		return
	}

	type replayResult struct {
		ChatID string `json:"chat_id"`
		Action string `json:"action"`
		Detail string `json:"detail"`
	}

	var results []replayResult
	var refailed []*deadletter.Entry

	for _, entry := range entries {
		var chat retell.ChatEvent
		if err := json.Unmarshal(entry.ChatPayload, &chat); err != nil {
			results = append(results, replayResult{ChatID: entry.ChatID, Action: "error", Detail: "unreadable chat payload"})
			continue
		}

		result := a.processor.Process(ctx, &chat)
		a.stats.Record(string(result.Action), result.ChatID, result.Detail)
		results = append(results, replayResult{ChatID: result.ChatID, Action: string(result.Action), Detail: result.Detail})

		if result.Action == pipeline.ActionError {
			refailed = append(refailed, deadletter.NewEntry(result.ChatID, result.ContactID,
				result.JobID, result.Stage, result.Tier, result.Detail, entry.ChatPayload))
		}
	}

	// Archive exactly once, then land fresh failures in the new log so they
	// are not lost behind the archive.
	archive, _, err := a.store.Clear(ctx)
	if err != nil {
		log.Printf("[Retry] dead letter clear failed: %v", err)
	}
	for _, entry := range refailed {
		if err := a.store.Append(ctx, entry); err != nil {
			log.Printf("[Retry] re-append failed for %s: %v", entry.ChatID, err)
		}
	}

	created, failed := 0, 0
	for _, res := range results {
		switch res.Action {
		case "created":
			created++
		case "error":
			failed++
		}
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"retried":  len(results),
		"created":  created,
		"failed":   failed,
		"archived": archive,
		"results":  results,
	})
}
