package retell

import "encoding/json"

// EventChatAnalyzed is the only webhook event type the service processes.
const EventChatAnalyzed = "chat_analyzed"

// WebhookEnvelope is the outer webhook payload. Retell has shipped the chat
// object under "data", under "chat", and (historically) as the top-level
// object itself.
type WebhookEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Chat  json.RawMessage `json:"chat,omitempty"`
}

// ChatPayload returns the raw chat object from the envelope, falling back to
// the whole body when neither wrapper field is present.
func (e *WebhookEnvelope) ChatPayload(body []byte) json.RawMessage {
	if len(e.Data) > 0 {
		return e.Data
	}
	if len(e.Chat) > 0 {
		return e.Chat
	}
	return body
}

// ChatEvent is one analyzed chat. Every nested block is optional; absence is
// a nil pointer or empty map, never an error.
type ChatEvent struct {
	ChatID           string            `json:"chat_id"`
	AgentName        string            `json:"agent_name"`
	ChatStatus       string            `json:"chat_status"`
	ChatAnalysis     *ChatAnalysis     `json:"chat_analysis,omitempty"`
	DynamicVariables map[string]string `json:"retell_llm_dynamic_variables,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

type ChatAnalysis struct {
	ChatSummary        string          `json:"chat_summary,omitempty"`
	CustomAnalysisData *CustomAnalysis `json:"custom_analysis_data,omitempty"`
}

// CustomAnalysis carries the qualification outcome produced by the agent's
// post-chat analysis.
type CustomAnalysis struct {
	QualificationResult string `json:"qualification_result,omitempty"`
	InterestLevel       string `json:"interest_level,omitempty"`
	OptedOut            bool   `json:"opted_out,omitempty"`
	ConversationSummary string `json:"conversation_summary,omitempty"`
}

// Custom returns the custom analysis block, or nil when any level is missing.
func (e *ChatEvent) Custom() *CustomAnalysis {
	if e.ChatAnalysis == nil {
		return nil
	}
	return e.ChatAnalysis.CustomAnalysisData
}

// Var reads a dynamic variable, returning "" when unset.
func (e *ChatEvent) Var(key string) string {
	return e.DynamicVariables[key]
}

// Meta reads a metadata value, returning "" when unset.
func (e *ChatEvent) Meta(key string) string {
	return e.Metadata[key]
}
