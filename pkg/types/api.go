package types

// ChatRequest is the payload for POST /v1/chat.
type ChatRequest struct {
	// Opaque session key supplied by the caller. Sessions are created on
	// first use.
	// example: s-4f2a
	SessionID string `json:"session_id" example:"s-4f2a"`
	// User message for this turn.
	// example: hello
	Message string `json:"message" example:"hello"`
}

// SessionInfo summarizes session-level bookkeeping after a turn.
type SessionInfo struct {
	// Number of turns recorded for the session, including this one.
	// example: 1
	TurnCount int `json:"turn_count" example:"1"`
	// True once a summary has been produced for the session.
	// example: false
	HasSummary bool `json:"has_summary" example:"false"`
}

// ChatResponse is returned by POST /v1/chat.
type ChatResponse struct {
	// Persisted message record id, when a record store is configured.
	MessageID string `json:"message_id,omitempty"`
	Response  string `json:"response"`
	Sentiment Classification `json:"sentiment"`
	Moderation ModerationDecision `json:"moderation"`
	SessionInfo SessionInfo `json:"session_info"`
}

// AnalyzeResponse is returned by POST /v1/analyze.
type AnalyzeResponse struct {
	// Persisted result record id, when a record store is configured.
	ID       string         `json:"id,omitempty"`
	Analysis AnalysisResult `json:"analysis"`
	// example: success
	Status string `json:"status" example:"success"`
}

// GenerateRequest is the payload for POST /v1/generate.
type GenerateRequest struct {
	// Prompt to generate a continuation for.
	// example: Write a short story about a lighthouse.
	Prompt string `json:"prompt" example:"Write a short story about a lighthouse."`
	// Maximum output length in tokens. Defaults to 200 when omitted.
	// example: 200
	MaxLength int `json:"max_length,omitempty" example:"200"`
}

// GenerateResponse is returned by POST /v1/generate on success.
type GenerateResponse struct {
	ID               string         `json:"id,omitempty"`
	GeneratedContent string         `json:"generated_content"`
	Sentiment        Classification `json:"sentiment"`
	SafetyScore      float64        `json:"safety_score"`
	// example: success
	Status string `json:"status" example:"success"`
}

// RejectionResponse is returned by POST /v1/generate when the safety gate
// blocks the prompt or the generated output.
type RejectionResponse struct {
	// Stable reason string.
	// example: Prompt rejected due to potentially harmful content
	Error string `json:"error" example:"Prompt rejected due to potentially harmful content"`
	// Toxicity score that tripped the gate.
	// example: 0.81
	ToxicityScore float64 `json:"toxicity_score" example:"0.81"`
}

// CapabilityStatus summarizes one capability for GET /status.
type CapabilityStatus struct {
	// Capability name.
	// example: toxicity
	Name string `json:"name" example:"toxicity"`
	// Capability kind (e.g., text-classifier, generator).
	// example: text-classifier
	Kind string `json:"kind" example:"text-classifier"`
	// Lifecycle state: unloaded, loading, ready, failed.
	// example: ready
	State string `json:"state" example:"ready"`
	// True when the capability loaded via a fallback strategy.
	// example: false
	Degraded bool `json:"degraded" example:"false"`
	// Last load error, when state is failed.
	LastError string `json:"last_error,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Per-capability states at read time.
	Capabilities []CapabilityStatus `json:"capabilities"`
	// Aggregate health: healthy, degraded, or unhealthy.
	// example: degraded
	Status string `json:"status" example:"degraded"`
	// Total number of load attempts performed.
	// example: 3
	LoadsTotal uint64 `json:"loads_total" example:"3"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// ResultRecord is one persisted inference result returned by GET /v1/results.
type ResultRecord struct {
	ID string `json:"id"`
	// Result type: vision, text, chat, or embedding.
	// example: chat
	Type string `json:"type" example:"chat"`
	// Name of the producing pipeline.
	// example: conversation_engine
	Name           string  `json:"name" example:"conversation_engine"`
	Input          string  `json:"input"`
	Result         string  `json:"result"`
	Confidence     float64 `json:"confidence_score"`
	ProcessingTime float64 `json:"processing_time"`
	// Creation time in unix seconds.
	CreatedAt int64 `json:"created_at_unix"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
