package types

import "time"

// Prediction is one ranked label from an image classifier.
type Prediction struct {
	// Class label assigned by the classifier.
	// example: golden retriever
	Label string `json:"label" example:"golden retriever"`
	// Confidence score in [0,1].
	// example: 0.93
	Score float64 `json:"score" example:"0.93"`
}

// Classification is a single label/score pair from a text classifier.
type Classification struct {
	// Class label (e.g., POSITIVE, NEUTRAL, TOXIC).
	// example: NEUTRAL
	Label string `json:"label" example:"NEUTRAL"`
	// Confidence score in [0,1].
	// example: 0.5
	Score float64 `json:"score" example:"0.5"`
}

// ModerationDecision is the outcome of a safety gate check.
// It is a designed outcome, not an error: Blocked content is a valid result.
type ModerationDecision struct {
	// True when the text tripped the gate's threshold.
	// example: false
	Blocked bool `json:"blocked" example:"false"`
	// Label reported by the toxicity classifier.
	// example: NON_TOXIC
	Label string `json:"label" example:"NON_TOXIC"`
	// Toxicity score in [0,1].
	// example: 0.1
	Score float64 `json:"score" example:"0.1"`
}

// TextAnalysis carries the optional text signals of a multimodal analysis.
// Fields are nil when the backing capability was unavailable.
type TextAnalysis struct {
	Sentiment  *Classification  `json:"sentiment,omitempty"`
	Categories []Classification `json:"categories,omitempty"`
}

// AnalysisResult is the immutable outcome of one multimodal analysis.
type AnalysisResult struct {
	// Top ranked predictions from the vision classifier (at most 3).
	Predictions []Prediction `json:"predictions"`
	// Labels of the top predictions, in rank order.
	TopLabels []string `json:"top_labels"`
	// Optional text signals; nil when no context text was supplied or the
	// text capabilities were unavailable.
	TextAnalysis *TextAnalysis `json:"text_analysis,omitempty"`
	// Embedding of the combined description; nil when the embedder was
	// unavailable.
	Embedding []float32 `json:"embedding,omitempty"`
	// Combined description built from the predictions and context text.
	// example: Image contains: dog, grass, ball Context: my backyard
	CombinedDescription string `json:"combined_description" example:"Image contains: dog, grass, ball"`
	// Wall-clock processing time in seconds.
	// example: 0.42
	ProcessingTime float64 `json:"processing_time" example:"0.42"`
}

// Turn is one message/response exchange within a conversation session.
type Turn struct {
	Message        string    `json:"message"`
	Response       string    `json:"response"`
	SentimentScore float64   `json:"sentiment_score"`
	Timestamp      time.Time `json:"timestamp"`
}

// TurnResult is the outcome of processing a single conversation turn.
type TurnResult struct {
	// Assistant response text (refusal, generated text, or echo fallback).
	Response string `json:"response"`
	// Sentiment of the user message.
	Sentiment Classification `json:"sentiment"`
	// Safety gate decision for the user message.
	Moderation ModerationDecision `json:"moderation"`
	// Wall-clock processing time in seconds.
	ProcessingTime float64 `json:"processing_time"`
}

// GenerationResult is the accepted outcome of safe content generation.
type GenerationResult struct {
	GeneratedText string         `json:"generated_text"`
	Sentiment     Classification `json:"sentiment"`
	// 1 minus the toxicity score of the generated text.
	// example: 0.95
	SafetyScore    float64 `json:"safety_score" example:"0.95"`
	ProcessingTime float64 `json:"processing_time"`
}

// ConversationSnapshot is a read-only view of a session's accumulated state.
type ConversationSnapshot struct {
	SessionID string `json:"session_id"`
	Turns     []Turn `json:"turns"`
	TurnCount int    `json:"turn_count"`
	// Rolling summary; empty until the summarization trigger has fired.
	Summary string `json:"summary,omitempty"`
}
