package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/capability"
	"inferd/pkg/types"
)

const (
	// refusalResponse is returned verbatim when the safety gate blocks a
	// user message.
	refusalResponse = "I can't respond to that type of message. Let's keep our conversation respectful."

	// summarizeEvery triggers a summarization attempt on every Nth turn.
	summarizeEvery = 20
	// minTurnsForSummary is the minimum session length before any summary.
	minTurnsForSummary = 5
	// transcriptTurns bounds the transcript to the most recent exchanges.
	transcriptTurns = 10
	// minTranscriptChars skips the summarizer for short transcripts; they
	// are not worth the invocation cost.
	minTranscriptChars = 1000

	// chatMaxTokens bounds the generated chat response.
	chatMaxTokens = 1000
)

// session is the per-conversation state. Its mutex serializes whole turns,
// so appends never interleave and the turn count is read-modify-written
// atomically with respect to other turns on the same session.
type session struct {
	mu      sync.Mutex
	id      string
	turns   []types.Turn
	summary string
}

// Engine processes conversation turns: sentiment, safety gate, response
// generation, history bookkeeping, and threshold-triggered summarization.
type Engine struct {
	reg  *capability.Registry
	gate *SafetyGate
	log  zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewEngine builds a conversation engine over reg, gating messages with the
// conversational toxicity threshold.
func NewEngine(reg *capability.Registry, gate *SafetyGate, log zerolog.Logger) *Engine {
	return &Engine{
		reg:      reg,
		gate:     gate,
		log:      log,
		sessions: make(map[string]*session),
	}
}

func (e *Engine) getOrCreate(sessionID string) *session {
	e.mu.RLock()
	s := e.sessions[sessionID]
	e.mu.RUnlock()
	if s != nil {
		return s
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if s = e.sessions[sessionID]; s == nil {
		s = &session{id: sessionID}
		e.sessions[sessionID] = s
	}
	return s
}

// ProcessTurn handles one message on a session. Turns on the same session
// run one at a time; different sessions proceed independently. The turn
// itself cannot fail on capability absence: sentiment defaults to neutral,
// a blocked message gets the fixed refusal, and a missing generator falls
// back to a templated echo.
func (e *Engine) ProcessTurn(ctx context.Context, sessionID, message string) (types.TurnResult, types.SessionInfo, error) {
	if err := ctx.Err(); err != nil {
		return types.TurnResult{}, types.SessionInfo{}, err
	}
	start := time.Now()
	s := e.getOrCreate(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	sentiment, err := e.reg.ClassifyText(ctx, capability.Sentiment, message)
	if err != nil {
		sentiment = types.Classification{Label: "NEUTRAL", Score: 0.5}
	}

	decision := e.gate.Check(ctx, message)

	var response string
	if decision.Blocked {
		response = refusalResponse
	} else {
		prompt := "Human: " + message + "\nAssistant:"
		out, err := e.reg.Generate(ctx, capability.Generator, prompt, capability.GenerateOptions{
			MaxTokens:    chatMaxTokens,
			Temperature:  0.7,
			Sample:       true,
			NumSequences: 1,
		})
		if err != nil {
			e.log.Debug().Str("session", sessionID).Err(err).Msg("generator fallback to echo")
			response = "I understand you said: " + message + ". How can I help you further?"
		} else {
			response = strings.TrimSpace(strings.TrimPrefix(out, prompt))
		}
	}

	s.turns = append(s.turns, types.Turn{
		Message:        message,
		Response:       response,
		SentimentScore: sentiment.Score,
		Timestamp:      time.Now(),
	})

	if len(s.turns)%summarizeEvery == 0 {
		e.summarizeLocked(ctx, s)
	}

	result := types.TurnResult{
		Response:       response,
		Sentiment:      sentiment,
		Moderation:     decision,
		ProcessingTime: time.Since(start).Seconds(),
	}
	info := types.SessionInfo{TurnCount: len(s.turns), HasSummary: s.summary != ""}
	return result, info, nil
}

// summarizeLocked attempts a summary of the session's recent transcript.
// Preconditions: at least minTurnsForSummary turns and a transcript longer
// than minTranscriptChars. Summarizer failures are swallowed; the previous
// summary stays in place. Caller holds s.mu.
func (e *Engine) summarizeLocked(ctx context.Context, s *session) {
	if len(s.turns) < minTurnsForSummary {
		return
	}
	turns := s.turns
	if len(turns) > transcriptTurns {
		turns = turns[len(turns)-transcriptTurns:]
	}
	var b strings.Builder
	for _, t := range turns {
		b.WriteString("Human: ")
		b.WriteString(t.Message)
		b.WriteString("\nAssistant: ")
		b.WriteString(t.Response)
		b.WriteString("\n")
	}
	transcript := b.String()
	if len(transcript) <= minTranscriptChars {
		return
	}
	summary, err := e.reg.Summarize(ctx, capability.Summarizer, transcript)
	if err != nil {
		e.log.Debug().Str("session", s.id).Err(err).Msg("no summary produced")
		return
	}
	s.summary = summary
	summariesProduced.Inc()
}

// Snapshot returns a read-only view of a session. Unknown sessions yield an
// empty default snapshot rather than an error.
func (e *Engine) Snapshot(sessionID string) types.ConversationSnapshot {
	e.mu.RLock()
	s := e.sessions[sessionID]
	e.mu.RUnlock()
	if s == nil {
		return types.ConversationSnapshot{SessionID: sessionID, Turns: []types.Turn{}}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := make([]types.Turn, len(s.turns))
	copy(turns, s.turns)
	return types.ConversationSnapshot{
		SessionID: sessionID,
		Turns:     turns,
		TurnCount: len(turns),
		Summary:   s.summary,
	}
}
