package pipeline

import (
	"context"

	"inferd/internal/capability"
	"inferd/pkg/types"
)

// Toxicity thresholds for the two gate call sites. Conversational turns
// tolerate more than generated-content screening; the asymmetry is policy,
// not an accident.
const (
	DefaultChatToxicityThreshold    = 0.7
	DefaultContentToxicityThreshold = 0.5
)

// toxicLabel is the label the toxicity capability reports for flagged text.
const toxicLabel = "TOXIC"

// SafetyGate runs the toxicity capability over a text and decides whether
// to block it at a fixed threshold.
type SafetyGate struct {
	reg       *capability.Registry
	threshold float64
	name      string // metric label: "chat" or "content"
}

// NewSafetyGate builds a gate over reg with the given threshold. name
// labels the gate in metrics.
func NewSafetyGate(reg *capability.Registry, threshold float64, name string) *SafetyGate {
	return &SafetyGate{reg: reg, threshold: threshold, name: name}
}

// Check classifies text with the toxicity capability and applies the gate's
// threshold. When the capability is unavailable or its invocation fails,
// the decision is permissive: missing moderation must never block traffic.
func (g *SafetyGate) Check(ctx context.Context, text string) types.ModerationDecision {
	c, err := g.reg.ClassifyText(ctx, capability.Toxicity, text)
	if err != nil {
		return types.ModerationDecision{Blocked: false, Label: "NEUTRAL", Score: 0}
	}
	blocked := c.Label == toxicLabel && c.Score > g.threshold
	if blocked {
		moderationBlocked.WithLabelValues(g.name).Inc()
	}
	return types.ModerationDecision{Blocked: blocked, Label: c.Label, Score: c.Score}
}
