package pipeline

import (
	"context"
	"time"

	"inferd/internal/capability"
	"inferd/pkg/types"
)

// Stable rejection reasons carried to the caller without internal detail.
const (
	promptRejectedReason = "Prompt rejected due to potentially harmful content"
	outputRejectedReason = "Generated content failed safety check"
)

// defaultMaxLength bounds generation when the caller does not specify one.
const defaultMaxLength = 200

// Rejection is a designed non-error outcome: the safety gate blocked either
// the prompt or the generated output.
type Rejection struct {
	// Reason is one of the stable rejection strings.
	Reason string
	// Score is the toxicity score that tripped the gate.
	Score float64
	// Output is true when the generated text, not the prompt, was blocked.
	Output bool
}

// ContentGenerator is the safety-gated generation pipeline: prompt gate,
// generation, output gate, sentiment annotation. Unlike the conversation
// engine it has no templated fallback; generation is its core purpose.
type ContentGenerator struct {
	reg  *capability.Registry
	gate *SafetyGate
}

// NewContentGenerator builds the pipeline over reg, gating text at the
// strict content threshold.
func NewContentGenerator(reg *capability.Registry, gate *SafetyGate) *ContentGenerator {
	return &ContentGenerator{reg: reg, gate: gate}
}

// GenerateSafe produces gated content for prompt. Exactly one of the result
// and the rejection is non-nil on a nil error. A missing generator
// capability is an error, not a rejection.
func (g *ContentGenerator) GenerateSafe(ctx context.Context, prompt string, maxLength int) (*types.GenerationResult, *Rejection, error) {
	start := time.Now()
	if maxLength <= 0 {
		maxLength = defaultMaxLength
	}

	if d := g.gate.Check(ctx, prompt); d.Blocked {
		return nil, &Rejection{Reason: promptRejectedReason, Score: d.Score}, nil
	}

	text, err := g.reg.Generate(ctx, capability.Generator, prompt, capability.GenerateOptions{
		MaxTokens:    maxLength,
		Temperature:  0.7,
		Sample:       true,
		NumSequences: 1,
	})
	if err != nil {
		return nil, nil, err
	}

	outDecision := g.gate.Check(ctx, text)
	if outDecision.Blocked {
		return nil, &Rejection{Reason: outputRejectedReason, Score: outDecision.Score, Output: true}, nil
	}

	sentiment, err := g.reg.ClassifyText(ctx, capability.Sentiment, text)
	if err != nil {
		sentiment = types.Classification{Label: "NEUTRAL", Score: 0.5}
	}

	// Safety score reflects the generated output only; the prompt's own
	// toxicity score is deliberately not folded in.
	return &types.GenerationResult{
		GeneratedText:  text,
		Sentiment:      sentiment,
		SafetyScore:    1 - outDecision.Score,
		ProcessingTime: time.Since(start).Seconds(),
	}, nil, nil
}
