package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/capability"
	"inferd/pkg/types"
)

// categoryLabels is the fixed candidate set for zero-shot context
// classification.
var categoryLabels = []string{"technology", "nature", "business", "personal", "educational"}

// Analyzer combines vision, sentiment, zero-shot, and embedding
// capabilities into one multimodal analysis. Only vision is mandatory;
// every other signal degrades independently.
type Analyzer struct {
	reg *capability.Registry
	log zerolog.Logger
}

// NewAnalyzer builds an analysis pipeline over reg.
func NewAnalyzer(reg *capability.Registry, log zerolog.Logger) *Analyzer {
	return &Analyzer{reg: reg, log: log}
}

// Analyze classifies the image and enriches the result with best-effort
// text and embedding signals. Vision errors are returned; all other
// capability errors only omit their signal.
func (a *Analyzer) Analyze(ctx context.Context, image []byte, contextText string) (types.AnalysisResult, error) {
	start := time.Now()

	preds, err := a.reg.ClassifyImage(ctx, capability.Vision, image)
	if err != nil {
		return types.AnalysisResult{}, err
	}
	if len(preds) > 3 {
		preds = preds[:3]
	}
	labels := make([]string, len(preds))
	for i, p := range preds {
		labels[i] = p.Label
	}

	var textAnalysis *types.TextAnalysis
	if contextText != "" {
		ta := &types.TextAnalysis{}
		if sentiment, err := a.reg.ClassifyText(ctx, capability.Sentiment, contextText); err == nil {
			ta.Sentiment = &sentiment
		} else {
			a.log.Debug().Err(err).Msg("sentiment signal omitted")
		}
		if cats, err := a.reg.ClassifyLabels(ctx, capability.ZeroShot, contextText, categoryLabels); err == nil {
			ta.Categories = cats
		} else {
			a.log.Debug().Err(err).Msg("zero-shot signal omitted")
		}
		if ta.Sentiment != nil || ta.Categories != nil {
			textAnalysis = ta
		}
	}

	combined := "Image contains: " + strings.Join(labels, ", ")
	if contextText != "" {
		combined += " Context: " + contextText
	}

	var embedding []float32
	if vec, err := a.reg.Embed(ctx, capability.Embeddings, combined); err == nil {
		embedding = vec
	} else {
		a.log.Debug().Err(err).Msg("embedding signal omitted")
	}

	return types.AnalysisResult{
		Predictions:         preds,
		TopLabels:           labels,
		TextAnalysis:        textAnalysis,
		Embedding:           embedding,
		CombinedDescription: combined,
		ProcessingTime:      time.Since(start).Seconds(),
	}, nil
}
