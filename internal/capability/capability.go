package capability

import (
	"context"

	"inferd/pkg/types"
)

// State represents the lifecycle state of a capability.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateReady    State = "ready"
	StateFailed   State = "failed"
)

// Kind identifies the invoke shape of a capability.
type Kind string

const (
	KindImageClassifier    Kind = "image-classifier"
	KindTextClassifier     Kind = "text-classifier"
	KindZeroShotClassifier Kind = "zero-shot-classifier"
	KindGenerator          Kind = "generator"
	KindSummarizer         Kind = "summarizer"
	KindEmbedder           Kind = "embedder"
)

// Well-known capability names served by the default registry.
const (
	Vision     = "vision"
	Sentiment  = "sentiment"
	ZeroShot   = "zero_shot"
	Generator  = "generator"
	Summarizer = "summarizer"
	Embeddings = "embeddings"
	Toxicity   = "toxicity"
)

// Invoker is the minimal surface shared by all loaded capability handles.
// Concrete handles additionally implement one of the kind interfaces below.
type Invoker interface {
	Close() error
}

// ImageClassifier ranks labels for an encoded image.
type ImageClassifier interface {
	Invoker
	ClassifyImage(ctx context.Context, image []byte) ([]types.Prediction, error)
}

// TextClassifier assigns a single label/score to a text.
type TextClassifier interface {
	Invoker
	ClassifyText(ctx context.Context, text string) (types.Classification, error)
}

// ZeroShotClassifier scores a text against caller-supplied candidate labels.
type ZeroShotClassifier interface {
	Invoker
	ClassifyLabels(ctx context.Context, text string, labels []string) ([]types.Classification, error)
}

// GenerateOptions are the sampling parameters for one generation call.
type GenerateOptions struct {
	MaxTokens    int
	Temperature  float64
	Sample       bool
	NumSequences int
}

// TextGenerator produces a text continuation for a prompt.
type TextGenerator interface {
	Invoker
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// TextSummarizer condenses a text.
type TextSummarizer interface {
	Invoker
	Summarize(ctx context.Context, text string) (string, error)
}

// Embedder maps a text to a fixed-length vector.
type Embedder interface {
	Invoker
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Strategy is one way to load a capability. Strategies are attempted in
// declaration order; the first success wins. A success from a strategy
// marked Degraded leaves the capability ready but flagged as running in
// degraded mode.
type Strategy struct {
	Name     string
	Degraded bool
	Load     func() (Invoker, error)
}

// Spec declares a capability: its name, kind, and ordered load strategies.
type Spec struct {
	Name       string
	Kind       Kind
	Strategies []Strategy
}
