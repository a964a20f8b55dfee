package pipeline

import (
	"context"
	"errors"
	"sync/atomic"

	"inferd/internal/capability"
	"inferd/pkg/types"
)

// Scripted invokers backing the pipeline tests.

type fakeInvoker struct{}

func (fakeInvoker) Close() error { return nil }

type fakeText struct {
	fakeInvoker
	calls *atomic.Int32
	fn    func(text string) (types.Classification, error)
}

func (f fakeText) ClassifyText(_ context.Context, text string) (types.Classification, error) {
	if f.calls != nil {
		f.calls.Add(1)
	}
	return f.fn(text)
}

type fakeGenerator struct {
	fakeInvoker
	calls    *atomic.Int32
	lastOpts *capability.GenerateOptions
	fn       func(prompt string) (string, error)
}

func (f fakeGenerator) Generate(_ context.Context, prompt string, opts capability.GenerateOptions) (string, error) {
	if f.calls != nil {
		f.calls.Add(1)
	}
	if f.lastOpts != nil {
		*f.lastOpts = opts
	}
	return f.fn(prompt)
}

type fakeSummarizer struct {
	fakeInvoker
	calls *atomic.Int32
	fn    func(text string) (string, error)
}

func (f fakeSummarizer) Summarize(_ context.Context, text string) (string, error) {
	if f.calls != nil {
		f.calls.Add(1)
	}
	return f.fn(text)
}

type fakeVision struct {
	fakeInvoker
	preds []types.Prediction
}

func (f fakeVision) ClassifyImage(_ context.Context, _ []byte) ([]types.Prediction, error) {
	return f.preds, nil
}

type fakeZeroShot struct {
	fakeInvoker
}

func (fakeZeroShot) ClassifyLabels(_ context.Context, _ string, labels []string) ([]types.Classification, error) {
	out := make([]types.Classification, len(labels))
	for i, l := range labels {
		out[i] = types.Classification{Label: l, Score: 1 / float64(len(labels))}
	}
	return out, nil
}

type fakeEmbedder struct {
	fakeInvoker
}

func (fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func spec(name string, kind capability.Kind, inv capability.Invoker) capability.Spec {
	return capability.Spec{
		Name: name,
		Kind: kind,
		Strategies: []capability.Strategy{{
			Name: "test",
			Load: func() (capability.Invoker, error) { return inv, nil },
		}},
	}
}

func brokenSpec(name string, kind capability.Kind) capability.Spec {
	return capability.Spec{
		Name: name,
		Kind: kind,
		Strategies: []capability.Strategy{{
			Name: "test",
			Load: func() (capability.Invoker, error) { return nil, errors.New("artifact missing") },
		}},
	}
}

func constClassifier(label string, score float64) fakeText {
	return fakeText{fn: func(string) (types.Classification, error) {
		return types.Classification{Label: label, Score: score}, nil
	}}
}
