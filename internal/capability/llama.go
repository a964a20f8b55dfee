//go:build llama

package capability

import (
	"context"
	"errors"
	"runtime"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaGenerator backs the generator capability with an in-process
// llama.cpp model.
type llamaGenerator struct {
	model   *llama.LLama
	threads int
}

func newLlamaGenerator(modelPath string) (Invoker, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	m, err := llama.New(modelPath, llama.SetContext(2048))
	if err != nil {
		return nil, err
	}
	return &llamaGenerator{model: m, threads: runtime.NumCPU()}, nil
}

func (g *llamaGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if g.model == nil {
		return "", errors.New("llama model not initialized")
	}
	g.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	})
	tokens := opts.MaxTokens
	if tokens <= 0 {
		tokens = 200
	}
	temp := float32(opts.Temperature)
	if temp <= 0 {
		temp = llama.DefaultOptions.Temperature
	}
	po := []llama.PredictOption{
		llama.SetTokens(tokens),
		llama.SetThreads(g.threads),
		llama.SetTemperature(temp),
	}
	text, err := g.model.Predict(prompt, po...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	// Callers expect the prompt prefix in the output, matching the shape
	// of a causal LM pipeline.
	return prompt + text, nil
}

func (g *llamaGenerator) Close() error {
	if g.model != nil {
		g.model.Free()
		g.model = nil
	}
	return nil
}
