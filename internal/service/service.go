// Package service wires the capability registry and the pipelines into the
// single object consumed by the HTTP layer.
package service

import (
	"context"

	"github.com/rs/zerolog"

	"inferd/internal/capability"
	"inferd/internal/pipeline"
	"inferd/pkg/types"
)

// Config encapsulates tunables for App construction.
type Config struct {
	Specs  []capability.Spec
	Logger zerolog.Logger
	// Gate thresholds; zero applies the pipeline defaults.
	ChatToxicityThreshold    float64
	ContentToxicityThreshold float64
}

// App owns the registry and the three pipelines. One instance is shared by
// all request handlers; no ambient singletons.
type App struct {
	registry  *capability.Registry
	analyzer  *pipeline.Analyzer
	engine    *pipeline.Engine
	generator *pipeline.ContentGenerator
}

// New constructs the App from Config.
func New(cfg Config) *App {
	chatThr := cfg.ChatToxicityThreshold
	if chatThr <= 0 {
		chatThr = pipeline.DefaultChatToxicityThreshold
	}
	contentThr := cfg.ContentToxicityThreshold
	if contentThr <= 0 {
		contentThr = pipeline.DefaultContentToxicityThreshold
	}
	reg := capability.NewWithConfig(capability.Config{
		Specs:  cfg.Specs,
		Logger: cfg.Logger,
	})
	chatGate := pipeline.NewSafetyGate(reg, chatThr, "chat")
	contentGate := pipeline.NewSafetyGate(reg, contentThr, "content")
	return &App{
		registry:  reg,
		analyzer:  pipeline.NewAnalyzer(reg, cfg.Logger),
		engine:    pipeline.NewEngine(reg, chatGate, cfg.Logger),
		generator: pipeline.NewContentGenerator(reg, contentGate),
	}
}

// Registry exposes the capability registry for warmup and tests.
func (a *App) Registry() *capability.Registry { return a.registry }

// Analyze runs the multimodal analysis pipeline.
func (a *App) Analyze(ctx context.Context, image []byte, contextText string) (types.AnalysisResult, error) {
	return a.analyzer.Analyze(ctx, image, contextText)
}

// Chat processes one conversation turn.
func (a *App) Chat(ctx context.Context, sessionID, message string) (types.TurnResult, types.SessionInfo, error) {
	return a.engine.ProcessTurn(ctx, sessionID, message)
}

// Conversation returns the session snapshot; empty default for unknown ids.
func (a *App) Conversation(sessionID string) types.ConversationSnapshot {
	return a.engine.Snapshot(sessionID)
}

// Generate runs the safety-gated generation pipeline.
func (a *App) Generate(ctx context.Context, prompt string, maxLength int) (*types.GenerationResult, *pipeline.Rejection, error) {
	return a.generator.GenerateSafe(ctx, prompt, maxLength)
}

// Status reports the registry snapshot and aggregate health.
func (a *App) Status() types.StatusResponse {
	return a.registry.Status()
}

// Ready reports whether at least one capability has loaded.
func (a *App) Ready() bool { return a.registry.Ready() }

// Close releases loaded capabilities.
func (a *App) Close() error { return a.registry.Close() }
