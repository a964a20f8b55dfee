// Package pipeline composes capabilities into the request-level inference
// flows: safety gating, multimodal analysis, conversation turns, and gated
// content generation. Pipelines degrade per-signal when optional
// capabilities are unavailable and return typed outcomes; they never
// persist anything themselves.
package pipeline
