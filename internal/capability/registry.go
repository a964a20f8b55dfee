package capability

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"inferd/pkg/types"
)

// entry holds the lifecycle state of one capability. State fields are
// guarded by the registry mutex; loadMu serializes the load itself so that
// at most one caller ever runs the strategies for a given name.
type entry struct {
	spec     Spec
	loadMu   sync.Mutex
	state    State
	invoker  Invoker
	degraded bool
	lastErr  string
	invokeCh chan struct{} // size 1: single in-flight invocation
}

// Config encapsulates tunables for Registry construction.
type Config struct {
	Specs  []Spec
	Logger zerolog.Logger
}

// Registry owns the set of capabilities and loads each at most once.
// A capability that fails to load stays failed for the life of the process.
type Registry struct {
	mu         sync.RWMutex
	caps       map[string]*entry
	log        zerolog.Logger
	startTime  time.Time
	loadsTotal atomic.Uint64
}

// New constructs a Registry over the given capability specs.
func New(specs []Spec) *Registry {
	return NewWithConfig(Config{Specs: specs, Logger: zerolog.Nop()})
}

// NewWithConfig constructs a Registry from Config.
func NewWithConfig(cfg Config) *Registry {
	r := &Registry{
		caps:      make(map[string]*entry, len(cfg.Specs)),
		log:       cfg.Logger,
		startTime: time.Now(),
	}
	for _, s := range cfg.Specs {
		r.caps[s.Name] = &entry{
			spec:     s,
			state:    StateUnloaded,
			invokeCh: make(chan struct{}, 1),
		}
	}
	return r
}

// handle resolves a capability, loading it on first use. Concurrent callers
// for the same name block on loadMu until the single load finishes, then
// observe the published ready/failed state. A failed capability is returned
// as unavailable without re-attempting the load.
func (r *Registry) handle(name string) (*entry, error) {
	r.mu.RLock()
	e := r.caps[name]
	var st State
	var lastErr string
	if e != nil {
		st = e.state
		lastErr = e.lastErr
	}
	r.mu.RUnlock()
	if e == nil {
		return nil, notFoundError{name: name}
	}
	// Fast path: no exclusion needed once a terminal state is published.
	switch st {
	case StateReady:
		return e, nil
	case StateFailed:
		return nil, unavailableError{name: name, reason: lastErr}
	}

	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	// Re-check under exclusion: another caller may have finished the load
	// while we waited.
	r.mu.RLock()
	st = e.state
	lastErr = e.lastErr
	r.mu.RUnlock()
	switch st {
	case StateReady:
		return e, nil
	case StateFailed:
		return nil, unavailableError{name: name, reason: lastErr}
	}

	// Still unloaded: this caller performs the one load attempt.
	r.mu.Lock()
	e.state = StateLoading
	r.mu.Unlock()
	r.loadsTotal.Add(1)
	start := time.Now()
	r.log.Info().Str("capability", name).Msg("load start")

	inv, degraded, err := r.runStrategies(e.spec)
	r.mu.Lock()
	if err != nil {
		e.state = StateFailed
		e.lastErr = err.Error()
		r.mu.Unlock()
		capabilityLoads.WithLabelValues(name, "failed").Inc()
		r.log.Error().Str("capability", name).Err(err).Msg("load failed")
		return nil, loadFailedError{name: name, err: err}
	}
	e.invoker = inv
	e.degraded = degraded
	e.state = StateReady
	r.mu.Unlock()
	outcome := "ready"
	if degraded {
		outcome = "degraded"
	}
	capabilityLoads.WithLabelValues(name, outcome).Inc()
	r.log.Info().Str("capability", name).Bool("degraded", degraded).
		Dur("dur", time.Since(start)).Msg("load ready")
	return e, nil
}

// runStrategies tries each load strategy in order; first success wins.
// All failures are aggregated into the returned error.
func (r *Registry) runStrategies(spec Spec) (Invoker, bool, error) {
	if len(spec.Strategies) == 0 {
		return nil, false, errNoStrategies
	}
	var fails []string
	for _, s := range spec.Strategies {
		inv, err := s.Load()
		if err == nil {
			if s.Degraded {
				r.log.Warn().Str("capability", spec.Name).Str("strategy", s.Name).
					Msg("loaded via fallback strategy")
			}
			return inv, s.Degraded, nil
		}
		fails = append(fails, s.Name+": "+err.Error())
	}
	return nil, false, strategiesError{detail: strings.Join(fails, "; ")}
}

// Ensure resolves a capability without invoking it, triggering the lazy
// load. Used to warm capabilities at startup.
func (r *Registry) Ensure(name string) error {
	_, err := r.handle(name)
	return err
}

// acquire reserves the single invocation slot of an entry. The returned
// release func must be called once the invocation has finished.
func (e *entry) acquire(ctx context.Context) (func(), error) {
	select {
	case e.invokeCh <- struct{}{}:
		return func() { <-e.invokeCh }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ClassifyImage invokes an image classifier capability.
func (r *Registry) ClassifyImage(ctx context.Context, name string, image []byte) ([]types.Prediction, error) {
	e, err := r.handle(name)
	if err != nil {
		return nil, err
	}
	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	ic, ok := e.invoker.(ImageClassifier)
	if !ok {
		return nil, kindMismatch(name, KindImageClassifier)
	}
	out, err := ic.ClassifyImage(ctx, image)
	if err != nil {
		return nil, invocationError{name: name, err: err}
	}
	capabilityInvocations.WithLabelValues(name).Inc()
	return out, nil
}

// ClassifyText invokes a text classifier capability.
func (r *Registry) ClassifyText(ctx context.Context, name, text string) (types.Classification, error) {
	e, err := r.handle(name)
	if err != nil {
		return types.Classification{}, err
	}
	release, err := e.acquire(ctx)
	if err != nil {
		return types.Classification{}, err
	}
	defer release()
	tc, ok := e.invoker.(TextClassifier)
	if !ok {
		return types.Classification{}, kindMismatch(name, KindTextClassifier)
	}
	out, err := tc.ClassifyText(ctx, text)
	if err != nil {
		return types.Classification{}, invocationError{name: name, err: err}
	}
	capabilityInvocations.WithLabelValues(name).Inc()
	return out, nil
}

// ClassifyLabels invokes a zero-shot classifier capability.
func (r *Registry) ClassifyLabels(ctx context.Context, name, text string, labels []string) ([]types.Classification, error) {
	e, err := r.handle(name)
	if err != nil {
		return nil, err
	}
	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	zc, ok := e.invoker.(ZeroShotClassifier)
	if !ok {
		return nil, kindMismatch(name, KindZeroShotClassifier)
	}
	out, err := zc.ClassifyLabels(ctx, text, labels)
	if err != nil {
		return nil, invocationError{name: name, err: err}
	}
	capabilityInvocations.WithLabelValues(name).Inc()
	return out, nil
}

// Generate invokes a generator capability.
func (r *Registry) Generate(ctx context.Context, name, prompt string, opts GenerateOptions) (string, error) {
	e, err := r.handle(name)
	if err != nil {
		return "", err
	}
	release, err := e.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()
	g, ok := e.invoker.(TextGenerator)
	if !ok {
		return "", kindMismatch(name, KindGenerator)
	}
	out, err := g.Generate(ctx, prompt, opts)
	if err != nil {
		return "", invocationError{name: name, err: err}
	}
	capabilityInvocations.WithLabelValues(name).Inc()
	return out, nil
}

// Summarize invokes a summarizer capability.
func (r *Registry) Summarize(ctx context.Context, name, text string) (string, error) {
	e, err := r.handle(name)
	if err != nil {
		return "", err
	}
	release, err := e.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()
	s, ok := e.invoker.(TextSummarizer)
	if !ok {
		return "", kindMismatch(name, KindSummarizer)
	}
	out, err := s.Summarize(ctx, text)
	if err != nil {
		return "", invocationError{name: name, err: err}
	}
	capabilityInvocations.WithLabelValues(name).Inc()
	return out, nil
}

// Embed invokes an embedder capability.
func (r *Registry) Embed(ctx context.Context, name, text string) ([]float32, error) {
	e, err := r.handle(name)
	if err != nil {
		return nil, err
	}
	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	em, ok := e.invoker.(Embedder)
	if !ok {
		return nil, kindMismatch(name, KindEmbedder)
	}
	out, err := em.Embed(ctx, text)
	if err != nil {
		return nil, invocationError{name: name, err: err}
	}
	capabilityInvocations.WithLabelValues(name).Inc()
	return out, nil
}

// Ready reports whether at least one capability has loaded successfully.
func (r *Registry) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.caps {
		if e.state == StateReady {
			return true
		}
	}
	return false
}

// Snapshot returns the per-capability states at read time. Entries are not
// read atomically with respect to each other.
func (r *Registry) Snapshot() []types.CapabilityStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.CapabilityStatus, 0, len(r.caps))
	for _, e := range r.caps {
		out = append(out, types.CapabilityStatus{
			Name:      e.spec.Name,
			Kind:      string(e.spec.Kind),
			State:     string(e.state),
			Degraded:  e.degraded,
			LastError: e.lastErr,
		})
	}
	return out
}

// Status builds the detailed status response for GET /status.
func (r *Registry) Status() types.StatusResponse {
	caps := r.Snapshot()
	return types.StatusResponse{
		Capabilities:   caps,
		Status:         Aggregate(caps),
		LoadsTotal:     r.loadsTotal.Load(),
		UptimeSeconds:  int64(time.Since(r.startTime).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
	}
}

// Aggregate computes overall health from per-capability states: healthy when
// every capability is ready, unhealthy when none are, degraded otherwise.
func Aggregate(caps []types.CapabilityStatus) string {
	ready := 0
	for _, c := range caps {
		if c.State == string(StateReady) {
			ready++
		}
	}
	switch {
	case len(caps) > 0 && ready == len(caps):
		return "healthy"
	case ready == 0:
		return "unhealthy"
	default:
		return "degraded"
	}
}

// Close releases all loaded capability handles.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for _, e := range r.caps {
		if e.invoker != nil {
			if err := e.invoker.Close(); err != nil && first == nil {
				first = err
			}
			e.invoker = nil
		}
	}
	return first
}
