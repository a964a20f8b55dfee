package capability

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"inferd/pkg/types"
)

type fakeClassifier struct {
	nopCloser
	label string
	score float64
}

func (f fakeClassifier) ClassifyText(_ context.Context, _ string) (types.Classification, error) {
	return types.Classification{Label: f.label, Score: f.score}, nil
}

func countingSpec(name string, loads *atomic.Int32, inv Invoker, loadErr error) Spec {
	return Spec{
		Name: name,
		Kind: KindTextClassifier,
		Strategies: []Strategy{{
			Name: "primary",
			Load: func() (Invoker, error) {
				loads.Add(1)
				if loadErr != nil {
					return nil, loadErr
				}
				return inv, nil
			},
		}},
	}
}

func TestGetLoadsAtMostOnce(t *testing.T) {
	var loads atomic.Int32
	r := New([]Spec{countingSpec("sentiment", &loads, fakeClassifier{label: "NEUTRAL", score: 0.5}, nil)})

	const n = 64
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.ClassifyText(context.Background(), "sentiment", "hi")
		}(i)
	}
	wg.Wait()

	if got := loads.Load(); got != 1 {
		t.Fatalf("expected exactly 1 load, got %d", got)
	}
	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: unexpected error: %v", i, err)
		}
	}
}

func TestFailedLoadIsPermanent(t *testing.T) {
	var loads atomic.Int32
	r := New([]Spec{countingSpec("sentiment", &loads, nil, errors.New("weights corrupt"))})

	// The triggering caller sees the load failure itself.
	_, err := r.ClassifyText(context.Background(), "sentiment", "hi")
	if err == nil || !IsUnavailable(err) {
		t.Fatalf("expected unavailable-class error, got %v", err)
	}
	var lf loadFailedError
	if !errors.As(err, &lf) {
		t.Fatalf("first caller should see the load failure, got %v", err)
	}

	// Subsequent callers get a fast unavailable without re-running the load.
	for i := 0; i < 5; i++ {
		_, err := r.ClassifyText(context.Background(), "sentiment", "hi")
		if !IsUnavailable(err) {
			t.Fatalf("expected unavailable, got %v", err)
		}
		var again loadFailedError
		if errors.As(err, &again) {
			t.Fatalf("later callers must not see the original load error")
		}
	}
	if got := loads.Load(); got != 1 {
		t.Fatalf("load re-attempted: count=%d", got)
	}
}

func TestConcurrentGetAfterFailureCountsOne(t *testing.T) {
	var loads atomic.Int32
	r := New([]Spec{countingSpec("toxicity", &loads, nil, errors.New("boom"))})

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.ClassifyText(context.Background(), "toxicity", "x")
		}()
	}
	wg.Wait()
	if got := loads.Load(); got != 1 {
		t.Fatalf("expected 1 load attempt, got %d", got)
	}
}

func TestUnknownCapability(t *testing.T) {
	r := New(nil)
	_, err := r.ClassifyText(context.Background(), "nope", "x")
	if !IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestFallbackStrategyMarksDegraded(t *testing.T) {
	spec := Spec{
		Name: "sentiment",
		Kind: KindTextClassifier,
		Strategies: []Strategy{
			{Name: "primary", Load: func() (Invoker, error) { return nil, errors.New("no artifact") }},
			{Name: "fallback", Degraded: true, Load: func() (Invoker, error) {
				return fakeClassifier{label: "NEUTRAL", score: 0.5}, nil
			}},
		},
	}
	r := New([]Spec{spec})
	if _, err := r.ClassifyText(context.Background(), "sentiment", "x"); err != nil {
		t.Fatalf("expected fallback success, got %v", err)
	}
	snap := r.Snapshot()
	if len(snap) != 1 || snap[0].State != string(StateReady) || !snap[0].Degraded {
		t.Fatalf("expected ready+degraded, got %+v", snap)
	}
}

func TestAllStrategiesFailAggregatesErrors(t *testing.T) {
	spec := Spec{
		Name: "generator",
		Kind: KindGenerator,
		Strategies: []Strategy{
			{Name: "a", Load: func() (Invoker, error) { return nil, errors.New("err-a") }},
			{Name: "b", Load: func() (Invoker, error) { return nil, errors.New("err-b") }},
		},
	}
	r := New([]Spec{spec})
	_, err := r.Generate(context.Background(), "generator", "p", GenerateOptions{})
	if err == nil {
		t.Fatalf("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"a: err-a", "b: err-b"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error %q missing %q", msg, want)
		}
	}
}

func TestBlockedGetObservesLoaderOutcome(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var loads atomic.Int32
	spec := Spec{
		Name: "sentiment",
		Kind: KindTextClassifier,
		Strategies: []Strategy{{
			Name: "slow",
			Load: func() (Invoker, error) {
				loads.Add(1)
				close(started)
				<-release
				return fakeClassifier{label: "NEUTRAL", score: 0.5}, nil
			},
		}},
	}
	r := New([]Spec{spec})

	first := make(chan error, 1)
	go func() {
		_, err := r.ClassifyText(context.Background(), "sentiment", "x")
		first <- err
	}()
	<-started

	// Second caller blocks on the in-flight load, then observes ready.
	second := make(chan error, 1)
	go func() {
		_, err := r.ClassifyText(context.Background(), "sentiment", "x")
		second <- err
	}()

	select {
	case <-second:
		t.Fatalf("second caller returned before load finished")
	case <-time.After(30 * time.Millisecond):
	}
	close(release)

	if err := <-first; err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("second: %v", err)
	}
	if got := loads.Load(); got != 1 {
		t.Fatalf("expected 1 load, got %d", got)
	}
}

func TestLoadsOfDifferentCapabilitiesRunInParallel(t *testing.T) {
	gateA := make(chan struct{})
	startedA := make(chan struct{})
	specA := Spec{Name: "a", Kind: KindTextClassifier, Strategies: []Strategy{{
		Name: "slow",
		Load: func() (Invoker, error) {
			close(startedA)
			<-gateA
			return fakeClassifier{}, nil
		},
	}}}
	specB := Spec{Name: "b", Kind: KindTextClassifier, Strategies: []Strategy{{
		Name: "fast",
		Load: func() (Invoker, error) { return fakeClassifier{}, nil },
	}}}
	r := New([]Spec{specA, specB})

	go func() { _, _ = r.ClassifyText(context.Background(), "a", "x") }()
	<-startedA

	done := make(chan error, 1)
	go func() {
		_, err := r.ClassifyText(context.Background(), "b", "x")
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("b: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("load of b blocked behind load of a")
	}
	close(gateA)
}

func TestInvocationErrorDoesNotChangeState(t *testing.T) {
	spec := Spec{Name: "sentiment", Kind: KindTextClassifier, Strategies: []Strategy{{
		Name: "primary",
		Load: func() (Invoker, error) { return flakyClassifier{}, nil },
	}}}
	r := New([]Spec{spec})

	_, err := r.ClassifyText(context.Background(), "sentiment", "x")
	if !IsInvocationFailure(err) {
		t.Fatalf("expected invocation failure, got %v", err)
	}
	snap := r.Snapshot()
	if snap[0].State != string(StateReady) {
		t.Fatalf("invocation error must not change state, got %s", snap[0].State)
	}
}

type flakyClassifier struct{ nopCloser }

func (flakyClassifier) ClassifyText(_ context.Context, _ string) (types.Classification, error) {
	return types.Classification{}, errors.New("transient")
}

func TestGenerateAndSummarizeByName(t *testing.T) {
	specs := []Spec{
		{Name: Generator, Kind: KindGenerator, Strategies: []Strategy{{
			Name: "primary", Load: func() (Invoker, error) { return templateGenerator{}, nil },
		}}},
		{Name: Summarizer, Kind: KindSummarizer, Strategies: []Strategy{{
			Name: "primary", Load: func() (Invoker, error) { return frequencySummarizer{maxSentences: 1}, nil },
		}}},
	}
	r := New(specs)

	out, err := r.Generate(context.Background(), Generator, "Once upon a time", GenerateOptions{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out == "" {
		t.Fatalf("empty generation")
	}
	sum, err := r.Summarize(context.Background(), Summarizer, "First. Second. Third.")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum == "" {
		t.Fatalf("empty summary")
	}
	// A generator handle must not satisfy the summarizer invoke path.
	if _, err := r.Summarize(context.Background(), Generator, "x"); !IsInvocationFailure(err) {
		t.Fatalf("expected kind mismatch, got %v", err)
	}
}

func TestKindMismatch(t *testing.T) {
	spec := Spec{Name: "sentiment", Kind: KindTextClassifier, Strategies: []Strategy{{
		Name: "primary",
		Load: func() (Invoker, error) { return fakeClassifier{}, nil },
	}}}
	r := New([]Spec{spec})
	_, err := r.Generate(context.Background(), "sentiment", "p", GenerateOptions{})
	if !IsInvocationFailure(err) {
		t.Fatalf("expected invocation failure for kind mismatch, got %v", err)
	}
}

func TestStatusAggregate(t *testing.T) {
	ok := Spec{Name: "a", Kind: KindTextClassifier, Strategies: []Strategy{{
		Name: "primary", Load: func() (Invoker, error) { return fakeClassifier{}, nil },
	}}}
	bad := Spec{Name: "b", Kind: KindTextClassifier, Strategies: []Strategy{{
		Name: "primary", Load: func() (Invoker, error) { return nil, errors.New("boom") },
	}}}
	r := New([]Spec{ok, bad})

	if got := r.Status().Status; got != "unhealthy" {
		t.Fatalf("before any load expected unhealthy, got %s", got)
	}
	_, _ = r.ClassifyText(context.Background(), "a", "x")
	if got := r.Status().Status; got != "degraded" {
		t.Fatalf("one ready of two expected degraded, got %s", got)
	}
	_, _ = r.ClassifyText(context.Background(), "b", "x")
	st := r.Status()
	if st.Status != "degraded" {
		t.Fatalf("ready+failed expected degraded, got %s", st.Status)
	}
	if st.LoadsTotal != 2 {
		t.Fatalf("expected 2 loads, got %d", st.LoadsTotal)
	}
	if !r.Ready() {
		t.Fatalf("registry with one ready capability should report ready")
	}
}

func TestStatusHealthyWhenAllReady(t *testing.T) {
	specs := []Spec{
		{Name: "a", Kind: KindTextClassifier, Strategies: []Strategy{{
			Name: "primary", Load: func() (Invoker, error) { return fakeClassifier{}, nil },
		}}},
		{Name: "b", Kind: KindTextClassifier, Strategies: []Strategy{{
			Name: "primary", Load: func() (Invoker, error) { return fakeClassifier{}, nil },
		}}},
	}
	r := New(specs)
	_ = r.Ensure("a")
	_ = r.Ensure("b")
	if got := r.Status().Status; got != "healthy" {
		t.Fatalf("expected healthy, got %s", got)
	}
}

func TestInvokeSerializedPerCapability(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	spec := Spec{Name: "sentiment", Kind: KindTextClassifier, Strategies: []Strategy{{
		Name: "primary",
		Load: func() (Invoker, error) {
			return inFlightClassifier{inFlight: &inFlight, max: &maxInFlight}, nil
		},
	}}}
	r := New([]Spec{spec})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.ClassifyText(context.Background(), "sentiment", "x")
		}()
	}
	wg.Wait()
	if got := maxInFlight.Load(); got > 1 {
		t.Fatalf("invocations overlapped: max in-flight %d", got)
	}
}

type inFlightClassifier struct {
	nopCloser
	inFlight *atomic.Int32
	max      *atomic.Int32
}

func (p inFlightClassifier) ClassifyText(_ context.Context, _ string) (types.Classification, error) {
	cur := p.inFlight.Add(1)
	if cur > p.max.Load() {
		p.max.Store(cur)
	}
	time.Sleep(time.Millisecond)
	p.inFlight.Add(-1)
	return types.Classification{Label: "NEUTRAL", Score: 0.5}, nil
}

func TestCloseReleasesInvokers(t *testing.T) {
	closed := make(chan struct{}, 1)
	spec := Spec{Name: "a", Kind: KindTextClassifier, Strategies: []Strategy{{
		Name: "primary",
		Load: func() (Invoker, error) { return closableClassifier{ch: closed}, nil },
	}}}
	r := New([]Spec{spec})
	_ = r.Ensure("a")
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	select {
	case <-closed:
	default:
		t.Fatalf("invoker not closed")
	}
}

type closableClassifier struct {
	ch chan struct{}
}

func (c closableClassifier) Close() error {
	c.ch <- struct{}{}
	return nil
}

func (c closableClassifier) ClassifyText(_ context.Context, _ string) (types.Classification, error) {
	return types.Classification{}, nil
}
