package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/faqbot/pkg/errors"
)

func TestGenerateLoadsOnceUnderConcurrentFirstUse(t *testing.T) {
	model := &stubModel{completion: Completion{Choices: []Choice{{Text: "  Hello there.  "}}}}
	loader := &stubLoader{model: model, delay: 20 * time.Millisecond}
	gw := newTestGateway(Config{MaxConcurrent: 8}, loader, nil, nil)

	const callers = 16
	var wg sync.WaitGroup
	answers := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			answers[i], errs[i] = gw.Generate(context.Background(), "hi", 0)
		}(i)
	}
	wg.Wait()

	require.Equal(t, int32(1), loader.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, "Hello there.", answers[i])
	}
	require.True(t, gw.Loaded())
}

func TestGenerateLoadFailureIsRetryable(t *testing.T) {
	loader := &stubLoader{err: errors.New("model file not found")}
	gw := newTestGateway(Config{}, loader, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			answer, err := gw.Generate(context.Background(), "hi", 0)
			if !apperrors.IsCode(err, apperrors.CodeModelUnavailable) || !apperrors.IsCode(err, apperrors.CodeModelLoad) {
				t.Errorf("expected model load failure, got %v", err)
			}
			if answer != FallbackAnswer {
				t.Errorf("expected fallback answer, got %q", answer)
			}
		}()
	}
	wg.Wait()
	require.False(t, gw.Loaded())
	failedAttempts := loader.calls.Load()
	require.GreaterOrEqual(t, failedAttempts, int32(1))

	loader.setResult(&stubModel{completion: Completion{Choices: []Choice{{Text: "ok"}}}}, nil)
	answer, err := gw.Generate(context.Background(), "hi", 0)
	require.NoError(t, err)
	require.Equal(t, "ok", answer)
	require.Equal(t, failedAttempts+1, loader.calls.Load())
	require.True(t, gw.Loaded())
}

func TestGenerateLoaderPanicDoesNotEscape(t *testing.T) {
	loader := &stubLoader{panicWith: "engine rejected configuration"}
	gw := newTestGateway(Config{}, loader, nil, nil)

	answer, err := gw.Generate(context.Background(), "hi", 0)
	require.True(t, apperrors.IsCode(err, apperrors.CodeModelLoad))
	require.Equal(t, FallbackAnswer, answer)
	require.False(t, gw.Loaded())
}

func TestGenerateModelPanicDoesNotEscape(t *testing.T) {
	loader := &stubLoader{model: &stubModel{panicWith: "segfault"}}
	gw := newTestGateway(Config{}, loader, nil, nil)

	answer, err := gw.Generate(context.Background(), "hi", 0)
	require.True(t, apperrors.IsCode(err, apperrors.CodeModelUnavailable))
	require.Equal(t, FallbackAnswer, answer)
}

func TestGenerateCompletionError(t *testing.T) {
	loader := &stubLoader{model: &stubModel{err: errors.New("connection refused")}}
	gw := newTestGateway(Config{}, loader, nil, nil)

	answer, err := gw.Generate(context.Background(), "hi", 0)
	require.True(t, apperrors.IsCode(err, apperrors.CodeModelUnavailable))
	require.False(t, apperrors.IsCode(err, apperrors.CodeModelLoad))
	require.ErrorContains(t, err, "connection refused")
	require.Equal(t, FallbackAnswer, answer)
}

func TestGenerateNoCandidates(t *testing.T) {
	loader := &stubLoader{model: &stubModel{completion: Completion{}}}
	gw := newTestGateway(Config{}, loader, nil, nil)

	answer, err := gw.Generate(context.Background(), "hi", 0)
	require.NoError(t, err)
	require.Equal(t, EmptyCompletionAnswer, answer)
}

func TestGenerateUsesFirstCandidateAndStops(t *testing.T) {
	model := &stubModel{completion: Completion{Choices: []Choice{
		{Text: "\n Programs run for 8 weeks.\n\nUSER: and then?"},
		{Text: "ignored"},
	}}}
	gw := newTestGateway(Config{}, &stubLoader{model: model}, nil, nil)

	answer, err := gw.Generate(context.Background(), "how long?", 0)
	require.NoError(t, err)
	require.Equal(t, "Programs run for 8 weeks.", answer)
}

func TestGenerateSamplingAndClamp(t *testing.T) {
	model := &stubModel{completion: Completion{Choices: []Choice{{Text: "ok"}}}}
	cfg := Config{
		MaxTokens:      256,
		Temperature:    0.2,
		TopP:           0.95,
		RepeatPenalty:  1.1,
		SystemPrompt:   "persona",
		CompanyContext: "company",
	}
	gw := newTestGateway(cfg, &stubLoader{model: model}, nil, nil)

	cases := []struct {
		requested int
		want      int
	}{
		{requested: 0, want: 256},
		{requested: -3, want: 256},
		{requested: 64, want: 64},
		{requested: 4096, want: 256},
	}
	for _, tc := range cases {
		_, err := gw.Generate(context.Background(), "  fees?  ", tc.requested)
		require.NoError(t, err)
		req := model.lastRequest()
		require.Equal(t, tc.want, req.MaxTokens, "requested %d", tc.requested)
		require.Equal(t, float32(0.2), req.Temperature)
		require.Equal(t, float32(0.95), req.TopP)
		require.Equal(t, float32(1.1), req.RepeatPenalty)
		require.Equal(t, stopSequences, req.Stop)
		require.Contains(t, req.Prompt, "SYSTEM:\npersona")
		require.Contains(t, req.Prompt, "CONTEXT:\ncompany")
		require.Contains(t, req.Prompt, "USER:\nfees?\n")
	}
}

func TestGenerateClampsToContextWindow(t *testing.T) {
	model := &stubModel{completion: Completion{Choices: []Choice{{Text: "ok"}}}}
	gw := newTestGateway(Config{MaxTokens: 256, ContextSize: 300}, &stubLoader{model: model}, fixedCounter(200), nil)

	_, err := gw.Generate(context.Background(), "hi", 0)
	require.NoError(t, err)
	require.Equal(t, 100, model.lastRequest().MaxTokens)

	tight := newTestGateway(Config{MaxTokens: 256, ContextSize: 150}, &stubLoader{model: model}, fixedCounter(200), nil)
	answer, err := tight.Generate(context.Background(), "hi", 0)
	require.True(t, apperrors.IsCode(err, apperrors.CodeModelUnavailable))
	require.Equal(t, FallbackAnswer, answer)
}

func TestGenerateBoundsConcurrency(t *testing.T) {
	model := &stubModel{completion: Completion{Choices: []Choice{{Text: "ok"}}}, delay: 10 * time.Millisecond}
	gw := newTestGateway(Config{MaxConcurrent: 2}, &stubLoader{model: model}, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = gw.Generate(context.Background(), "hi", 0)
		}()
	}
	wg.Wait()
	require.LessOrEqual(t, model.maxActive.Load(), int32(2))
	require.Equal(t, int32(10), model.calls.Load())
}

func TestGenerateHoldsLockerOnlyForLoad(t *testing.T) {
	model := &stubModel{completion: Completion{Choices: []Choice{{Text: "ok"}}}}
	locker := &stubLocker{}
	gw := newTestGateway(Config{}, &stubLoader{model: model}, nil, locker)

	for i := 0; i < 3; i++ {
		_, err := gw.Generate(context.Background(), "hi", 0)
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), locker.locks.Load())
	require.Equal(t, int32(1), locker.unlocks.Load())
}

func TestGenerateLockFailure(t *testing.T) {
	loader := &stubLoader{model: &stubModel{}}
	gw := newTestGateway(Config{}, loader, nil, &stubLocker{err: errors.New("lock file busy")})

	_, err := gw.Generate(context.Background(), "hi", 0)
	require.True(t, apperrors.IsCode(err, apperrors.CodeModelLoad))
	require.Equal(t, int32(0), loader.calls.Load())
}

func TestGenerateCallerCancelledWhileLoading(t *testing.T) {
	loader := &stubLoader{model: &stubModel{completion: Completion{Choices: []Choice{{Text: "ok"}}}}, delay: 50 * time.Millisecond}
	gw := newTestGateway(Config{}, loader, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := gw.Generate(ctx, "hi", 0)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// the load keeps running for other callers
	require.Eventually(t, gw.Loaded, time.Second, 5*time.Millisecond)
	require.Equal(t, int32(1), loader.calls.Load())
}

func TestWarmAndClose(t *testing.T) {
	model := &stubModel{}
	gw := newTestGateway(Config{}, &stubLoader{model: model}, nil, nil)

	require.False(t, gw.Loaded())
	require.NoError(t, gw.Warm(context.Background()))
	require.True(t, gw.Loaded())

	require.NoError(t, gw.Close())
	require.False(t, gw.Loaded())
	require.True(t, model.closed.Load())

	_, err := gw.Generate(context.Background(), "hi", 0)
	require.True(t, apperrors.IsCode(err, apperrors.CodeModelUnavailable))
}

func newTestGateway(cfg Config, loader Loader, counter TokenCounter, locker Locker) *Gateway {
	return NewGateway(cfg, loader, counter, locker, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type stubLoader struct {
	mu        sync.Mutex
	model     Model
	err       error
	panicWith any
	delay     time.Duration
	calls     atomic.Int32
}

func (l *stubLoader) Load(ctx context.Context, cfg LoadConfig) (Model, error) {
	l.calls.Add(1)
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.panicWith != nil {
		panic(l.panicWith)
	}
	if l.err != nil {
		return nil, l.err
	}
	return l.model, nil
}

func (l *stubLoader) setResult(model Model, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.model = model
	l.err = err
}

type stubModel struct {
	mu         sync.Mutex
	completion Completion
	err        error
	panicWith  any
	delay      time.Duration
	last       CompletionRequest

	calls     atomic.Int32
	active    atomic.Int32
	maxActive atomic.Int32
	closed    atomic.Bool
}

func (m *stubModel) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	m.calls.Add(1)
	current := m.active.Add(1)
	defer m.active.Add(-1)
	for {
		seen := m.maxActive.Load()
		if current <= seen || m.maxActive.CompareAndSwap(seen, current) {
			break
		}
	}
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	m.last = req
	m.mu.Unlock()
	return m.completion, m.err
}

func (m *stubModel) Close() error {
	m.closed.Store(true)
	return nil
}

func (m *stubModel) lastRequest() CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

type stubLocker struct {
	err     error
	locks   atomic.Int32
	unlocks atomic.Int32
}

func (l *stubLocker) Lock(ctx context.Context) (func() error, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.locks.Add(1)
	return func() error {
		l.unlocks.Add(1)
		return nil
	}, nil
}

type fixedCounter int

func (c fixedCounter) Count(string) int { return int(c) }
