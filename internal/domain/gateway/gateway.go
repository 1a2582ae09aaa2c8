package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/yanqian/faqbot/pkg/errors"
	"github.com/yanqian/faqbot/pkg/metrics"
)

const (
	// FallbackAnswer accompanies every ModelUnavailable failure.
	FallbackAnswer = "I'm having trouble generating a response right now. Please try again later."
	// EmptyCompletionAnswer is returned when the engine produced no candidate text.
	EmptyCompletionAnswer = "Sorry, I couldn't generate a response."

	defaultMaxTokens   = 256
	defaultLoadTimeout = 2 * time.Minute
	loadFlightKey      = "model"
)

var errGatewayClosed = errors.New("gateway closed")

type handle struct {
	model Model
}

// Gateway owns the process-wide model handle. The handle is populated at most
// once; concurrent first callers share a single load and a failed load leaves
// the slot empty for a later retry. Generation never holds the load lock.
type Gateway struct {
	cfg     Config
	loader  Loader
	counter TokenCounter
	locker  Locker
	logger  *slog.Logger

	handle atomic.Pointer[handle]
	closed atomic.Bool
	group  singleflight.Group
	slots  *semaphore.Weighted
}

// NewGateway builds a gateway. counter and locker may be nil.
func NewGateway(cfg Config, loader Loader, counter TokenCounter, locker Locker, logger *slog.Logger) *Gateway {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = defaultLoadTimeout
	}
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if strings.TrimSpace(cfg.CompanyContext) == "" {
		cfg.CompanyContext = DefaultCompanyContext
	}
	return &Gateway{
		cfg:     cfg,
		loader:  loader,
		counter: counter,
		locker:  locker,
		logger:  logger.With("component", "gateway"),
		slots:   semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
}

// Generate answers question with the local model. maxTokens <= 0 selects the
// configured ceiling; larger values are clamped to it. On failure the returned
// text is FallbackAnswer and the error carries the model_unavailable code.
func (g *Gateway) Generate(ctx context.Context, question string, maxTokens int) (answer string, err error) {
	start := time.Now()
	status := "success"
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.Wrap(apperrors.CodeModelUnavailable, "model engine panicked", fmt.Errorf("%v", r))
		}
		if err != nil {
			answer = FallbackAnswer
			status = "error"
		}
		generationSeconds.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}()

	model, err := g.acquire(ctx)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeModelUnavailable, "model unavailable", err)
	}

	prompt := buildPrompt(g.cfg.SystemPrompt, g.cfg.CompanyContext, question)
	limit, promptTokens, err := g.completionBudget(prompt, maxTokens)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeModelUnavailable, "prompt does not fit", err)
	}

	if err := g.slots.Acquire(ctx, 1); err != nil {
		return "", apperrors.Wrap(apperrors.CodeModelUnavailable, "wait for generation slot", err)
	}
	defer g.slots.Release(1)

	completion, err := model.Complete(ctx, CompletionRequest{
		Prompt:        prompt,
		MaxTokens:     limit,
		Temperature:   g.cfg.Temperature,
		TopP:          g.cfg.TopP,
		RepeatPenalty: g.cfg.RepeatPenalty,
		Stop:          append([]string(nil), stopSequences...),
	})
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeModelUnavailable, "generation failed", err)
	}

	g.recordUsage(completion, promptTokens)

	text := extractText(completion)
	if text == "" {
		status = "empty"
		g.logger.Warn("model returned no usable text", "choices", len(completion.Choices))
		return EmptyCompletionAnswer, nil
	}
	return text, nil
}

// Warm loads the model ahead of the first request.
func (g *Gateway) Warm(ctx context.Context) error {
	_, err := g.acquire(ctx)
	return err
}

// Loaded reports whether the shared handle is populated.
func (g *Gateway) Loaded() bool {
	return g.handle.Load() != nil
}

// Close releases the loaded model. Later calls fail with model_unavailable.
func (g *Gateway) Close() error {
	g.closed.Store(true)
	h := g.handle.Swap(nil)
	modelLoadedGauge.Set(0)
	if h == nil {
		return nil
	}
	return h.model.Close()
}

func (g *Gateway) acquire(ctx context.Context) (Model, error) {
	if h := g.handle.Load(); h != nil {
		return h.model, nil
	}
	if g.closed.Load() {
		return nil, errGatewayClosed
	}

	// The load outlives any single caller: waiters that give up leave it running
	// for the others.
	loadCtx := context.WithoutCancel(ctx)
	ch := g.group.DoChan(loadFlightKey, func() (any, error) {
		if h := g.handle.Load(); h != nil {
			return h.model, nil
		}
		return g.load(loadCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Model), nil
	}
}

func (g *Gateway) load(ctx context.Context) (model Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			model = nil
			err = apperrors.Wrap(apperrors.CodeModelLoad, "model loader panicked", fmt.Errorf("%v", r))
		}
		if err != nil {
			loadAttemptsTotal.WithLabelValues("error").Inc()
			g.logger.Error("model load failed", "model_path", g.cfg.ModelPath, "error", err)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, g.cfg.LoadTimeout)
	defer cancel()

	if g.locker != nil {
		unlock, lockErr := g.locker.Lock(ctx)
		if lockErr != nil {
			return nil, apperrors.Wrap(apperrors.CodeModelLoad, "acquire model lock", lockErr)
		}
		defer func() {
			if unlockErr := unlock(); unlockErr != nil {
				g.logger.Warn("release model lock failed", "error", unlockErr)
			}
		}()
	}
	if g.closed.Load() {
		return nil, apperrors.Wrap(apperrors.CodeModelLoad, "load model", errGatewayClosed)
	}

	start := time.Now()
	g.logger.Info("loading model", "model_path", g.cfg.ModelPath, "context_size", g.cfg.ContextSize, "gpu_layers", g.cfg.GPULayers)
	loaded, loadErr := g.loader.Load(ctx, LoadConfig{
		ModelPath:   g.cfg.ModelPath,
		ContextSize: g.cfg.ContextSize,
		Threads:     g.cfg.Threads,
		GPULayers:   g.cfg.GPULayers,
		BatchSize:   g.cfg.BatchSize,
	})
	if loadErr != nil {
		return nil, apperrors.Wrap(apperrors.CodeModelLoad, "load model", loadErr)
	}
	if loaded == nil {
		return nil, apperrors.Wrap(apperrors.CodeModelLoad, "load model", errors.New("loader returned no model"))
	}

	if g.closed.Load() {
		_ = loaded.Close()
		return nil, apperrors.Wrap(apperrors.CodeModelLoad, "load model", errGatewayClosed)
	}

	g.handle.Store(&handle{model: loaded})
	loadAttemptsTotal.WithLabelValues("success").Inc()
	modelLoadedGauge.Set(1)
	g.logger.Info("model loaded", "latency_ms", time.Since(start).Milliseconds())
	return loaded, nil
}

// completionBudget clamps the requested output length to the configured
// ceiling and to the room the prompt leaves in the context window.
func (g *Gateway) completionBudget(prompt string, requested int) (limit, promptTokens int, err error) {
	limit = g.cfg.MaxTokens
	if requested > 0 && requested < limit {
		limit = requested
	}
	if g.counter == nil || g.cfg.ContextSize <= 0 {
		return limit, 0, nil
	}
	promptTokens = g.counter.Count(prompt)
	room := g.cfg.ContextSize - promptTokens
	if room <= 0 {
		return 0, promptTokens, fmt.Errorf("prompt of %d tokens exceeds context window of %d", promptTokens, g.cfg.ContextSize)
	}
	if limit > room {
		limit = room
	}
	return limit, promptTokens, nil
}

func (g *Gateway) recordUsage(completion Completion, estimatedPrompt int) {
	prompt := completion.PromptTokens
	if prompt == 0 {
		prompt = estimatedPrompt
	}
	usage := metrics.NewTokenUsage(prompt, completion.CompletionTokens)
	if usage.IsZero() {
		return
	}
	tokensTotal.WithLabelValues("prompt").Add(float64(usage.PromptTokens))
	tokensTotal.WithLabelValues("completion").Add(float64(usage.CompletionTokens))
	g.logger.Debug("generation usage", "prompt_tokens", usage.PromptTokens, "completion_tokens", usage.CompletionTokens, "total_tokens", usage.TotalTokens)
}

func extractText(completion Completion) string {
	if len(completion.Choices) == 0 {
		return ""
	}
	text := strings.TrimSpace(completion.Choices[0].Text)
	return strings.TrimSpace(truncateAtStop(text))
}
