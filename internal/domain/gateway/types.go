package gateway

import (
	"context"
	"time"
)

// Config holds the fixed parameter set of the gateway. It is read once at
// startup and applies to every load and generation for the process lifetime.
type Config struct {
	ModelPath      string
	ContextSize    int
	Threads        int
	GPULayers      int
	BatchSize      int
	Temperature    float32
	TopP           float32
	RepeatPenalty  float32
	MaxTokens      int
	MaxConcurrent  int
	LoadTimeout    time.Duration
	SystemPrompt   string
	CompanyContext string
}

// LoadConfig is the subset of Config consumed by the engine at load time.
type LoadConfig struct {
	ModelPath   string
	ContextSize int
	Threads     int
	GPULayers   int
	BatchSize   int
}

// CompletionRequest is a single prompt submitted to a loaded model.
type CompletionRequest struct {
	Prompt        string
	MaxTokens     int
	Temperature   float32
	TopP          float32
	RepeatPenalty float32
	Stop          []string
}

// Choice is one candidate completion.
type Choice struct {
	Text string
}

// Completion is the normalized engine result. Adapters translate whatever shape
// their engine returns into it.
type Completion struct {
	Choices          []Choice
	PromptTokens     int
	CompletionTokens int
}

// Model is a loaded text-generation engine.
type Model interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
	Close() error
}

// Loader brings a Model up from its artifact.
type Loader interface {
	Load(ctx context.Context, cfg LoadConfig) (Model, error)
}

// TokenCounter estimates the token length of a prompt.
type TokenCounter interface {
	Count(text string) int
}

// Locker serializes the first model load across processes sharing a host.
type Locker interface {
	Lock(ctx context.Context) (unlock func() error, err error)
}
