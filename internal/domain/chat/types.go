package chat

import (
	"context"
	"time"
)

// Source tags where an answer came from.
type Source string

const (
	// SourceFAQ marks an answer taken from the FAQ table.
	SourceFAQ Source = "faq"
	// SourceLLM marks an answer generated by the local model.
	SourceLLM Source = "llm"
	// SourceNone marks a miss where the caller did not allow the model.
	SourceNone Source = "none"
	// SourceError marks a failed model fallback.
	SourceError Source = "error"
)

const (
	// OptInAnswer invites the user to allow model-based answering.
	OptInAnswer = "I couldn't find an exact match for your question in our FAQ. Would you like me to try generating a response using our AI model?"
	// ApologyAnswer is shown whenever the model fallback fails.
	ApologyAnswer = "I'm having trouble generating a response right now. Please try again later."
)

// Query is a single incoming chat request.
type Query struct {
	Question string `json:"question"`
	UseModel *bool  `json:"use_model,omitempty"`
}

// ModelAllowed reports whether model fallback is permitted. It defaults to true.
func (q Query) ModelAllowed() bool {
	return q.UseModel == nil || *q.UseModel
}

// Response is produced exactly once per Query.
type Response struct {
	Source  Source `json:"source"`
	Answer  string `json:"answer"`
	Success bool   `json:"success"`
	IsFAQ   bool   `json:"is_faq"`
}

// Config holds runtime knobs for the orchestrator.
type Config struct {
	MaxTokens    int
	CacheEnabled bool
	CacheTTL     time.Duration
}

// Generator produces a model answer for a question.
type Generator interface {
	Generate(ctx context.Context, question string, maxTokens int) (string, error)
}

// CachedAnswer is a generated answer kept for repeated questions.
type CachedAnswer struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"createdAt"`
}

// AnswerCache stores generated answers keyed by normalized question.
type AnswerCache interface {
	GetAnswer(ctx context.Context, key string) (CachedAnswer, bool, error)
	SaveAnswer(ctx context.Context, key string, record CachedAnswer, ttl time.Duration) error
}
