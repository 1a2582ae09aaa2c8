package faq

import "context"

// Entry is a single question/answer pair of the FAQ table.
type Entry struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// Source yields FAQ entries in their authored order.
type Source interface {
	Load(ctx context.Context) ([]Entry, error)
}

// Matcher resolves a free-text question to a FAQ answer.
type Matcher interface {
	Match(question string) (string, bool)
}
