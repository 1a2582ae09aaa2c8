package faqsource

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/yanqian/faqbot/internal/domain/faq"
)

//go:embed defaults/faqs.json
var defaultFAQs []byte

// Memory serves a fixed entry list.
type Memory struct {
	entries []faq.Entry
}

// NewMemory copies entries into a static source.
func NewMemory(entries ...faq.Entry) *Memory {
	cp := make([]faq.Entry, len(entries))
	copy(cp, entries)
	return &Memory{entries: cp}
}

// NewEmbedded serves the FAQ table compiled into the binary.
func NewEmbedded() (*Memory, error) {
	entries, err := decodeEntries("faqs.json", defaultFAQs)
	if err != nil {
		return nil, fmt.Errorf("decode embedded faqs: %w", err)
	}
	return NewMemory(entries...), nil
}

// Load returns a copy of the configured entries.
func (m *Memory) Load(context.Context) ([]faq.Entry, error) {
	out := make([]faq.Entry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

var _ faq.Source = (*Memory)(nil)
