package faq

import (
	"context"
	"fmt"
)

// Catalog is the immutable, ordered FAQ store. It is built once at startup and
// is safe for concurrent reads.
type Catalog struct {
	entries []Entry
	index   map[string]int
	tokens  [][]string
}

// NewCatalog normalizes keys and builds the store. Entries with an empty key are
// dropped. A duplicated key keeps the position of its first occurrence and the
// answer of its last one.
func NewCatalog(entries []Entry) *Catalog {
	c := &Catalog{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		key := NormalizeQuestion(e.Question)
		if key == "" {
			continue
		}
		if pos, ok := c.index[key]; ok {
			c.entries[pos].Answer = e.Answer
			continue
		}
		c.index[key] = len(c.entries)
		c.entries = append(c.entries, Entry{Question: key, Answer: e.Answer})
	}
	c.tokens = make([][]string, len(c.entries))
	for i, e := range c.entries {
		c.tokens[i] = tokenize(e.Question)
	}
	return c
}

// LoadCatalog reads every entry from src and builds a Catalog.
func LoadCatalog(ctx context.Context, src Source) (*Catalog, error) {
	entries, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load faq entries: %w", err)
	}
	return NewCatalog(entries), nil
}

// Lookup returns the answer stored under an already normalized key.
func (c *Catalog) Lookup(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	pos, ok := c.index[key]
	if !ok {
		return "", false
	}
	return c.entries[pos].Answer, true
}

// Entries returns a copy of the entries in store order.
func (c *Catalog) Entries() []Entry {
	if c == nil {
		return nil
	}
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len reports the number of distinct questions.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Match implements Matcher.
func (c *Catalog) Match(question string) (string, bool) {
	return Match(question, c)
}

var _ Matcher = (*Catalog)(nil)
