package faqsource

import (
	"context"
	"fmt"
	"os"

	"github.com/yanqian/faqbot/internal/domain/faq"
)

// File reads FAQ entries from a JSON or YAML document on disk.
type File struct {
	path string
}

// NewFile constructs a file-backed source.
func NewFile(path string) *File {
	return &File{path: path}
}

// Load implements faq.Source.
func (f *File) Load(ctx context.Context) ([]faq.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read faq file: %w", err)
	}
	return decodeEntries(f.path, data)
}

var _ faq.Source = (*File)(nil)
