package tokenizer

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const defaultEncoding = "cl100k_base"

// Ranks files are read from the embedded loader so counting never reaches the
// network.
var offlineRanks sync.Once

func useOfflineRanks() {
	offlineRanks.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
}

// Counter estimates prompt lengths for context-window budgeting. It uses a
// tiktoken encoding when one can be loaded and a word/character blend
// otherwise. Counts only need to be close to the model's own tokenizer, not
// exact.
type Counter struct {
	encoding string
	logger   *slog.Logger

	once sync.Once
	enc  *tiktoken.Tiktoken
}

// New constructs a Counter. The encoding is resolved lazily on first use.
func New(encoding string, logger *slog.Logger) *Counter {
	if encoding == "" {
		encoding = defaultEncoding
	}
	useOfflineRanks()
	if logger == nil {
		logger = slog.Default()
	}
	return &Counter{encoding: encoding, logger: logger.With("component", "tokenizer")}
}

// Count implements gateway.TokenCounter.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	c.once.Do(c.init)
	if c.enc != nil {
		return len(c.enc.Encode(text, nil, nil))
	}
	return Estimate(text)
}

func (c *Counter) init() {
	enc, err := tiktoken.GetEncoding(c.encoding)
	if err != nil {
		c.logger.Warn("tiktoken encoding unavailable, using estimate", "encoding", c.encoding, "error", err)
		return
	}
	c.enc = enc
}

// Estimate blends word and character counts into a rough token count.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	chars := len(text)
	n := (words + chars/4) / 2
	if n < 1 {
		n = 1
	}
	return n
}
