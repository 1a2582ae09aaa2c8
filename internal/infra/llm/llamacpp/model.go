package llamacpp

import (
	"context"
	"log/slog"
	"sync"

	"github.com/yanqian/faqbot/internal/domain/gateway"
)

// Model is a loaded llama.cpp server. When the loader spawned the server
// process, Close terminates it.
type Model struct {
	client *Client
	proc   *serverProcess
	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Complete implements gateway.Model.
func (m *Model) Complete(ctx context.Context, req gateway.CompletionRequest) (gateway.Completion, error) {
	resp, err := m.client.CreateCompletion(ctx, completionRequest{
		Prompt:        req.Prompt,
		MaxTokens:     req.MaxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		RepeatPenalty: req.RepeatPenalty,
		Stop:          req.Stop,
	})
	if err != nil {
		return gateway.Completion{}, err
	}
	return normalize(resp)
}

// Close implements gateway.Model.
func (m *Model) Close() error {
	m.closeOnce.Do(func() {
		if m.proc == nil {
			return
		}
		m.closeErr = m.proc.stop()
		m.logger.Info("llama server stopped", "pid", m.proc.pid(), "error", m.closeErr)
	})
	return m.closeErr
}

// normalize maps every supported response shape onto gateway.Completion.
// An empty choices list is a valid result; a payload with no known text field
// at all is not.
func normalize(resp completionResponse) (gateway.Completion, error) {
	var out gateway.Completion
	switch {
	case resp.Choices != nil:
		out.Choices = make([]gateway.Choice, 0, len(resp.Choices))
		for _, c := range resp.Choices {
			out.Choices = append(out.Choices, gateway.Choice{Text: c.Text})
		}
	case resp.Content != nil:
		out.Choices = []gateway.Choice{{Text: *resp.Content}}
	case resp.GeneratedText != nil:
		out.Choices = []gateway.Choice{{Text: *resp.GeneratedText}}
	default:
		return gateway.Completion{}, errNoShape
	}
	if resp.Usage != nil {
		out.PromptTokens = resp.Usage.PromptTokens
		out.CompletionTokens = resp.Usage.CompletionTokens
	} else {
		out.PromptTokens = resp.TokensEvaluated
		out.CompletionTokens = resp.TokensPredicted
	}
	return out, nil
}

var _ gateway.Model = (*Model)(nil)
