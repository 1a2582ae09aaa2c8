package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yanqian/faqbot/internal/domain/faq"
	"github.com/yanqian/faqbot/internal/domain/gateway"
	apperrors "github.com/yanqian/faqbot/pkg/errors"
	"github.com/yanqian/faqbot/pkg/util"
)

// Service resolves chat questions against the FAQ table and the model.
type Service interface {
	Respond(ctx context.Context, q Query) (Response, error)
}

type service struct {
	cfg       Config
	matcher   faq.Matcher
	generator Generator
	cache     AnswerCache
	logger    *slog.Logger
}

// NewService wires up the chat orchestrator. cache may be nil.
func NewService(cfg Config, matcher faq.Matcher, generator Generator, cache AnswerCache, logger *slog.Logger) Service {
	return &service{
		cfg:       cfg,
		matcher:   matcher,
		generator: generator,
		cache:     cache,
		logger:    logger.With("component", "chat.service"),
	}
}

// Respond runs a single pass: FAQ lookup, the model gate, then the model. Only
// an empty question is returned as an error; model failures become a response
// with Success=false.
func (s *service) Respond(ctx context.Context, q Query) (resp Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("chat orchestration panicked", "panic", r)
			resp = Response{}
			err = apperrors.Wrap(apperrors.CodeInternal, "chat orchestration failed", fmt.Errorf("%v", r))
		}
		if err == nil {
			responsesTotal.WithLabelValues(string(resp.Source)).Inc()
		}
	}()

	question := strings.TrimSpace(q.Question)
	if question == "" {
		return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, "question cannot be empty", nil)
	}

	if answer, ok := s.matcher.Match(question); ok {
		return Response{Source: SourceFAQ, Answer: answer, Success: true, IsFAQ: true}, nil
	}

	if !q.ModelAllowed() {
		return Response{Source: SourceNone, Answer: OptInAnswer, Success: true}, nil
	}

	key := faq.NormalizeQuestion(question)
	if answer, ok := s.cachedAnswer(ctx, key); ok {
		return Response{Source: SourceLLM, Answer: answer, Success: true}, nil
	}

	answer, genErr := s.generator.Generate(ctx, question, s.cfg.MaxTokens)
	if genErr != nil {
		s.logger.Error("model fallback failed", "error", genErr)
		return Response{Source: SourceError, Answer: ApologyAnswer}, nil
	}

	s.saveAnswer(ctx, key, question, answer)
	return Response{Source: SourceLLM, Answer: answer, Success: true}, nil
}

func (s *service) cachedAnswer(ctx context.Context, key string) (string, bool) {
	if !s.cacheActive() {
		return "", false
	}
	record, ok, err := s.cache.GetAnswer(ctx, key)
	if err != nil {
		s.logger.Warn("answer cache lookup failed", "error", err)
		return "", false
	}
	if !ok || strings.TrimSpace(record.Answer) == "" {
		return "", false
	}
	return record.Answer, true
}

func (s *service) saveAnswer(ctx context.Context, key, question, answer string) {
	if !s.cacheActive() || answer == gateway.EmptyCompletionAnswer {
		return
	}
	record := CachedAnswer{Question: question, Answer: answer, CreatedAt: util.NowUTC()}
	if err := s.cache.SaveAnswer(ctx, key, record, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("answer cache save failed", "error", err)
	}
}

func (s *service) cacheActive() bool {
	return s.cfg.CacheEnabled && s.cache != nil
}
