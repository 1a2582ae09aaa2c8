package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/faqbot/internal/domain/chat"
	apperrors "github.com/yanqian/faqbot/pkg/errors"
)

// ModelStatus reports whether the generation model is resident.
type ModelStatus interface {
	Loaded() bool
}

// EntryCounter reports the size of the FAQ table.
type EntryCounter interface {
	Len() int
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	FAQEntries  int    `json:"faq_entries"`
}

// Handler wires the HTTP transport to the chat orchestrator.
type Handler struct {
	chatSvc chat.Service
	model   ModelStatus
	faqs    EntryCounter
	logger  *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(chatSvc chat.Service, model ModelStatus, faqs EntryCounter, logger *slog.Logger) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		model:   model,
		faqs:    faqs,
		logger:  logger.With("component", "http.handler"),
	}
}

// Root describes the API.
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to Iron Lady Chatbot API",
		"endpoints": gin.H{
			"chat":    "/chat (POST)",
			"health":  "/health",
			"metrics": "/metrics",
		},
	})
}

// Chat answers a single question from the FAQ table or the model.
func (h *Handler) Chat(c *gin.Context) {
	var req chat.Query
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidInput, "invalid request body", err))
		return
	}

	resp, err := h.chatSvc.Respond(c.Request.Context(), req)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeInvalidInput) {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidInput, "Question cannot be empty", err))
			return
		}
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, apperrors.CodeInternal, "", err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Health reports liveness plus model and FAQ state.
func (h *Handler) Health(c *gin.Context) {
	resp := HealthResponse{Status: "ok"}
	if h.model != nil {
		resp.ModelLoaded = h.model.Loaded()
	}
	if h.faqs != nil {
		resp.FAQEntries = h.faqs.Len()
	}
	c.JSON(http.StatusOK, resp)
}
