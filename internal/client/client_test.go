package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat", r.URL.Path)
		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, ChatRequest{Question: "What is Iron Lady?", UseModel: false}, req)
		_, _ = w.Write([]byte(`{"source":"faq","answer":"A leadership program.","success":true,"is_faq":true}`))
	}))
	defer srv.Close()

	reply, err := New(srv.URL+"/").Chat(context.Background(), "What is Iron Lady?", false)
	require.NoError(t, err)
	require.Equal(t, ChatReply{Source: "faq", Answer: "A leadership program.", Success: true, IsFAQ: true}, reply)
}

func TestChatAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Question cannot be empty","code":"invalid_input"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Chat(context.Background(), "", true)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, "Question cannot be empty", apiErr.Detail)
	require.Equal(t, "invalid_input", apiErr.Code)
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"ok","model_loaded":true,"faq_entries":12}`))
	}))
	defer srv.Close()

	health, err := New(srv.URL).Health(context.Background())
	require.NoError(t, err)
	require.Equal(t, Health{Status: "ok", ModelLoaded: true, FAQEntries: 12}, health)
}

func TestNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Health(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "bad gateway", apiErr.Detail)
}

func TestDefaultBaseURL(t *testing.T) {
	require.Equal(t, "http://127.0.0.1:8080", New("  ").BaseURL())
}
