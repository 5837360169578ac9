package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"workchat/config"
	"workchat/models"
)

func TestGenerateSendsSamplerProps(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"choices":[{"message":{"content":"ok","role":"assistant"}}],` +
			`"usage":{"completion_tokens":3,"prompt_tokens":7,"total_tokens":10}}`)); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	defer srv.Close()
	cfg = &config.Config{ChatAPI: srv.URL}
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	httpClient = srv.Client()
	body := &models.ChatBody{
		Model:       "test-model",
		Temperature: 0.4,
		MaxTokens:   512,
		Messages:    []models.RoleMsg{{Role: "user", Content: "hi"}},
	}
	text, stats, err := OpenAIChat{}.Generate(context.Background(), body)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "ok" {
		t.Errorf("expected completion text ok, got %q", text)
	}
	if stats == nil || stats.Tokens != 3 || stats.PromptTokens != 7 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if temp, _ := got["temperature"].(float64); temp != 0.4 {
		t.Errorf("expected temperature 0.4 in request, got %v", got["temperature"])
	}
	if maxTok, _ := got["max_tokens"].(float64); maxTok != 512 {
		t.Errorf("expected max_tokens 512 in request, got %v", got["max_tokens"])
	}
	if got["stream"] != false {
		t.Errorf("expected stream false in request, got %v", got["stream"])
	}
}
