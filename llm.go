package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"workchat/models"
)

// Generator produces one completion for the current transcript.
// The orchestration loop only ever sees text plus opaque stats; backend
// failures come back as a plain error and end the turn.
type Generator interface {
	Generate(ctx context.Context, body *models.ChatBody) (string, *models.ResponseStats, error)
}

// OpenAIChat talks to an openai-compatible /v1/chat/completions endpoint,
// llama.cpp server by default. Non-streaming.
type OpenAIChat struct{}

func (oc OpenAIChat) Generate(ctx context.Context, body *models.ChatBody) (string, *models.ResponseStats, error) {
	payload := models.ChatBody{
		Model:       body.Model,
		Stream:      false,
		Messages:    body.Messages,
		Temperature: body.Temperature,
		MaxTokens:   body.MaxTokens,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal chat body", "error", err)
		return "", nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", cfg.ChatAPI, bytes.NewReader(data))
	if err != nil {
		logger.Error("newreq error", "error", err)
		return "", nil, err
	}
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Content-Type", "application/json")
	if cfg.APIToken != "" {
		req.Header.Add("Authorization", "Bearer "+cfg.APIToken)
	}
	startTime := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		logger.Error("llm api call failed", "error", err, "link", cfg.ChatAPI)
		return "", nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("llm api status %d: %s", resp.StatusCode, string(bodyBytes))
		logger.Error("llm api returned error status", "status_code", resp.StatusCode)
		return "", nil, err
	}
	llmResp := models.LLMResp{}
	if err := json.NewDecoder(resp.Body).Decode(&llmResp); err != nil {
		logger.Error("failed to decode llm resp", "error", err, "link", cfg.ChatAPI)
		return "", nil, err
	}
	if len(llmResp.Choices) == 0 {
		return "", nil, fmt.Errorf("llm api returned no choices")
	}
	text := llmResp.Choices[0].Message.Content
	duration := time.Since(startTime).Seconds()
	stats := &models.ResponseStats{
		Tokens:       llmResp.Usage.CompletionTokens,
		PromptTokens: llmResp.Usage.PromptTokens,
		Duration:     duration,
	}
	if duration > 0 {
		stats.TokensPerSec = float64(stats.Tokens) / duration
	}
	return text, stats, nil
}

func fetchModelName() string {
	resp, err := httpClient.Get(cfg.FetchModelNameAPI)
	if err != nil {
		logger.Warn("failed to fetch models", "error", err)
		return "local"
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		logger.Warn("failed to fetch models", "status", resp.Status)
		return "local"
	}
	data := &models.LLMModels{}
	if err := json.NewDecoder(resp.Body).Decode(data); err != nil {
		logger.Warn("failed to decode models resp", "error", err)
		return "local"
	}
	if id := data.FirstModelID(); id != "" {
		return id
	}
	return "local"
}
