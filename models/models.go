package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// FuncCall is one tool invocation request extracted from generated text.
type FuncCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"arguments"`
}

// ArgsJSON renders the arguments for logging; map order is not stable,
// but single-key tool args make that a non-issue in practice.
func (fc *FuncCall) ArgsJSON() string {
	data, err := json.Marshal(fc.Args)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// ToolResult is what a tool execution hands back to the conversation.
// Failures are payload text too; the transcript has no channel for typed errors.
type ToolResult struct {
	Ok      bool
	Payload string
}

type RoleMsg struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	ToolName string `json:"tool_name,omitempty"`
}

func (m RoleMsg) ToText(i int) string {
	icon := fmt.Sprintf("(%d) <%s>: ", i, m.Role)
	textMsg := fmt.Sprintf("[-:-:b]%s[-:-:-]\n%s\n", icon, m.Content)
	return strings.ReplaceAll(textMsg, "\n\n", "\n")
}

type ChatBody struct {
	Model       string    `json:"model"`
	Stream      bool      `json:"stream"`
	Messages    []RoleMsg `json:"messages"`
	Temperature float32   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

func (cb *ChatBody) ListRoles() []string {
	roles := []string{}
	for _, msg := range cb.Messages {
		if !slices.Contains(roles, msg.Role) {
			roles = append(roles, msg.Role)
		}
	}
	return roles
}

type ChatRoundReq struct {
	UserMsg string
	Role    string
}

type ResponseStats struct {
	Tokens       int
	PromptTokens int
	Duration     float64
	TokensPerSec float64
}

// Accumulate folds per-generation stats into per-turn totals.
func (s *ResponseStats) Accumulate(other *ResponseStats) {
	if other == nil {
		return
	}
	s.Tokens += other.Tokens
	s.PromptTokens += other.PromptTokens
	s.Duration += other.Duration
	if s.Duration > 0 {
		s.TokensPerSec = float64(s.Tokens) / s.Duration
	}
}

type Chat struct {
	ID        uint32    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Msgs      string    `db:"msgs" json:"msgs"` // []RoleMsg to string json
	Agent     string    `db:"agent" json:"agent"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (c Chat) ToHistory() ([]RoleMsg, error) {
	resp := []RoleMsg{}
	if err := json.Unmarshal([]byte(c.Msgs), &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// openai-compatible chat completion resp (llama.cpp /v1/chat/completions)
type LLMResp struct {
	Choices []struct {
		FinishReason string `json:"finish_reason"`
		Index        int    `json:"index"`
		Message      struct {
			Content string `json:"content"`
			Role    string `json:"role"`
		} `json:"message"`
	} `json:"choices"`
	Created int    `json:"created"`
	Model   string `json:"model"`
	Object  string `json:"object"`
	Usage   struct {
		CompletionTokens int `json:"completion_tokens"`
		PromptTokens     int `json:"prompt_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	ID string `json:"id"`
}

type LLMModels struct {
	Object string `json:"object"`
	Data   []struct {
		ID      string `json:"id"`
		Object  string `json:"object"`
		Created int    `json:"created"`
		OwnedBy string `json:"owned_by"`
	} `json:"data"`
}

func (lm *LLMModels) FirstModelID() string {
	if len(lm.Data) == 0 {
		return ""
	}
	return lm.Data[0].ID
}
