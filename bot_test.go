package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"workchat/config"
	"workchat/models"
	"workchat/sandbox"
	"workchat/storage"
)

type stubGenerator struct {
	responses []string
	calls     int
}

func (s *stubGenerator) Generate(_ context.Context, _ *models.ChatBody) (string, *models.ResponseStats, error) {
	idx := s.calls
	s.calls++
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx], &models.ResponseStats{Tokens: 1, Duration: 0.01}, nil
}

type errGenerator struct{}

func (errGenerator) Generate(_ context.Context, _ *models.ChatBody) (string, *models.ResponseStats, error) {
	return "", nil, fmt.Errorf("backend down")
}

// setupTurnTest wires the package globals the way initProgram would,
// with a temp workspace and an in-memory store.
func setupTurnTest(t *testing.T, gen Generator, maxIter int) {
	t.Helper()
	cfg = &config.Config{
		UserRole:          "user",
		AssistantRole:     "assistant",
		ToolRole:          "tool",
		ToolUse:           true,
		MaxToolIterations: maxIter,
	}
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	root, err := sandbox.NewRoot(filepath.Join(t.TempDir(), "workspace"))
	if err != nil {
		t.Fatalf("failed to create workspace: %v", err)
	}
	workspace = root
	executor = NewToolExecutor(root)
	generator = gen
	store = storage.NewProviderSQL(":memory:", logger)
	if store == nil {
		t.Fatal("failed to open in-memory store")
	}
	chatMap = map[string]*models.Chat{}
	activeChatName = "1_assistant"
	chatMap[activeChatName] = &models.Chat{
		ID:        1,
		Name:      activeChatName,
		Agent:     "assistant",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	chatBody = &models.ChatBody{
		Model:    "test-model",
		Messages: []models.RoleMsg{{Role: "system", Content: "sys"}},
	}
	lastRespStats = nil
}

func countRole(msgs []models.RoleMsg, role string) int {
	n := 0
	for i := range msgs {
		if msgs[i].Role == role {
			n++
		}
	}
	return n
}

func TestChatRoundPlainResponse(t *testing.T) {
	gen := &stubGenerator{responses: []string{"Hi there, nothing to do."}}
	setupTurnTest(t, gen, 5)
	if err := chatRound(&models.ChatRoundReq{UserMsg: "hello"}); err != nil {
		t.Fatalf("chatRound failed: %v", err)
	}
	if gen.calls != 1 {
		t.Errorf("expected 1 generation, got %d", gen.calls)
	}
	last := chatBody.Messages[len(chatBody.Messages)-1]
	if last.Role != "assistant" || last.Content != "Hi there, nothing to do." {
		t.Errorf("unexpected final message: %+v", last)
	}
	if n := countRole(chatBody.Messages, "tool"); n != 0 {
		t.Errorf("expected no tool entries, got %d", n)
	}
	// turn got persisted
	stored, err := store.GetChatByID(1)
	if err != nil {
		t.Fatalf("failed to read stored chat: %v", err)
	}
	history, err := stored.ToHistory()
	if err != nil {
		t.Fatalf("failed to parse stored chat: %v", err)
	}
	if len(history) != len(chatBody.Messages) {
		t.Errorf("stored %d messages, have %d in memory", len(history), len(chatBody.Messages))
	}
}

func TestChatRoundStopsAtCap(t *testing.T) {
	loopCall := "```tool_call\n" +
		`{"name": "write_file", "arguments": {"path": "loop.txt", "content": "again"}}` +
		"\n```"
	gen := &stubGenerator{responses: []string{loopCall}}
	setupTurnTest(t, gen, 3)
	if err := chatRound(&models.ChatRoundReq{UserMsg: "loop forever"}); err != nil {
		t.Fatalf("chatRound failed: %v", err)
	}
	if gen.calls != 3 {
		t.Errorf("expected exactly %d generations at the cap, got %d", 3, gen.calls)
	}
	last := chatBody.Messages[len(chatBody.Messages)-1]
	if last.Role != "assistant" || last.Content != truncationMsg {
		t.Errorf("expected truncation message as final entry, got: %+v", last)
	}
	if n := countRole(chatBody.Messages, "tool"); n != 3 {
		t.Errorf("expected 3 tool entries, got %d", n)
	}
}

func TestChatRoundReadThenWrite(t *testing.T) {
	gen := &stubGenerator{responses: []string{
		"Let me read the input.\n```tool_call\n" +
			`{"name": "read_file", "arguments": {"path": "input.txt"}}` +
			"\n```",
		"Now the report.\n```tool_call\n" +
			`{"name": "write_file", "arguments": {"path": "report.md", "content": "# Report\nhello from input"}}` +
			"\n```",
		"Report written.",
	}}
	setupTurnTest(t, gen, 10)
	if err := os.WriteFile(filepath.Join(workspace.Path(), "input.txt"),
		[]byte("hello from input"), 0o644); err != nil {
		t.Fatalf("failed to seed input.txt: %v", err)
	}
	if err := chatRound(&models.ChatRoundReq{UserMsg: "summarize input.txt into report.md"}); err != nil {
		t.Fatalf("chatRound failed: %v", err)
	}
	if gen.calls != 3 {
		t.Errorf("expected 3 generations, got %d", gen.calls)
	}
	toolMsgs := []models.RoleMsg{}
	for i := range chatBody.Messages {
		if chatBody.Messages[i].Role == "tool" {
			toolMsgs = append(toolMsgs, chatBody.Messages[i])
		}
	}
	if len(toolMsgs) != 2 {
		t.Fatalf("expected one tool entry per call, got %d", len(toolMsgs))
	}
	if toolMsgs[0].ToolName != "read_file" || toolMsgs[0].Content != "hello from input" {
		t.Errorf("unexpected read result entry: %+v", toolMsgs[0])
	}
	if toolMsgs[1].ToolName != "write_file" {
		t.Errorf("unexpected write result entry: %+v", toolMsgs[1])
	}
	last := chatBody.Messages[len(chatBody.Messages)-1]
	if last.Role != "assistant" || last.Content != "Report written." {
		t.Errorf("unexpected final message: %+v", last)
	}
	written, err := os.ReadFile(filepath.Join(workspace.Path(), "report.md"))
	if err != nil {
		t.Fatalf("report.md was not written: %v", err)
	}
	if string(written) != "# Report\nhello from input" {
		t.Errorf("unexpected report content: %q", string(written))
	}
}

func TestChatRoundSandboxDenial(t *testing.T) {
	gen := &stubGenerator{responses: []string{
		"```tool_call\n" +
			`{"name": "read_file", "arguments": {"path": "../secrets.txt"}}` +
			"\n```",
		"I cannot read that file.",
	}}
	setupTurnTest(t, gen, 10)
	// the secret sits right outside the workspace
	secret := filepath.Join(filepath.Dir(workspace.Path()), "secrets.txt")
	if err := os.WriteFile(secret, []byte("top secret"), 0o644); err != nil {
		t.Fatalf("failed to seed secret: %v", err)
	}
	if err := chatRound(&models.ChatRoundReq{UserMsg: "read ../secrets.txt"}); err != nil {
		t.Fatalf("chatRound failed: %v", err)
	}
	var toolMsg *models.RoleMsg
	for i := range chatBody.Messages {
		if chatBody.Messages[i].Role == "tool" {
			toolMsg = &chatBody.Messages[i]
		}
	}
	if toolMsg == nil {
		t.Fatal("no tool entry in transcript")
	}
	want := fmt.Sprintf(
		"Error: Access denied: '../secrets.txt' is outside the workspace directory. Only files within '%s' can be accessed.",
		workspace.Path())
	if toolMsg.Content != want {
		t.Errorf("denial payload mismatch;\nwant: %s\ngot:  %s", want, toolMsg.Content)
	}
}

func TestChatRoundRoleOverride(t *testing.T) {
	gen := &stubGenerator{responses: []string{"noted."}}
	setupTurnTest(t, gen, 5)
	if err := chatRound(&models.ChatRoundReq{UserMsg: "context note", Role: "system"}); err != nil {
		t.Fatalf("chatRound failed: %v", err)
	}
	injected := chatBody.Messages[1]
	if injected.Role != "system" || injected.Content != "context note" {
		t.Errorf("expected injected system entry, got: %+v", injected)
	}
	last := chatBody.Messages[len(chatBody.Messages)-1]
	if last.Role != "assistant" || last.Content != "noted." {
		t.Errorf("unexpected final message: %+v", last)
	}
}

func TestChatRoundGeneratorFailure(t *testing.T) {
	setupTurnTest(t, errGenerator{}, 5)
	err := chatRound(&models.ChatRoundReq{UserMsg: "hello"})
	if err == nil {
		t.Fatal("expected generator failure to end the turn with an error")
	}
	if n := countRole(chatBody.Messages, "assistant"); n != 0 {
		t.Errorf("expected no assistant entries after backend failure, got %d", n)
	}
}
