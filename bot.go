package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"workchat/config"
	"workchat/models"
	"workchat/sandbox"
	"workchat/storage"
)

var (
	httpClient      = &http.Client{}
	cfg             *config.Config
	logger          *slog.Logger
	logLevel        = new(slog.LevelVar)
	ctx, cancel     = context.WithCancel(context.Background())
	activeChatName  string
	chatRoundChan   = make(chan *models.ChatRoundReq, 1)
	chatBody        *models.ChatBody
	store           storage.ChatHistory
	generator       Generator
	executor        *ToolExecutor
	workspace       *sandbox.Root
	botRespMode     = false
	toolRunningMode = false
	lastRespStats   *models.ResponseStats
	defaultFirstMsg = "Hello! What can I do for you?"
	defaultStarter  = []models.RoleMsg{}
	truncationMsg   = "I apologize, but I was unable to complete the request within the allowed number of steps."
)

func systemMsg() string {
	msg := basicSysMsg
	if cfg.ToolUse {
		msg = toolSysMsg
	}
	if cfg.SysPrompt != "" {
		msg += "\n" + cfg.SysPrompt
	}
	return msg
}

func createClient(connectTimeout time.Duration) *http.Client {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{
				Timeout:   connectTimeout,
				KeepAlive: 30 * time.Second,
			}
			return dialer.DialContext(ctx, network, addr)
		},
		TLSHandshakeTimeout: connectTimeout,
	}
	// no overall timeout; a slow local generation is not an error
	return &http.Client{Transport: transport}
}

func chatWatcher(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case chatRoundReq := <-chatRoundChan:
			if err := chatRound(chatRoundReq); err != nil {
				logger.Error("failed to chatRound", "err", err)
			}
		}
	}
}

func roleToIcon(role string) string {
	return "<" + role + ">: "
}

// chatRound runs one full turn: generate, extract tool calls, execute them
// in source order, feed results back, repeat. The iteration cap is the only
// bound; hitting it ends the turn with a synthetic truncation message
// instead of calling the generator again. Exactly one user-visible
// assistant message comes out of every turn.
func chatRound(r *models.ChatRoundReq) error {
	botRespMode = true
	defer func() { botRespMode = false }()
	if r.UserMsg != "" {
		role := r.Role
		if role == "" {
			role = cfg.UserRole
		}
		chatBody.Messages = append(chatBody.Messages, models.RoleMsg{
			Role: role, Content: r.UserMsg,
		})
	}
	turnStats := &models.ResponseStats{}
	for iter := 0; ; iter++ {
		if iter >= cfg.MaxToolIterations {
			logger.Warn("turn hit tool iteration cap", "cap", cfg.MaxToolIterations)
			appendAssistantMsg(truncationMsg)
			break
		}
		text, stats, err := generator.Generate(ctx, chatBody)
		if err != nil {
			// backend failure; no retry semantics for generation itself
			if nerr := notifyUser("error", "apicall failed: "+err.Error()); nerr != nil {
				logger.Error("failed to notify", "error", nerr)
			}
			return err
		}
		turnStats.Accumulate(stats)
		calls, remainder := extractToolCalls(text)
		if len(calls) == 0 {
			appendAssistantMsg(remainder)
			break
		}
		// keep the raw text so the model sees its own calls next round;
		// it is never the final visible answer
		chatBody.Messages = append(chatBody.Messages, models.RoleMsg{
			Role: cfg.AssistantRole, Content: text,
		})
		for i := range calls {
			runToolCall(&calls[i])
		}
	}
	lastRespStats = turnStats
	updateStatusLine()
	if err := updateStorageChat(activeChatName, chatBody.Messages); err != nil {
		logger.Warn("failed to update storage", "error", err, "name", activeChatName)
	}
	return nil
}

func runToolCall(call *models.FuncCall) {
	argsJSON := call.ArgsJSON()
	logger.Info("llm used a tool call", "tool_name", call.Name, "tool_args", argsJSON)
	fmt.Fprintf(textView, "\n[yellow::i]TOOL CALL: %s %s[-:-:-]\n", call.Name, argsJSON)
	toolRunningMode = true
	res := executor.Execute(call.Name, call.Args)
	toolRunningMode = false
	logger.Info("tool result", "tool_name", call.Name, "ok", res.Ok, "payload_len", len(res.Payload))
	// truncated for display only; the transcript gets the full payload
	fmt.Fprintf(textView, "[yellow::i]TOOL RESULT: %s[-:-:-]\n", truncateForDisplay(res.Payload))
	chatBody.Messages = append(chatBody.Messages, models.RoleMsg{
		Role:     cfg.ToolRole,
		Content:  res.Payload,
		ToolName: call.Name,
	})
}

func appendAssistantMsg(text string) {
	chatBody.Messages = append(chatBody.Messages, models.RoleMsg{
		Role: cfg.AssistantRole, Content: text,
	})
	fmt.Fprintf(textView, "\n[-:-:b](%d) %s[-:-:-]\n%s\n",
		len(chatBody.Messages)-1, roleToIcon(cfg.AssistantRole), text)
	if scrollToEndEnabled {
		textView.ScrollToEnd()
	}
}

func initProgram() {
	var err error
	cfg, err = config.LoadConfig("config.toml")
	if err != nil {
		fmt.Println("failed to load config.toml", err)
		cancel()
		os.Exit(1)
	}
	logfile, err := os.OpenFile(cfg.LogFile,
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		slog.Error("failed to open log file", "error", err, "filename", cfg.LogFile)
		cancel()
		os.Exit(1)
	}
	logLevel.Set(slog.LevelInfo)
	logger = slog.New(slog.NewTextHandler(logfile, &slog.HandlerOptions{Level: logLevel}))
	workspace, err = sandbox.NewRoot(cfg.WorkspaceDir)
	if err != nil {
		logger.Error("failed to init workspace", "error", err, "dir", cfg.WorkspaceDir)
		cancel()
		os.Exit(1)
	}
	executor = NewToolExecutor(workspace)
	generator = OpenAIChat{}
	store = storage.NewProviderSQL(cfg.DBPath, logger)
	if store == nil {
		cancel()
		os.Exit(1)
	}
	httpClient = createClient(time.Second * 90)
	defaultStarter = []models.RoleMsg{
		{Role: "system", Content: systemMsg()},
		{Role: cfg.AssistantRole, Content: defaultFirstMsg},
	}
	chatBody = &models.ChatBody{
		Model:       fetchModelName(),
		Stream:      false,
		Messages:    loadOldChatOrGetNew(),
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}
	go chatWatcher(ctx)
}
