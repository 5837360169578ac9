package main

import (
	"fmt"
	"os/exec"
	"strings"

	"workchat/models"
)

const displayPayloadLimit = 200

// truncateForDisplay shortens long tool payloads for the chat view.
// The transcript and the generator always get the full payload.
func truncateForDisplay(s string) string {
	if len(s) <= displayPayloadLimit {
		return s
	}
	return s[:displayPayloadLimit] + "..."
}

func notifyUser(topic, message string) error {
	cmd := exec.Command("notify-send", topic, message)
	return cmd.Run()
}

func chatToTextSlice(messages []models.RoleMsg, showSys bool) []string {
	resp := make([]string, 0, len(messages))
	for i := range messages {
		// INFO: skips system msg when showSys is false
		if !showSys && messages[i].Role == "system" {
			continue
		}
		if messages[i].Role == cfg.ToolRole && messages[i].ToolName != "" {
			resp = append(resp, fmt.Sprintf("[yellow::i](%d) TOOL RESULT: %s[-:-:-]\n%s\n",
				i, messages[i].ToolName, truncateForDisplay(messages[i].Content)))
			continue
		}
		resp = append(resp, messages[i].ToText(i))
	}
	return resp
}

func chatToText(messages []models.RoleMsg, showSys bool) string {
	s := chatToTextSlice(messages, showSys)
	return strings.Join(s, "\n")
}

func makeStatusLine() string {
	model := "unknown"
	api := ""
	toolUse := false
	if chatBody != nil {
		model = chatBody.Model
	}
	if cfg != nil {
		api = cfg.ChatAPI
		toolUse = cfg.ToolUse
	}
	statsLine := ""
	if lastRespStats != nil {
		statsLine = fmt.Sprintf(" | %d tokens, %.1f tok/s, %.2fs",
			lastRespStats.Tokens, lastRespStats.TokensPerSec, lastRespStats.Duration)
	}
	return fmt.Sprintf(indexLine, botRespMode, activeChatName, toolUse, model, api) + statsLine
}

func updateStatusLine() {
	if position == nil {
		return
	}
	position.SetText(makeStatusLine())
}
