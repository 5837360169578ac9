package main

import (
	"encoding/json"
	"strings"

	"workchat/models"
)

const (
	toolCallFenceOpen  = "```tool_call"
	toolCallFenceClose = "```"
)

// extractToolCalls scans generated text for ```tool_call fenced blocks and
// returns the parsed calls in source order plus the text with those blocks
// removed. A block that does not parse as {"name": ..., "arguments": {...}}
// with exactly those two fields is not a tool call: it stays in the
// remainder verbatim. Ambiguous content is treated as ordinary assistant
// text, never executed.
func extractToolCalls(text string) ([]models.FuncCall, string) {
	calls := []models.FuncCall{}
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	removed := false
	for i := 0; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != toolCallFenceOpen {
			kept = append(kept, lines[i])
			continue
		}
		// find the closing fence
		end := -1
		for j := i + 1; j < len(lines); j++ {
			if strings.TrimSpace(lines[j]) == toolCallFenceClose {
				end = j
				break
			}
		}
		if end < 0 {
			// unterminated block, keep the fence line as plain text
			kept = append(kept, lines[i])
			continue
		}
		interior := strings.Join(lines[i+1:end], "\n")
		fc, ok := parseToolCall(interior)
		if !ok {
			// well-fenced but malformed, keep the whole block verbatim
			kept = append(kept, lines[i:end+1]...)
			i = end
			continue
		}
		calls = append(calls, *fc)
		removed = true
		i = end
	}
	if !removed {
		return calls, text
	}
	return calls, strings.TrimSpace(strings.Join(kept, "\n"))
}

func parseToolCall(interior string) (*models.FuncCall, bool) {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(interior)), &raw); err != nil {
		return nil, false
	}
	if len(raw) != 2 {
		return nil, false
	}
	nameRaw, hasName := raw["name"]
	argsRaw, hasArgs := raw["arguments"]
	if !hasName || !hasArgs {
		return nil, false
	}
	var name string
	if err := json.Unmarshal(nameRaw, &name); err != nil || name == "" {
		return nil, false
	}
	args := map[string]any{}
	if err := json.Unmarshal(argsRaw, &args); err != nil {
		return nil, false
	}
	return &models.FuncCall{Name: name, Args: args}, true
}
