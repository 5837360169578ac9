package main

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"workchat/models"
	"workchat/sandbox"
)

var (
	basicSysMsg = `Large Language Model that helps user with any of his requests.`
	toolSysMsg  = `You're a helpful assistant with access to the workspace directory.
# Tools
You can call tools if needed.
Your current tools:
<tools>
[
{
"name":"read_file",
"arguments": {"path": "string"},
"when_to_use": "when asked about the contents of a file in the workspace"
},
{
"name":"write_file",
"arguments": {"path": "string", "content": "string"},
"when_to_use": "when asked to create or replace a file in the workspace"
}
]
</tools>
To make a tool call return a json object inside a tool_call fenced block;
Example:
` + "```tool_call" + `
{"name": "read_file", "arguments": {"path": "notes.txt"}}
` + "```" + `
You can make several calls in one message, each in its own block.
Paths are relative to the workspace directory; you cannot reach outside it.
When done right, the call result will be delivered as a tool message.
After that you are free to respond to the user.
`
)

type argSpec struct {
	name     string
	kind     string
	required bool
}

type toolFn func(e *ToolExecutor, args map[string]string) models.ToolResult

type toolSpec struct {
	args []argSpec
	call toolFn
}

var toolMap = map[string]toolSpec{
	"read_file": {
		args: []argSpec{{name: "path", kind: "string", required: true}},
		call: (*ToolExecutor).readFile,
	},
	"write_file": {
		args: []argSpec{
			{name: "path", kind: "string", required: true},
			{name: "content", kind: "string", required: true},
		},
		call: (*ToolExecutor).writeFile,
	},
}

// ToolExecutor runs the built-in file tools against one workspace root.
// Nothing here ever panics across the boundary: every failure, sandbox
// denial included, comes back as a ToolResult payload for the transcript.
type ToolExecutor struct {
	root *sandbox.Root
}

func NewToolExecutor(root *sandbox.Root) *ToolExecutor {
	return &ToolExecutor{root: root}
}

func failResult(format string, a ...any) models.ToolResult {
	return models.ToolResult{Ok: false, Payload: fmt.Sprintf(format, a...)}
}

func (e *ToolExecutor) Execute(name string, args map[string]any) models.ToolResult {
	spec, ok := toolMap[name]
	if !ok {
		return failResult("unknown tool: %s", name)
	}
	strArgs, errMsg := validateArgs(spec, args)
	if errMsg != "" {
		return failResult("%s", errMsg)
	}
	return spec.call(e, strArgs)
}

// validateArgs checks the call arguments against the tool schema and names
// the offending field in the error.
func validateArgs(spec toolSpec, args map[string]any) (map[string]string, string) {
	out := make(map[string]string, len(spec.args))
	for _, a := range spec.args {
		v, ok := args[a.name]
		if !ok {
			if a.required {
				return nil, fmt.Sprintf("Error: invalid arguments: field '%s' is required", a.name)
			}
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Sprintf("Error: invalid arguments: field '%s' must be a %s", a.name, a.kind)
		}
		out[a.name] = s
	}
	return out, ""
}

func (e *ToolExecutor) readFile(args map[string]string) models.ToolResult {
	path := args["path"]
	resolved, err := e.root.Resolve(path)
	if err != nil {
		return failResult("Error: %s", err.Error())
	}
	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return failResult("Error: file not found: '%s'", path)
		}
		return failResult("Error: failed to read '%s': %v", path, err)
	}
	if !info.Mode().IsRegular() {
		return failResult("Error: not a regular file: '%s'", path)
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return failResult("Error: failed to read '%s': %v", path, err)
	}
	return models.ToolResult{Ok: true, Payload: string(data)}
}

func (e *ToolExecutor) writeFile(args map[string]string) models.ToolResult {
	path := args["path"]
	content := args["content"]
	resolved, err := e.root.Resolve(path)
	if err != nil {
		return failResult("Error: %s", err.Error())
	}
	// parents come from the verified resolved path only, never re-derived
	// from the original candidate
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return failResult("Error: failed to write '%s': %v", path, err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return failResult("Error: failed to write '%s': %v", path, err)
	}
	return models.ToolResult{
		Ok: true,
		Payload: fmt.Sprintf("Successfully wrote %d characters to %s",
			utf8.RuneCountInString(content), path),
	}
}
