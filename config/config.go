package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ChatAPI           string `toml:"ChatAPI"`
	FetchModelNameAPI string `toml:"FetchModelNameAPI"`
	APIToken          string `toml:"APIToken"`
	LogFile           string `toml:"LogFile"`
	DBPath            string `toml:"DBPath"`
	ShowSys           bool   `toml:"ShowSys"`
	UserRole          string `toml:"UserRole"`
	AssistantRole     string `toml:"AssistantRole"`
	ToolRole          string `toml:"ToolRole"`
	ToolUse           bool   `toml:"ToolUse"`
	SysPrompt         string `toml:"SysPrompt"`
	// workspace sandbox for file tools
	WorkspaceDir      string `toml:"WorkspaceDir"`
	MaxToolIterations int    `toml:"MaxToolIterations"`
	// sampling
	Temperature float32 `toml:"Temperature"`
	MaxTokens   int     `toml:"MaxTokens"`
}

func defaultConfig() *Config {
	return &Config{
		ChatAPI:           "http://localhost:8080/v1/chat/completions",
		FetchModelNameAPI: "http://localhost:8080/v1/models",
		LogFile:           "workchat.log",
		DBPath:            "workchat.db",
		UserRole:          "user",
		AssistantRole:     "assistant",
		ToolRole:          "tool",
		ToolUse:           true,
		WorkspaceDir:      "workspace",
		MaxToolIterations: 10,
		Temperature:       0.7,
		MaxTokens:         2048,
	}
}

func LoadConfig(fn string) (*Config, error) {
	if fn == "" {
		fn = "config.toml"
	}
	config := defaultConfig()
	if _, err := os.Stat(fn); os.IsNotExist(err) {
		// no config file is fine, defaults point at a local llama.cpp
		return config, nil
	}
	if _, err := toml.DecodeFile(fn, config); err != nil {
		return nil, err
	}
	// zero or negative cap would let the tool loop run forever
	if config.MaxToolIterations <= 0 {
		config.MaxToolIterations = 10
	}
	if config.WorkspaceDir == "" {
		config.WorkspaceDir = "workspace"
	}
	return config, nil
}
