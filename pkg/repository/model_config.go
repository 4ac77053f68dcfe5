package repository

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

//go:embed defaults/system_prompt.md
var defaultSystemPrompt string

// modelConfigRepository holds the system prompt and tools description read once at startup.
type modelConfigRepository struct {
	systemPrompt     string
	toolsDescription string
}

// NewModelConfigRepository reads the prompt and tools description from the given files.
// An empty path selects the built-in prompt, or for tools the output of describeTools.
func NewModelConfigRepository(systemPromptFile, toolsDescriptionFile string, describeTools func() (string, error)) (*modelConfigRepository, error) {
	r := &modelConfigRepository{systemPrompt: strings.TrimSpace(defaultSystemPrompt)}

	if systemPromptFile != "" {
		b, err := os.ReadFile(systemPromptFile)
		if err != nil {
			return nil, fmt.Errorf("reading system prompt: %w", err)
		}
		r.systemPrompt = strings.TrimSpace(string(b))
	}

	switch {
	case toolsDescriptionFile != "":
		b, err := os.ReadFile(toolsDescriptionFile)
		if err != nil {
			return nil, fmt.Errorf("reading tools description: %w", err)
		}
		r.toolsDescription = string(b)
	case describeTools != nil:
		description, err := describeTools()
		if err != nil {
			return nil, fmt.Errorf("describing tools: %w", err)
		}
		r.toolsDescription = description
	}

	slog.Debug("Model configuration loaded",
		"systemPromptLength", len(r.systemPrompt),
		"toolsDescriptionLength", len(r.toolsDescription),
	)
	return r, nil
}

func (r *modelConfigRepository) SystemPrompt() string {
	return r.systemPrompt
}

func (r *modelConfigRepository) ToolsDescription() string {
	return r.toolsDescription
}
