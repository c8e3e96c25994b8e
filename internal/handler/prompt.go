package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/quillworks/quill/internal/oracle"
)

// PromptHandler is a tool-free handler that answers from a persona and a
// fixed knowledge block. It covers capabilities that need judgment but no
// ledger access, such as general customer correspondence.
type PromptHandler struct {
	name        string
	description string
	persona     string
	oracle      oracle.Oracle
}

var _ Handler = (*PromptHandler)(nil)

// NewPromptHandler builds a handler from a persona and optional knowledge
// lines appended to it.
func NewPromptHandler(o oracle.Oracle, name, description, persona string, knowledge []string) *PromptHandler {
	if len(knowledge) > 0 {
		persona = persona + "\n\nFacts you may rely on:\n- " + strings.Join(knowledge, "\n- ")
	}
	return &PromptHandler{
		name:        name,
		description: description,
		persona:     persona,
		oracle:      o,
	}
}

func (h *PromptHandler) Name() string        { return h.name }
func (h *PromptHandler) Description() string { return h.description }

func (h *PromptHandler) Execute(ctx context.Context, task string) (string, error) {
	resp, err := h.oracle.Complete(ctx, oracle.Request{
		Persona:   h.persona,
		Messages:  []oracle.Message{oracle.UserText(task)},
		MaxTokens: 4096,
	})
	if err != nil {
		return "", fmt.Errorf("%s handler: %w", h.name, err)
	}
	return resp.Text, nil
}
