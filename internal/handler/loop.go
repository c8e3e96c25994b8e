package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quillworks/quill/internal/oracle"
)

// defaultMaxSteps bounds the decision cycle when the caller does not.
const defaultMaxSteps = 8

// ToolFunc executes one deterministic tool against its JSON input and
// returns the result payload handed back to the oracle.
type ToolFunc func(ctx context.Context, input json.RawMessage) string

// Tool pairs a tool definition with its implementation.
type Tool struct {
	Def oracle.ToolDef
	Run ToolFunc
}

// loopState tracks where the decision cycle currently is.
type loopState int

const (
	stateAwaitingDecision loopState = iota
	stateExecutingTools
	stateDone
)

// ToolLoop drives the decide-then-execute cycle: the oracle picks tools,
// the loop runs them and feeds results back, until the oracle produces a
// final answer or the step cap is hit.
type ToolLoop struct {
	oracle   oracle.Oracle
	persona  string
	tools    []Tool
	byName   map[string]ToolFunc
	maxSteps int
}

// LoopResult reports what a completed (or capped) run did.
type LoopResult struct {
	Output    string
	Steps     int
	ToolCalls int
}

// NewToolLoop builds a loop over the given tool set. A maxSteps of 0
// selects the default cap.
func NewToolLoop(o oracle.Oracle, persona string, tools []Tool, maxSteps int) *ToolLoop {
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}
	byName := make(map[string]ToolFunc, len(tools))
	for _, t := range tools {
		byName[t.Def.Name] = t.Run
	}
	return &ToolLoop{
		oracle:   o,
		persona:  persona,
		tools:    tools,
		byName:   byName,
		maxSteps: maxSteps,
	}
}

// Run executes the loop for one task. Every oracle decision counts as one
// step against the cap; tool executions within a step do not.
func (l *ToolLoop) Run(ctx context.Context, task string) (*LoopResult, error) {
	result := &LoopResult{}

	defs := make([]oracle.ToolDef, len(l.tools))
	for i, t := range l.tools {
		defs[i] = t.Def
	}

	messages := []oracle.Message{oracle.UserText(task)}
	state := stateAwaitingDecision

	for state != stateDone {
		if result.Steps >= l.maxSteps {
			return result, fmt.Errorf("max steps (%d) reached", l.maxSteps)
		}
		result.Steps++

		resp, err := l.oracle.Complete(ctx, oracle.Request{
			Persona:   l.persona,
			Messages:  messages,
			Tools:     defs,
			MaxTokens: 8192,
		})
		if err != nil {
			return result, fmt.Errorf("oracle call failed: %w", err)
		}

		if resp.EndTurn && len(resp.ToolCalls) == 0 {
			result.Output = resp.Text
			state = stateDone
			continue
		}

		state = stateExecutingTools
		assistant := oracle.Message{Role: oracle.RoleAssistant, Text: resp.Text, ToolCalls: resp.ToolCalls}
		results := oracle.Message{Role: oracle.RoleUser}
		for _, call := range resp.ToolCalls {
			result.ToolCalls++
			results.ToolResults = append(results.ToolResults, l.dispatch(ctx, call))
		}
		messages = append(messages, assistant)
		if len(results.ToolResults) > 0 {
			messages = append(messages, results)
		}
		state = stateAwaitingDecision
	}

	return result, nil
}

// dispatch runs a single requested tool. Unknown tool names come back as
// error results so the oracle can correct itself; tool-level failures are
// already encoded in the result payload and are not transport errors.
func (l *ToolLoop) dispatch(ctx context.Context, call oracle.ToolCall) oracle.ToolResult {
	run, ok := l.byName[call.Name]
	if !ok {
		return oracle.ToolResult{
			ID:      call.ID,
			Content: fmt.Sprintf("unknown tool: %s", call.Name),
			IsError: true,
		}
	}
	return oracle.ToolResult{ID: call.ID, Content: run(ctx, call.Input)}
}
