// Package planner turns a high-level goal into an ordered list of task
// steps for the router to dispatch one at a time.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/quillworks/quill/internal/oracle"
)

const plannerPersona = `You plan work for Quill, a paper supply company staffed by specialists
for inventory, quoting, order fulfillment, and finance.
Break the goal into the smallest ordered list of self-contained steps, each
phrased as a complete instruction one specialist can execute without seeing
the other steps. Carry concrete details (item names, quantities, dates,
amounts) into every step that needs them.
Respond with a JSON array of step strings and nothing else, for example:
["Check the stock level of A4 paper as of 2025-06-01", "Quote 600 units of A4 paper"]
If the goal is empty or nothing needs doing, respond with [].`

// Planner produces ordered step lists from goals.
type Planner struct {
	oracle oracle.Oracle
}

// New creates a Planner backed by the given oracle.
func New(o oracle.Oracle) *Planner {
	return &Planner{oracle: o}
}

// Plan asks the oracle to decompose the goal. A blank goal yields an empty
// plan without an oracle call; an oracle refusal or empty list also yields
// an empty plan rather than an error.
func (p *Planner) Plan(ctx context.Context, goal string) ([]string, error) {
	if strings.TrimSpace(goal) == "" {
		return nil, nil
	}

	resp, err := p.oracle.Complete(ctx, oracle.Request{
		Persona:   plannerPersona,
		Messages:  []oracle.Message{oracle.UserText(goal)},
		MaxTokens: 4096,
	})
	if err != nil {
		return nil, fmt.Errorf("plan goal: %w", err)
	}

	return ExtractSteps(resp.Text), nil
}

var numberedStep = regexp.MustCompile(`(?m)^\s*(?:\d+[.)]|[-*])\s+(.+)$`)

// ExtractSteps pulls an ordered step list out of a planning response. It
// takes the outermost JSON array when one is present, otherwise falls back
// to numbered or bulleted lines. Responses carrying neither produce an
// empty plan.
func ExtractSteps(response string) []string {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start != -1 && end > start {
		var steps []string
		if err := json.Unmarshal([]byte(response[start:end+1]), &steps); err == nil {
			return trimSteps(steps)
		}
	}

	var steps []string
	for _, m := range numberedStep.FindAllStringSubmatch(response, -1) {
		steps = append(steps, m[1])
	}
	return trimSteps(steps)
}

func trimSteps(steps []string) []string {
	out := steps[:0]
	for _, s := range steps {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
