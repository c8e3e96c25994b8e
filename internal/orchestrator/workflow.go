package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/quillworks/quill/internal/oracle"
)

// StepResult is the outcome of one dispatched workflow step.
type StepResult struct {
	Step   string `json:"step"`
	Output string `json:"output"`
}

// WorkflowResult is the outcome of a full planned workflow.
type WorkflowResult struct {
	Goal     string       `json:"goal"`
	Steps    []StepResult `json:"steps"`
	Final    string       `json:"final"`
	Accepted bool         `json:"accepted"`
}

const synthesisPersona = `You write the final answer for a multi-step workflow run by Quill's
specialists. You are given the original goal and each step's result.
Compose one coherent answer to the goal from the step results. Do not
invent facts the steps did not establish.`

// RunWorkflow plans the goal into steps, dispatches each through the
// router in order, and synthesizes a final answer from the step results.
// When the evaluator is configured, the synthesis is judged against the
// goal and refined before being returned. A goal the planner cannot
// decompose is routed directly as a single step.
func (o *Orchestrator) RunWorkflow(ctx context.Context, goal string) (*WorkflowResult, error) {
	steps, err := o.planner.Plan(ctx, goal)
	if err != nil {
		return nil, fmt.Errorf("plan workflow: %w", err)
	}
	if len(steps) == 0 {
		steps = []string{goal}
	}
	o.logger.Log("workflow: %d steps for goal %q", len(steps), goal)

	result := &WorkflowResult{Goal: goal}
	for i, step := range steps {
		out, err := o.router.Route(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%q): %w", i+1, step, err)
		}
		o.logger.Log("workflow step %d/%d done", i+1, len(steps))
		result.Steps = append(result.Steps, StepResult{Step: step, Output: out})
	}

	if len(result.Steps) == 1 {
		result.Final = result.Steps[0].Output
		result.Accepted = true
		return result, nil
	}

	final, accepted, err := o.synthesize(ctx, goal, result.Steps)
	if err != nil {
		return nil, fmt.Errorf("synthesize workflow answer: %w", err)
	}
	result.Final = final
	result.Accepted = accepted
	return result, nil
}

func (o *Orchestrator) synthesize(ctx context.Context, goal string, steps []StepResult) (string, bool, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal:\n%s\n\nStep results:\n", goal)
	for i, s := range steps {
		fmt.Fprintf(&b, "%d. %s\n%s\n\n", i+1, s.Step, s.Output)
	}

	if o.evaluator != nil {
		criteria := fmt.Sprintf("The answer addresses the goal %q completely, uses only facts from the step results, and reads as one coherent reply.", goal)
		res, err := o.evaluator.Run(ctx, synthesisPersona, b.String(), criteria)
		if err != nil {
			return "", false, err
		}
		return res.Output, res.Accepted, nil
	}

	resp, err := o.oracle.Complete(ctx, oracle.Request{
		Persona:   synthesisPersona,
		Messages:  []oracle.Message{oracle.UserText(b.String())},
		MaxTokens: 4096,
	})
	if err != nil {
		return "", false, err
	}
	return resp.Text, true, nil
}
