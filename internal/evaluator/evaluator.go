// Package evaluator runs a bounded draft-judge-refine cycle: a worker
// persona produces an answer, a judge persona scores it against acceptance
// criteria, and rejected drafts are revised with the judge's reason.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/quillworks/quill/internal/oracle"
	"github.com/quillworks/quill/pkg/models"
)

// DefaultMaxRounds bounds the refine cycle when the caller does not.
const DefaultMaxRounds = 3

// ErrMalformedVerdict indicates the judge response carried no parseable
// verdict line.
var ErrMalformedVerdict = errors.New("judge response carried no verdict")

const judgePersona = `You judge whether a draft answer satisfies its acceptance criteria.
Be strict: reject drafts that are incomplete, off-topic, or violate any
criterion. Respond with exactly two lines:
VERDICT: ACCEPTED or VERDICT: REJECTED
REASON: one sentence explaining the verdict`

// Evaluator drives the draft-judge-refine cycle.
type Evaluator struct {
	oracle    oracle.Oracle
	maxRounds int
}

// Result is the outcome of an evaluation run: the final draft, whether the
// judge accepted it, and the full round history.
type Result struct {
	Output   string
	Accepted bool
	Rounds   []models.EvaluationRound
}

// New creates an Evaluator. A non-positive maxRounds selects the default.
func New(o oracle.Oracle, maxRounds int) *Evaluator {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	return &Evaluator{oracle: o, maxRounds: maxRounds}
}

// Run produces a draft for the task under workerPersona, judges it against
// the criteria, and refines on rejection. When every round is rejected the
// last draft is returned with Accepted false and a nil error; the caller
// decides what a best-effort answer is worth.
func (e *Evaluator) Run(ctx context.Context, workerPersona, task, criteria string) (*Result, error) {
	result := &Result{}
	prompt := task

	for attempt := 1; attempt <= e.maxRounds; attempt++ {
		draft, err := e.draft(ctx, workerPersona, prompt)
		if err != nil {
			return nil, fmt.Errorf("draft attempt %d: %w", attempt, err)
		}

		verdict, err := e.judge(ctx, task, criteria, draft)
		if err != nil {
			return nil, fmt.Errorf("judge attempt %d: %w", attempt, err)
		}

		result.Rounds = append(result.Rounds, models.EvaluationRound{
			Attempt: attempt,
			Draft:   draft,
			Verdict: verdict,
		})
		result.Output = draft

		if verdict.Accepted {
			result.Accepted = true
			return result, nil
		}

		// Revise with only the latest rejection reason, not the full
		// transcript, so later drafts stay anchored to the task.
		prompt = fmt.Sprintf("%s\n\nYour previous answer was rejected: %s\nProvide a corrected answer.", task, verdict.Reason)
	}

	return result, nil
}

func (e *Evaluator) draft(ctx context.Context, persona, prompt string) (string, error) {
	resp, err := e.oracle.Complete(ctx, oracle.Request{
		Persona:   persona,
		Messages:  []oracle.Message{oracle.UserText(prompt)},
		MaxTokens: 4096,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (e *Evaluator) judge(ctx context.Context, task, criteria, draft string) (models.Verdict, error) {
	prompt := fmt.Sprintf("Task:\n%s\n\nAcceptance criteria:\n%s\n\nDraft answer:\n%s", task, criteria, draft)
	resp, err := e.oracle.Complete(ctx, oracle.Request{
		Persona:   judgePersona,
		Messages:  []oracle.Message{oracle.UserText(prompt)},
		MaxTokens: 1024,
	})
	if err != nil {
		return models.Verdict{}, err
	}
	return ParseVerdict(resp.Text)
}

var (
	verdictLine = regexp.MustCompile(`(?im)^\s*VERDICT:\s*(ACCEPTED|REJECTED)\s*$`)
	reasonLine  = regexp.MustCompile(`(?im)^\s*REASON:\s*(.+)$`)
)

// ParseVerdict extracts the verdict and reason from a judge response.
func ParseVerdict(response string) (models.Verdict, error) {
	m := verdictLine.FindStringSubmatch(response)
	if m == nil {
		return models.Verdict{}, fmt.Errorf("%w: %q", ErrMalformedVerdict, truncate(response, 200))
	}
	v := models.Verdict{Accepted: strings.EqualFold(m[1], "ACCEPTED")}
	if r := reasonLine.FindStringSubmatch(response); r != nil {
		v.Reason = strings.TrimSpace(r[1])
	}
	return v, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
