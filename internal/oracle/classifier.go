package oracle

import (
	"context"
	"fmt"
	"strings"
)

// Candidate is one option offered to a classifier.
type Candidate struct {
	Name        string
	Description string
}

// Selection is the outcome of a classification. Index is -1 when the reply
// matched no candidate; Raw always carries the oracle's verbatim reply so
// callers with a fallback policy can use it.
type Selection struct {
	Index int
	Raw   string
}

// None reports whether the classification selected no candidate.
func (s Selection) None() bool {
	return s.Index < 0
}

// Classifier picks the candidate that best matches a task description.
// Given a fixed reply, classification is deterministic, which keeps the
// workflow above it deterministic and testable.
type Classifier interface {
	Classify(ctx context.Context, task string, candidates []Candidate) (Selection, error)
}

// classifierPersona instructs the oracle to answer with a bare name.
const classifierPersona = "You select the best-suited specialist for a task. " +
	"Reply with exactly one specialist name from the list, and nothing else. " +
	"If none of the specialists fits the task, answer it yourself instead."

// OracleClassifier implements Classifier by asking the oracle to pick one
// candidate by name and matching the reply against the candidate set.
type OracleClassifier struct {
	oracle Oracle
}

// Compile-time verification that OracleClassifier implements Classifier.
var _ Classifier = (*OracleClassifier)(nil)

// NewOracleClassifier creates a classifier backed by the given oracle.
func NewOracleClassifier(o Oracle) *OracleClassifier {
	return &OracleClassifier{oracle: o}
}

// Classify prompts the oracle with the candidate list and matches its
// reply. Replies are matched case-insensitively; a reply that merely
// contains exactly one candidate name also counts as selecting it.
func (c *OracleClassifier) Classify(ctx context.Context, task string, candidates []Candidate) (Selection, error) {
	if len(candidates) == 0 {
		return Selection{Index: -1}, fmt.Errorf("classify: no candidates offered")
	}

	var prompt strings.Builder
	prompt.WriteString("Task:\n")
	prompt.WriteString(task)
	prompt.WriteString("\n\nSpecialists:\n")
	for _, cand := range candidates {
		fmt.Fprintf(&prompt, "- %s: %s\n", cand.Name, cand.Description)
	}

	resp, err := c.oracle.Complete(ctx, Request{
		Persona:   classifierPersona,
		Messages:  []Message{UserText(prompt.String())},
		MaxTokens: 1024,
	})
	if err != nil {
		return Selection{Index: -1}, fmt.Errorf("classify task: %w", err)
	}

	return MatchCandidate(resp.Text, candidates), nil
}

// MatchCandidate resolves an oracle reply against a candidate set. An
// exact (case-insensitive, trimmed) match wins; otherwise a reply that
// contains exactly one candidate name selects that candidate. Anything
// else yields no selection with the raw reply preserved.
func MatchCandidate(reply string, candidates []Candidate) Selection {
	normalized := strings.ToLower(strings.TrimSpace(reply))

	for i, cand := range candidates {
		if normalized == strings.ToLower(strings.TrimSpace(cand.Name)) {
			return Selection{Index: i, Raw: reply}
		}
	}

	contained := -1
	for i, cand := range candidates {
		if strings.Contains(normalized, strings.ToLower(cand.Name)) {
			if contained >= 0 {
				// Ambiguous: more than one name mentioned.
				return Selection{Index: -1, Raw: reply}
			}
			contained = i
		}
	}
	return Selection{Index: contained, Raw: reply}
}
