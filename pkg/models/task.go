// Package models defines the shared domain types for quill.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Task is a single free-text instruction dispatched through the system.
// Tasks are immutable once created; the AsOf date is the temporal cutoff
// used for every derived ledger value touched while handling the task.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Instruction is the free-text description of the work.
	Instruction string `json:"instruction"`
	// AsOf is the ISO-8601 date (YYYY-MM-DD) the task is evaluated against.
	AsOf string `json:"as_of"`
	// CreatedAt is when the task entered the system.
	CreatedAt time.Time `json:"created_at"`
}

// NewTask creates a task for the given instruction and as-of date.
// An empty date defaults to today.
func NewTask(instruction, asOf string) Task {
	if asOf == "" {
		asOf = time.Now().Format("2006-01-02")
	}
	return Task{
		ID:          uuid.New().String(),
		Instruction: instruction,
		AsOf:        asOf,
		CreatedAt:   time.Now(),
	}
}

// Plan is an ordered sequence of task instructions produced from one goal.
// Execution order is the contract: step i never observes outputs of later
// steps.
type Plan []string

// Verdict is a judge's decision about a drafted response.
type Verdict struct {
	// Accepted indicates whether the draft satisfied the criteria.
	Accepted bool `json:"accepted"`
	// Reason is the judge's free-text justification.
	Reason string `json:"reason"`
}

// EvaluationRound records one draft/judge cycle of an evaluation session.
type EvaluationRound struct {
	// Attempt is the 1-based index of this round.
	Attempt int `json:"attempt"`
	// Draft is the response produced in this round.
	Draft string `json:"draft"`
	// Verdict is the judge's decision on the draft.
	Verdict Verdict `json:"verdict"`
}
