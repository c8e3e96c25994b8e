// Package handler implements quill's capability handlers: named units that
// bundle deterministic tools with oracle-mediated tool selection, each
// fulfilling one capability domain (inventory, quoting, ordering, finance).
package handler

import (
	"context"
	"encoding/json"
)

// Handler is a named unit exposing a capability description and a task
// execution contract. Execute blocks until the task completes.
type Handler interface {
	// Name identifies the handler; it is the routing key.
	Name() string
	// Description states the handler's capability for routing decisions.
	Description() string
	// Execute performs the task and returns the handler's response.
	Execute(ctx context.Context, task string) (string, error)
}

// toolSuccess marshals a tool result value for return to the oracle.
func toolSuccess(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return toolFailure(err, "failed to encode tool result")
	}
	return string(data)
}

// toolFailure converts a tool error into the structured failure shape the
// workflow expects, so the oracle can keep reporting to the customer
// instead of aborting.
func toolFailure(err error, message string) string {
	data, _ := json.Marshal(map[string]any{
		"success": false,
		"error":   err.Error(),
		"message": message,
	})
	return string(data)
}
