// Package router selects the best capability handler for a task by
// comparing the task against each handler's stated capability.
package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/quillworks/quill/internal/handler"
	"github.com/quillworks/quill/internal/oracle"
)

// ErrNoHandler indicates no registered handler matched the task.
var ErrNoHandler = errors.New("no handler matched the task")

// ErrNoneRegistered indicates routing was attempted with an empty registry.
var ErrNoneRegistered = errors.New("no handlers registered")

// FallbackPolicy controls what Route does when the classifier cannot name
// a registered handler.
type FallbackPolicy int

const (
	// FallbackError surfaces ErrNoHandler to the caller.
	FallbackError FallbackPolicy = iota
	// FallbackSynthesize answers the task directly from the oracle,
	// flagged as a best-effort answer outside every capability.
	FallbackSynthesize
)

const fallbackPersona = `You are a general assistant for Quill, a paper supply company.
The task below did not match any specialist. Answer it as best you can from
general knowledge, and say plainly when the task needs information or
actions you do not have access to.`

// Router dispatches tasks to registered handlers via a classifier.
type Router struct {
	classifier oracle.Classifier
	oracle     oracle.Oracle
	policy     FallbackPolicy
	handlers   []handler.Handler
	byName     map[string]handler.Handler
}

// New builds a router over the given handlers. Registration order is the
// candidate order shown to the classifier.
func New(classifier oracle.Classifier, o oracle.Oracle, policy FallbackPolicy, handlers ...handler.Handler) *Router {
	r := &Router{
		classifier: classifier,
		oracle:     o,
		policy:     policy,
		byName:     make(map[string]handler.Handler, len(handlers)),
	}
	for _, h := range handlers {
		r.register(h)
	}
	return r
}

func (r *Router) register(h handler.Handler) {
	if _, dup := r.byName[h.Name()]; dup {
		return
	}
	r.handlers = append(r.handlers, h)
	r.byName[h.Name()] = h
}

// Handlers returns the registered handlers in registration order.
func (r *Router) Handlers() []handler.Handler {
	return r.handlers
}

// Select names the handler for a task without executing it.
func (r *Router) Select(ctx context.Context, task string) (handler.Handler, error) {
	if len(r.handlers) == 0 {
		return nil, ErrNoneRegistered
	}

	candidates := make([]oracle.Candidate, len(r.handlers))
	for i, h := range r.handlers {
		candidates[i] = oracle.Candidate{Name: h.Name(), Description: h.Description()}
	}

	sel, err := r.classifier.Classify(ctx, task, candidates)
	if err != nil {
		return nil, fmt.Errorf("classify task: %w", err)
	}
	if sel.None() {
		return nil, fmt.Errorf("%w (classifier said %q)", ErrNoHandler, sel.Raw)
	}
	return r.handlers[sel.Index], nil
}

// Route selects a handler for the task and executes it. When no handler
// matches, the fallback policy decides between an error and a best-effort
// direct answer.
func (r *Router) Route(ctx context.Context, task string) (string, error) {
	h, err := r.Select(ctx, task)
	if errors.Is(err, ErrNoHandler) && r.policy == FallbackSynthesize {
		return r.synthesize(ctx, task)
	}
	if err != nil {
		return "", err
	}

	out, err := h.Execute(ctx, task)
	if err != nil {
		return "", fmt.Errorf("handler %s: %w", h.Name(), err)
	}
	return out, nil
}

func (r *Router) synthesize(ctx context.Context, task string) (string, error) {
	resp, err := r.oracle.Complete(ctx, oracle.Request{
		Persona:   fallbackPersona,
		Messages:  []oracle.Message{oracle.UserText(task)},
		MaxTokens: 4096,
	})
	if err != nil {
		return "", fmt.Errorf("fallback answer: %w", err)
	}
	return resp.Text, nil
}
