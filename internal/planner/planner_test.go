package planner

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/quillworks/quill/internal/oracle"
)

type fakeOracle struct {
	text     string
	err      error
	requests []oracle.Request
}

func (f *fakeOracle) Complete(_ context.Context, req oracle.Request) (*oracle.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &oracle.Response{Text: f.text, EndTurn: true}, nil
}

func TestExtractSteps(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []string
	}{
		{
			name:     "bare JSON array",
			response: `["Check stock", "Quote the order"]`,
			want:     []string{"Check stock", "Quote the order"},
		},
		{
			name:     "array wrapped in prose",
			response: "Here is the plan:\n[\"Check stock\", \"Quote the order\"]\nLet me know.",
			want:     []string{"Check stock", "Quote the order"},
		},
		{
			name:     "numbered list fallback",
			response: "1. Check stock of A4 paper\n2. Quote 600 units\n3) Record the sale",
			want:     []string{"Check stock of A4 paper", "Quote 600 units", "Record the sale"},
		},
		{
			name:     "bulleted list fallback",
			response: "- Check stock\n- Quote the order",
			want:     []string{"Check stock", "Quote the order"},
		},
		{
			name:     "empty array",
			response: `[]`,
			want:     nil,
		},
		{
			name:     "refusal without structure",
			response: "I cannot plan that request.",
			want:     nil,
		},
		{
			name:     "blank entries dropped",
			response: `["Check stock", "  ", ""]`,
			want:     []string{"Check stock"},
		},
		{
			name:     "malformed array falls back to list lines",
			response: "[not json\n1. Check stock",
			want:     []string{"Check stock"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractSteps(tt.response)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractSteps(%q) = %#v, want %#v", tt.response, got, tt.want)
			}
		})
	}
}

func TestPlan_CallsOracleWithPersona(t *testing.T) {
	fake := &fakeOracle{text: `["Check stock", "Quote 600 units"]`}
	p := New(fake)

	steps, err := p.Plan(context.Background(), "Sell 600 units of A4 paper")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("steps = %#v", steps)
	}
	if len(fake.requests) != 1 || fake.requests[0].Persona == "" {
		t.Error("oracle not called with a persona")
	}
}

func TestPlan_BlankGoalSkipsOracle(t *testing.T) {
	fake := &fakeOracle{}
	p := New(fake)

	steps, err := p.Plan(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if steps != nil {
		t.Errorf("steps = %#v, want nil", steps)
	}
	if len(fake.requests) != 0 {
		t.Error("oracle should not be called for a blank goal")
	}
}

func TestPlan_OracleErrorWrapped(t *testing.T) {
	wantErr := errors.New("unreachable")
	p := New(&fakeOracle{err: wantErr})

	_, err := p.Plan(context.Background(), "a goal")
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want wrapped oracle error", err)
	}
}
