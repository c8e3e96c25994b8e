package oracle

import (
	"context"
	"errors"
	"testing"
)

// fakeOracle returns canned responses in order, or an error.
type fakeOracle struct {
	responses []string
	err       error
	requests  []Request
}

func (f *fakeOracle) Complete(_ context.Context, req Request) (*Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return nil, ErrEmptyResponse
	}
	text := f.responses[0]
	f.responses = f.responses[1:]
	return &Response{Text: text, EndTurn: true}, nil
}

var testCandidates = []Candidate{
	{Name: "inventory", Description: "stock checks and catalog search"},
	{Name: "quoting", Description: "price quotes with bulk discounts"},
	{Name: "finance", Description: "cash balance and purchase approval"},
}

func TestMatchCandidate(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantIndex int
	}{
		{"exact match", "quoting", 1},
		{"case insensitive", "QUOTING", 1},
		{"surrounding whitespace", "  finance \n", 2},
		{"contained in sentence", "I would pick the inventory specialist.", 0},
		{"no match", "none of these fit", -1},
		{"ambiguous mention", "either inventory or quoting works", -1},
		{"empty reply", "", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := MatchCandidate(tt.reply, testCandidates)
			if sel.Index != tt.wantIndex {
				t.Errorf("MatchCandidate(%q).Index = %d, want %d", tt.reply, sel.Index, tt.wantIndex)
			}
			if sel.Raw != tt.reply {
				t.Errorf("Raw = %q, want %q", sel.Raw, tt.reply)
			}
		})
	}
}

func TestOracleClassifier_Classify(t *testing.T) {
	fake := &fakeOracle{responses: []string{"quoting"}}
	classifier := NewOracleClassifier(fake)

	sel, err := classifier.Classify(context.Background(), "price 600 reams of A4", testCandidates)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if sel.Index != 1 {
		t.Errorf("Index = %d, want 1", sel.Index)
	}

	if len(fake.requests) != 1 {
		t.Fatalf("oracle called %d times, want 1", len(fake.requests))
	}
	req := fake.requests[0]
	if req.Persona == "" {
		t.Error("classify request has no persona")
	}
}

func TestOracleClassifier_NoCandidates(t *testing.T) {
	classifier := NewOracleClassifier(&fakeOracle{})
	if _, err := classifier.Classify(context.Background(), "task", nil); err == nil {
		t.Error("Classify() with no candidates succeeded, want error")
	}
}

func TestOracleClassifier_OracleError(t *testing.T) {
	wantErr := errors.New("boom")
	classifier := NewOracleClassifier(&fakeOracle{err: wantErr})

	_, err := classifier.Classify(context.Background(), "task", testCandidates)
	if !errors.Is(err, wantErr) {
		t.Errorf("Classify() error = %v, want wrapped %v", err, wantErr)
	}
}
