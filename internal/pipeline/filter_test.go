package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/caredocs/attesta/internal/genai"
	"github.com/caredocs/attesta/internal/models"
)

// fakeClient is a scriptable generative service for tests. complete receives
// the arrival order of the call and the prompt; it may sleep to simulate slow
// completions.
type fakeClient struct {
	mu       sync.Mutex
	calls    int
	prompts  []string
	complete func(call int, prompt string) (string, error)
}

func (f *fakeClient) Complete(ctx context.Context, prompt string, params genai.Params) (string, error) {
	f.mu.Lock()
	call := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.complete(call, prompt)
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var testObjective = models.ObjectiveContext{
	Code:           "7.1.2",
	Title:          "Hand hygiene compliance",
	Interpretation: "Staff perform hand hygiene per WHO five moments.",
}

func TestFilter_EmptyInput(t *testing.T) {
	f := NewFilter(&fakeClient{}, "filter instruction", 0.2, 1000)
	for _, input := range []string{"", "   ", "\n\t "} {
		if _, err := f.Run(context.Background(), input, testObjective); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("input %q: got %v, want ErrEmptyInput", input, err)
		}
	}
}

func TestFilter_MissingPrompt(t *testing.T) {
	f := NewFilter(&fakeClient{}, "   ", 0.2, 1000)
	if _, err := f.Run(context.Background(), "some source", testObjective); !errors.Is(err, ErrMissingPrompt) {
		t.Errorf("got %v, want ErrMissingPrompt", err)
	}
}

func TestFilter_TrimsPreamble(t *testing.T) {
	client := &fakeClient{complete: func(int, string) (string, error) {
		return "Sure, here is the relevant content:\n- Wash hands before contact\n- Use alcohol rub", nil
	}}
	f := NewFilter(client, "keep only relevant items", 0.2, 1000)
	out, err := f.Run(context.Background(), "raw extract", testObjective)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	want := "- Wash hands before contact\n- Use alcohol rub"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestFilter_ServiceErrorPropagates(t *testing.T) {
	svcErr := &genai.ServiceError{Err: errors.New("boom")}
	client := &fakeClient{complete: func(int, string) (string, error) { return "", svcErr }}
	f := NewFilter(client, "instruction", 0.2, 1000)
	_, err := f.Run(context.Background(), "source", testObjective)
	var got *genai.ServiceError
	if !errors.As(err, &got) {
		t.Fatalf("got %v, want ServiceError", err)
	}
	if client.callCount() != 1 {
		t.Errorf("service called %d times, want exactly 1 (no automatic retry)", client.callCount())
	}
}

func TestTrimPreamble(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"mid-line dash marker", "Some commentary. - Item A\n- Item B", "- Item A\n- Item B"},
		{"asterisk marker", "Intro text\n* first\n* second", "* first\n* second"},
		{"unicode bullet", "Preamble • item one", "• item one"},
		{"numbered list", "Here you go: 1. step one", "1. step one"},
		{"earliest marker wins", "text 1. numbered then - dashed", "1. numbered then - dashed"},
		{"no marker keeps all", "plain prose without any list", "plain prose without any list"},
		{"marker at start", "- already clean", "- already clean"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrimPreamble(tt.in); got != tt.want {
				t.Errorf("TrimPreamble(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
