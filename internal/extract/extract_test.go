package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shipyardhq/shipyard/internal/config"
	"github.com/shipyardhq/shipyard/internal/session"
)

func TestNewClientDisabledWithoutEndpoint(t *testing.T) {
	if c := NewClient(config.Extraction{}); c != nil {
		t.Errorf("expected nil client without endpoint, got %+v", c)
	}
}

func transcript() session.Transcript {
	return session.Transcript{
		{Role: session.RoleAssistant, Content: "Welcome.", IsOpening: true},
		{Role: session.RoleUser, Content: "I need to pick one thing."},
		{Role: session.RoleAssistant, Content: "What would that be?"},
	}
}

func serveContent(t *testing.T, content string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Task     string             `json:"task"`
			Coach    session.Coach      `json:"coach"`
			Messages session.Transcript `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.Coach != session.CoachFocus {
			t.Errorf("unexpected coach %q", req.Coach)
		}
		// Opening messages are stripped before sending
		for _, m := range req.Messages {
			if m.IsOpening {
				t.Error("expected opening message excluded")
			}
		}
		json.NewEncoder(w).Encode(map[string]string{"content": content})
	}))
	t.Cleanup(srv.Close)
	return NewClient(config.Extraction{Endpoint: srv.URL, TimeoutSeconds: 2})
}

func TestOutcomeCandidate(t *testing.T) {
	client := serveContent(t, "```json\n{\"kind\":\"focus\",\"priority\":\"Pick one thing\",\"firstStep\":\"Write it down\"}\n```")

	got, err := client.OutcomeCandidate(context.Background(), session.CoachFocus, transcript())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	focus, ok := got.(session.FocusOutcome)
	if !ok {
		t.Fatalf("expected focus candidate, got %T", got)
	}
	if focus.Priority != "Pick one thing" {
		t.Errorf("unexpected priority %q", focus.Priority)
	}
}

func TestOutcomeCandidateMalformedContent(t *testing.T) {
	client := serveContent(t, "sorry, I cannot help with that")

	got, err := client.OutcomeCandidate(context.Background(), session.CoachFocus, transcript())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil candidate for prose response, got %+v", got)
	}
}

func TestReportCandidate(t *testing.T) {
	client := serveContent(t, `{"summary":"s","pattern":"p","nextCheckInPrompt":"n","confidence":0.7}`)

	got, err := client.ReportCandidate(context.Background(), session.CoachFocus, transcript())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got == nil || got.Confidence != 0.7 {
		t.Errorf("unexpected candidate %+v", got)
	}
}

func TestServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	client := NewClient(config.Extraction{Endpoint: srv.URL, TimeoutSeconds: 2})

	if _, err := client.OutcomeCandidate(context.Background(), session.CoachFocus, transcript()); err == nil {
		t.Error("expected error for 503 response")
	}
}

func TestUnreachableEndpoint(t *testing.T) {
	client := NewClient(config.Extraction{Endpoint: "http://127.0.0.1:1", TimeoutSeconds: 1})

	if _, err := client.OutcomeCandidate(context.Background(), session.CoachFocus, transcript()); err == nil {
		t.Error("expected error for unreachable endpoint")
	}
}
