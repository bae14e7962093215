package insights

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeProvider struct {
	reply string
	err   error
	delay time.Duration
	user  string
}

func (f *fakeProvider) Complete(ctx context.Context, _, user string) (string, error) {
	f.user = user
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

const goodReply = `{"communication":80,"collaboration":72,"leadership":60,"initiative":90,"reliability":85,
"summary":"Strong self-starter.","strengths":["initiative"],"improvements":["delegation"]}`

func TestParseScores(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"plain json", goodReply, false},
		{"fenced json", "```json\n" + goodReply + "\n```", false},
		{"not json", "I think they are great", true},
		{"missing dimension", `{"communication":1,"collaboration":1,"leadership":1,"initiative":1}`, true},
		{"out of range", strings.Replace(goodReply, `"leadership":60`, `"leadership":160`, 1), true},
		{"truncated", goodReply[:40], true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseScores(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (s.Initiative != 90 || s.Summary != "Strong self-starter.") {
				t.Errorf("Scores = %+v", s)
			}
		})
	}
}

func TestAnalyze_Success(t *testing.T) {
	p := &fakeProvider{reply: goodReply}
	a := New(p, time.Second, nil, nil)

	s, err := a.Analyze(context.Background(), []string{"Great work on the launch", "  ", "Helps others"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if s.Communication != 80 {
		t.Errorf("Communication = %d", s.Communication)
	}
	if !strings.Contains(p.user, "1. Great work on the launch") || !strings.Contains(p.user, "2. Helps others") {
		t.Errorf("prompt = %q", p.user)
	}
}

func TestAnalyze_FailuresAreUnavailable(t *testing.T) {
	tests := []struct {
		name string
		p    Provider
	}{
		{"provider error", &fakeProvider{err: errors.New("503 from upstream")}},
		{"malformed json", &fakeProvider{reply: "{not json"}},
		{"timeout", &fakeProvider{reply: goodReply, delay: time.Second}},
		{"no provider", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.p, 20*time.Millisecond, nil, nil)
			_, err := a.Analyze(context.Background(), []string{"feedback"})
			if !errors.Is(err, ErrAnalysisUnavailable) {
				t.Errorf("err = %v, want ErrAnalysisUnavailable", err)
			}
		})
	}
}

func TestAnalyze_NoInput(t *testing.T) {
	a := New(&fakeProvider{reply: goodReply}, time.Second, nil, nil)
	if _, err := a.Analyze(context.Background(), []string{"", " "}); !errors.Is(err, ErrNoInput) {
		t.Errorf("err = %v, want ErrNoInput", err)
	}
}

func TestOpenAIProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": goodReply},
			}},
		})
	}))
	defer srv.Close()

	a := New(NewOpenAI("test-key", srv.URL+"/v1", "test-model"), 5*time.Second, nil, nil)
	s, err := a.Analyze(context.Background(), []string{"Always on time"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if s.Reliability != 85 {
		t.Errorf("Reliability = %d", s.Reliability)
	}
}

func TestOpenAIProvider_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := New(NewOpenAI("k", srv.URL+"/v1", ""), 5*time.Second, nil, nil)
	if _, err := a.Analyze(context.Background(), []string{"x"}); !errors.Is(err, ErrAnalysisUnavailable) {
		t.Errorf("err = %v, want ErrAnalysisUnavailable", err)
	}
}
