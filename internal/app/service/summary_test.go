package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/arslanov/padlock/config"
)

func TestSummarizer_UsesUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"A short note about cats."}}]}`))
	}))
	defer srv.Close()

	s := NewSummarizer(nil, config.SummaryConfig{
		Endpoint: srv.URL,
		APIKey:   "test-key",
		Model:    "gpt-4o-mini",
		Timeout:  2 * time.Second,
	})

	got := s.Summarize(context.Background(), "my cat sleeps all day")
	if got.Source != SummarySourceAI {
		t.Fatalf("expected ai source, got %q", got.Source)
	}
	if got.Text != "A short note about cats." {
		t.Fatalf("unexpected summary %q", got.Text)
	}
}

func TestSummarizer_FallsBackOnUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewSummarizer(nil, config.SummaryConfig{
		Endpoint: srv.URL,
		Timeout:  2 * time.Second,
	})

	content := "The meeting is on Tuesday. Bring the report."
	got := s.Summarize(context.Background(), content)
	if got.Source != SummarySourceLocal {
		t.Fatalf("expected local fallback, got %q", got.Source)
	}
	if got.Text != content {
		t.Fatalf("short content should pass through untouched, got %q", got.Text)
	}
}

func TestSummarizer_NoEndpointMeansLocal(t *testing.T) {
	s := NewSummarizer(nil, config.SummaryConfig{})
	got := s.Summarize(context.Background(), "hello world")
	if got.Source != SummarySourceLocal || got.Text != "hello world" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestSummarizer_EmptyContent(t *testing.T) {
	s := NewSummarizer(nil, config.SummaryConfig{})
	got := s.Summarize(context.Background(), "   \n\t ")
	if got.Text != "" || got.Source != SummarySourceLocal {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestFallbackSummary_SentenceBoundary(t *testing.T) {
	long := "First sentence here. " + strings.Repeat("x", 400)
	got := FallbackSummary(long)
	if got != "First sentence here." {
		t.Fatalf("expected cut at sentence boundary, got %q", got)
	}
}

func TestFallbackSummary_WordBoundary(t *testing.T) {
	long := strings.Repeat("word ", 100)
	got := FallbackSummary(long)
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
	if utf8.RuneCountInString(got) > 281 {
		t.Fatalf("summary exceeds budget: %d runes", utf8.RuneCountInString(got))
	}
	if strings.Contains(strings.TrimSuffix(got, "…"), "wor ") {
		t.Fatalf("cut mid-word: %q", got)
	}
}
