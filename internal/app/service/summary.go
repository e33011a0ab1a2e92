package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/arslanov/padlock/config"
	"go.uber.org/zap"
)

// Summary sources.
const (
	SummarySourceAI    = "ai"
	SummarySourceLocal = "local"
)

const fallbackSummaryRunes = 280

// Summary is the result of summarizing a pad's content.
type Summary struct {
	Text   string `json:"summary"`
	Source string `json:"source"`
}

// Summarizer produces pad summaries via a hosted chat-completions endpoint,
// degrading to a locally computed excerpt when the endpoint is unconfigured,
// slow, or failing. A summary never affects saved content.
type Summarizer struct {
	logger *zap.Logger
	cfg    config.SummaryConfig
	client *http.Client
}

// NewSummarizer builds a summarizer from config. An empty endpoint is valid
// and means every request takes the local fallback.
func NewSummarizer(logger *zap.Logger, cfg config.SummaryConfig) *Summarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultSummaryTimeout
	}
	return &Summarizer{
		logger: logger,
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Summarize returns a summary of content. Upstream failure is downgraded to
// the local fallback, never surfaced as a request error.
func (s *Summarizer) Summarize(ctx context.Context, content string) Summary {
	if strings.TrimSpace(content) == "" {
		return Summary{Text: "", Source: SummarySourceLocal}
	}

	if s.cfg.Endpoint == "" {
		return Summary{Text: FallbackSummary(content), Source: SummarySourceLocal}
	}

	text, err := s.callUpstream(ctx, content)
	if err != nil {
		s.logger.Warn("summarization upstream failed, using local fallback", zap.Error(err))
		return Summary{Text: FallbackSummary(content), Source: SummarySourceLocal}
	}
	return Summary{Text: text, Source: SummarySourceAI}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (s *Summarizer) callUpstream(ctx context.Context, content string) (string, error) {
	reqBody := chatRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "Summarize the following note in two sentences."},
			{Role: "user", Content: content},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("empty completion")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// FallbackSummary computes a degraded summary locally: the leading sentences
// of the content, truncated to a fixed rune budget on a word boundary.
func FallbackSummary(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}

	// Prefer a sentence boundary inside the budget.
	if utf8.RuneCountInString(content) <= fallbackSummaryRunes {
		return content
	}

	runes := []rune(content)
	cut := fallbackSummaryRunes
	for i := cut; i > 0; i-- {
		if runes[i-1] == '.' || runes[i-1] == '!' || runes[i-1] == '?' {
			return strings.TrimSpace(string(runes[:i]))
		}
	}
	for i := cut; i > 0; i-- {
		if runes[i-1] == ' ' {
			cut = i - 1
			break
		}
	}
	return strings.TrimSpace(string(runes[:cut])) + "…"
}
