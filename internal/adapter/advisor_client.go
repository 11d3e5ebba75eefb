package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mouse-blink/refit/internal/config"
	m "github.com/mouse-blink/refit/internal/model"
)

// AdvisorClient asks an external language-model service for rewrite
// suggestions on units the mechanical fixes cannot improve. Advisory
// only: suggestions are reported, never applied.
type AdvisorClient interface {
	Suggest(ctx context.Context, unit string, snippet string, findings []m.Finding) (m.Suggestion, error)
}

// HTTPAdvisorClient talks to an OpenAI-compatible chat completion
// endpoint with retry and backoff.
type HTTPAdvisorClient struct {
	url        string
	model      string
	apiKey     string
	httpClient *http.Client
	retryConf  config.RetryConfig
	mockMode   bool
}

// NewHTTPAdvisorClient builds an advisor client from config. The API
// key comes from REFIT_ADVISOR_KEY so it never lands in config files.
func NewHTTPAdvisorClient(cfg config.AdvisorConfig) *HTTPAdvisorClient {
	return &HTTPAdvisorClient{
		url:    cfg.URL,
		model:  cfg.Model,
		apiKey: os.Getenv("REFIT_ADVISOR_KEY"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		retryConf: cfg.Retry,
		mockMode:  cfg.MockMode,
	}
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

// Suggest posts the snippet and its findings to the advisor and returns
// the raw suggestion text. In mock mode a canned suggestion comes back
// without any network traffic.
func (c *HTTPAdvisorClient) Suggest(ctx context.Context, unit string, snippet string, findings []m.Finding) (m.Suggestion, error) {
	if c.mockMode {
		return m.Suggestion{
			Unit: unit,
			Text: fmt.Sprintf("mock suggestion for %s (%d findings)", unit, len(findings)),
			OK:   true,
		}, nil
	}

	prompt := buildAdvisorPrompt(unit, snippet, findings)
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You review Python code and suggest focused quality improvements. Reply with the improved code only."},
			{Role: "user", Content: prompt},
		},
	}

	var resp chatResponse
	if err := c.post(ctx, req, &resp); err != nil {
		return m.Suggestion{Unit: unit}, err
	}

	if len(resp.Choices) == 0 {
		return m.Suggestion{Unit: unit}, errors.New("advisor returned no choices")
	}

	return m.Suggestion{
		Unit: unit,
		Text: resp.Choices[0].Message.Content,
		OK:   true,
	}, nil
}

func buildAdvisorPrompt(unit string, snippet string, findings []m.Finding) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Unit %s has the following issues:\n", unit)

	for _, f := range findings {
		fmt.Fprintf(&buf, "- line %d: %s\n", f.Line, f.Message)
	}

	buf.WriteString("\nCode:\n")
	buf.WriteString(snippet)

	return buf.String()
}

func (c *HTTPAdvisorClient) post(ctx context.Context, body any, result any) error {
	var lastErr error

	for attempt := 0; attempt <= c.retryConf.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}

		err := c.doPost(ctx, body, result)
		if err == nil {
			return nil
		}

		lastErr = err
		if !shouldRetry(err) {
			break
		}
	}

	return lastErr
}

func (c *HTTPAdvisorClient) doPost(ctx context.Context, body any, result any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling advisor request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating advisor request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing advisor request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		respBody, _ := io.ReadAll(resp.Body)

		return &AdvisorError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding advisor response: %w", err)
	}

	return nil
}

func (c *HTTPAdvisorClient) backoff(attempt int) time.Duration {
	delay := float64(c.retryConf.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= c.retryConf.BackoffFactor
	}

	if delay > float64(c.retryConf.MaxDelay) {
		delay = float64(c.retryConf.MaxDelay)
	}

	return time.Duration(delay)
}

func shouldRetry(err error) bool {
	var apiErr *AdvisorError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
	}

	return true
}

// AdvisorError represents an error response from the advisory service.
type AdvisorError struct {
	StatusCode int
	Body       string
}

func (e *AdvisorError) Error() string {
	return fmt.Sprintf("advisor error (status %d): %s", e.StatusCode, e.Body)
}
