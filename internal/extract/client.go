// Package extract pulls structured fields out of an email body using an
// external extractor model, keyed by the email's category.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/teemow/inboxpilot/internal/classify"
)

// Request carries the email fields and category the extractor model sees.
type Request struct {
	MessageID string `json:"message_id"`
	Subject   string `json:"subject"`
	Sender    string `json:"sender"`
	Body      string `json:"body"`
	Category  string `json:"category"`
}

// Result holds the structured fields the model extracted. Field names depend
// on the category: a job email yields company/position/deadline, a meeting
// yields date/time/location, and so on.
type Result struct {
	Fields     map[string]any `json:"fields"`
	Confidence float64        `json:"confidence"`
}

// Field returns the named field as a string, or "" when absent.
func (r Result) Field(name string) string {
	v, ok := r.Fields[name]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	return s
}

// extractable lists the categories whose emails carry structured data worth
// extracting. Everything else skips the extraction stage.
var extractable = map[classify.Category]bool{
	classify.CategoryJob:        true,
	classify.CategoryMeeting:    true,
	classify.CategoryDeadline:   true,
	classify.CategoryConference: true,
	classify.CategoryAcademic:   true,
}

// Relevant reports whether emails of the given category go through the
// extraction stage.
func Relevant(category classify.Category) bool {
	return extractable[category]
}

// Client calls the external extractor model over HTTP.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates an extractor client for the given adapter URL.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Extract returns the structured fields for the email. Callers should treat
// an error as "no extracted data" and keep the pipeline moving.
func (c *Client) Extract(ctx context.Context, req Request) (Result, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal extract request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return Result{}, fmt.Errorf("failed to build extract request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("extractor unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("extractor returned status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("failed to decode extractor response: %w", err)
	}
	if result.Fields == nil {
		result.Fields = map[string]any{}
	}

	return result, nil
}
