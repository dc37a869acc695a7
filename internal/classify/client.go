package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Rule short-circuits classification when the sender address contains the
// given substring. Matching is case-insensitive.
type Rule struct {
	Contains string
	Category Category
}

// Request carries the email fields the classifier model sees.
type Request struct {
	MessageID string `json:"message_id"`
	Subject   string `json:"subject"`
	Sender    string `json:"sender"`
	Body      string `json:"body"`
}

// Result is the classifier verdict for a single email.
type Result struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
}

// Client calls the external classifier model over HTTP. Sender rules are
// checked first and bypass the model entirely.
type Client struct {
	url        string
	rules      []Rule
	httpClient *http.Client
}

// NewClient creates a classifier client for the given adapter URL.
func NewClient(url string, timeout time.Duration, rules []Rule) *Client {
	return &Client{
		url:   url,
		rules: rules,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Classify returns the category for the email. A matching sender rule wins
// with full confidence; otherwise the external model decides. Model
// responses outside the known category set collapse to CategoryUnknown.
func (c *Client) Classify(ctx context.Context, req Request) (Result, error) {
	if cat, ok := c.matchRule(req.Sender); ok {
		return Result{Category: cat, Confidence: 1.0}, nil
	}

	b, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal classify request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return Result{}, fmt.Errorf("failed to build classify request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("classifier unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var raw struct {
		Category   string  `json:"category"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Result{}, fmt.Errorf("failed to decode classifier response: %w", err)
	}

	return Result{
		Category:   ParseCategory(raw.Category),
		Confidence: raw.Confidence,
	}, nil
}

// Fallback is the verdict used when the classifier cannot be reached.
func Fallback() Result {
	return Result{Category: CategoryUnknown, Confidence: 0}
}

func (c *Client) matchRule(sender string) (Category, bool) {
	s := strings.ToLower(sender)
	for _, rule := range c.rules {
		if rule.Contains != "" && strings.Contains(s, strings.ToLower(rule.Contains)) {
			return rule.Category, true
		}
	}
	return "", false
}
