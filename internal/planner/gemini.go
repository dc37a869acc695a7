package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/teemow/inboxpilot/internal/classify"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Request carries everything the planner needs to know about one message.
type Request struct {
	Category  classify.Category
	Subject   string
	Sender    string
	Snippet   string
	Extracted map[string]any
}

// Gemini calls the Gemini generateContent REST API to produce execution
// plans and free-form text.
type Gemini struct {
	apiKey      string
	model       string
	baseURL     string
	labelPrefix string
	httpClient  *http.Client
}

// NewGemini creates a planner backed by the given Gemini model.
func NewGemini(apiKey, model, labelPrefix string, timeout time.Duration) *Gemini {
	return &Gemini{
		apiKey:      apiKey,
		model:       model,
		baseURL:     defaultBaseURL,
		labelPrefix: labelPrefix,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithBaseURL points the client at a different API host.
func (g *Gemini) WithBaseURL(url string) *Gemini {
	g.baseURL = strings.TrimSuffix(url, "/")
	return g
}

// GeneratePlan asks the model for an execution plan. The returned plan is
// always structurally valid: when the model is unreachable or its output
// cannot be parsed into usable steps, the deterministic fallback plan is
// returned together with the error that caused it.
func (g *Gemini) GeneratePlan(ctx context.Context, req Request) (Plan, error) {
	text, err := g.GenerateText(ctx, g.planPrompt(req))
	if err != nil {
		return FallbackPlan(req.Category, g.labelPrefix, req.Extracted), err
	}

	raw := extractJSON(text)
	if raw == "" {
		return FallbackPlan(req.Category, g.labelPrefix, req.Extracted),
			fmt.Errorf("planner response contains no JSON object")
	}

	var plan Plan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return FallbackPlan(req.Category, g.labelPrefix, req.Extracted),
			fmt.Errorf("failed to parse planner response: %w", err)
	}

	plan = Validate(plan, req.Category)
	if len(plan.Steps) == 0 {
		return FallbackPlan(req.Category, g.labelPrefix, req.Extracted),
			fmt.Errorf("planner response contains no usable steps")
	}

	return g.ensureJobRow(plan, req), nil
}

// GenerateText sends a single-turn prompt and returns the model's text.
func (g *Gemini) GenerateText(ctx context.Context, prompt string) (string, error) {
	body := genRequest{
		Contents: []genContent{
			{Parts: []genPart{{Text: prompt}}},
		},
	}

	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal planner request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("failed to build planner request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("planner unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("planner returned status %d", resp.StatusCode)
	}

	var genResp genResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("failed to decode planner response: %w", err)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("planner returned no candidates")
	}

	return genResp.Candidates[0].Content.Parts[0].Text, nil
}

// planPrompt renders the single-turn planning prompt for the message.
func (g *Gemini) planPrompt(req Request) string {
	extracted, _ := json.Marshal(req.Extracted)

	var sb strings.Builder
	sb.WriteString("You are an email automation planner. Decide which tools to run for the email below.\n\n")
	fmt.Fprintf(&sb, "Category: %s\n", req.Category)
	fmt.Fprintf(&sb, "Subject: %s\n", req.Subject)
	fmt.Fprintf(&sb, "Sender: %s\n", req.Sender)
	if req.Snippet != "" {
		fmt.Fprintf(&sb, "Snippet: %s\n", req.Snippet)
	}
	fmt.Fprintf(&sb, "Extracted fields: %s\n\n", extracted)
	fmt.Fprintf(&sb, "Allowed tools for this category: %s\n", strings.Join(AllowedTools(req.Category), ", "))
	fmt.Fprintf(&sb, "The category label to apply is %q.\n\n", req.Category.Label(g.labelPrefix))
	sb.WriteString(`Respond with a single JSON object of the form {"steps":[{"tool":"...","args":{...},"rationale":"..."}]}. Use only allowed tools. No other text.`)
	return sb.String()
}

// ensureJobRow guarantees that a job email with extracted fields ends up in
// the application tracker even when the model forgot the append_row step.
func (g *Gemini) ensureJobRow(plan Plan, req Request) Plan {
	if req.Category != classify.CategoryJob || len(req.Extracted) == 0 {
		return plan
	}
	for _, step := range plan.Steps {
		if step.Tool == ToolAppendRow {
			return plan
		}
	}
	plan.Steps = append(plan.Steps, Step{
		Tool: ToolAppendRow,
		Args: map[string]any{"fields": req.Extracted},
	})
	return plan
}

// extractJSON returns the substring between the first '{' and the last '}'
// of text, tolerating models that wrap JSON in prose or code fences.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return text[start : end+1]
}

type genRequest struct {
	Contents []genContent `json:"contents"`
}

type genContent struct {
	Parts []genPart `json:"parts"`
}

type genPart struct {
	Text string `json:"text"`
}

type genResponse struct {
	Candidates []struct {
		Content genContent `json:"content"`
	} `json:"candidates"`
}
