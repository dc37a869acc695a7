// Package style analyzes the user's writing style from past sent mail and
// generates drafts that match it. It backs the draft-rewriting endpoints
// used by the browser extension.
package style

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/teemow/inboxpilot/internal/gmail"
)

// sampleLimit is how many past emails to a recipient are analyzed.
const sampleLimit = 5

// maxSampleBody caps how much of each past email feeds the style prompt.
const maxSampleBody = 500

// TextGenerator produces free-form text from a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// SentSource lists past messages sent to a recipient, newest first.
type SentSource interface {
	ListSentTo(recipient string, maxResults int64) ([]gmail.Envelope, error)
}

// Patterns describes the writing patterns detected in past emails.
type Patterns struct {
	Greeting      string   `json:"greeting,omitempty"`
	Formality     string   `json:"formality,omitempty"`
	Tone          string   `json:"tone,omitempty"`
	Closing       string   `json:"closing,omitempty"`
	CommonPhrases []string `json:"common_phrases,omitempty"`
	SentenceStyle string   `json:"sentence_style,omitempty"`
}

// Analysis is the result of a style analysis for a recipient.
type Analysis struct {
	StyleAnalysis  string   `json:"style_analysis"`
	Draft          string   `json:"generated_draft"`
	Confidence     float64  `json:"confidence"`
	PastEmailCount int      `json:"past_email_count"`
	Patterns       Patterns `json:"detected_patterns,omitempty"`
	Recipient      string   `json:"recipient"`
}

// DraftRequest describes a plain draft generation request.
type DraftRequest struct {
	Context   string   `json:"context"`
	Tone      string   `json:"tone"`
	Recipient string   `json:"recipient,omitempty"`
	Subject   string   `json:"subject,omitempty"`
	KeyPoints []string `json:"key_points,omitempty"`
}

// DraftResponse is a generated draft with an optional subject suggestion.
type DraftResponse struct {
	Draft             string  `json:"draft"`
	SubjectSuggestion string  `json:"subject_suggestion,omitempty"`
	Confidence        float64 `json:"confidence"`
}

// Analyzer generates style analyses and drafts.
type Analyzer struct {
	gen  TextGenerator
	sent SentSource
}

// NewAnalyzer creates an Analyzer using the given model and sent-mail source.
func NewAnalyzer(gen TextGenerator, sent SentSource) *Analyzer {
	return &Analyzer{gen: gen, sent: sent}
}

// Analyze fetches the user's recent mail to the recipient, derives writing
// patterns from it and generates a draft for the intent in that style.
// When past mail is unavailable or too sparse it falls back to a generic
// professional draft with reduced confidence.
func (a *Analyzer) Analyze(ctx context.Context, recipient, intent string) (Analysis, error) {
	if recipient == "" || intent == "" {
		return Analysis{}, fmt.Errorf("both recipient and intent are required")
	}

	past, err := a.sent.ListSentTo(recipient, sampleLimit)
	if err != nil {
		draft := a.genericDraft(ctx, intent, recipient)
		return Analysis{
			StyleAnalysis: "Using generic professional style due to no past email history",
			Draft:         draft,
			Confidence:    0.3,
			Recipient:     recipient,
		}, nil
	}

	if len(past) < 2 {
		draft := a.genericDraft(ctx, intent, recipient)
		return Analysis{
			StyleAnalysis:  fmt.Sprintf("Only %d past email(s) found. Using general style.", len(past)),
			Draft:          draft,
			Confidence:     0.4,
			PastEmailCount: len(past),
			Recipient:      recipient,
		}, nil
	}

	analysis := a.analyzeStyle(ctx, past, intent, recipient)
	analysis.PastEmailCount = len(past)
	analysis.Recipient = recipient
	return analysis, nil
}

// styleResponse is the JSON shape the model is asked to return.
type styleResponse struct {
	StylePatterns  Patterns `json:"style_patterns"`
	Confidence     float64  `json:"confidence_score"`
	GeneratedEmail string   `json:"generated_email"`
}

func (a *Analyzer) analyzeStyle(ctx context.Context, past []gmail.Envelope, intent, recipient string) Analysis {
	text, err := a.gen.GenerateText(ctx, stylePrompt(past, intent, recipient))
	if err != nil {
		return Analysis{
			StyleAnalysis: fmt.Sprintf("Style analysis failed: %v. Using generic style.", err),
			Draft:         a.genericDraft(ctx, intent, recipient),
			Confidence:    0.3,
		}
	}

	raw := extractJSON(text)
	var parsed styleResponse
	if raw == "" || json.Unmarshal([]byte(raw), &parsed) != nil {
		// The model answered in prose; treat the whole reply as the draft.
		return Analysis{
			StyleAnalysis: "Style analysis completed",
			Draft:         strings.TrimSpace(text),
			Confidence:    0.6,
		}
	}

	formality := parsed.StylePatterns.Formality
	if formality == "" {
		formality = "mixed"
	}
	tone := parsed.StylePatterns.Tone
	if tone == "" {
		tone = "neutral"
	}

	return Analysis{
		StyleAnalysis: fmt.Sprintf("Detected %s style with %s tone", formality, tone),
		Draft:         parsed.GeneratedEmail,
		Confidence:    parsed.Confidence,
		Patterns:      parsed.StylePatterns,
	}
}

// truncateBody caps body at max bytes without splitting a multi-byte rune.
func truncateBody(body string, max int) string {
	if len(body) <= max {
		return body
	}
	for max > 0 && !utf8.RuneStart(body[max]) {
		max--
	}
	return body[:max]
}

func stylePrompt(past []gmail.Envelope, intent, recipient string) string {
	var samples []string
	for i, env := range past {
		if i >= sampleLimit {
			break
		}
		body := truncateBody(env.Body, maxSampleBody)
		samples = append(samples, fmt.Sprintf("Email %d: %s", i+1, body))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the writing style from these %d past emails to %s:\n\n", len(past), recipient)
	b.WriteString(strings.Join(samples, "\n"))
	b.WriteString("\n\nExtract writing patterns:\n")
	b.WriteString("1. Greeting style (Dear/Hi/Hello/etc.)\n")
	b.WriteString("2. Formality level (formal/casual/mixed)\n")
	b.WriteString("3. Sentence structure (short/medium/long)\n")
	b.WriteString("4. Closing style (Best regards/Thanks/Cheers/etc.)\n")
	b.WriteString("5. Tone (professional/friendly/direct/academic)\n")
	b.WriteString("6. Common phrases and expressions used\n")
	fmt.Fprintf(&b, "\nThen generate a new email for: %q\n", intent)
	b.WriteString("\nMatch the exact style patterns found above: the same greeting format, level of formality, sentence structure, closing style, common phrases and overall tone.\n")
	b.WriteString(`
Return your response in this JSON format:
{
    "style_patterns": {
        "greeting": "detected greeting pattern",
        "formality": "formal/casual/mixed",
        "tone": "detected tone",
        "closing": "detected closing style",
        "common_phrases": ["phrase1", "phrase2"],
        "sentence_style": "short/medium/long"
    },
    "confidence_score": 0.85,
    "generated_email": "the new email matching the style"
}
`)
	return b.String()
}

// genericDraft asks the model for a generic professional draft, falling
// back to a static template when the model is unreachable.
func (a *Analyzer) genericDraft(ctx context.Context, intent, recipient string) string {
	greeting, closing, tone := genericRegister(recipient)

	prompt := fmt.Sprintf(`Generate a %s email for: %q
Recipient: %s

Use this format:
%s,

[Email body matching the intent]

%s,
[Your name]

Keep it concise, professional, and appropriate for the context.
`, tone, intent, recipient, greeting, closing)

	text, err := a.gen.GenerateText(ctx, prompt)
	if err != nil {
		return fmt.Sprintf(`%s,

I hope this email finds you well. I wanted to reach out regarding: %s

I would appreciate your assistance with this matter.

%s,
[Your name]`, greeting, intent, closing)
	}
	return strings.TrimSpace(text)
}

// genericRegister picks greeting, closing and tone for a recipient when no
// past mail is available. Academic addresses get a formal register.
func genericRegister(recipient string) (greeting, closing, tone string) {
	lower := strings.ToLower(recipient)
	switch {
	case strings.Contains(lower, "professor"):
		return "Dear Professor", "Best regards", "formal academic"
	case strings.Contains(lower, "dr."):
		return "Dear Dr.", "Best regards", "formal academic"
	case strings.HasSuffix(lower, ".edu"):
		return "Dear Sir/Madam", "Best regards", "formal academic"
	default:
		return "Hi there", "Best regards", "professional"
	}
}

// GenerateDraft produces a plain draft from a structured request. When the
// request omits a subject and the model suggests one on a "Subject:" line,
// the line is lifted into the subject suggestion.
func (a *Analyzer) GenerateDraft(ctx context.Context, req DraftRequest) (DraftResponse, error) {
	var points strings.Builder
	for _, p := range req.KeyPoints {
		fmt.Fprintf(&points, "- %s\n", p)
	}

	recipient := req.Recipient
	if recipient == "" {
		recipient = "Unknown"
	}
	subject := req.Subject
	if subject == "" {
		subject = "To be determined"
	}

	prompt := fmt.Sprintf(`Generate a professional email draft based on this request:

Context: %s
Tone: %s
Recipient: %s
Subject: %s

Key Points:
%s
REQUIREMENTS:
1. Create a well-structured email that matches the requested tone
2. Include all key points naturally
3. Make it professional and appropriate for the context
4. Suggest a subject line if not provided
5. Keep it concise but complete

Return ONLY the email content, no additional formatting or explanations.
`, req.Context, req.Tone, recipient, subject, points.String())

	text, err := a.gen.GenerateText(ctx, prompt)
	if err != nil {
		return DraftResponse{}, fmt.Errorf("draft generation failed: %w", err)
	}

	draft := strings.TrimSpace(text)
	suggestion := req.Subject
	if suggestion == "" {
		draft, suggestion = liftSubjectLine(draft)
	}

	return DraftResponse{
		Draft:             draft,
		SubjectSuggestion: suggestion,
		Confidence:        0.9,
	}, nil
}

// liftSubjectLine removes a "Subject: ..." line from the draft and returns
// it separately. Returns the draft unchanged when no such line exists.
func liftSubjectLine(draft string) (string, string) {
	lines := strings.Split(draft, "\n")
	subject := ""
	kept := lines[:0]
	for _, line := range lines {
		if subject == "" && strings.HasPrefix(strings.ToLower(line), "subject:") {
			subject = strings.TrimSpace(line[len("subject:"):])
			continue
		}
		kept = append(kept, line)
	}
	if subject == "" {
		return draft, ""
	}
	return strings.TrimSpace(strings.Join(kept, "\n")), subject
}

// extractJSON returns the first top-level JSON object embedded in text.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return ""
	}
	return text[start : end+1]
}
