package gmail

import (
	"encoding/base64"
	"fmt"
	"time"

	gmail "google.golang.org/api/gmail/v1"
)

// Envelope is the flattened view of a Gmail message the pipeline works with.
type Envelope struct {
	ID           string
	ThreadID     string
	Subject      string
	Sender       string
	To           string
	Snippet      string
	Body         string
	InternalDate time.Time
	Unread       bool
}

// EnvelopeFromMessage flattens a full Gmail message. A body that cannot be
// decoded leaves Body empty; the snippet still carries enough signal for
// classification.
func EnvelopeFromMessage(msg *gmail.Message) Envelope {
	env := Envelope{
		ID:           msg.Id,
		ThreadID:     msg.ThreadId,
		Subject:      HeaderValue(msg, "Subject"),
		Sender:       HeaderValue(msg, "From"),
		To:           HeaderValue(msg, "To"),
		Snippet:      msg.Snippet,
		InternalDate: time.UnixMilli(msg.InternalDate),
	}

	for _, label := range msg.LabelIds {
		if label == "UNREAD" {
			env.Unread = true
		}
	}

	if body, err := MessageBody(msg, "text"); err == nil {
		env.Body = body
	} else if body, err := MessageBody(msg, "html"); err == nil {
		env.Body = body
	}

	return env
}

// HeaderValue returns the value of the named header, or "" if absent.
// Header name matching is exact.
func HeaderValue(m *gmail.Message, header string) string {
	if m == nil || m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if h.Name == header {
			return h.Value
		}
	}
	return ""
}

// MessageBody extracts the text or HTML body from an already fetched
// message. format is "text" or "html".
func MessageBody(msg *gmail.Message, format string) (string, error) {
	if format == "" {
		format = "text"
	}

	var targetMimeType string
	switch format {
	case "text":
		targetMimeType = "text/plain"
	case "html":
		targetMimeType = "text/html"
	default:
		return "", fmt.Errorf("invalid format %s, must be 'text' or 'html'", format)
	}

	var body string
	if msg.Payload != nil {
		if msg.Payload.MimeType == targetMimeType && msg.Payload.Body != nil && msg.Payload.Body.Data != "" {
			body = msg.Payload.Body.Data
		} else {
			walkParts(msg.Payload, func(part *gmail.MessagePart) {
				if body == "" && part.MimeType == targetMimeType && part.Body != nil && part.Body.Data != "" {
					body = part.Body.Data
				}
			})
		}
	}

	if body == "" {
		return "", fmt.Errorf("no %s body found in message", format)
	}

	// Decode base64url-encoded body data
	decoded, err := base64.URLEncoding.DecodeString(body)
	if err != nil {
		// Try with standard base64 if URLEncoding fails
		decoded, err = base64.StdEncoding.DecodeString(body)
		if err != nil {
			return "", fmt.Errorf("failed to decode message body: %w", err)
		}
	}

	return string(decoded), nil
}

// walkParts recursively walks through message parts
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}

	fn(part)

	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}
