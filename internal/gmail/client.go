package gmail

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxpilot/internal/google"
)

// Client wraps the Gmail Users service for one account.
type Client struct {
	svc     *gmail.UsersService
	account string // The account this client is associated with
}

// Account returns the account name this client is associated with
func (c *Client) Account() string {
	return c.account
}

// NewClientForAccount creates a new Gmail client with OAuth2 authentication for a specific account
func NewClientForAccount(ctx context.Context, account string) (*Client, error) {
	client, err := google.GetHTTPClientForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found for account %s: %w", account, err)
	}

	svc, err := gmail.New(client)
	if err != nil {
		return nil, err
	}

	return &Client{
		svc:     svc.Users,
		account: account,
	}, nil
}

// NewClient creates a new Gmail client with OAuth2 authentication for the default account
func NewClient(ctx context.Context) (*Client, error) {
	return NewClientForAccount(ctx, "default")
}

// ListMessagesSince returns full messages received strictly after the
// watermark, oldest first, up to maxResults. Gmail's after: operator has
// day granularity, so results are re-filtered on internalDate.
func (c *Client) ListMessagesSince(since time.Time, maxResults int64) ([]*gmail.Message, error) {
	q := fmt.Sprintf("in:inbox after:%d", since.Unix())

	stubs, err := c.listMessageStubs(q, maxResults*4)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	var messages []*gmail.Message
	for _, stub := range stubs {
		msg, err := c.GetMessage(stub.Id)
		if err != nil {
			return nil, err
		}
		if msg.InternalDate <= since.UnixMilli() {
			continue
		}
		messages = append(messages, msg)
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].InternalDate < messages[j].InternalDate
	})

	if int64(len(messages)) > maxResults {
		messages = messages[:maxResults]
	}

	return messages, nil
}

// EnvelopesSince is ListMessagesSince with the messages decoded into
// envelopes.
func (c *Client) EnvelopesSince(since time.Time, maxResults int64) ([]Envelope, error) {
	messages, err := c.ListMessagesSince(since, maxResults)
	if err != nil {
		return nil, err
	}

	envelopes := make([]Envelope, 0, len(messages))
	for _, msg := range messages {
		envelopes = append(envelopes, EnvelopeFromMessage(msg))
	}
	return envelopes, nil
}

// listMessageStubs lists message IDs matching the query with pagination.
// It will fetch up to maxResults stubs, making multiple API calls if necessary
func (c *Client) listMessageStubs(q string, maxResults int64) ([]*gmail.Message, error) {
	var all []*gmail.Message
	pageToken := ""

	for {
		remaining := maxResults - int64(len(all))
		if remaining <= 0 {
			break
		}

		// Gmail API has a max page size, typically 100
		pageSize := remaining
		if pageSize > 100 {
			pageSize = 100
		}

		req := c.svc.Messages.List("me").Q(q).MaxResults(pageSize)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		res, err := req.Do()
		if err != nil {
			return nil, err
		}

		all = append(all, res.Messages...)

		if res.NextPageToken == "" || int64(len(all)) >= maxResults {
			break
		}

		pageToken = res.NextPageToken
	}

	if int64(len(all)) > maxResults {
		all = all[:maxResults]
	}

	return all, nil
}

// GetMessage retrieves a full Gmail message
func (c *Client) GetMessage(messageID string) (*gmail.Message, error) {
	msg, err := c.svc.Messages.Get("me", messageID).Format("full").Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	return msg, nil
}

// MarkRead removes the UNREAD label from a message
func (c *Client) MarkRead(messageID string) error {
	_, err := c.svc.Messages.Modify("me", messageID, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}).Do()
	if err != nil {
		return fmt.Errorf("failed to mark message %s read: %w", messageID, err)
	}
	return nil
}

// ApplyLabel adds the label (by ID) to a message
func (c *Client) ApplyLabel(messageID, labelID string) error {
	_, err := c.svc.Messages.Modify("me", messageID, &gmail.ModifyMessageRequest{
		AddLabelIds: []string{labelID},
	}).Do()
	if err != nil {
		return fmt.Errorf("failed to apply label to message %s: %w", messageID, err)
	}
	return nil
}

// ListLabels returns all labels in the mailbox
func (c *Client) ListLabels() ([]*gmail.Label, error) {
	res, err := c.svc.Labels.List("me").Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	return res.Labels, nil
}

// EnsureLabel returns the ID of the named label, creating it if missing.
// Matching is case-insensitive.
func (c *Client) EnsureLabel(name string) (string, error) {
	labels, err := c.ListLabels()
	if err != nil {
		return "", err
	}

	for _, label := range labels {
		if strings.EqualFold(label.Name, name) {
			return label.Id, nil
		}
	}

	created, err := c.svc.Labels.Create("me", &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create label %s: %w", name, err)
	}

	return created.Id, nil
}

// ListSent returns the most recent sent messages as envelopes, newest
// first, up to maxResults. Used for writing-style analysis.
func (c *Client) ListSent(maxResults int64) ([]Envelope, error) {
	return c.listSent("in:sent", maxResults)
}

// ListSentTo returns the most recent messages sent to the given recipient,
// newest first.
func (c *Client) ListSentTo(recipient string, maxResults int64) ([]Envelope, error) {
	return c.listSent(fmt.Sprintf("in:sent to:%s", recipient), maxResults)
}

func (c *Client) listSent(query string, maxResults int64) ([]Envelope, error) {
	stubs, err := c.listMessageStubs(query, maxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to list sent messages: %w", err)
	}

	envelopes := make([]Envelope, 0, len(stubs))
	for _, stub := range stubs {
		msg, err := c.GetMessage(stub.Id)
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, EnvelopeFromMessage(msg))
	}

	sort.Slice(envelopes, func(i, j int) bool {
		return envelopes[i].InternalDate.After(envelopes[j].InternalDate)
	})

	return envelopes, nil
}
