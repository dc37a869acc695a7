package sheets

import (
	"context"
	"fmt"

	sheets "google.golang.org/api/sheets/v4"
	"google.golang.org/api/option"

	"github.com/teemow/inboxpilot/internal/google"
)

// Column order of the application tracking sheet.
var trackerColumns = []string{
	"company",
	"position",
	"application_date",
	"status",
	"job_url",
	"contact_email",
	"deadline",
	"notes",
}

// Client wraps the Google Sheets service
type Client struct {
	svc     *sheets.Service
	account string
}

// Account returns the account name this client is associated with
func (c *Client) Account() string {
	return c.account
}

// NewClientForAccount creates a new Sheets client with OAuth2 authentication
// for a specific account. The OAuth token is read from the local token cache.
func NewClientForAccount(ctx context.Context, account string) (*Client, error) {
	httpClient, err := google.GetHTTPClientForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get Google OAuth client for account %s: %w", account, err)
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets service: %w", err)
	}

	return &Client{svc: svc, account: account}, nil
}

// NewClient creates a new Sheets client for the default account
func NewClient(ctx context.Context) (*Client, error) {
	return NewClientForAccount(ctx, "default")
}

// AppendRow appends a single row of values to the given range.
// Values are appended after the last row with data.
func (c *Client) AppendRow(spreadsheetID, readRange string, values []any) error {
	body := &sheets.ValueRange{
		Values: [][]any{values},
	}

	_, err := c.svc.Spreadsheets.Values.Append(spreadsheetID, readRange, body).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Do()
	if err != nil {
		return fmt.Errorf("failed to append row to spreadsheet %s: %w", spreadsheetID, err)
	}
	return nil
}

// AppendTrackerRow maps extracted job fields onto the tracker columns and
// appends them as a row. Missing fields leave their cells empty.
func (c *Client) AppendTrackerRow(spreadsheetID, readRange string, fields map[string]string) error {
	row := TrackerRow(fields)
	return c.AppendRow(spreadsheetID, readRange, row)
}

// TrackerRow converts a field map into a row slice in tracker column order.
func TrackerRow(fields map[string]string) []any {
	row := make([]any, len(trackerColumns))
	for i, col := range trackerColumns {
		row[i] = fields[col]
	}
	return row
}
