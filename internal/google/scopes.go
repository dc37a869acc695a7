package google

// DefaultOAuthScopes are the Google OAuth scopes the assistant needs.
// These scopes are used consistently across the application for OAuth
// configurations.
//
// The scopes provide access to:
//   - Gmail: read, modify labels, send drafts
//   - Google Calendar: create and list events
//   - Google Sheets: append rows to tracking spreadsheets
var DefaultOAuthScopes = []string{
	// Gmail scope (modify includes read and label changes)
	"https://www.googleapis.com/auth/gmail.modify",

	// Google Calendar events scope
	"https://www.googleapis.com/auth/calendar.events",

	// Google Sheets scope
	"https://www.googleapis.com/auth/spreadsheets",
}
