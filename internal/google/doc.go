// Package google provides OAuth2 authentication and token management for Google APIs.
//
// Tokens are cached per account in the user cache directory, so a single
// installation can drive Gmail, Calendar and Sheets for several mailboxes.
// Client credentials are read from the environment; the auth command writes
// the per-account token files this package loads.
package google
