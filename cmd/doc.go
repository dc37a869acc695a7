// Package cmd implements the command-line interface for inboxpilot.
//
// This package provides the following commands:
//   - serve: Run the mail agent with its HTTP API (default)
//   - check: Process new mail once and exit
//   - auth: Authorize a Google account via OAuth
//   - version: Display version information
package cmd
