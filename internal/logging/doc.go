// Package logging provides structured logging utilities for the inboxpilot application.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - PII sanitization (email anonymization)
//   - Consistent attribute naming across the codebase
//   - Logger adapter interface for flexibility
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "gmail.poll")
//	logger.Info("fetched messages",
//	    logging.Status("success"))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("message classified",
//	    logging.UserHash(sender))
//
// # Security Considerations
//
// This package is designed with security in mind:
//   - Sender emails are hashed to prevent PII leakage while allowing correlation
//   - Tokens are never logged directly
package logging
