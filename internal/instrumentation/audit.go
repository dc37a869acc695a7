package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// ToolExecution captures all information about a plan tool execution for audit
// logging. This provides an audit trail for every side effect the agent performs
// on behalf of a mail message.
//
// # Privacy Considerations
//
// The Sender field contains PII. When logging, consider:
//   - Using SenderDomain() to get only the domain for metrics/general logs
//   - Only logging the full sender in audit-specific log streams
//   - Ensuring audit logs have appropriate access controls
type ToolExecution struct {
	// Tool name
	Tool string

	// Sender of the mail message that triggered this execution
	Sender string

	// Target information
	MessageID   string // Gmail message identifier
	Category    string // Classified category of the message
	ServiceName string // Backing service (gmail, calendar, sheets, telegram)
	Operation   string // Operation type (modify, create, append, send)

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	// Tracing context
	TraceID string
	SpanID  string
}

// SenderDomain returns the domain portion of the sender address for
// lower-cardinality logging.
func (te *ToolExecution) SenderDomain() string {
	return ExtractUserDomain(te.Sender)
}

// Status returns "success" or "error" based on the Success field.
func (te *ToolExecution) Status() string {
	if te.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes for structured logging.
// This provides a consistent set of fields for all tool execution logs.
//
// # Cardinality
//
// This function uses cardinality-controlled values (sender_domain)
// for metrics-compatible logging. For full audit logging, use LogAuditAttrs.
func (te *ToolExecution) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", te.Tool),
		slog.String("sender_domain", te.SenderDomain()),
		slog.Duration("duration", te.Duration),
		slog.Bool("success", te.Success),
	}

	// Add optional fields only if present
	if te.MessageID != "" {
		attrs = append(attrs, slog.String("message_id", te.MessageID))
	}
	if te.Category != "" {
		attrs = append(attrs, slog.String("category", te.Category))
	}
	if te.ServiceName != "" {
		attrs = append(attrs, slog.String("service", te.ServiceName))
	}
	if te.Operation != "" {
		attrs = append(attrs, slog.String("operation", te.Operation))
	}
	if te.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", te.TraceID))
	}
	if te.Error != "" {
		attrs = append(attrs, slog.String("error", te.Error))
	}

	return attrs
}

// LogAuditAttrs returns slog attributes for full audit logging.
// This includes the full sender address for compliance/audit purposes.
//
// # Security Warning
//
// This method includes PII (full email). Ensure audit logs are:
//   - Stored securely with appropriate access controls
//   - Not exposed to general monitoring dashboards
//   - Retained according to compliance requirements
func (te *ToolExecution) LogAuditAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", te.Tool),
		slog.String("sender", te.Sender),
		slog.Duration("duration", te.Duration),
		slog.Bool("success", te.Success),
	}

	// Add all optional fields
	if te.MessageID != "" {
		attrs = append(attrs, slog.String("message_id", te.MessageID))
	}
	if te.Category != "" {
		attrs = append(attrs, slog.String("category", te.Category))
	}
	if te.ServiceName != "" {
		attrs = append(attrs, slog.String("service", te.ServiceName))
	}
	if te.Operation != "" {
		attrs = append(attrs, slog.String("operation", te.Operation))
	}
	if te.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", te.TraceID))
	}
	if te.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", te.SpanID))
	}
	if te.Error != "" {
		attrs = append(attrs, slog.String("error", te.Error))
	}

	return attrs
}

// NewToolExecution creates a new ToolExecution with timing started.
// Call Complete() when the tool finishes.
func NewToolExecution(tool string) *ToolExecution {
	return &ToolExecution{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithSender sets the sender of the triggering mail message.
func (te *ToolExecution) WithSender(email string) *ToolExecution {
	te.Sender = email
	return te
}

// WithMessage sets the Gmail message identifier and its classified category.
func (te *ToolExecution) WithMessage(messageID, category string) *ToolExecution {
	te.MessageID = messageID
	te.Category = category
	return te
}

// WithService sets the backing service and operation.
func (te *ToolExecution) WithService(serviceName, operation string) *ToolExecution {
	te.ServiceName = serviceName
	te.Operation = operation
	return te
}

// WithSpanContext extracts trace context from the current span.
func (te *ToolExecution) WithSpanContext(ctx context.Context) *ToolExecution {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		te.TraceID = span.SpanContext().TraceID().String()
		te.SpanID = span.SpanContext().SpanID().String()
	}
	return te
}

// Complete marks the execution as completed and calculates duration.
// Returns the same ToolExecution for method chaining.
func (te *ToolExecution) Complete(success bool, err error) *ToolExecution {
	te.Duration = time.Since(te.StartTime)
	te.Success = success
	if err != nil {
		te.Error = err.Error()
	}
	return te
}

// CompleteWithError marks the execution as failed with the given error.
func (te *ToolExecution) CompleteWithError(err error) *ToolExecution {
	return te.Complete(false, err)
}

// CompleteSuccess marks the execution as successful.
func (te *ToolExecution) CompleteSuccess() *ToolExecution {
	return te.Complete(true, nil)
}

// AuditLogger provides structured audit logging for tool executions.
// It wraps slog.Logger with convenience methods for logging agent side effects.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates a new AuditLogger with the given slog.Logger.
// By default, PII is not included in logs (anonymized identifiers are used instead).
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: false,
		enabled:    true,
	}
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// SetIncludePII sets whether to include full email addresses in audit logs.
func (al *AuditLogger) SetIncludePII(include bool) {
	al.includePII = include
}

// SetEnabled sets whether audit logging is enabled.
func (al *AuditLogger) SetEnabled(enabled bool) {
	al.enabled = enabled
}

// LogToolExecution logs a tool execution using the standard log attributes.
// This is suitable for general operational logging with cardinality controls.
// If the logger is configured with IncludePII, full sender addresses are logged;
// otherwise, only domain-based anonymized identifiers are used.
func (al *AuditLogger) LogToolExecution(te *ToolExecution) {
	if !al.enabled {
		return
	}

	// Choose between PII and anonymized logging based on configuration
	var attrs []slog.Attr
	if al.includePII {
		attrs = te.LogAuditAttrs()
	} else {
		attrs = te.LogAttrs()
	}

	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if te.Success {
		al.logger.Info("tool_executed", args...)
	} else {
		al.logger.Warn("tool_failed", args...)
	}
}

// LogToolAudit logs a tool execution with full audit details.
// This includes PII (full sender addresses) for compliance/audit purposes.
// SECURITY: Ensure audit logs are routed to secure storage with appropriate access controls.
func (al *AuditLogger) LogToolAudit(te *ToolExecution) {
	if !al.enabled {
		return
	}

	attrs := te.LogAuditAttrs()
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	al.logger.Info("tool_audit", args...)
}
