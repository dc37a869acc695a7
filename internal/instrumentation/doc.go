// Package instrumentation provides comprehensive OpenTelemetry instrumentation
// for the inboxpilot agent.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for HTTP requests, pipeline stages, model calls and Google API calls
//   - Distributed tracing for poll cycles and per-message pipelines
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// The package exposes the following metric categories:
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Pipeline Metrics:
//   - messages_processed_total: Counter of processed messages by category and status
//   - poll_cycles_total: Counter of mailbox poll cycles by status
//   - pipeline_stage_duration_seconds: Histogram of stage durations (classify, extract, plan, execute)
//
// Model Inference Metrics:
//   - model_calls_total: Counter of model inference calls by adapter and status
//   - model_call_duration_seconds: Histogram of model call durations
//
// Google API Metrics:
//   - google_api_operations_total: Counter of Google API operations by service, operation, status
//   - google_api_operation_duration_seconds: Histogram of Google API operation durations
//
// Tool Executor Metrics:
//   - tool_executions_total: Counter of plan tool executions by tool name and status
//   - tool_execution_duration_seconds: Histogram of tool execution durations
//
// # Tracing
//
// Distributed tracing spans are created for:
//   - Pipeline stages (pipeline.<stage>)
//   - Plan tool executions (tool.<name>)
//   - Model inference calls (model.<adapter>)
//   - Google API calls (google.<service>.<operation>)
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: inboxpilot)
//
// # Example Usage
//
//	// Initialize instrumentation
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
//		ServiceName:    "inboxpilot",
//		ServiceVersion: "0.1.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	// Get metrics recorder
//	recorder := provider.Metrics()
//
//	// Record a pipeline stage
//	recorder.RecordStageDuration(ctx, "classify", "success", time.Since(start))
//
//	// Record a Google API operation
//	recorder.RecordGoogleAPIOperation(ctx, "gmail", "list", "success", time.Since(start))
//
//	// Record a tool execution
//	recorder.RecordToolExecution(ctx, "apply_label", "success", time.Since(start))
package instrumentation
