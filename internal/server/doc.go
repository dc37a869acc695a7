// Package server provides the JSON HTTP facade of the agent plus the
// operational endpoints around it.
//
// # Key Components
//
// API serves the /api/* endpoints consumed by the browser extension and
// operators: agent status, manual checks, manual message processing,
// session history and statistics, monitoring reset, and style-matched
// draft generation. All payloads are JSON; /api/* responses carry CORS
// headers for the extension.
//
// HealthChecker serves /healthz and /readyz probes for Kubernetes.
//
// MetricsServer exposes Prometheus metrics on a dedicated port, keeping
// operational metrics off the application listener.
package server
