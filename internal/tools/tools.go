// Package tools contains the executors behind the agent's execution plans.
//
// Each plan step names a tool; the Runner dispatches the step to the
// matching Executor and wraps every execution with metrics and audit
// logging so that all side effects on the user's mailbox, calendar and
// spreadsheet leave a trace.
package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/teemow/inboxpilot/internal/classify"
	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/planner"
)

// Message carries the email context a tool executes against.
type Message struct {
	ID        string
	Subject   string
	Sender    string
	Category  classify.Category
	Extracted map[string]string
}

// Executor executes one kind of plan step.
type Executor interface {
	Name() string
	Execute(ctx context.Context, step planner.Step, msg Message) error
}

// serviceTagged is implemented by executors backed by a Google API so the
// Runner can record per-service operation metrics.
type serviceTagged interface {
	Service() (service, operation string)
}

// Execution is the recorded outcome of running one plan step.
type Execution struct {
	Tool     string
	Success  bool
	Error    string
	Duration time.Duration
}

// Runner dispatches plan steps to executors with metrics and audit logging.
// Metrics and audit logger may be nil when instrumentation is disabled.
type Runner struct {
	executors map[string]Executor
	metrics   *instrumentation.Metrics
	audit     *instrumentation.AuditLogger
}

// NewRunner creates a Runner over the given executors. Executors with
// duplicate names overwrite earlier ones.
func NewRunner(metrics *instrumentation.Metrics, audit *instrumentation.AuditLogger, executors ...Executor) *Runner {
	m := make(map[string]Executor, len(executors))
	for _, e := range executors {
		m[e.Name()] = e
	}
	return &Runner{executors: m, metrics: metrics, audit: audit}
}

// Tools returns the names of all registered executors, sorted.
func (r *Runner) Tools() []string {
	names := make([]string, 0, len(r.executors))
	for name := range r.executors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes a single plan step against the message and returns the
// outcome. Unknown tools fail the step without touching any service.
func (r *Runner) Run(ctx context.Context, step planner.Step, msg Message) Execution {
	executor, ok := r.executors[step.Tool]
	if !ok {
		return r.record(ctx, nil, step.Tool, msg, 0, fmt.Errorf("unknown tool: %s", step.Tool))
	}

	start := time.Now()
	err := executor.Execute(ctx, step, msg)
	return r.record(ctx, executor, step.Tool, msg, time.Since(start), err)
}

func (r *Runner) record(ctx context.Context, executor Executor, tool string, msg Message, duration time.Duration, err error) Execution {
	exec := Execution{Tool: tool, Success: err == nil, Duration: duration}
	if err != nil {
		exec.Error = err.Error()
	}

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}

	if r.metrics != nil {
		r.metrics.RecordToolExecution(ctx, tool, status, duration)
		if tagged, ok := executor.(serviceTagged); ok {
			service, operation := tagged.Service()
			r.metrics.RecordGoogleAPIOperation(ctx, service, operation, status, duration)
		}
	}

	if r.audit != nil {
		te := instrumentation.NewToolExecution(tool).
			WithSpanContext(ctx).
			WithSender(msg.Sender).
			WithMessage(msg.ID, msg.Category.String())
		if tagged, ok := executor.(serviceTagged); ok {
			te.WithService(tagged.Service())
		}
		te.StartTime = time.Now().Add(-duration)
		te.Complete(err == nil, err)
		r.audit.LogToolExecution(te)
	}

	return exec
}
