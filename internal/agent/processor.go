// Package agent drives the poll-classify-extract-plan-execute pipeline.
//
// The Processor handles a single email end to end; the Monitor owns the
// watermark and runs the Processor over every new message on a fixed
// interval. Both share the dedup store so that a message id is acted on
// at most once.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/inboxpilot/internal/classify"
	"github.com/teemow/inboxpilot/internal/dedup"
	"github.com/teemow/inboxpilot/internal/extract"
	"github.com/teemow/inboxpilot/internal/gmail"
	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/planner"
	"github.com/teemow/inboxpilot/internal/sessionlog"
	"github.com/teemow/inboxpilot/internal/tools"
)

// Session status values recorded in the session log.
const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// ErrAlreadyProcessed means the message id is in the dedup store and no
// stage was invoked for it.
var ErrAlreadyProcessed = errors.New("message already processed")

// Classifier assigns a category to an email.
type Classifier interface {
	Classify(ctx context.Context, req classify.Request) (classify.Result, error)
}

// Extractor pulls structured fields out of an email.
type Extractor interface {
	Extract(ctx context.Context, req extract.Request) (extract.Result, error)
}

// Planner turns a classified email into an execution plan.
type Planner interface {
	GeneratePlan(ctx context.Context, req planner.Request) (planner.Plan, error)
}

// StepRunner executes one plan step and reports the outcome.
type StepRunner interface {
	Run(ctx context.Context, step planner.Step, msg tools.Message) tools.Execution
	Tools() []string
}

// Processor runs the pipeline for one email.
type Processor struct {
	classifier Classifier
	extractor  Extractor
	planner    Planner
	runner     StepRunner
	sessions   *sessionlog.Log
	dedup      *dedup.Store
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// NewProcessor creates a Processor. Metrics may be nil; a nil logger uses
// the default logger.
func NewProcessor(
	classifier Classifier,
	extractor Extractor,
	plan Planner,
	runner StepRunner,
	sessions *sessionlog.Log,
	seen *dedup.Store,
	metrics *instrumentation.Metrics,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		classifier: classifier,
		extractor:  extractor,
		planner:    plan,
		runner:     runner,
		sessions:   sessions,
		dedup:      seen,
		metrics:    metrics,
		logger:     logger,
	}
}

// Tools returns the names of the tools the processor can execute.
func (p *Processor) Tools() []string {
	return p.runner.Tools()
}

// Process runs the full pipeline for one email and appends a session
// record. Stage failures are recorded in the session, not returned: the
// returned error is non-nil only for already-processed messages and for
// persistence failures.
func (p *Processor) Process(ctx context.Context, env gmail.Envelope) (sessionlog.Record, error) {
	if p.dedup.Seen(env.ID) {
		return sessionlog.Record{}, ErrAlreadyProcessed
	}

	start := time.Now()
	logger := logging.WithMessage(p.logger, env.ID)

	rec := sessionlog.Record{
		ID:          uuid.New().String(),
		MessageID:   env.ID,
		ProcessedAt: start.UTC(),
		Subject:     env.Subject,
		Sender:      env.Sender,
		Category:    classify.CategoryUnknown.String(),
		Status:      StatusFailed,
	}

	category, confidence, err := p.classifyStage(ctx, env)
	if err != nil {
		logger.WarnContext(ctx, "Classification failed, skipping message", logging.Err(err))
		return p.finish(ctx, rec, start)
	}
	rec.Category = category.String()
	rec.Confidence = confidence
	logger = logging.WithOperation(logger, "process")

	extracted, err := p.extractStage(ctx, env, category)
	if err != nil {
		logger.WarnContext(ctx, "Extraction failed, skipping message",
			logging.Category(category.String()), logging.Err(err))
		return p.finish(ctx, rec, start)
	}
	rec.Extracted = extracted

	plan := p.planStage(ctx, env, category, extracted, logger)

	msg := tools.Message{
		ID:        env.ID,
		Subject:   env.Subject,
		Sender:    env.Sender,
		Category:  category,
		Extracted: stringFields(extracted),
	}

	rec.Status = StatusCompleted
	for _, step := range plan.Steps {
		exec := p.runner.Run(ctx, step, msg)
		rec.Executions = append(rec.Executions, sessionlog.Execution{
			Tool:           exec.Tool,
			Success:        exec.Success,
			Error:          exec.Error,
			DurationMillis: exec.Duration.Milliseconds(),
		})
		if !exec.Success {
			rec.Status = StatusPartial
			logger.WarnContext(ctx, "Tool execution failed",
				logging.Tool(exec.Tool), "error", exec.Error)
		}
	}

	logger.InfoContext(ctx, "Message processed",
		logging.Category(rec.Category),
		logging.Status(rec.Status),
		"steps", len(plan.Steps))

	return p.finish(ctx, rec, start)
}

// finish stamps the duration, appends the session record, marks the
// message processed and records metrics. Every pipeline outcome, failed
// stages included, goes through here so a message is never retried
// endlessly.
func (p *Processor) finish(ctx context.Context, rec sessionlog.Record, start time.Time) (sessionlog.Record, error) {
	rec.DurationMillis = time.Since(start).Milliseconds()
	rec.SuccessRate = successRate(rec.Executions)

	if err := p.sessions.Append(rec); err != nil {
		return rec, fmt.Errorf("failed to append session record: %w", err)
	}
	if err := p.dedup.MarkProcessed(rec.MessageID); err != nil {
		return rec, fmt.Errorf("failed to mark message processed: %w", err)
	}

	if p.metrics != nil {
		status := instrumentation.StatusSuccess
		if rec.Status == StatusFailed {
			status = instrumentation.StatusError
		}
		p.metrics.RecordMessageProcessed(ctx, rec.Category, status)
	}

	return rec, nil
}

func successRate(execs []sessionlog.Execution) float64 {
	if len(execs) == 0 {
		return 0
	}
	ok := 0
	for _, ex := range execs {
		if ex.Success {
			ok++
		}
	}
	return float64(ok) / float64(len(execs))
}

func (p *Processor) classifyStage(ctx context.Context, env gmail.Envelope) (classify.Category, float64, error) {
	start := time.Now()
	res, err := p.classifier.Classify(ctx, classify.Request{
		MessageID: env.ID,
		Subject:   env.Subject,
		Sender:    env.Sender,
		Body:      env.Body,
	})
	p.recordStage(ctx, instrumentation.StageClassify, instrumentation.ModelClassifier, err, time.Since(start))
	if err != nil {
		return classify.CategoryUnknown, 0, err
	}
	return res.Category, res.Confidence, nil
}

// extractStage calls the extractor for categories that carry structured
// fields. Other categories skip the model entirely.
func (p *Processor) extractStage(ctx context.Context, env gmail.Envelope, category classify.Category) (map[string]any, error) {
	if !extract.Relevant(category) {
		return nil, nil
	}

	start := time.Now()
	res, err := p.extractor.Extract(ctx, extract.Request{
		MessageID: env.ID,
		Subject:   env.Subject,
		Sender:    env.Sender,
		Body:      env.Body,
		Category:  category.String(),
	})
	p.recordStage(ctx, instrumentation.StageExtract, instrumentation.ModelExtractor, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return res.Fields, nil
}

// planStage asks the planner for an execution plan. Unusable planner
// output is not fatal: GeneratePlan falls back to a deterministic plan
// and the message still gets processed.
func (p *Processor) planStage(ctx context.Context, env gmail.Envelope, category classify.Category, extracted map[string]any, logger *slog.Logger) planner.Plan {
	start := time.Now()
	plan, err := p.planner.GeneratePlan(ctx, planner.Request{
		Category:  category,
		Subject:   env.Subject,
		Sender:    env.Sender,
		Snippet:   env.Snippet,
		Extracted: extracted,
	})
	p.recordStage(ctx, instrumentation.StagePlan, instrumentation.ModelPlanner, err, time.Since(start))
	if err != nil {
		logger.WarnContext(ctx, "Planner output unusable, using fallback plan", logging.Err(err))
	}
	return plan
}

func (p *Processor) recordStage(ctx context.Context, stage, model string, err error, duration time.Duration) {
	if p.metrics == nil {
		return
	}
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	p.metrics.RecordStageDuration(ctx, stage, status, duration)
	p.metrics.RecordModelCall(ctx, model, status, duration)
}

// stringFields flattens extracted fields for tool argument defaults.
func stringFields(fields map[string]any) map[string]string {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}
