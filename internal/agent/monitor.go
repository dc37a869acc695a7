package agent

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/inboxpilot/internal/dedup"
	"github.com/teemow/inboxpilot/internal/gmail"
	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/logging"
)

// ErrBusy means a poll cycle is already in flight.
var ErrBusy = errors.New("a check is already running")

// MailSource fetches new mail newer than the watermark.
type MailSource interface {
	EnvelopesSince(since time.Time, maxResults int64) ([]gmail.Envelope, error)
}

// Status is a point-in-time snapshot of the monitor.
type Status struct {
	Running        bool      `json:"running"`
	Watermark      time.Time `json:"watermark"`
	ProcessedCount int       `json:"processed_count"`
	LastCycleAt    time.Time `json:"last_cycle_at,omitempty"`
	LastError      string    `json:"last_error,omitempty"`
	Tools          []string  `json:"tools"`
}

// Monitor owns the watermark and runs poll cycles, one at a time.
type Monitor struct {
	processor *Processor
	mail      MailSource
	seen      *dedup.Store
	interval  time.Duration
	maxBatch  int64
	metrics   *instrumentation.Metrics
	logger    *slog.Logger

	// cycleMu serializes poll cycles; manual triggers TryLock it and
	// report busy instead of queueing.
	cycleMu sync.Mutex

	// stateMu guards the snapshot fields below.
	stateMu     sync.RWMutex
	watermark   time.Time
	running     bool
	lastCycleAt time.Time
	lastError   string
}

// NewMonitor creates a Monitor. The watermark starts at now: only mail
// arriving after startup is processed.
func NewMonitor(processor *Processor, mail MailSource, seen *dedup.Store, interval time.Duration, maxBatch int64, metrics *instrumentation.Metrics, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		processor: processor,
		mail:      mail,
		seen:      seen,
		interval:  interval,
		maxBatch:  maxBatch,
		metrics:   metrics,
		logger:    logger,
		watermark: time.Now(),
	}
}

// Run polls on the configured interval until the context is canceled.
// Cycle failures are logged and the loop keeps going.
func (m *Monitor) Run(ctx context.Context) {
	m.setRunning(true)
	defer m.setRunning(false)

	m.logger.InfoContext(ctx, "Monitoring started", "interval", m.interval.String())

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.InfoContext(ctx, "Monitoring stopped")
			return
		case <-ticker.C:
			if err := m.Check(ctx); err != nil && !errors.Is(err, ErrBusy) {
				m.logger.ErrorContext(ctx, "Poll cycle failed", logging.Err(err))
			}
		}
	}
}

// Check runs one poll cycle. It returns ErrBusy when a cycle is already
// in flight.
func (m *Monitor) Check(ctx context.Context) error {
	if !m.cycleMu.TryLock() {
		return ErrBusy
	}
	defer m.cycleMu.Unlock()

	err := m.cycle(ctx)

	m.stateMu.Lock()
	m.lastCycleAt = time.Now()
	if err != nil {
		m.lastError = err.Error()
	} else {
		m.lastError = ""
	}
	m.stateMu.Unlock()

	if m.metrics != nil {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
		}
		m.metrics.RecordPollCycle(ctx, status)
	}

	return err
}

// cycle fetches everything newer than the watermark and processes each
// message. Stage failures are recorded in their session records and do
// not hold the watermark back, but a message whose record could not be
// persisted stops the cycle with the watermark still behind it, so the
// next cycle fetches that message again.
func (m *Monitor) cycle(ctx context.Context) error {
	watermark := m.Watermark()

	envelopes, err := m.mail.EnvelopesSince(watermark, m.maxBatch)
	if err != nil {
		return err
	}
	if len(envelopes) == 0 {
		return nil
	}

	m.logger.InfoContext(ctx, "New messages found", "count", len(envelopes))

	newest := watermark
	for _, env := range envelopes {
		if _, err := m.processor.Process(ctx, env); err != nil && !errors.Is(err, ErrAlreadyProcessed) {
			m.logger.ErrorContext(ctx, "Failed to persist message outcome",
				logging.Message(env.ID), logging.Err(err))
			m.advanceWatermark(newest)
			return err
		}

		if env.InternalDate.After(newest) {
			newest = env.InternalDate
		}
	}

	m.advanceWatermark(newest)
	return nil
}

// Reset moves the watermark to now. Dedup entries are kept: an
// immediately following poll fetches nothing and re-fetched mail is
// still recognized.
func (m *Monitor) Reset() {
	m.stateMu.Lock()
	m.watermark = time.Now()
	m.stateMu.Unlock()
	m.logger.Info("Monitoring reset", "watermark", m.Watermark())
}

// Watermark returns the current watermark.
func (m *Monitor) Watermark() time.Time {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.watermark
}

// Status returns a snapshot for the status endpoint.
func (m *Monitor) Status() Status {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return Status{
		Running:        m.running,
		Watermark:      m.watermark,
		ProcessedCount: m.seen.Count(),
		LastCycleAt:    m.lastCycleAt,
		LastError:      m.lastError,
		Tools:          m.processor.Tools(),
	}
}

// advanceWatermark moves the watermark forward, never backward.
func (m *Monitor) advanceWatermark(t time.Time) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	if t.After(m.watermark) {
		m.watermark = t
	}
}

func (m *Monitor) setRunning(running bool) {
	m.stateMu.Lock()
	m.running = running
	m.stateMu.Unlock()
}
