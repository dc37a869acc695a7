package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/teemow/inboxpilot/internal/classify"
	"github.com/teemow/inboxpilot/internal/dedup"
	"github.com/teemow/inboxpilot/internal/gmail"
	"github.com/teemow/inboxpilot/internal/sessionlog"
)

type fakeMail struct {
	envelopes []gmail.Envelope
	err       error
	calls     int
	block     chan struct{} // when set, EnvelopesSince waits on it
}

func (f *fakeMail) EnvelopesSince(since time.Time, _ int64) ([]gmail.Envelope, error) {
	f.calls++
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}

	var out []gmail.Envelope
	for _, env := range f.envelopes {
		if env.InternalDate.After(since) {
			out = append(out, env)
		}
	}
	return out, nil
}

func newTestMonitor(t *testing.T, mail *fakeMail) (*Monitor, *testPipeline) {
	t.Helper()
	p := newTestPipeline(t)
	m := NewMonitor(p.processor, mail, p.seen, time.Minute, 10, nil, nil)
	return m, p
}

func envelopeAt(id string, at time.Time) gmail.Envelope {
	return gmail.Envelope{
		ID:           id,
		Subject:      "subject " + id,
		Sender:       "sender@example.com",
		Body:         "body",
		InternalDate: at,
	}
}

func TestCheck_ProcessesNewMailAndAdvancesWatermark(t *testing.T) {
	later := time.Now().Add(time.Hour)
	mail := &fakeMail{envelopes: []gmail.Envelope{
		envelopeAt("msg-1", later),
		envelopeAt("msg-2", later.Add(time.Minute)),
	}}
	m, p := newTestMonitor(t, mail)

	if err := m.Check(context.Background()); err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	if p.sessions.Len() != 2 {
		t.Errorf("sessions = %d", p.sessions.Len())
	}
	if !m.Watermark().Equal(later.Add(time.Minute)) {
		t.Errorf("watermark = %v, want newest internal date", m.Watermark())
	}
}

func TestCheck_SecondCycleSkipsProcessedMessages(t *testing.T) {
	later := time.Now().Add(time.Hour)
	mail := &fakeMail{envelopes: []gmail.Envelope{envelopeAt("msg-1", later)}}
	m, p := newTestMonitor(t, mail)

	if err := m.Check(context.Background()); err != nil {
		t.Fatalf("first Check() error = %v", err)
	}
	classifierCalls := p.classifier.calls

	// Force a re-fetch of the same message by rolling the watermark back.
	m.stateMu.Lock()
	m.watermark = time.Now()
	m.stateMu.Unlock()

	if err := m.Check(context.Background()); err != nil {
		t.Fatalf("second Check() error = %v", err)
	}

	if p.classifier.calls != classifierCalls {
		t.Error("classifier re-invoked for an already processed message")
	}
	if p.sessions.Len() != 1 {
		t.Errorf("sessions = %d, want 1", p.sessions.Len())
	}
}

func TestCheck_FetchFailureKeepsWatermark(t *testing.T) {
	mail := &fakeMail{err: errors.New("gmail unreachable")}
	m, _ := newTestMonitor(t, mail)
	before := m.Watermark()

	if err := m.Check(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}

	if !m.Watermark().Equal(before) {
		t.Errorf("watermark moved on failed fetch: %v -> %v", before, m.Watermark())
	}
	status := m.Status()
	if status.LastError == "" {
		t.Error("fetch failure not reflected in status")
	}
}

func TestCheck_PersistFailureHoldsWatermark(t *testing.T) {
	dir := t.TempDir()
	sessionsPath := filepath.Join(dir, "sessions.json")

	sessions, err := sessionlog.NewLog(sessionsPath)
	if err != nil {
		t.Fatalf("sessionlog.NewLog() error = %v", err)
	}
	seen, err := dedup.NewStore(filepath.Join(dir, "processed.json"))
	if err != nil {
		t.Fatalf("dedup.NewStore() error = %v", err)
	}
	proc := NewProcessor(
		&fakeClassifier{result: classify.Result{Category: classify.CategoryJob, Confidence: 0.92}},
		&fakeExtractor{},
		&fakePlanner{},
		&fakeRunner{},
		sessions, seen, nil, nil,
	)

	later := time.Now().Add(time.Hour)
	mail := &fakeMail{envelopes: []gmail.Envelope{envelopeAt("msg-1", later)}}
	m := NewMonitor(proc, mail, seen, time.Minute, 10, nil, nil)
	before := m.Watermark()

	// Turn the log path into a directory so the session record cannot
	// be written.
	if err := os.MkdirAll(sessionsPath, 0o755); err != nil {
		t.Fatal(err)
	}

	if err := m.Check(context.Background()); err == nil {
		t.Fatal("expected persistence error")
	}

	if !m.Watermark().Equal(before) {
		t.Errorf("watermark advanced past an unpersisted message: %v -> %v", before, m.Watermark())
	}
	if seen.Seen("msg-1") {
		t.Error("message marked processed without a persisted record")
	}
	if mail.calls != 1 {
		t.Errorf("fetch calls = %d", mail.calls)
	}

	// The next cycle fetches the message again.
	if err := m.Check(context.Background()); err == nil {
		t.Fatal("expected persistence error on retry")
	}
	if mail.calls != 2 {
		t.Errorf("fetch calls after retry = %d", mail.calls)
	}
}

func TestCheck_BusyWhileCycleInFlight(t *testing.T) {
	mail := &fakeMail{block: make(chan struct{})}
	m, _ := newTestMonitor(t, mail)

	done := make(chan error, 1)
	go func() { done <- m.Check(context.Background()) }()

	// Wait for the first cycle to reach the blocking fetch.
	deadline := time.After(2 * time.Second)
	for mail.calls == 0 {
		select {
		case <-deadline:
			t.Fatal("first cycle never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if err := m.Check(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent Check() = %v, want ErrBusy", err)
	}

	close(mail.block)
	if err := <-done; err != nil {
		t.Fatalf("first Check() error = %v", err)
	}
}

func TestReset_MovesWatermarkKeepsDedup(t *testing.T) {
	later := time.Now().Add(time.Hour)
	mail := &fakeMail{envelopes: []gmail.Envelope{envelopeAt("msg-1", later)}}
	m, p := newTestMonitor(t, mail)

	if err := m.Check(context.Background()); err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	m.Reset()

	if m.Watermark().After(time.Now()) || m.Watermark().Before(time.Now().Add(-time.Minute)) {
		t.Errorf("watermark after reset = %v, want about now", m.Watermark())
	}
	if !p.seen.Seen("msg-1") {
		t.Error("reset cleared dedup entries")
	}

	// A poll right after reset must not act on the re-fetched message:
	// the dedup store still remembers it.
	if err := m.Check(context.Background()); err != nil {
		t.Fatalf("Check() after reset error = %v", err)
	}
	if p.sessions.Len() != 1 {
		t.Errorf("sessions = %d after reset poll, want 1", p.sessions.Len())
	}
}

func TestStatus_Snapshot(t *testing.T) {
	mail := &fakeMail{}
	m, _ := newTestMonitor(t, mail)

	status := m.Status()
	if status.Running {
		t.Error("monitor should not report running before Run")
	}
	if status.ProcessedCount != 0 {
		t.Errorf("ProcessedCount = %d", status.ProcessedCount)
	}
	if len(status.Tools) == 0 {
		t.Error("status missing tool list")
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	mail := &fakeMail{}
	p := newTestPipeline(t)
	m := NewMonitor(p.processor, mail, p.seen, 10*time.Millisecond, 10, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	// Let at least one tick fire.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}

	if mail.calls == 0 {
		t.Error("no poll cycle ran")
	}
	if m.Status().Running {
		t.Error("monitor still reports running after stop")
	}
}
