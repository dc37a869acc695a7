package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/inboxpilot/internal/agent"
	"github.com/teemow/inboxpilot/internal/gmail"
	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/sessionlog"
	"github.com/teemow/inboxpilot/internal/style"
)

// defaultSessionLimit bounds /api/sessions when no limit is given.
const defaultSessionLimit = 10

// checkStartWindow is how long a manual check may run before the handler
// stops waiting and reports it as started.
const checkStartWindow = 100 * time.Millisecond

// AgentControl is the monitor surface the API drives.
type AgentControl interface {
	Status() agent.Status
	Check(ctx context.Context) error
	Reset()
}

// MessageProcessor handles a single email supplied by an operator.
type MessageProcessor interface {
	Process(ctx context.Context, env gmail.Envelope) (sessionlog.Record, error)
}

// SessionSource answers history and stats queries.
type SessionSource interface {
	Recent(n int) []sessionlog.Record
	Stats() sessionlog.Stats
}

// DraftService produces style analyses and drafts.
type DraftService interface {
	Analyze(ctx context.Context, recipient, intent string) (style.Analysis, error)
	GenerateDraft(ctx context.Context, req style.DraftRequest) (style.DraftResponse, error)
}

// API is the JSON facade consumed by the browser extension and operators.
type API struct {
	control   AgentControl
	processor MessageProcessor
	sessions  SessionSource
	drafts    DraftService
	metrics   *instrumentation.Metrics
	logger    *slog.Logger
}

// NewAPI creates the facade. Metrics may be nil; a nil logger uses the
// default logger.
func NewAPI(control AgentControl, processor MessageProcessor, sessions SessionSource, drafts DraftService, metrics *instrumentation.Metrics, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		control:   control,
		processor: processor,
		sessions:  sessions,
		drafts:    drafts,
		metrics:   metrics,
		logger:    logger,
	}
}

// Register mounts all /api/ routes on the mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.Handle("GET /api/status", a.wrap(a.handleStatus))
	mux.Handle("POST /api/check", a.wrap(a.handleCheck))
	mux.Handle("POST /api/process", a.wrap(a.handleProcess))
	mux.Handle("GET /api/sessions", a.wrap(a.handleSessions))
	mux.Handle("GET /api/stats", a.wrap(a.handleStats))
	mux.Handle("POST /api/reset", a.wrap(a.handleReset))
	mux.Handle("POST /api/style", a.wrap(a.handleStyle))
	mux.Handle("POST /api/draft", a.wrap(a.handleDraft))
	mux.Handle("OPTIONS /api/", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		setCORSHeaders(w)
		w.WriteHeader(http.StatusNoContent)
	}))
}

// wrap applies CORS headers and HTTP metrics around a handler.
func (a *API) wrap(handler http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		handler(recorder, r)

		if a.metrics != nil {
			a.metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, recorder.status, time.Since(start))
		}
	})
}

func (a *API) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.control.Status())
}

// handleCheck triggers a poll cycle. Fast cycles report their result
// inline; slow ones keep running in the background and the handler
// answers 202. A cycle already in flight answers 409.
func (a *API) handleCheck(w http.ResponseWriter, r *http.Request) {
	result := make(chan error, 1)
	go func() {
		result <- a.control.Check(context.WithoutCancel(r.Context()))
	}()

	select {
	case err := <-result:
		switch {
		case errors.Is(err, agent.ErrBusy):
			writeError(w, http.StatusConflict, "a check is already running")
		case err != nil:
			a.logger.Error("Manual check failed", logging.Err(err))
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
		}
	case <-time.After(checkStartWindow):
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	}
}

type processRequest struct {
	MessageID string `json:"message_id"`
	Subject   string `json:"subject"`
	Sender    string `json:"sender"`
	Body      string `json:"body"`
}

// handleProcess runs the pipeline for a message supplied in the request
// body instead of fetched from the mailbox.
func (a *API) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Subject == "" && req.Body == "" {
		writeError(w, http.StatusBadRequest, "subject or body is required")
		return
	}

	env := gmail.Envelope{
		ID:           req.MessageID,
		Subject:      req.Subject,
		Sender:       req.Sender,
		Body:         req.Body,
		InternalDate: time.Now(),
	}
	if env.ID == "" {
		env.ID = "manual-" + uuid.New().String()
	}

	rec, err := a.processor.Process(r.Context(), env)
	switch {
	case errors.Is(err, agent.ErrAlreadyProcessed):
		writeError(w, http.StatusConflict, "message already processed")
	case err != nil:
		a.logger.Error("Manual processing failed", logging.Message(env.ID), logging.Err(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, rec)
	}
}

func (a *API) handleSessions(w http.ResponseWriter, r *http.Request) {
	limit := defaultSessionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	sessions := a.sessions.Recent(limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (a *API) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.sessions.Stats())
}

func (a *API) handleReset(w http.ResponseWriter, _ *http.Request) {
	a.control.Reset()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "reset",
		"watermark": a.control.Status().Watermark,
	})
}

type styleRequest struct {
	Recipient string `json:"recipient"`
	Intent    string `json:"intent"`
}

func (a *API) handleStyle(w http.ResponseWriter, r *http.Request) {
	var req styleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Recipient == "" || req.Intent == "" {
		writeError(w, http.StatusBadRequest, "both 'recipient' and 'intent' are required")
		return
	}

	analysis, err := a.drafts.Analyze(r.Context(), req.Recipient, req.Intent)
	if err != nil {
		a.logger.Error("Style analysis failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (a *API) handleDraft(w http.ResponseWriter, r *http.Request) {
	var req style.DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Context == "" {
		writeError(w, http.StatusBadRequest, "'context' is required")
		return
	}

	draft, err := a.drafts.GenerateDraft(r.Context(), req)
	if err != nil {
		a.logger.Error("Draft generation failed", logging.Err(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// setCORSHeaders allows the browser extension to call the API from its
// own origin.
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
