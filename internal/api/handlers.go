package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/scratchbank/ledgerd/internal/domain"
	"github.com/scratchbank/ledgerd/internal/engine"
	"github.com/scratchbank/ledgerd/internal/queue"
	"github.com/scratchbank/ledgerd/internal/store"
	"github.com/scratchbank/ledgerd/internal/worker"
)

// Metrics
var (
	httpReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method", "endpoint"})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledger_batch_duration_seconds",
		Help:    "Time from batch submission to completion",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30},
	})
)

// Options tunes batch processing at the gateway.
type Options struct {
	QueueStream   string
	PollTick      time.Duration
	BatchDeadline time.Duration
}

type Handler struct {
	store    store.Store
	engine   *engine.Engine
	newQueue queue.Factory
	opts     Options
}

func NewHandler(s store.Store, e *engine.Engine, f queue.Factory, opts Options) *Handler {
	if opts.PollTick <= 0 {
		opts.PollTick = 50 * time.Millisecond
	}
	if opts.BatchDeadline <= 0 {
		opts.BatchDeadline = 30 * time.Second
	}
	return &Handler{store: s, engine: e, newQueue: f, opts: opts}
}

// CommandRequest is one client-submitted command. Kind-specific fields beyond
// cmd are validated by the engine so that a bad command surfaces as a batch
// error rather than rejecting its siblings.
type CommandRequest struct {
	Cmd       string          `json:"cmd" validate:"required"`
	AccountID string          `json:"accountId"`
	FromID    string          `json:"fromId"`
	ToID      string          `json:"toId"`
	Amount    decimal.Decimal `json:"amount"`
}

// BatchResponse reports aggregate batch outcome.
type BatchResponse struct {
	Status  string                 `json:"status,omitempty"`
	BatchID string                 `json:"batchId"`
	Errors  []*domain.CommandError `json:"errors,omitempty"`
}

// SubmitBatch accepts an ordered list of commands, enqueues each one tagged
// with the batch size, and blocks until the batch's worker reports
// completion or the batch deadline expires.
func (h *Handler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/transactions"))
	defer timer.ObserveDuration()

	var reqs []CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "POST", "/transactions")
		return
	}

	if details := validateBatch(reqs); details != nil {
		h.respondJSON(w, http.StatusBadRequest, BadRequestErrorResponse{
			Message: "Invalid request data",
			Details: details,
		}, "POST", "/transactions")
		return
	}

	batchID := uuid.NewString()
	if len(reqs) == 0 {
		h.respondJSON(w, http.StatusOK, BatchResponse{Status: "ok", BatchID: batchID}, "POST", "/transactions")
		return
	}

	batchTimer := prometheus.NewTimer(batchDuration)
	defer batchTimer.ObserveDuration()

	q, err := h.newQueue(r.Context(), h.opts.QueueStream+":"+batchID)
	if err != nil {
		slog.Error("queue setup failed", "batchId", batchID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "Queue unavailable", "POST", "/transactions")
		return
	}

	var sendErrs []*domain.CommandError
	expected := 0
	for _, req := range reqs {
		body, err := json.Marshal(queue.Envelope{
			Cmd: req.Cmd,
			Params: queue.Params{
				AccountID: req.AccountID,
				FromID:    req.FromID,
				ToID:      req.ToID,
				Amount:    req.Amount,
			},
		})
		if err == nil {
			err = q.Send(r.Context(), body)
		}
		if err != nil {
			slog.Error("enqueue failed", "batchId", batchID, "cmd", req.Cmd, "error", err)
			sendErrs = append(sendErrs, domain.NewCommandError(req.Cmd, domain.CodeStoreFailure,
				"failed to enqueue command: %v", err))
			continue
		}
		expected++
	}

	if expected == 0 {
		h.respondJSON(w, http.StatusOK, BatchResponse{BatchID: batchID, Errors: sendErrs}, "POST", "/transactions")
		return
	}

	wrk := worker.New(q, h.engine, expected, h.opts.PollTick)
	wrk.Start(r.Context())

	select {
	case res := <-wrk.Done():
		errs := append(sendErrs, res.Errs...)
		if len(errs) > 0 {
			h.respondJSON(w, http.StatusOK, BatchResponse{BatchID: batchID, Errors: errs}, "POST", "/transactions")
			return
		}
		h.respondJSON(w, http.StatusOK, BatchResponse{Status: "ok", BatchID: batchID}, "POST", "/transactions")

	case <-time.After(h.opts.BatchDeadline):
		// Outstanding messages stay owned by the queue; the client gets a
		// terminal answer instead of blocking on queue drain forever.
		wrk.Stop()
		snap := wrk.Snapshot()
		errs := append(sendErrs, snap.Errs...)
		errs = append(errs, domain.NewCommandError("BATCH", domain.CodeTimeout,
			"batch deadline exceeded with %d commands outstanding", snap.Remaining))
		h.respondJSON(w, http.StatusGatewayTimeout, BatchResponse{BatchID: batchID, Errors: errs}, "POST", "/transactions")
	}
}

// GetAccounts returns {accountId, balance, frozen} for each requested id,
// silently omitting ids that do not exist.
func (h *Handler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("GET", "/accounts"))
	defer timer.ObserveDuration()

	ids := r.URL.Query()["accountId"]
	if len(ids) == 0 {
		h.respondJSON(w, http.StatusOK, struct{}{}, "GET", "/accounts")
		return
	}

	accounts, err := h.store.Lookup(r.Context(), ids)
	if err != nil {
		slog.Error("account lookup failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Lookup failed", "GET", "/accounts")
		return
	}

	views := make([]domain.AccountView, 0, len(accounts))
	for _, acct := range accounts {
		views = append(views, acct.View())
	}
	h.respondJSON(w, http.StatusOK, views, "GET", "/accounts")
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"}, "GET", "/health")
}

// Helpers
func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload interface{}, method, endpoint string) {
	httpReqTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func (h *Handler) respondError(w http.ResponseWriter, code int, msg, method, endpoint string) {
	h.respondJSON(w, code, map[string]string{"error": msg}, method, endpoint)
}
