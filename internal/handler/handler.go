package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/angeloszaimis/heartbeat-monitor/internal/alert"
	"github.com/angeloszaimis/heartbeat-monitor/internal/metrics"
	"github.com/angeloszaimis/heartbeat-monitor/internal/monitor"
)

const (
	msgCreated        = "Monitor created successfully"
	msgMissingDetails = "Missing details"
	msgWrongFormat    = "Wrong format of data"
	msgNotFound       = "Monitor not found"
	msgDoesNotExist   = "Monitor does not exist"
	msgExpired        = "Timer has expired"
	msgReset          = "Timer has been reset successfully"
	msgPaused         = "Timer paused successfully"
	msgUnpaused       = "Timer unpaused successfully"
	msgInternal       = "Internal server error"
	msgInvalidLimit   = "Invalid limit"

	defaultAlertLimit = 20
	maxAlertLimit     = 1000
)

// MonitorService is the part of monitor.Service the handlers depend on.
type MonitorService interface {
	Register(ctx context.Context, req monitor.RegisterRequest) error
	Heartbeat(ctx context.Context, id string) (monitor.HeartbeatResult, error)
	TogglePause(ctx context.Context, id string) (monitor.PauseResult, error)
	List() []monitor.Summary
	Get(id string) (monitor.Summary, error)
}

// AlertHistory lists recently delivered alerts, newest first.
type AlertHistory interface {
	Recent(limit int) ([]alert.Event, error)
}

type MonitorHandler struct {
	logger           *slog.Logger
	service          MonitorService
	history          AlertHistory
	metricsCollector *metrics.Collector
}

type messageResponse struct {
	Message string `json:"message"`
}

type dataResponse struct {
	Data any `json:"data"`
}

func NewMonitorHandler(logger *slog.Logger, service MonitorService, collector *metrics.Collector) *MonitorHandler {
	return &MonitorHandler{
		logger:           logger,
		service:          service,
		metricsCollector: collector,
	}
}

// WithHistory enables GET /alerts backed by history.
func (h *MonitorHandler) WithHistory(history AlertHistory) *MonitorHandler {
	h.history = history
	return h
}

// Register mounts the monitor routes on r. Callers attach Instrument to the
// root router once.
func (h *MonitorHandler) Register(r *mux.Router) {
	r.HandleFunc("/monitors", h.CreateMonitor).Methods(http.MethodPost)
	r.HandleFunc("/monitors", h.ListMonitors).Methods(http.MethodGet)
	r.HandleFunc("/monitors/{id}", h.GetMonitor).Methods(http.MethodGet)
	r.HandleFunc("/monitors/{id}/heartbeat", h.Heartbeat).Methods(http.MethodPost)
	r.HandleFunc("/monitors/{id}/pause", h.TogglePause).Methods(http.MethodPost)
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	if h.history != nil {
		r.HandleFunc("/alerts", h.ListAlerts).Methods(http.MethodGet)
	}
}

func (h *MonitorHandler) CreateMonitor(w http.ResponseWriter, r *http.Request) {
	req, msg := decodeRegisterRequest(r.Body)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: msg})
		return
	}

	err := h.service.Register(r.Context(), req)

	var vErr *monitor.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, messageResponse{Message: msgCreated})
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: vErr.Error()})
	default:
		h.internalError(w, r, err)
	}
}

func (h *MonitorHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	result, err := h.service.Heartbeat(r.Context(), id)
	if err != nil {
		if errors.Is(err, monitor.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, messageResponse{Message: msgNotFound})
			return
		}
		h.internalError(w, r, err)
		return
	}

	// A paused monitor acknowledges heartbeats like an active one.
	if result == monitor.HeartbeatExpired {
		writeJSON(w, http.StatusOK, messageResponse{Message: msgExpired})
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msgReset})
}

func (h *MonitorHandler) TogglePause(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	result, err := h.service.TogglePause(r.Context(), id)
	switch {
	case errors.Is(err, monitor.ErrNotFound):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: msgDoesNotExist})
	case errors.Is(err, monitor.ErrInvalidState):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: msgExpired})
	case err != nil:
		h.internalError(w, r, err)
	case result == monitor.PauseApplied:
		writeJSON(w, http.StatusOK, messageResponse{Message: msgPaused})
	default:
		writeJSON(w, http.StatusOK, messageResponse{Message: msgUnpaused})
	}
}

func (h *MonitorHandler) ListMonitors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, dataResponse{Data: h.service.List()})
}

func (h *MonitorHandler) GetMonitor(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Get(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, monitor.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, messageResponse{Message: msgNotFound})
			return
		}
		h.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dataResponse{Data: summary})
}

func (h *MonitorHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := defaultAlertLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxAlertLimit {
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: msgInvalidLimit})
			return
		}
		limit = n
	}

	events, err := h.history.Recent(limit)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dataResponse{Data: events})
}

func (h *MonitorHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *MonitorHandler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "Request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("err", err))
	writeJSON(w, http.StatusInternalServerError, messageResponse{Message: msgInternal})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
