package adapters

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/architeacher/svc-broker-link/internal/domain"
	"github.com/architeacher/svc-broker-link/internal/infrastructure"
	"github.com/architeacher/svc-broker-link/internal/usecases"
	"github.com/architeacher/svc-broker-link/internal/usecases/commands"
	"github.com/architeacher/svc-broker-link/internal/usecases/queries"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

const messageParam = "message"

type (
	RequestHandler struct {
		app     *usecases.WebApplication
		version string
		logger  infrastructure.Logger
	}

	HealthResponse struct {
		Status     string                `json:"status"`
		Timestamp  time.Time             `json:"timestamp"`
		Version    string                `json:"version"`
		Uptime     float32               `json:"uptime"`
		Generation uint64                `json:"generation"`
		Checks     map[string]CheckState `json:"checks"`
	}

	CheckState struct {
		Status       string    `json:"status"`
		ResponseTime float32   `json:"response_time"`
		LastChecked  time.Time `json:"last_checked"`
		Error        string    `json:"error,omitempty"`
	}

	ErrorResponse struct {
		Error      string    `json:"error"`
		Message    string    `json:"message"`
		StatusCode int       `json:"status_code"`
		Timestamp  time.Time `json:"timestamp"`
	}
)

func NewRequestHandler(app *usecases.WebApplication, version string, logger infrastructure.Logger) *RequestHandler {
	return &RequestHandler{
		app:     app,
		version: version,
		logger:  logger.WithComponent("request_handler"),
	}
}

// Routes mounts the send and health endpoints. The legacy send path stays mounted for old publishers.
func (h *RequestHandler) Routes(r chi.Router) {
	r.Get("/v1/messages/{"+messageParam+"}", h.SendMessage)
	r.Get("/solace/{"+messageParam+"}", h.SendMessage)
	r.Get("/v1/health", h.HealthCheck)
}

// SendMessage publishes the decoded path segment as a text message.
func (h *RequestHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	payload, err := bindMessage(r)
	if err != nil {
		h.writeError(w, domain.NewInvalidMessageError(err.Error()))

		return
	}

	result, err := h.app.Commands.SendMessageHandler.Handle(r.Context(), commands.SendMessageCommand{Payload: payload})
	if err != nil {
		h.writeError(w, err)

		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Message-ID", result.MessageID)
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "Message sent successfully: %s", result.Payload)
}

// bindMessage decodes the message path parameter. chi matches on the escaped
// path whenever one is present, so the segment is only escaped in that case.
func bindMessage(r *http.Request) (string, error) {
	raw := chi.URLParam(r, messageParam)
	if r.URL.RawPath == "" {
		raw = url.PathEscape(raw)
	}

	var payload string

	err := runtime.BindStyledParameterWithOptions("simple", messageParam, raw, &payload, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return "", err
	}

	return payload, nil
}

func (h *RequestHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.Queries.FetchHealthReportQueryHandler.Execute(r.Context(), queries.FetchHealthReportQuery{})
	if err != nil {
		h.writeError(w, err)

		return
	}

	resp := HealthResponse{
		Status:     result.OverallStatus,
		Timestamp:  time.Now().UTC(),
		Version:    h.version,
		Uptime:     result.Uptime,
		Generation: result.Generation,
		Checks: map[string]CheckState{
			"broker": {
				Status:       result.Broker.Status,
				ResponseTime: result.Broker.ResponseTime,
				LastChecked:  result.Broker.LastChecked,
				Error:        result.Broker.Error,
			},
		},
	}

	statusCode := http.StatusOK
	if result.OverallStatus != domain.HealthStatusHealthy {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, resp)
}

func (h *RequestHandler) writeError(w http.ResponseWriter, err error) {
	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		domainErr = domain.NewInternalServerError("Internal server error", err)
	}

	h.logger.Error().
		Err(err).
		Str("code", domainErr.Code).
		Int("status_code", domainErr.StatusCode).
		Msg("request failed")

	writeJSON(w, domainErr.StatusCode, ErrorResponse{
		Error:      domainErr.Code,
		Message:    domainErr.Message,
		StatusCode: domainErr.StatusCode,
		Timestamp:  time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
