package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/architeacher/svc-broker-link/internal/domain"
)

type errorResponse struct {
	Error      string    `json:"error"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Timestamp  time.Time `json:"timestamp"`
}

func writeDomainError(w http.ResponseWriter, err *domain.DomainError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)

	_ = json.NewEncoder(w).Encode(errorResponse{
		Error:      err.Code,
		Message:    err.Message,
		StatusCode: err.StatusCode,
		Timestamp:  time.Now().UTC(),
	})
}
