package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"tunebridge/internal/core"
)

type convertRequest struct {
	URL        string `json:"url"`
	Conversion *struct {
		URL string `json:"url"`
	} `json:"conversion"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	url := extractURL(r)
	if url == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "URL parameter is required"})
		return
	}

	start := time.Now()
	result, detected, err := s.converter.Convert(r.Context(), url)

	platform := "unknown"
	if detected != "" {
		platform = string(detected)
	}
	s.metrics.ConversionDuration.WithLabelValues(platform).Observe(time.Since(start).Seconds())

	if err != nil {
		status := s.classifyError(platform, err)
		s.metrics.ConversionsTotal.WithLabelValues(platform, "error").Inc()
		s.logger.Error("Conversion failed",
			zap.String("url", url),
			zap.String("platform", platform),
			zap.Int("status", status),
			zap.Error(err))

		message := "An unexpected error occurred"
		if status != http.StatusInternalServerError {
			message = err.Error()
		}
		writeJSON(w, status, errorResponse{Error: message})
		return
	}

	s.metrics.ConversionsTotal.WithLabelValues(platform, "success").Inc()
	writeJSON(w, http.StatusOK, result)
}

// classifyError maps the error taxonomy onto HTTP statuses: user input
// and adapter business errors are 422, everything uncategorized is 500.
func (s *Server) classifyError(platform string, err error) int {
	var authErr *core.AuthError
	var transientErr *core.TransientError
	switch {
	case errors.As(err, &authErr):
		s.metrics.AdapterErrorsTotal.WithLabelValues(platform, "auth").Inc()
		return http.StatusUnprocessableEntity
	case errors.As(err, &transientErr):
		s.metrics.AdapterErrorsTotal.WithLabelValues(platform, "transient").Inc()
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrUnsupportedPlatform),
		errors.Is(err, core.ErrMissingTrackData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if err := s.db.Ping(r.Context()); err != nil {
		health["status"] = "error"
		health["database"] = "error"
		status = http.StatusServiceUnavailable
		s.logger.Error("Health check database ping failed", zap.Error(err))
	} else {
		health["database"] = "ok"
	}

	writeJSON(w, status, health)
}

// extractURL accepts the URL as a top-level JSON field, nested under
// "conversion", or as a query parameter.
func extractURL(r *http.Request) string {
	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		if req.URL != "" {
			return req.URL
		}
		if req.Conversion != nil && req.Conversion.URL != "" {
			return req.Conversion.URL
		}
	}
	return r.URL.Query().Get("url")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
