// Package web serves the Judge's HTTP API.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xsspy/xsspy/internal/analysis"
)

// AnalyzeRequest mirrors the scanner's wire contract. Pointer fields tell
// an absent key apart from an empty string.
type AnalyzeRequest struct {
	HTMLContent *string `json:"html_content"`
	Payload     *string `json:"payload"`
}

// AnalyzeResponse is the success body of /analyze
type AnalyzeResponse struct {
	Analysis string `json:"analysis"`
}

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of /health
type HealthResponse struct {
	Status     string `json:"status"`
	Provider   string `json:"provider"`
	Configured bool   `json:"configured"`
	Circuit    string `json:"circuit,omitempty"`
	Feed       int    `json:"feed_clients"`
}

// VerdictEvent is published on the feed for every /analyze call
type VerdictEvent struct {
	RequestID  string `json:"request_id"`
	Provider   string `json:"provider"`
	Payload    string `json:"payload"`
	Analysis   string `json:"analysis,omitempty"`
	Error      string `json:"error,omitempty"`
	Status     int    `json:"status"`
	DurationMS int64  `json:"duration_ms"`
}

type breakerReporter interface {
	Breaker() *analysis.CircuitBreaker
}

// Handler implements /analyze and /health
type Handler struct {
	provider   analysis.Provider
	configured bool
	maxBody    int64
	hub        *Hub
}

// NewHandler creates the API handler. hub may be nil.
func NewHandler(provider analysis.Provider, configured bool, maxBody int64, hub *Hub) *Handler {
	return &Handler{
		provider:   provider,
		configured: configured,
		maxBody:    maxBody,
		hub:        hub,
	}
}

// Analyze classifies one (html_content, payload) pair
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	log := entryFrom(r.Context())

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Use POST.")
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large.")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request. Body must be a JSON object.")
		return
	}
	if req.HTMLContent == nil || req.Payload == nil {
		writeError(w, http.StatusBadRequest, "Invalid request. Missing html_content or payload.")
		return
	}

	log = log.WithFields(logrus.Fields{
		"provider":    h.provider.Name(),
		"payload_len": len(*req.Payload),
		"html_len":    len(*req.HTMLContent),
	})

	start := time.Now()
	result, err := h.provider.Analyze(r.Context(), *req.HTMLContent, *req.Payload)
	event := VerdictEvent{
		RequestID:  requestIDFrom(r.Context()),
		Provider:   h.provider.Name(),
		Payload:    *req.Payload,
		DurationMS: time.Since(start).Milliseconds(),
	}

	if err != nil {
		status, message := http.StatusBadGateway, "Could not get analysis from the provider."
		if errors.Is(err, analysis.ErrNotConfigured) {
			status, message = http.StatusInternalServerError, "Analysis server is not configured correctly: "+err.Error()
		}
		log.WithError(err).WithField("status", status).Error("analysis failed")

		event.Status, event.Error = status, message
		h.publish(event)
		writeError(w, status, message)
		return
	}

	log.WithField("verdict", result).Debug("analysis complete")

	event.Status, event.Analysis = http.StatusOK, result
	h.publish(event)
	writeJSON(w, http.StatusOK, AnalyzeResponse{Analysis: result})
}

// Health reports liveness and whether the provider can answer
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Use GET.")
		return
	}

	resp := HealthResponse{
		Status:     "ok",
		Provider:   h.provider.Name(),
		Configured: h.configured,
	}
	if b, ok := h.provider.(breakerReporter); ok {
		resp.Circuit = b.Breaker().State().String()
	}
	if h.hub != nil {
		resp.Feed = h.hub.ClientCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) publish(event VerdictEvent) {
	if h.hub != nil {
		h.hub.Broadcast("verdict", event)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
