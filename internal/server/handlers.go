package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/regulens/pseudonymd/internal/consent"
	"github.com/regulens/pseudonymd/internal/engine"
	"github.com/regulens/pseudonymd/internal/extract"
	"github.com/regulens/pseudonymd/internal/keyvault"
	"github.com/regulens/pseudonymd/internal/logger"
	"github.com/regulens/pseudonymd/internal/metrics"
	"github.com/regulens/pseudonymd/internal/preview"
)

// HealthChecker reports a dependency's availability.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Pinger reports cache connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler carries the handler dependencies. Extractor may be nil when
// no extraction endpoint is configured; Metrics may be nil when metrics
// are disabled.
type Handler struct {
	Engine    *engine.Engine
	Gate      consent.Gate
	Extractor extract.Extractor
	Keys      HealthChecker
	Cache     Pinger
	Metrics   *metrics.Metrics
}

type textRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id"`
}

type extractAPIRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id"`
	Confirmed bool   `json:"confirmed"`
}

// pseudonymizeResponse carries the mapping so the caller can render a
// preview; the mapping lives only in this response, never at rest.
type pseudonymizeResponse struct {
	PseudonymizedText string            `json:"pseudonymized_text"`
	SessionID         string            `json:"session_id"`
	Mapping           map[string]string `json:"mapping"`
	PseudonymsCount   int               `json:"pseudonyms_count"`
	Stats             engine.Stats      `json:"stats"`
}

type depseudonymizeStats struct {
	Replaced int      `json:"replaced"`
	Missing  []string `json:"missing"`
}

type depseudonymizeResponse struct {
	OriginalText string              `json:"original_text"`
	Stats        depseudonymizeStats `json:"stats"`
}

// Pseudonymize handles POST /internal/pseudonymize.
func (h *Handler) Pseudonymize(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if req.Text == "" {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "text is required")
		return
	}

	start := time.Now()
	res, err := h.Engine.Pseudonymize(r.Context(), req.SessionID, req.Text)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	h.Metrics.RecordPseudonymization(res.Stats.ByLayer, res.Stats.TotalSubstitutions, res.Stats.Degraded, time.Since(start))

	WriteJSONOK(w, pseudonymizeResponse{
		PseudonymizedText: res.Text,
		SessionID:         res.SessionID,
		Mapping:           res.Mapping,
		PseudonymsCount:   res.Stats.TotalUnique,
		Stats:             res.Stats,
	})
}

// Depseudonymize handles POST /internal/depseudonymize.
func (h *Handler) Depseudonymize(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}

	start := time.Now()
	res, err := h.Engine.Depseudonymize(r.Context(), req.SessionID, req.Text)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	h.Metrics.RecordDepseudonymization(len(res.Missing), time.Since(start))

	WriteJSONOK(w, depseudonymizeResponse{
		OriginalText: res.Text,
		Stats: depseudonymizeStats{
			Replaced: res.Replaced,
			Missing:  res.Missing,
		},
	})
}

// DestroySession handles DELETE /internal/session/{id}.
func (h *Handler) DestroySession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	start := time.Now()
	deleted, err := h.Engine.Destroy(r.Context(), sessionID)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	h.Metrics.RecordDestroy(time.Since(start))

	WriteJSONOK(w, map[string]any{
		"status":       "destroyed",
		"session_id":   sessionID,
		"keys_deleted": deleted,
	})
}

// Preview handles POST /api/v1/preview: pseudonymize and render the
// operator review page.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if req.Text == "" {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "text is required")
		return
	}

	start := time.Now()
	res, err := h.Engine.Pseudonymize(r.Context(), req.SessionID, req.Text)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	h.Metrics.RecordPseudonymization(res.Stats.ByLayer, res.Stats.TotalSubstitutions, res.Stats.Degraded, time.Since(start))

	page, err := preview.Render(res)
	if err != nil {
		logger.ErrorCtx(r.Context(), "preview render failed", "error", err)
		WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "preview rendering failed")
		return
	}

	WriteJSONOK(w, previewResponse{
		SessionID:   res.SessionID,
		Mapping:     res.Mapping,
		PreviewHTML: page,
	})
}

// previewResponse gives the operator everything confirmation needs:
// the rendered page plus the mapping to check the tokens against.
type previewResponse struct {
	SessionID   string            `json:"session_id"`
	Mapping     map[string]string `json:"mapping"`
	PreviewHTML string            `json:"preview_html"`
}

type extractResponse struct {
	SessionID string          `json:"session_id"`
	Document  json.RawMessage `json:"document"`
	Stats     engine.Stats    `json:"stats"`
}

// Extract handles POST /api/v1/extract: the consent-gated pipeline
// pseudonymize -> external extraction -> depseudonymize.
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	if h.Extractor == nil {
		WriteProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "no extraction endpoint configured")
		return
	}

	var req extractAPIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if req.Text == "" {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "text is required")
		return
	}

	if err := h.Gate.Check(req.SessionID, req.Confirmed); err != nil {
		var cerr *consent.Error
		if errors.As(err, &cerr) {
			WriteJSON(w, http.StatusForbidden, cerr)
			return
		}
		WriteProblem(w, http.StatusForbidden, "Forbidden", err.Error())
		return
	}

	start := time.Now()
	res, err := h.Engine.Pseudonymize(r.Context(), req.SessionID, req.Text)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	h.Metrics.RecordPseudonymization(res.Stats.ByLayer, res.Stats.TotalSubstitutions, res.Stats.Degraded, time.Since(start))

	document, err := h.Extractor.Extract(r.Context(), res.Text)
	if err != nil {
		logger.ErrorCtx(r.Context(), "extraction failed", "session_id", res.SessionID, "error", err)
		if errors.Is(err, extract.ErrOverloaded) {
			WriteProblem(w, http.StatusBadGateway, "Bad Gateway", "extraction service unavailable")
			return
		}
		WriteProblem(w, http.StatusBadGateway, "Bad Gateway", "extraction failed")
		return
	}

	// The structured document may quote tokens; restore real values
	// before it goes back to the operator.
	restored, err := h.Engine.Depseudonymize(r.Context(), res.SessionID, string(document))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	WriteJSONOK(w, extractResponse{
		SessionID: res.SessionID,
		Document:  json.RawMessage(restored.Text),
		Stats:     res.Stats,
	})
}

// Liveness handles GET /live: the process is up.
func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	WriteJSONOK(w, map[string]string{"status": "healthy"})
}

// checkDependencies probes the session cache and the key service.
func (h *Handler) checkDependencies(ctx context.Context) (map[string]string, bool) {
	detail := map[string]string{
		"cache": "healthy",
		"keys":  "healthy",
	}
	healthy := true

	if err := h.Cache.Ping(ctx); err != nil {
		detail["cache"] = err.Error()
		healthy = false
	}
	if err := h.Keys.Health(ctx); err != nil {
		detail["keys"] = err.Error()
		healthy = false
	}
	return detail, healthy
}

// Health handles GET /health: always 200, with the dependency detail
// and an overall healthy/degraded status for dashboards.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	detail, healthy := h.checkDependencies(r.Context())
	status := "healthy"
	if !healthy {
		status = "degraded"
	}
	WriteJSONOK(w, map[string]any{
		"status":       status,
		"dependencies": detail,
	})
}

// Readiness handles GET /ready: the service takes traffic only when
// both the session cache and the key service answer.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	detail, healthy := h.checkDependencies(r.Context())

	if !healthy {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":       "unhealthy",
			"dependencies": detail,
		})
		return
	}
	WriteJSONOK(w, map[string]any{
		"status":       "healthy",
		"dependencies": detail,
	})
}

// writeEngineError maps engine and key-service failures to the HTTP
// contract.
func (h *Handler) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, engine.ErrInputTooLarge):
		WriteProblem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", err.Error())
	case errors.Is(err, engine.ErrSessionMissing):
		WriteProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, engine.ErrSessionFull):
		WriteProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error())
	case errors.Is(err, engine.ErrBindingFailed),
		errors.Is(err, keyvault.ErrKeyUnavailable),
		errors.Is(err, keyvault.ErrKeyNotFound):
		logger.ErrorCtx(r.Context(), "dependency failure", "error", err)
		WriteProblem(w, http.StatusBadGateway, "Bad Gateway", "a backing service is unavailable")
	default:
		logger.ErrorCtx(r.Context(), "request failed", "error", err)
		WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "unexpected failure")
	}
}
