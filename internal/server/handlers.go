package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/veil-io/veil/internal/detect"
	veilotel "github.com/veil-io/veil/internal/otel"
	"github.com/veil-io/veil/internal/requestctx"
)

type redactRequest struct {
	Text string `json:"text"`
}

type redactResponse struct {
	RedactedText string `json:"redacted_text"`
}

type batchRedactRequest struct {
	Texts []string `json:"texts"`
}

type batchRedactResponse struct {
	RedactedTexts []string `json:"redacted_texts"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"uptime":        time.Since(s.startTime).String(),
		"detector_mode": s.svc.Mode().String(),
	})
}

func (s *Server) handleRedact(w http.ResponseWriter, r *http.Request) {
	var req redactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}

	redacted, err := s.svc.Redact(r.Context(), req.Text)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, redactResponse{RedactedText: redacted})
}

func (s *Server) handleRedactBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRedactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}
	if len(req.Texts) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "texts is required")
		return
	}

	redacted, err := s.svc.RedactBatch(r.Context(), req.Texts)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batchRedactResponse{RedactedTexts: redacted})
}

// writeServiceError maps pipeline errors to responses. Invalid input is the
// caller's fault; everything else is reported as a generic processing
// failure with details only in the logs, never in the response body.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, detect.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, "invalid_request", "text must be valid UTF-8")
		return
	}
	log.Error().Err(err).
		Str("caller_id", requestctx.CallerID(r.Context())).
		Func(veilotel.LogTraceFields(r.Context())).
		Msg("redaction failed")
	writeError(w, http.StatusInternalServerError, "internal", "processing failed")
}
