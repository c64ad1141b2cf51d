package handle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"deadlift-coach/api/internal/analysis"
	"deadlift-coach/api/internal/gemini"
	"deadlift-coach/api/internal/service"
	"deadlift-coach/api/internal/util"
)

type AnalyzeRequest struct {
	VideoFile string `json:"videoFile"` // base64 or data: URI
	Prompt    string `json:"prompt,omitempty"`
	MimeType  string `json:"mimeType,omitempty"`
}

type AnalyzeResponse struct {
	Success            bool            `json:"success"`
	ID                 string          `json:"id,omitempty"`
	RawAnalysis        string          `json:"rawAnalysis"`
	StructuredAnalysis analysis.Result `json:"structuredAnalysis"`
	Cached             bool            `json:"cached"`
	Timestamp          string          `json:"timestamp"`
}

func (h *Handle) AnalyzeVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	// base64 inflates by 4/3; leave room for the envelope
	limit := h.MaxVideoBytes/3*4 + 64<<10
	var req AnalyzeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, limit)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	if strings.TrimSpace(req.VideoFile) == "" {
		writeError(w, http.StatusBadRequest, "No video file provided")
		return
	}
	if !h.an.Configured() {
		h.log.Error("GEMINI_API_KEY not found in environment variables")
		writeError(w, http.StatusInternalServerError, "API key not configured")
		return
	}

	up, err := util.DecodeVideoUpload(req.VideoFile, h.MaxVideoBytes)
	switch {
	case errors.Is(err, util.ErrVideoTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("video too large (max %d MiB)", h.MaxVideoBytes>>20))
		return
	case err != nil || len(up.Data) == 0:
		writeError(w, http.StatusBadRequest, "bad videoFile: expected base64 or data URL")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	rep, err := h.an.Analyze(ctx, service.Request{
		Video:  up.Data,
		MIME:   util.PickMIME(req.MimeType, up.MIME, up.Data),
		Prompt: req.Prompt,
	})
	if err != nil {
		code, msg := analyzeErrorStatus(err)
		h.log.Error("video analysis failed", zap.Int("status", code), zap.Error(err))
		writeError(w, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, AnalyzeResponse{
		Success:            true,
		ID:                 rep.ID,
		RawAnalysis:        rep.RawAnalysis,
		StructuredAnalysis: rep.Structured,
		Cached:             rep.Cached,
		Timestamp:          rep.Timestamp.UTC().Format(time.RFC3339),
	})
}

func analyzeErrorStatus(err error) (int, string) {
	var ue *gemini.UpstreamError
	switch {
	case errors.Is(err, service.ErrNotConfigured), errors.Is(err, gemini.ErrNoAPIKey):
		return http.StatusInternalServerError, "API key not configured"
	case errors.Is(err, service.ErrNoVideo):
		return http.StatusBadRequest, "No video file provided"
	case errors.As(err, &ue):
		code := ue.Status
		if code < 400 || code > 599 {
			code = http.StatusBadGateway
		}
		return code, fmt.Sprintf("Gemini API error: %d", ue.Status)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "analysis timed out"
	default:
		return http.StatusInternalServerError, "Internal server error during analysis"
	}
}

type NormalizeRequest struct {
	Text string `json:"text"`
}

type NormalizeResponse struct {
	StructuredAnalysis analysis.Result `json:"structuredAnalysis"`
}

// Normalize structures model text the caller already has; no upstream call is made.
func (h *Handle) Normalize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	var req NormalizeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, NormalizeResponse{StructuredAnalysis: h.an.Normalize(req.Text)})
}

func (h *Handle) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	rec, err := h.an.Lookup(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, service.ErrNoStore):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		h.log.Error("lookup analysis", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
	default:
		writeJSON(w, http.StatusOK, rec)
	}
}
