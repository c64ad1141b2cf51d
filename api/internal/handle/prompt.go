package handle

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"deadlift-coach/api/internal/prompt"
)

// UpdatePromptRequest carries a replacement prompt; omitted generation fields keep their current values.
type UpdatePromptRequest struct {
	Text            string   `json:"text"`
	Temperature     *float32 `json:"temperature,omitempty"`
	TopK            *int32   `json:"top_k,omitempty"`
	TopP            *float32 `json:"top_p,omitempty"`
	MaxOutputTokens *int32   `json:"max_output_tokens,omitempty"`
}

type PromptResponse struct {
	OK       bool            `json:"ok"`
	Settings prompt.Settings `json:"settings"`
	Path     string          `json:"path,omitempty"`
	Updated  string          `json:"updated_at,omitempty"`
}

// Prompt shows (GET) or replaces (POST/PUT) the active prompt. Replacements are written
// to PROMPT_FILE atomically when one is configured.
func (h *Handle) Prompt(w http.ResponseWriter, r *http.Request) {
	st := h.an.Prompts()
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, PromptResponse{OK: true, Settings: st.Current(), Path: st.Path()})
		return
	case http.MethodPost, http.MethodPut:
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	var req UpdatePromptRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, 4<<20))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}

	next := st.Current()
	next.Text = req.Text
	if req.Temperature != nil {
		next.Temperature = *req.Temperature
	}
	if req.TopK != nil {
		next.TopK = *req.TopK
	}
	if req.TopP != nil {
		next.TopP = *req.TopP
	}
	if req.MaxOutputTokens != nil {
		next.MaxOutputTokens = *req.MaxOutputTokens
	}
	if err := next.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := st.Update(next); err != nil {
		h.log.Error("update prompt", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "save prompt: "+err.Error())
		return
	}
	h.log.Info("prompt updated", zap.Int("size", len(next.Text)), zap.String("path", st.Path()))

	writeJSON(w, http.StatusOK, PromptResponse{
		OK:       true,
		Settings: next,
		Path:     st.Path(),
		Updated:  time.Now().UTC().Format(time.RFC3339),
	})
}
