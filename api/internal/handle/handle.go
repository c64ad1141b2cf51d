package handle

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"deadlift-coach/api/internal/service"
)

type Handle struct {
	an  *service.Analyzer
	log *zap.Logger

	// Timeout bounds one upstream analysis.
	Timeout time.Duration
	// MaxVideoBytes caps the decoded upload.
	MaxVideoBytes int64
	// Ping checks the backing database for /healthz; nil means no database.
	Ping func(ctx context.Context) error
}

func New(an *service.Analyzer, logger *zap.Logger) *Handle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handle{
		an:            an,
		log:           logger,
		Timeout:       180 * time.Second,
		MaxVideoBytes: 20 << 20,
	}
}

// Register mounts every route on mux.
func (h *Handle) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", h.Healthz)
	mux.HandleFunc("/api/analyze-video", h.AnalyzeVideo)
	mux.HandleFunc("/api/normalize", h.Normalize)
	mux.HandleFunc("GET /api/analyses/{id}", h.GetAnalysis)
	mux.HandleFunc("/api/prompt", h.Prompt)
	mux.HandleFunc("GET /api/placeholder", h.Placeholder)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}

func (h *Handle) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
