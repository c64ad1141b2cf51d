package handle

import (
	"fmt"
	"net/http"
	"strconv"
)

const (
	placeholderWidth  = 300
	placeholderHeight = 200
	placeholderMax    = 4000
)

const placeholderSVG = `<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">
  <rect width="100%%" height="100%%" fill="#e5e7eb"/>
  <rect x="50%%" y="50%%" width="40" height="30" fill="#9ca3af" transform="translate(-20, -15)"/>
  <circle cx="50%%" cy="45%%" r="5" fill="#6b7280"/>
  <polygon points="45%%,55%% 55%%,55%% 50%%,65%%" fill="#6b7280"/>
  <text x="50%%" y="80%%" text-anchor="middle" font-family="Arial, sans-serif" font-size="12" fill="#6b7280">
    Video Thumbnail
  </text>
</svg>
`

// Placeholder serves a grey "Video Thumbnail" SVG for videos without a preview.
func (h *Handle) Placeholder(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	width := dimension(q.Get("width"), placeholderWidth)
	height := dimension(q.Get("height"), placeholderHeight)

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, placeholderSVG, width, height)
}

func dimension(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	if n < 1 {
		return 1
	}
	if n > placeholderMax {
		return placeholderMax
	}
	return n
}
