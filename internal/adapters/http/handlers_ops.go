package web

import (
	"net/http"
	"strconv"
	"time"
)

// handleHealthz reports liveness. The remote API is not contacted.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePerf returns recent request timings. Development only.
// Query: window (minutes, default 60), top (default 10).
func (s *Server) handlePerf(w http.ResponseWriter, r *http.Request) {
	window := 60
	if v, err := strconv.Atoi(r.URL.Query().Get("window")); err == nil && v > 0 {
		window = v
	}
	top := 10
	if v, err := strconv.Atoi(r.URL.Query().Get("top")); err == nil && v > 0 {
		top = v
	}
	since := s.now().Add(-time.Duration(window) * time.Minute)
	writeJSON(w, http.StatusOK, s.perf.Snapshot(since, top))
}
