package handlers

import (
	"net/http"
)

// WorkerStatus reports whether the background star worker is alive.
type WorkerStatus interface {
	Running() bool
}

// HealthHandler answers liveness probes.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

type ReadyHandler struct {
	worker WorkerStatus
}

func NewReadyHandler(worker WorkerStatus) *ReadyHandler {
	return &ReadyHandler{worker: worker}
}

// ServeHTTP reports ready only while the star worker is consuming requests.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.worker == nil || !h.worker.Running() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("Star worker not running"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
