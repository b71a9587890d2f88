package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// HealthChecker reports liveness of the execution core over HTTP.
type HealthChecker struct {
	mu           sync.RWMutex
	lastDecision time.Time
	venueOK      bool
	errors       []string
}

type HealthStatus struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	LastDecision time.Time `json:"last_decision"`
	VenueOK      bool      `json:"venue_ok"`
	Uptime       string    `json:"uptime"`
	Errors       []string  `json:"errors,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{venueOK: true, errors: make([]string, 0)}
}

// MarkDecision records that a decision cycle ran.
func (h *HealthChecker) MarkDecision() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastDecision = time.Now()
}

// SetVenueOK flags venue connectivity.
func (h *HealthChecker) SetVenueOK(ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.venueOK = ok
}

// RecordError appends a fatal-class error to the health report.
func (h *HealthChecker) RecordError(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, msg)
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if !h.venueOK {
		status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if len(h.errors) > 0 {
		status = "unhealthy"
		w.WriteHeader(http.StatusInternalServerError)
	}

	health := HealthStatus{
		Status:       status,
		Timestamp:    time.Now(),
		LastDecision: h.lastDecision,
		VenueOK:      h.venueOK,
		Uptime:       time.Since(startTime).String(),
		Errors:       h.errors,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}
