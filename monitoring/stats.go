package monitoring

import (
	"sync"
	"time"
)

// Stats counts serving outcomes since startup. Safe for concurrent use.
type Stats struct {
	mu               sync.RWMutex
	startTime        time.Time
	predictions      int64
	validationErrors int64
	unavailable      int64
	internalErrors   int64
	lastPrediction   time.Time
}

// StatsSnapshot is the wire form of the counters.
type StatsSnapshot struct {
	ConnectedClients int     `json:"connected_clients"`
	Predictions      int64   `json:"predictions"`
	ValidationErrors int64   `json:"validation_errors"`
	ModelUnavailable int64   `json:"model_unavailable"`
	InternalErrors   int64   `json:"internal_errors"`
	StartTime        string  `json:"start_time"`
	LastPrediction   string  `json:"last_prediction,omitempty"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
}

func NewStats() *Stats {
	return &Stats{startTime: time.Now()}
}

func (s *Stats) RecordPrediction() {
	s.mu.Lock()
	s.predictions++
	s.lastPrediction = time.Now()
	s.mu.Unlock()
}

func (s *Stats) RecordValidationError() {
	s.mu.Lock()
	s.validationErrors++
	s.mu.Unlock()
}

func (s *Stats) RecordUnavailable() {
	s.mu.Lock()
	s.unavailable++
	s.mu.Unlock()
}

func (s *Stats) RecordInternalError() {
	s.mu.Lock()
	s.internalErrors++
	s.mu.Unlock()
}

// Snapshot copies the counters for the stats endpoint. The connected
// client count comes from the hub, which tracks it separately.
func (s *Stats) Snapshot(connectedClients int) StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := StatsSnapshot{
		ConnectedClients: connectedClients,
		Predictions:      s.predictions,
		ValidationErrors: s.validationErrors,
		ModelUnavailable: s.unavailable,
		InternalErrors:   s.internalErrors,
		StartTime:        s.startTime.Format(time.RFC3339),
		UptimeSeconds:    time.Since(s.startTime).Seconds(),
	}
	if !s.lastPrediction.IsZero() {
		snapshot.LastPrediction = s.lastPrediction.Format(time.RFC3339)
	}
	return snapshot
}
