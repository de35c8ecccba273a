package command

import (
	"sync"
	"sync/atomic"

	"github.com/alem-hub/lms-enrollment/internal/domain/shared"
)

// Metrics counts command outcomes. Safe for concurrent use.
type Metrics struct {
	attempts        atomic.Int64
	admitted        atomic.Int64
	unenrolled      atomic.Int64
	progressUpdates atomic.Int64

	mu       sync.Mutex
	rejected map[string]int64
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	// EnrollmentAttempts counts every Enroll call, successful or not.
	EnrollmentAttempts int64            `json:"enrollment_count"`
	Admitted           int64            `json:"admitted"`
	Unenrolled         int64            `json:"unenrolled"`
	ProgressUpdates    int64            `json:"progress_updates"`
	Rejected           map[string]int64 `json:"rejected"`
}

// NewMetrics creates zeroed counters.
func NewMetrics() *Metrics {
	return &Metrics{rejected: make(map[string]int64)}
}

func (m *Metrics) recordAttempt()  { m.attempts.Add(1) }
func (m *Metrics) recordAdmitted() { m.admitted.Add(1) }

// recordRejection files err under its rule-violation reason, or under the
// error kind for everything else.
func (m *Metrics) recordRejection(err error) {
	key := shared.ReasonOf(err)
	if key == "" {
		switch {
		case shared.IsNotFound(err):
			key = "not found"
		case shared.IsForbidden(err):
			key = "forbidden"
		case shared.IsInvalidInput(err):
			key = "invalid input"
		default:
			key = "error"
		}
	}

	m.mu.Lock()
	m.rejected[key]++
	m.mu.Unlock()
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	rejected := make(map[string]int64, len(m.rejected))
	for k, v := range m.rejected {
		rejected[k] = v
	}
	m.mu.Unlock()

	return MetricsSnapshot{
		EnrollmentAttempts: m.attempts.Load(),
		Admitted:           m.admitted.Load(),
		Unenrolled:         m.unenrolled.Load(),
		ProgressUpdates:    m.progressUpdates.Load(),
		Rejected:           rejected,
	}
}
