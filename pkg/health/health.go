// Package health aggregates component liveness checks behind one HTTP
// endpoint. Components register a check; the handler runs them on demand.
package health

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"venue-enrichment/pkg/logging"
)

// Status of a component or the system as a whole.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// ComponentHealth is one check result.
type ComponentHealth struct {
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Message     string    `json:"message,omitempty"`
	LastChecked time.Time `json:"last_checked"`
	DurationMs  int64     `json:"duration_ms"`
	Error       string    `json:"error,omitempty"`
}

// SystemHealth is the aggregate returned by the endpoint. Status is the
// worst status across all components.
type SystemHealth struct {
	Status     Status                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	UptimeSecs int64                      `json:"uptime_seconds"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

// Checker is one registered component check.
type Checker interface {
	Name() string
	Check(ctx context.Context) ComponentHealth
}

type checkFunc struct {
	name string
	fn   func(ctx context.Context) ComponentHealth
}

func (c checkFunc) Name() string                              { return c.name }
func (c checkFunc) Check(ctx context.Context) ComponentHealth { return c.fn(ctx) }

// NewCheck wraps a function as a Checker.
func NewCheck(name string, fn func(ctx context.Context) ComponentHealth) Checker {
	return checkFunc{name: name, fn: fn}
}

// Manager runs registered checks and serves the aggregate.
type Manager struct {
	mu       sync.RWMutex
	checkers []Checker

	startTime time.Time
	timeout   time.Duration
	log       *logging.Logger
}

func NewManager(log *logging.Logger) *Manager {
	if log == nil {
		log = logging.NewNop()
	}
	return &Manager{
		startTime: time.Now(),
		timeout:   5 * time.Second,
		log:       log.WithComponent("health"),
	}
}

func (m *Manager) Register(c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, c)
}

// RunChecks executes every registered check with a shared deadline.
func (m *Manager) RunChecks(ctx context.Context) SystemHealth {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	m.mu.RLock()
	checkers := make([]Checker, len(m.checkers))
	copy(checkers, m.checkers)
	m.mu.RUnlock()

	out := SystemHealth{
		Status:     StatusHealthy,
		Timestamp:  time.Now(),
		UptimeSecs: int64(time.Since(m.startTime).Seconds()),
		Components: make(map[string]ComponentHealth, len(checkers)),
	}

	for _, c := range checkers {
		start := time.Now()
		ch := c.Check(ctx)
		ch.Name = c.Name()
		ch.LastChecked = time.Now()
		ch.DurationMs = time.Since(start).Milliseconds()
		out.Components[c.Name()] = ch

		if worse(ch.Status, out.Status) {
			out.Status = ch.Status
		}
		if ch.Status != StatusHealthy {
			m.log.Warn("component unhealthy",
				logging.String("component", c.Name()),
				logging.String("status", string(ch.Status)))
		}
	}
	return out
}

// Handler serves the aggregate as JSON. Unhealthy maps to 503 so load
// balancers can pull the instance.
func (m *Manager) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sys := m.RunChecks(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if sys.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(sys)
	}
}

func worse(a, b Status) bool { return rank(a) > rank(b) }

func rank(s Status) int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// DatabaseCheck pings a SQL connection.
func DatabaseCheck(name string, conn *sql.DB) Checker {
	return NewCheck(name, func(ctx context.Context) ComponentHealth {
		if err := conn.PingContext(ctx); err != nil {
			return ComponentHealth{Status: StatusUnhealthy, Error: err.Error()}
		}
		return ComponentHealth{Status: StatusHealthy}
	})
}

// QueueCheck degrades when the job queue is close to capacity.
func QueueCheck(name string, depth func() int64, capacity int) Checker {
	return NewCheck(name, func(ctx context.Context) ComponentHealth {
		d := depth()
		msg := fmt.Sprintf("%d of %d slots used", d, capacity)
		if capacity > 0 && float64(d) >= 0.9*float64(capacity) {
			return ComponentHealth{Status: StatusDegraded, Message: msg}
		}
		return ComponentHealth{Status: StatusHealthy, Message: msg}
	})
}
