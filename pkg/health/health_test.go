package health

import (
	"context"
	"net/http/httptest"
	"testing"
)

func staticCheck(name string, st Status) Checker {
	return NewCheck(name, func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: st}
	})
}

func TestRunChecks_AggregatesWorstStatus(t *testing.T) {
	m := NewManager(nil)
	m.Register(staticCheck("a", StatusHealthy))
	m.Register(staticCheck("b", StatusDegraded))

	sys := m.RunChecks(context.Background())
	if sys.Status != StatusDegraded {
		t.Fatalf("expected degraded aggregate, got %q", sys.Status)
	}
	if len(sys.Components) != 2 {
		t.Fatalf("expected 2 components, got %+v", sys.Components)
	}
	if sys.Components["b"].Name != "b" {
		t.Fatalf("component name not filled: %+v", sys.Components["b"])
	}
}

func TestRunChecks_NoCheckersIsHealthy(t *testing.T) {
	sys := NewManager(nil).RunChecks(context.Background())
	if sys.Status != StatusHealthy {
		t.Fatalf("expected healthy with no checks, got %q", sys.Status)
	}
}

func TestHandler_UnhealthyReturns503(t *testing.T) {
	m := NewManager(nil)
	m.Register(staticCheck("db", StatusUnhealthy))

	rec := httptest.NewRecorder()
	m.Handler()(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != 503 {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestHandler_HealthyReturns200(t *testing.T) {
	m := NewManager(nil)
	m.Register(staticCheck("db", StatusHealthy))

	rec := httptest.NewRecorder()
	m.Handler()(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestQueueCheck(t *testing.T) {
	full := QueueCheck("queue", func() int64 { return 95 }, 100)
	if got := full.Check(context.Background()); got.Status != StatusDegraded {
		t.Fatalf("expected degraded near capacity, got %+v", got)
	}
	idle := QueueCheck("queue", func() int64 { return 3 }, 100)
	if got := idle.Check(context.Background()); got.Status != StatusHealthy {
		t.Fatalf("expected healthy, got %+v", got)
	}
}
