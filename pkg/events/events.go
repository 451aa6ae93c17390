package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Event is the base interface for run audit events.
// Keep payloads small, use JSON-friendly fields.
type Event interface {
	Type() string
	RunID() string
	Timestamp() time.Time
	MarshalData() ([]byte, error)
}

// Base contains common event metadata.
type Base struct {
	Ts  time.Time `json:"ts"`
	RID string    `json:"run_id"`
}

func (b Base) Timestamp() time.Time { return b.Ts }
func (b Base) RunID() string        { return b.RID }

const (
	TypeRunStarted        = "run.started"
	TypeStageAdvanced     = "run.stage.advanced"
	TypeStageRetried      = "run.stage.retried"
	TypeInferenceDegraded = "run.inference.degraded"
	TypeDuplicateFlagged  = "run.duplicate.flagged"
	TypeRunCompleted      = "run.completed"
	TypeRunFailed         = "run.failed"
)

// RunStarted is emitted when a submission enters the engine.
type RunStarted struct {
	Base
	SubmissionID string  `json:"submission_id"`
	VenueName    string  `json:"venue_name"`
	VendorID     *string `json:"vendor_id,omitempty"`
	Priority     int     `json:"priority"`
}

func (e RunStarted) Type() string                 { return TypeRunStarted }
func (e RunStarted) MarshalData() ([]byte, error) { return json.Marshal(e) }

// StageAdvanced records one forward state-machine transition.
type StageAdvanced struct {
	Base
	From string `json:"from"`
	To   string `json:"to"`
}

func (e StageAdvanced) Type() string                 { return TypeStageAdvanced }
func (e StageAdvanced) MarshalData() ([]byte, error) { return json.Marshal(e) }

// StageRetried records a bounded retry of the same stage.
type StageRetried struct {
	Base
	Stage   string `json:"stage"`
	Attempt int    `json:"attempt"`
	Cause   string `json:"cause"`
}

func (e StageRetried) Type() string                 { return TypeStageRetried }
func (e StageRetried) MarshalData() ([]byte, error) { return json.Marshal(e) }

// InferenceDegraded marks a run that exhausted inference retries and was
// scored with an empty candidate list.
type InferenceDegraded struct {
	Base
	Cause string `json:"cause"`
}

func (e InferenceDegraded) Type() string                 { return TypeInferenceDegraded }
func (e InferenceDegraded) MarshalData() ([]byte, error) { return json.Marshal(e) }

// DuplicateFlagged marks a near-duplicate hit that forced needs-review.
type DuplicateFlagged struct {
	Base
	DuplicateOf string  `json:"duplicate_of"`
	Similarity  float64 `json:"similarity"`
}

func (e DuplicateFlagged) Type() string                 { return TypeDuplicateFlagged }
func (e DuplicateFlagged) MarshalData() ([]byte, error) { return json.Marshal(e) }

// RunCompleted is emitted at any non-failed terminal outcome.
type RunCompleted struct {
	Base
	Outcome  string  `json:"outcome"`
	Scalar   float64 `json:"scalar"`
	Decision string  `json:"decision"`
	Degraded bool    `json:"degraded,omitempty"`
}

func (e RunCompleted) Type() string                 { return TypeRunCompleted }
func (e RunCompleted) MarshalData() ([]byte, error) { return json.Marshal(e) }

// RunFailed is emitted when a run settles into the failed terminal state.
type RunFailed struct {
	Base
	Stage string `json:"stage"`
	Kind  string `json:"kind"`
	Cause string `json:"cause"`
}

func (e RunFailed) Type() string                 { return TypeRunFailed }
func (e RunFailed) MarshalData() ([]byte, error) { return json.Marshal(e) }

// EventStore defines append-only event persistence.
// Implementations must guarantee ordering per run.
type EventStore interface {
	Append(ctx context.Context, e Event) error
	ListByRun(ctx context.Context, runID string) ([]StoredEvent, error)
}

// StoredEvent is a durable representation. Seq is monotonic per store.
type StoredEvent struct {
	Seq     int64     `json:"seq"`
	RunID   string    `json:"run_id"`
	Type    string    `json:"type"`
	Ts      time.Time `json:"ts"`
	Payload []byte    `json:"payload"`
}

// MemStore is an in-memory EventStore for tests and DB-less deployments.
type MemStore struct {
	mu     sync.Mutex
	seq    int64
	events []StoredEvent
}

func NewMemStore() *MemStore { return &MemStore{} }

func (s *MemStore) Append(_ context.Context, e Event) error {
	payload, err := e.MarshalData()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.events = append(s.events, StoredEvent{
		Seq:     s.seq,
		RunID:   e.RunID(),
		Type:    e.Type(),
		Ts:      e.Timestamp(),
		Payload: payload,
	})
	return nil
}

func (s *MemStore) ListByRun(_ context.Context, runID string) ([]StoredEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []StoredEvent
	for _, se := range s.events {
		if se.RunID == runID {
			out = append(out, se)
		}
	}
	return out, nil
}
