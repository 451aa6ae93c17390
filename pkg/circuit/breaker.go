package circuit

import (
	"context"
	"errors"
	"sync"
	"time"

	"venue-enrichment/pkg/logging"
)

// State of the breaker. Closed: normal operation; Open: fail fast;
// HalfOpen: single probe allowed through.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

// ErrOpen indicates the breaker is open and the call was short-circuited.
var ErrOpen = errors.New("circuit open")

// Config tunes a breaker instance.
type Config struct {
	Name string

	OpenFor           time.Duration // how long to stay open before probing
	MaxConsecFailures int           // consecutive failures to open
	WindowSize        int           // sliding window of recent calls
	FailureRate       float64       // 0..1 fraction in window to open
}

// DefaultConfig suits an external HTTP provider behind per-call timeouts.
func DefaultConfig(name string) Config {
	return Config{
		Name:              name,
		OpenFor:           30 * time.Second,
		MaxConsecFailures: 5,
		WindowSize:        20,
		FailureRate:       0.6,
	}
}

// Breaker protects an upstream from being hammered while it is failing.
// Callers keep their own timeouts; the breaker only tracks outcomes.
type Breaker struct {
	cfg Config
	log *logging.Logger

	mu         sync.Mutex
	st         State
	nextProbe  time.Time
	consecFail int

	win  []bool
	idx  int
	used int
}

func New(cfg Config, log *logging.Logger) *Breaker {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 20
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Breaker{
		cfg: cfg,
		log: log.WithComponent("circuit"),
		st:  Closed,
		win: make([]bool, cfg.WindowSize),
	}
}

// Do runs op under the breaker. When open, it returns ErrOpen without
// calling op. A failed half-open probe re-opens the breaker.
func (b *Breaker) Do(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	if b.st == Open {
		if time.Now().Before(b.nextProbe) {
			b.mu.Unlock()
			return ErrOpen
		}
		b.setState(HalfOpen)
	}
	b.mu.Unlock()

	err := op(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.consecFail++
		b.record(false)
		if b.st == HalfOpen {
			b.trip()
		} else if b.st == Closed && b.shouldTrip() {
			b.trip()
		}
		return err
	}

	b.consecFail = 0
	b.record(true)
	if b.st == HalfOpen {
		b.setState(Closed)
	}
	return nil
}

// CurrentState reports the breaker state for health reporting.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.st
}

func (b *Breaker) record(success bool) {
	b.win[b.idx] = success
	if b.used < len(b.win) {
		b.used++
	}
	b.idx = (b.idx + 1) % len(b.win)
}

func (b *Breaker) shouldTrip() bool {
	if b.cfg.MaxConsecFailures > 0 && b.consecFail >= b.cfg.MaxConsecFailures {
		return true
	}
	if b.cfg.FailureRate > 0 && b.used == len(b.win) {
		fail := 0
		for _, ok := range b.win {
			if !ok {
				fail++
			}
		}
		if float64(fail)/float64(b.used) >= b.cfg.FailureRate {
			return true
		}
	}
	return false
}

func (b *Breaker) trip() {
	b.setState(Open)
	b.nextProbe = time.Now().Add(b.cfg.OpenFor)
}

func (b *Breaker) setState(st State) {
	if b.st == st {
		return
	}
	b.st = st
	b.log.Info("breaker state change",
		logging.String("name", b.cfg.Name),
		logging.Int("state", int(st)))
}
