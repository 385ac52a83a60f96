// Package engine implements the trigger dispatcher: it receives a domain
// event, selects the active rules for the trigger type, and runs the per-rule
// pipeline of trigger-config match, idempotency claim, condition evaluation
// and action dispatch, with the execution ledger as the audit trail.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/driftline/automaton/pkg/eventbus"
	"github.com/driftline/automaton/pkg/lock"
	"github.com/driftline/automaton/pkg/persistence"
	"github.com/driftline/automaton/pkg/registry"
)

const (
	defaultActionTimeout = 30 * time.Second
	defaultLockTTL       = time.Minute
)

// ErrUnknownTriggerType indicates Fire was called with a trigger type outside
// the closed catalog.
var ErrUnknownTriggerType = errors.New("unknown trigger type")

// Config carries the dispatcher's injected dependencies. Rules, Ledger,
// Registry and Logger are required; the rest have working defaults.
type Config struct {
	Rules    persistence.RuleRepository
	Ledger   persistence.ExecutionRepository
	Registry *registry.Registry
	Logger   *slog.Logger

	// Bus, when set, receives execution lifecycle events.
	Bus eventbus.EventPublisher

	// Lock, when set, serializes dispatch per (rule, entity) across
	// dispatcher instances for rules with a cooldown or budget.
	Lock lock.EntityLock

	Clock  clockwork.Clock
	Tracer trace.Tracer

	// ActionTimeout bounds each action handler invocation.
	ActionTimeout time.Duration
	LockTTL       time.Duration
}

// Dispatcher runs the rule pipeline for fired events.
type Dispatcher struct {
	rules         persistence.RuleRepository
	ledger        persistence.ExecutionRepository
	registry      *registry.Registry
	bus           eventbus.EventPublisher
	lock          lock.EntityLock
	clock         clockwork.Clock
	tracer        trace.Tracer
	logger        *slog.Logger
	actionTimeout time.Duration
	lockTTL       time.Duration
}

// NewDispatcher creates a dispatcher from the given configuration.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if cfg.Rules == nil {
		return nil, errors.New("rule repository is required")
	}

	if cfg.Ledger == nil {
		return nil, errors.New("execution repository is required")
	}

	if cfg.Registry == nil {
		return nil, errors.New("handler registry is required")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}

	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("automaton")
	}

	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = defaultActionTimeout
	}

	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}

	return &Dispatcher{
		rules:         cfg.Rules,
		ledger:        cfg.Ledger,
		registry:      cfg.Registry,
		bus:           cfg.Bus,
		lock:          cfg.Lock,
		clock:         cfg.Clock,
		tracer:        cfg.Tracer,
		logger:        cfg.Logger,
		actionTimeout: cfg.ActionTimeout,
		lockTTL:       cfg.LockTTL,
	}, nil
}

func (d *Dispatcher) now() time.Time {
	return d.clock.Now().UTC()
}

func wrapFireError(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
