package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/workdeck/spending/internal/domain/entity"
	domainwf "github.com/workdeck/spending/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type engineImpl struct {
	build  func(domainwf.State) domainwf.StateMachine
	logger Logger
}

// EngineOption configures the lifecycle engine
type EngineOption func(*engineImpl)

// WithLogger sets a logger for transition logging
func WithLogger(logger Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = logger
	}
}

// WithMachineFactory replaces the state machine graph
func WithMachineFactory(build func(domainwf.State) domainwf.StateMachine) EngineOption {
	return func(e *engineImpl) {
		e.build = build
	}
}

// NewEngine creates a lifecycle engine over the spending state machine
func NewEngine(opts ...EngineOption) Engine {
	e := &engineImpl{build: BuildSpendingStateMachine}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *engineImpl) Apply(ctx context.Context, req *entity.SpendingRequest, cmd Command, actor string, now time.Time) (Transition, error) {
	if req == nil {
		return Transition{}, fmt.Errorf("request cannot be nil")
	}

	from := domainwf.State(req.Status)
	if !from.IsValid() {
		return Transition{}, fmt.Errorf("%w: %q on request %s", domainwf.ErrInvalidState, req.Status, req.ID)
	}

	machine := e.build(from)
	if err := machine.Fire(WithRequestType(ctx, req.Type), cmd.Trigger()); err != nil {
		return Transition{}, fmt.Errorf("request %s (%s): %w", req.ID, req.Type, err)
	}

	to := machine.State()
	cmd.stamp(req, actor, now)
	req.Status = entity.Status(to)
	req.UpdatedAt = now

	if e.logger != nil {
		e.logger.Info("Request transitioned",
			"request_id", req.ID,
			"from", from,
			"to", to,
			"trigger", cmd.Trigger(),
			"actor", actor,
		)
	}

	return Transition{
		RequestID: req.ID,
		From:      entity.Status(from),
		To:        entity.Status(to),
		Trigger:   cmd.Trigger(),
		Actor:     actor,
		At:        now,
	}, nil
}

func (e *engineImpl) PermittedTriggers(ctx context.Context, req *entity.SpendingRequest) []domainwf.Trigger {
	state := domainwf.State(req.Status)
	if !state.IsValid() {
		return []domainwf.Trigger{}
	}

	return e.build(state).PermittedTriggers(WithRequestType(ctx, req.Type))
}
