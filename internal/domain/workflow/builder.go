package workflow

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc evaluates whether a transition should be allowed
type GuardFunc func(ctx context.Context) bool

// StateMachineBuilder collects the transition graph and builds machines over it
type StateMachineBuilder interface {
	// Configure returns the configuration of transitions leaving state
	Configure(state State) StateConfiguration

	// Build freezes the graph and returns a machine starting in initialState
	Build(initialState State) StateMachine
}

// StateConfiguration adds transitions leaving one state
type StateConfiguration interface {
	Permit(trigger Trigger, toState State) StateConfiguration
	PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration
}

type edgeKey struct {
	from    State
	trigger Trigger
}

type edge struct {
	to    State
	guard GuardFunc
}

// graph is immutable once built; machines share it
type graph struct {
	edges    map[edgeKey][]edge
	triggers map[State][]Trigger
}

type builder struct {
	edges   map[edgeKey][]edge
	configs map[State]*stateConfig
}

type stateConfig struct {
	from State
	b    *builder
}

type stateMachine struct {
	current State
	g       *graph
}

// NewBuilder creates an empty graph builder
func NewBuilder() StateMachineBuilder {
	return &builder{
		edges:   make(map[edgeKey][]edge),
		configs: make(map[State]*stateConfig),
	}
}

// Configure panics on an unknown state since graphs are wired at startup.
func (b *builder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}
	if cfg, ok := b.configs[state]; ok {
		return cfg
	}
	cfg := &stateConfig{from: state, b: b}
	b.configs[state] = cfg
	return cfg
}

// Build snapshots the edges, so later Configure calls do not reach machines already built.
func (b *builder) Build(initialState State) StateMachine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	g := &graph{
		edges:    make(map[edgeKey][]edge, len(b.edges)),
		triggers: make(map[State][]Trigger),
	}
	for key, out := range b.edges {
		g.edges[key] = append([]edge(nil), out...)
		g.triggers[key.from] = append(g.triggers[key.from], key.trigger)
	}
	for state := range g.triggers {
		ts := g.triggers[state]
		sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	}

	return &stateMachine{current: initialState, g: g}
}

func (c *stateConfig) Permit(trigger Trigger, toState State) StateConfiguration {
	return c.PermitIf(trigger, toState, nil)
}

// PermitIf adds a guarded transition. Transitions sharing a trigger are tried in the order added.
func (c *stateConfig) PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}
	key := edgeKey{from: c.from, trigger: trigger}
	c.b.edges[key] = append(c.b.edges[key], edge{to: toState, guard: guard})
	return c
}

func (m *stateMachine) State() State {
	return m.current
}

// Fire moves to the target of the first transition whose guard passes.
// When every guard rejects, the error matches both ErrInvalidTransition and ErrGuardFailed.
func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	out := m.g.edges[edgeKey{from: m.current, trigger: trigger}]
	if len(out) == 0 {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.current)
	}
	to, ok := pick(ctx, out)
	if !ok {
		return fmt.Errorf("%w: %w: %s from %s", ErrInvalidTransition, ErrGuardFailed, trigger, m.current)
	}
	m.current = to
	return nil
}

func (m *stateMachine) PermittedTriggers(ctx context.Context) []Trigger {
	permitted := []Trigger{}
	for _, trigger := range m.g.triggers[m.current] {
		if _, ok := pick(ctx, m.g.edges[edgeKey{from: m.current, trigger: trigger}]); ok {
			permitted = append(permitted, trigger)
		}
	}
	return permitted
}

func pick(ctx context.Context, out []edge) (State, bool) {
	for _, e := range out {
		if e.guard == nil || e.guard(ctx) {
			return e.to, true
		}
	}
	return "", false
}
