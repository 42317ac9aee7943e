package service

import (
	"context"
	"fmt"
	"log/slog"
)

// SagaState is the state of a multi-store operation.
type SagaState string

const (
	SagaCreated        SagaState = "created"
	SagaProfilePending SagaState = "profile_pending"
	SagaCommitted      SagaState = "committed"
	SagaRolledBack     SagaState = "rolled_back"
)

// SagaStep is one ordered action.  Compensate undoes Run and is only
// called when Run succeeded and a later step failed.  Then is the state
// entered once Run succeeds; empty keeps the current state.
type SagaStep struct {
	Name       string
	Run        func(ctx context.Context) error
	Compensate func(ctx context.Context) error
	Then       SagaState
}

// StepError reports which step of a saga failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("saga step %s: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

// Saga runs steps in order and compensates completed steps in reverse when
// one fails.  It is not safe for concurrent use; build one per operation.
type Saga struct {
	name  string
	steps []SagaStep
	state SagaState
	attrs []any
}

// NewSaga returns a saga in state Created.  attrs are added to every log
// line it writes.
func NewSaga(name string, attrs ...any) *Saga {
	s := &Saga{name: name, state: SagaCreated, attrs: attrs}
	s.enter(SagaCreated)
	return s
}

// Step appends a step.
func (s *Saga) Step(step SagaStep) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// State returns the current state.
func (s *Saga) State() SagaState { return s.state }

// Execute runs the saga.  On failure the returned error is a *StepError;
// compensation runs with a context detached from ctx so a cancelled
// request still gets cleaned up.
func (s *Saga) Execute(ctx context.Context) error {
	for i, step := range s.steps {
		if err := step.Run(ctx); err != nil {
			slog.Warn("saga step failed", append([]any{"saga", s.name, "step", step.Name, "error", err}, s.attrs...)...)
			s.rollback(context.WithoutCancel(ctx), s.steps[:i])
			return &StepError{Step: step.Name, Err: err}
		}
		if step.Then != "" {
			s.enter(step.Then)
		}
	}
	if s.state != SagaCommitted {
		s.enter(SagaCommitted)
	}
	return nil
}

func (s *Saga) rollback(ctx context.Context, done []SagaStep) {
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			sagaCompensationFailures.Inc()
			slog.Error("saga compensation failed", append([]any{"saga", s.name, "step", step.Name, "error", err}, s.attrs...)...)
		}
	}
	s.enter(SagaRolledBack)
}

func (s *Saga) enter(state SagaState) {
	s.state = state
	sagaTransitions.WithLabelValues(string(state)).Inc()
	slog.Info("saga transition", append([]any{"saga", s.name, "state", string(state)}, s.attrs...)...)
}
