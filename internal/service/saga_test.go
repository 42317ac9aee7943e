package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSagaCompensatesInReverse(t *testing.T) {
	var log []string
	step := func(name string, fail bool) SagaStep {
		return SagaStep{
			Name: name,
			Run: func(context.Context) error {
				log = append(log, "run "+name)
				if fail {
					return fmt.Errorf("%s failed", name)
				}
				return nil
			},
			Compensate: func(context.Context) error {
				log = append(log, "undo "+name)
				return nil
			},
		}
	}
	s := NewSaga("test").Step(step("a", false)).Step(step("b", false)).Step(step("c", true))

	err := s.Execute(context.Background())
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "c", stepErr.Step)
	assert.Equal(t, []string{"run a", "run b", "run c", "undo b", "undo a"}, log)
	assert.Equal(t, SagaRolledBack, s.State())
}

func TestSagaCommits(t *testing.T) {
	s := NewSaga("test").Step(SagaStep{
		Name: "only",
		Run:  func(context.Context) error { return nil },
		Then: SagaProfilePending,
	})
	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, SagaCommitted, s.State())
}

func TestSagaCompensatesWithCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var compensated bool
	s := NewSaga("test").Step(SagaStep{
		Name: "create",
		Run:  func(context.Context) error { return nil },
		Compensate: func(ctx context.Context) error {
			compensated = ctx.Err() == nil
			return nil
		},
	}).Step(SagaStep{
		Name: "fail",
		Run: func(context.Context) error {
			cancel()
			return context.Canceled
		},
	})
	require.Error(t, s.Execute(ctx))
	assert.True(t, compensated)
}
