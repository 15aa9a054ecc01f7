package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mar0580/teste-sistema-bancario/internal/apperrors"
	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
	"github.com/mar0580/teste-sistema-bancario/internal/core/services"
	"github.com/stretchr/testify/assert"
)

func TestConflictCoordinator_SucceedsFirstTry(t *testing.T) {
	c := services.NewConflictCoordinator(3, time.Millisecond)
	calls := 0

	err := c.Execute(context.Background(), "credit", func(ctx context.Context) error {
		calls++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestConflictCoordinator_RetriesVersionConflicts(t *testing.T) {
	c := services.NewConflictCoordinator(3, 0)
	calls := 0

	err := c.Execute(context.Background(), "debit", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return domain.ErrVersionConflict
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestConflictCoordinator_Exhausted(t *testing.T) {
	c := services.NewConflictCoordinator(2, 0)
	calls := 0

	err := c.Execute(context.Background(), "transfer", func(ctx context.Context) error {
		calls++
		return domain.ErrVersionConflict
	})

	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NotErrorIs(t, err, domain.ErrVersionConflict, "the internal conflict must not leak")
	assert.Equal(t, 3, calls, "one attempt plus two retries")
}

func TestConflictCoordinator_ZeroRetries(t *testing.T) {
	c := services.NewConflictCoordinator(0, 0)
	calls := 0

	err := c.Execute(context.Background(), "credit", func(ctx context.Context) error {
		calls++
		return domain.ErrVersionConflict
	})

	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.Equal(t, 1, calls)
}

func TestConflictCoordinator_DoesNotRetryOtherErrors(t *testing.T) {
	c := services.NewConflictCoordinator(5, 0)
	testCases := []error{
		domain.ErrInsufficientFunds,
		domain.ErrAccountNotFound,
		errors.New("connection reset"),
	}

	for _, want := range testCases {
		calls := 0
		err := c.Execute(context.Background(), "debit", func(ctx context.Context) error {
			calls++
			return want
		})
		assert.ErrorIs(t, err, want)
		assert.Equal(t, 1, calls, "%v must not be retried", want)
	}
}

func TestConflictCoordinator_StopsOnCancelledContext(t *testing.T) {
	c := services.NewConflictCoordinator(100, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := c.Execute(ctx, "credit", func(ctx context.Context) error {
		calls++
		cancel()
		return domain.ErrVersionConflict
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestConflictCoordinator_DeadlineDuringBackoff(t *testing.T) {
	c := services.NewConflictCoordinator(100, 500*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	calls := 0

	start := time.Now()
	err := c.Execute(ctx, "transfer", func(ctx context.Context) error {
		calls++
		return domain.ErrVersionConflict
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.GreaterOrEqual(t, calls, 1)
	assert.Less(t, time.Since(start), 400*time.Millisecond, "the wait must stop with the context")
}

func TestConflictCoordinator_NegativeSettingsClamp(t *testing.T) {
	c := services.NewConflictCoordinator(-3, -time.Second)
	calls := 0

	err := c.Execute(context.Background(), "credit", func(ctx context.Context) error {
		calls++
		return domain.ErrVersionConflict
	})

	assert.Equal(t, 0, c.MaxRetries())
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.Equal(t, 1, calls)
}
