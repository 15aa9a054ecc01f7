package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
)

const (
	backoffMultiplier  = 2
	backoffJitter      = 1.0
	maxBackoffInterval = time.Second
)

// ConflictCoordinator re-runs a ledger operation when it loses a
// compare-and-swap race. Only domain.ErrVersionConflict is retried; every
// other outcome, success included, is returned as is.
type ConflictCoordinator struct {
	BaseService
	maxRetries int
	baseDelay  time.Duration
}

// NewConflictCoordinator builds a coordinator that allows maxRetries retries
// after the first attempt, waiting a jittered exponential delay between them.
func NewConflictCoordinator(maxRetries int, baseDelay time.Duration) *ConflictCoordinator {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay < 0 {
		baseDelay = 0
	}
	return &ConflictCoordinator{
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// MaxRetries returns the retry budget.
func (c *ConflictCoordinator) MaxRetries() int {
	return c.maxRetries
}

// policy builds a fresh backoff for one Execute call. Backoffs are stateful.
func (c *ConflictCoordinator) policy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.baseDelay
	exp.RandomizationFactor = backoffJitter
	exp.Multiplier = backoffMultiplier
	exp.MaxInterval = maxBackoffInterval
	exp.MaxElapsedTime = 0 // bounded by the retry count, not by time

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.maxRetries)), ctx)
}

// Execute runs fn until it stops reporting a version conflict, the budget is
// spent, or ctx is done. Exhaustion yields domain.ErrConcurrencyConflict.
func (c *ConflictCoordinator) Execute(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	attempts := 0
	err := backoff.RetryNotify(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempts++
		err := fn(ctx)
		if err != nil && !errors.Is(err, domain.ErrVersionConflict) {
			return backoff.Permanent(err)
		}
		return err
	}, c.policy(ctx), func(err error, wait time.Duration) {
		c.LogDebug(ctx, "Version conflict, retrying",
			slog.String("operation", operation),
			slog.Int("attempt", attempts),
			slog.Duration("wait", wait))
	})

	if err == nil || !errors.Is(err, domain.ErrVersionConflict) {
		return err
	}

	c.LogWarn(ctx, err, "Conflict retry budget exhausted",
		slog.String("operation", operation),
		slog.Int("attempts", attempts))
	return fmt.Errorf("%w: %s gave up after %d attempts", domain.ErrConcurrencyConflict, operation, attempts)
}
