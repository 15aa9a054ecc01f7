package services

import (
	portsrepo "github.com/mar0580/teste-sistema-bancario/internal/core/ports/repositories"
	portssvc "github.com/mar0580/teste-sistema-bancario/internal/core/ports/services"
	"github.com/mar0580/teste-sistema-bancario/internal/platform/config"
	"github.com/mar0580/teste-sistema-bancario/internal/platform/locker"
)

// NewServiceContainer creates a new service container with properly initialized dependencies.
// lk is only used by the pessimistic strategy; nil selects the in-process lock table.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, lk locker.Locker) *portssvc.ServiceContainer {
	options := []LedgerOption{
		WithConflictCoordinator(NewConflictCoordinator(cfg.MaxRetries, cfg.RetryBaseDelay)),
	}
	if LockStrategy(cfg.LockStrategy) == LockPessimistic {
		options = append(options, WithPessimisticLocking(lk))
	}

	return &portssvc.ServiceContainer{
		Ledger: NewLedgerService(repos, options...),
	}
}
