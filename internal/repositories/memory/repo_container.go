package memory

import (
	portsrepo "github.com/mar0580/teste-sistema-bancario/internal/core/ports/repositories"
)

// NewRepositoryProvider wires one Store behind every ledger port.
func NewRepositoryProvider(s *Store) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo:     s,
		TransactionRepo: s,
		UnitOfWork:      s,
	}
}
