package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/crm-api/internal/domain/repository"
)

var (
	_ repository.TxRunner = (*TxRunner)(nil)
	_ repository.Session  = (*txSession)(nil)
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunInTx inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(repository.Session) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&txSession{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txSession repos atados a una tx (o a un savepoint de ella).
type txSession struct {
	tx pgx.Tx
}

func (s *txSession) Companies() repository.CompanyRepository { return NewCompanyRepository(s.tx) }
func (s *txSession) Contacts() repository.ContactRepository  { return NewContactRepository(s.tx) }
func (s *txSession) Lookup() repository.UniqueLookup         { return NewUniqueLookup(s.tx) }

// Savepoint: Begin sobre una pgx.Tx crea un SAVEPOINT; Rollback vuelve a él y Commit lo libera.
func (s *txSession) Savepoint(ctx context.Context, fn func(repository.Session) error) error {
	sp, err := s.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	defer func() { _ = sp.Rollback(ctx) }()

	if err := fn(&txSession{tx: sp}); err != nil {
		return err
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}
