package repository

import "context"

// Session agrupa los repositorios atados a una misma transacción. Se pasa de forma
// explícita a quien necesite leer lo escrito (aún sin confirmar) en esa transacción.
type Session interface {
	Companies() CompanyRepository
	Contacts() ContactRepository
	Lookup() UniqueLookup
	// Savepoint ejecuta fn en un punto de guardado: si fn falla solo se deshace su trabajo
	// y la transacción exterior sigue utilizable.
	Savepoint(ctx context.Context, fn func(Session) error) error
}

// TxRunner ejecuta fn dentro de una transacción: Commit si fn devuelve nil, Rollback si no.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(Session) error) error
}
