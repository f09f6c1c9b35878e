package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/crm-api/internal/domain"
	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/domain/query"
	"github.com/jhoicas/crm-api/internal/domain/repository"
)

var _ repository.ContactRepository = (*ContactRepo)(nil)

// ContactRepo implementación de ContactRepository (usable con pool o tx).
type ContactRepo struct {
	q Querier
}

// NewContactRepository construye el adaptador. Pasar pool o tx (Querier).
func NewContactRepository(q Querier) *ContactRepo {
	return &ContactRepo{q: q}
}

// Create persiste un nuevo contacto y asigna su ID.
func (r *ContactRepo) Create(ctx context.Context, c *entity.Contact) error {
	const q = `
		INSERT INTO contacts (first_name, last_name, email, phone, dni, cee, position, address,
		                      company_id, lifecycle_stage, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`
	err := r.q.QueryRow(ctx, q,
		c.FirstName, c.LastName, c.Email, c.Phone, c.DNI, c.CEE, c.Position, c.Address,
		c.CompanyID, c.LifecycleStage, c.OwnerID, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

// GetByID obtiene un contacto por ID.
func (r *ContactRepo) GetByID(ctx context.Context, id int64) (*entity.Contact, error) {
	q := "SELECT " + contactsTable.selectList() + " FROM contacts WHERE id = $1"
	c, err := scanContact(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}

// Update actualiza un contacto.
func (r *ContactRepo) Update(ctx context.Context, c *entity.Contact) error {
	const q = `
		UPDATE contacts SET first_name = $2, last_name = $3, email = $4, phone = $5, dni = $6,
		       cee = $7, position = $8, address = $9, company_id = $10, lifecycle_stage = $11,
		       owner_id = $12, updated_at = $13
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, q,
		c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.DNI,
		c.CEE, c.Position, c.Address, c.CompanyID, c.LifecycleStage,
		c.OwnerID, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update contact: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina un contacto por ID.
func (r *ContactRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	return nil
}

// List devuelve la página pedida y el total filtrado.
func (r *ContactRepo) List(ctx context.Context, spec query.QuerySpec) ([]*entity.Contact, int, error) {
	return listPage(ctx, r.q, spec, contactsTable, scanContact)
}

func scanContact(row pgx.Row) (*entity.Contact, error) {
	var c entity.Contact
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.DNI, &c.CEE,
		&c.Position, &c.Address, &c.CompanyID, &c.LifecycleStage, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
