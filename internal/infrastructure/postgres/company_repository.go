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

// Asegura que CompanyRepo implementa repository.CompanyRepository.
var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo implementación del puerto CompanyRepository sobre PostgreSQL (pool o tx).
type CompanyRepo struct {
	q Querier
}

// NewCompanyRepository construye el adaptador de persistencia para empresas.
func NewCompanyRepository(q Querier) *CompanyRepo {
	return &CompanyRepo{q: q}
}

// Create persiste una nueva empresa y asigna su ID.
func (r *CompanyRepo) Create(ctx context.Context, c *entity.Company) error {
	const q = `
		INSERT INTO companies (name, domain, ruc, industry, phone, address, employees,
		                       lifecycle_stage, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	err := r.q.QueryRow(ctx, q,
		c.Name, c.Domain, c.RUC, c.Industry, c.Phone, c.Address, c.Employees,
		c.LifecycleStage, c.OwnerID, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

// GetByID obtiene una empresa por ID. (nil, nil) si no existe.
func (r *CompanyRepo) GetByID(ctx context.Context, id int64) (*entity.Company, error) {
	q := "SELECT " + companiesTable.selectList() + " FROM companies WHERE id = $1"
	c, err := scanCompany(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return c, nil
}

// Update actualiza una empresa existente.
func (r *CompanyRepo) Update(ctx context.Context, c *entity.Company) error {
	const q = `
		UPDATE companies SET name = $2, domain = $3, ruc = $4, industry = $5, phone = $6,
		       address = $7, employees = $8, lifecycle_stage = $9, owner_id = $10, updated_at = $11
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, q,
		c.ID, c.Name, c.Domain, c.RUC, c.Industry, c.Phone,
		c.Address, c.Employees, c.LifecycleStage, c.OwnerID, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update company: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina una empresa por ID.
func (r *CompanyRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete company: %w", err)
	}
	return nil
}

// List devuelve la página pedida y el total filtrado.
func (r *CompanyRepo) List(ctx context.Context, spec query.QuerySpec) ([]*entity.Company, int, error) {
	return listPage(ctx, r.q, spec, companiesTable, scanCompany)
}

func scanCompany(row pgx.Row) (*entity.Company, error) {
	var c entity.Company
	err := row.Scan(&c.ID, &c.Name, &c.Domain, &c.RUC, &c.Industry, &c.Phone, &c.Address,
		&c.Employees, &c.LifecycleStage, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
