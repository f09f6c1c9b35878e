package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/domain/query"
	"github.com/jhoicas/crm-api/internal/domain/repository"
)

var (
	_ repository.DealRepository = (*DealRepo)(nil)
	_ repository.TaskRepository = (*TaskRepo)(nil)
)

// DealRepo lectura de oportunidades. amount es NUMERIC (codec shopspring registrado en el pool).
type DealRepo struct {
	q Querier
}

func NewDealRepository(q Querier) *DealRepo {
	return &DealRepo{q: q}
}

func (r *DealRepo) List(ctx context.Context, spec query.QuerySpec) ([]*entity.Deal, int, error) {
	return listPage(ctx, r.q, spec, dealsTable, func(row pgx.Row) (*entity.Deal, error) {
		var d entity.Deal
		err := row.Scan(&d.ID, &d.Title, &d.Amount, &d.Currency, &d.Stage, &d.CompanyID, &d.ContactID,
			&d.AssignedToID, &d.ExpectedCloseDate, &d.CreatedAt, &d.UpdatedAt)
		if err != nil {
			return nil, err
		}
		return &d, nil
	})
}

// TaskRepo lectura de tareas.
type TaskRepo struct {
	q Querier
}

func NewTaskRepository(q Querier) *TaskRepo {
	return &TaskRepo{q: q}
}

func (r *TaskRepo) List(ctx context.Context, spec query.QuerySpec) ([]*entity.Task, int, error) {
	return listPage(ctx, r.q, spec, tasksTable, func(row pgx.Row) (*entity.Task, error) {
		var t entity.Task
		err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.DueDate, &t.DealID,
			&t.ContactID, &t.AssignedToID, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, err
		}
		return &t, nil
	})
}
