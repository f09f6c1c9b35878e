package repository

import (
	"context"

	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/domain/query"
)

// DealRepository puerto de lectura de oportunidades.
type DealRepository interface {
	List(ctx context.Context, spec query.QuerySpec) ([]*entity.Deal, int, error)
}

// TaskRepository puerto de lectura de tareas.
type TaskRepository interface {
	List(ctx context.Context, spec query.QuerySpec) ([]*entity.Task, int, error)
}
