package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/crm-api/internal/domain/query"
)

// listPage ejecuta conteo y página de spec sobre t, escaneando cada fila con scan.
func listPage[T any](
	ctx context.Context,
	q Querier,
	spec query.QuerySpec,
	t table,
	scan func(pgx.Row) (*T, error),
) ([]*T, int, error) {
	countSQL, pageSQL, args, err := listSQL(spec, t)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := q.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", t.name, err)
	}
	if total == 0 || spec.Offset >= total {
		return []*T{}, total, nil
	}

	rows, err := q.Query(ctx, pageSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", t.name, err)
	}
	defer rows.Close()

	list := make([]*T, 0, min(total, max(spec.Limit, 1)))
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan %s: %w", t.name, err)
		}
		list = append(list, item)
	}
	return list, total, rows.Err()
}
