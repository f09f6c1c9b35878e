package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/crm-api/internal/domain/query"
)

func TestWhere_VisibilidadYBusquedaAnidada(t *testing.T) {
	owner := int64(7)
	p := query.And(
		query.Eq("ownerId", &owner),
		query.Or(query.Contains("firstName", "50%_a"), query.Contains("email", "acme")),
		query.In("companyId", int64(1), int64(2)),
	)
	b := &sqlBuilder{}
	sql, err := b.where(p, contactsTable)
	require.NoError(t, err)

	assert.Equal(t,
		`("owner_id" = $1 AND ("first_name" ILIKE $2 OR "email" ILIKE $3) AND "company_id" IN ($4, $5))`,
		sql)
	assert.Equal(t, []any{int64(7), `%50\%\_a%`, "%acme%", int64(1), int64(2)}, b.args)
}

func TestWhere_CasosBorde(t *testing.T) {
	b := &sqlBuilder{}

	sql, err := b.where(nil, companiesTable)
	require.NoError(t, err)
	assert.Equal(t, "TRUE", sql)

	sql, err = b.where(query.In("ownerId"), companiesTable)
	require.NoError(t, err)
	assert.Equal(t, "FALSE", sql)

	sql, err = b.where(query.Eq("companyId", (*int64)(nil)), contactsTable)
	require.NoError(t, err)
	assert.Equal(t, `"company_id" IS NULL`, sql)

	sql, err = b.where(query.IsNull("domain"), companiesTable)
	require.NoError(t, err)
	assert.Equal(t, `"domain" IS NULL`, sql)

	assert.Empty(t, b.args)
}

func TestWhere_OwnerEnDealsEsElAsignado(t *testing.T) {
	b := &sqlBuilder{}
	sql, err := b.where(query.Eq("ownerId", int64(3)), dealsTable)
	require.NoError(t, err)
	assert.Equal(t, `"assigned_to_id" = $1`, sql)

	sql, err = b.where(query.Eq("ownerId", int64(3)), tasksTable)
	require.NoError(t, err)
	assert.Equal(t, `"assigned_to_id" = $2`, sql)
}

func TestWhere_CampoNoMapeadoEsError(t *testing.T) {
	b := &sqlBuilder{}
	_, err := b.where(query.Eq("password; DROP TABLE contacts", "x"), contactsTable)
	assert.Error(t, err)

	_, err = orderBy([]query.Sort{{Field: "nope"}}, contactsTable)
	assert.Error(t, err)
}

func TestListSQL(t *testing.T) {
	spec := query.QuerySpec{
		Where:  query.Eq("ownerId", int64(2)),
		Sort:   []query.Sort{{Field: "createdAt", Desc: true}},
		Limit:  20,
		Offset: 40,
	}
	countSQL, pageSQL, args, err := listSQL(spec, companiesTable)
	require.NoError(t, err)

	assert.Equal(t, `SELECT count(*) FROM "companies" WHERE "owner_id" = $1`, countSQL)
	assert.Equal(t,
		`SELECT "id", "name", "domain", "ruc", "industry", "phone", "address", "employees", "lifecycle_stage", "owner_id", "created_at", "updated_at" FROM "companies" WHERE "owner_id" = $1 ORDER BY "created_at" DESC NULLS LAST, "id" ASC LIMIT 20 OFFSET 40`,
		pageSQL)
	assert.Equal(t, []any{int64(2)}, args)
}

func TestListSQL_OffsetNegativoEsError(t *testing.T) {
	_, _, _, err := listSQL(query.QuerySpec{Limit: 20, Offset: -20}, companiesTable)
	assert.Error(t, err)

	_, _, _, err = listSQL(query.QuerySpec{Limit: -1}, companiesTable)
	assert.Error(t, err)
}
