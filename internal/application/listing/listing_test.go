package listing_test

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/crm-api/internal/application/listing"
	"github.com/jhoicas/crm-api/internal/domain"
	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/domain/policy"
	"github.com/jhoicas/crm-api/internal/domain/query"
	"github.com/jhoicas/crm-api/internal/infrastructure/memstore"
)

const (
	adminID   int64 = 1
	managerID int64 = 2
	userID    int64 = 3
)

func contactsDescriptor(t *testing.T) listing.Descriptor {
	t.Helper()
	d, err := listing.DescriptorFor(entity.KindContact)
	require.NoError(t, err)
	return d
}

// ──────────────────────────────────────────────────────────────────────────────
// ComposeQuery
// ──────────────────────────────────────────────────────────────────────────────

func TestComposeQuery_BusquedaAnidadaBajoVisibilidad(t *testing.T) {
	spec := listing.ComposeQuery(policy.RoleManager, managerID, listing.ListParams{
		Search:  "acme",
		Filters: map[string]string{"lifecycleStage": "lead", "companyId": "4,5"},
	}, contactsDescriptor(t))

	assert.Equal(t,
		`(ownerId = 2 AND (firstName ~ "acme" OR lastName ~ "acme" OR email ~ "acme") AND (companyId IN [4 5] AND lifecycleStage = lead))`,
		spec.Where.String())
}

func TestComposeQuery_SinRestriccionParaAdminYJefeComercial(t *testing.T) {
	for _, role := range []policy.Role{policy.RoleAdmin, policy.RoleJefeComercial} {
		spec := listing.ComposeQuery(role, adminID, listing.ListParams{}, contactsDescriptor(t))
		assert.Nil(t, spec.Where, string(role))
	}
}

func TestComposeQuery_RolDesconocidoFallaCerrado(t *testing.T) {
	spec := listing.ComposeQuery(policy.Role("superuser"), userID, listing.ListParams{}, contactsDescriptor(t))
	assert.Equal(t, "ownerId = 3", spec.Where.String())
}

func TestComposeQuery_OwnersSoloParaRolesAltos(t *testing.T) {
	params := listing.ListParams{Owners: []int64{adminID, managerID}}
	d := contactsDescriptor(t)

	assert.Equal(t, "ownerId = 3", listing.ComposeQuery(policy.RoleUser, userID, params, d).Where.String())
	assert.Equal(t, "ownerId = 2", listing.ComposeQuery(policy.RoleManager, managerID, params, d).Where.String())
	assert.Equal(t, "ownerId IN [1 2]", listing.ComposeQuery(policy.RoleJefeComercial, 9, params, d).Where.String())
	assert.Equal(t, "ownerId IN [1 2]", listing.ComposeQuery(policy.RoleAdmin, adminID, params, d).Where.String())
}

func TestComposeQuery_Paginacion(t *testing.T) {
	d := contactsDescriptor(t)
	cases := []struct {
		page, limit             int
		wantPage, wantLimit, wo int
	}{
		{0, 0, 1, listing.DefaultLimit, 0},
		{-3, 500, 1, listing.MaxLimit, 0},
		{3, 10, 3, 10, 20},
		{2, -1, 2, 1, 1},
		{1, 101, 1, listing.MaxLimit, 0},
		{math.MaxInt, 100, math.MaxInt / 100, 100, (math.MaxInt/100 - 1) * 100},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("page=%d,limit=%d", tc.page, tc.limit), func(t *testing.T) {
			spec := listing.ComposeQuery(policy.RoleAdmin, adminID, listing.ListParams{Page: tc.page, Limit: tc.limit}, d)
			assert.Equal(t, tc.wantPage, spec.Page)
			assert.Equal(t, tc.wantLimit, spec.Limit)
			assert.Equal(t, tc.wo, spec.Offset)
		})
	}
}

func TestComposeQuery_PaginaEnormeNoDesbordaOffset(t *testing.T) {
	d := contactsDescriptor(t)
	for _, limit := range []int{0, 1, 7, listing.MaxLimit} {
		spec := listing.ComposeQuery(policy.RoleAdmin, adminID, listing.ListParams{Page: 1 << 62, Limit: limit}, d)
		assert.GreaterOrEqual(t, spec.Offset, 0, "limit=%d", limit)
		assert.GreaterOrEqual(t, spec.Page, 1)
	}
}

func TestComposeQuery_Orden(t *testing.T) {
	d := contactsDescriptor(t)
	spec := listing.ComposeQuery(policy.RoleAdmin, adminID, listing.ListParams{}, d)
	assert.Equal(t, []query.Sort{{Field: "createdAt", Desc: true}}, spec.Sort)

	spec = listing.ComposeQuery(policy.RoleAdmin, adminID, listing.ListParams{Sort: "lastName", Order: "ASC"}, d)
	assert.Equal(t, []query.Sort{{Field: "lastName"}}, spec.Sort)

	spec = listing.ComposeQuery(policy.RoleAdmin, adminID, listing.ListParams{Sort: "dni"}, d)
	assert.Equal(t, []query.Sort{{Field: "createdAt", Desc: true}}, spec.Sort, "columnas no ordenables usan el orden por defecto")
}

func TestListParams_Validate(t *testing.T) {
	d := contactsDescriptor(t)
	assert.NoError(t, listing.ListParams{Filters: map[string]string{"companyId": "null"}}.Validate(d))
	assert.NoError(t, listing.ListParams{Filters: map[string]string{"companyId": " "}}.Validate(d))
	assert.ErrorIs(t, listing.ListParams{Filters: map[string]string{"ownerId": "1"}}.Validate(d), domain.ErrInvalidInput)
	assert.ErrorIs(t, listing.ListParams{Filters: map[string]string{"companyId": "acme"}}.Validate(d), domain.ErrInvalidInput)
	assert.ErrorIs(t, listing.ListParams{Sort: "dni"}.Validate(d), domain.ErrInvalidInput)
	assert.ErrorIs(t, listing.ListParams{Order: "random"}.Validate(d), domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// ListEntities
// ──────────────────────────────────────────────────────────────────────────────

func seed(t *testing.T) *memstore.Store {
	t.Helper()
	store := memstore.New()
	ctx := context.Background()
	owners := []int64{adminID, managerID, userID, userID, managerID}
	for i, owner := range owners {
		owner := owner
		require.NoError(t, store.Contacts().Create(ctx, &entity.Contact{
			FirstName: "Contacto",
			LastName:  fmt.Sprint("N", i),
			Email:     fmt.Sprintf("c%d@acme.pe", i),
			DNI:       ptr(fmt.Sprintf("%08d", i)),
			OwnerID:   &owner,
		}))
	}
	store.SeedDeal(entity.Deal{Title: "Licencias", Amount: decimal.RequireFromString("1500.5"), Currency: "PEN", AssignedToID: userID})
	store.SeedDeal(entity.Deal{Title: "Soporte", Amount: decimal.NewFromInt(300), Currency: "USD", AssignedToID: managerID})
	store.SeedTask(entity.Task{Title: "Llamar", Status: "pendiente", AssignedToID: userID})
	return store
}

func ptr[T any](v T) *T { return &v }

func newUseCase(store *memstore.Store) *listing.ListUseCase {
	return listing.NewListUseCase(listing.Repositories{
		Contacts:  store.Contacts(),
		Companies: store.Companies(),
		Deals:     store.Deals(),
		Tasks:     store.Tasks(),
	})
}

// User y manager nunca ven filas de otro propietario.
func TestListEntities_VisibilidadMonotona(t *testing.T) {
	uc := newUseCase(seed(t))
	ctx := context.Background()

	for _, p := range []policy.Principal{
		{UserID: userID, Role: policy.RoleUser},
		{UserID: managerID, Role: policy.RoleManager},
	} {
		res, err := uc.ListEntities(ctx, entity.KindContact, listing.ListParams{Limit: 100}, p)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Total)
		for _, item := range res.Items {
			assert.Equal(t, p.UserID, item["ownerId"])
		}
	}

	for _, role := range []policy.Role{policy.RoleJefeComercial, policy.RoleAdmin} {
		res, err := uc.ListEntities(ctx, entity.KindContact, listing.ListParams{}, policy.Principal{UserID: 99, Role: role})
		require.NoError(t, err)
		assert.Equal(t, 5, res.Total)
	}
}

// Un user que pide owners=[admin] solo recibe sus propias filas.
func TestListEntities_UserNoPuedeForzarOwners(t *testing.T) {
	uc := newUseCase(seed(t))
	res, err := uc.ListEntities(context.Background(), entity.KindContact,
		listing.ListParams{Owners: []int64{adminID}},
		policy.Principal{UserID: userID, Role: policy.RoleUser})
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	for _, item := range res.Items {
		assert.Equal(t, userID, item["ownerId"])
	}
}

func TestListEntities_OwnersParaJefeComercial(t *testing.T) {
	uc := newUseCase(seed(t))
	res, err := uc.ListEntities(context.Background(), entity.KindContact,
		listing.ListParams{Owners: []int64{adminID}},
		policy.Principal{UserID: 50, Role: policy.RoleJefeComercial})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, adminID, res.Items[0]["ownerId"])
}

func TestListEntities_ProyeccionDeListadoYPaginas(t *testing.T) {
	uc := newUseCase(seed(t))
	res, err := uc.ListEntities(context.Background(), entity.KindContact,
		listing.ListParams{Limit: 2, Page: 2, Sort: "lastName", Order: "asc"},
		policy.Principal{UserID: adminID, Role: policy.RoleAdmin})
	require.NoError(t, err)

	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 3, res.TotalPages)
	assert.Equal(t, 2, res.Page)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "N2", res.Items[0]["lastName"])
	for _, item := range res.Items {
		assert.NotContains(t, item, "email")
		assert.NotContains(t, item, "dni")
	}
}

func TestListEntities_PaginaFueraDeRangoDevuelveVacio(t *testing.T) {
	uc := newUseCase(seed(t))
	admin := policy.Principal{UserID: adminID, Role: policy.RoleAdmin}

	for _, limit := range []int{0, 1, listing.MaxLimit} {
		res, err := uc.ListEntities(context.Background(), entity.KindContact,
			listing.ListParams{Page: math.MaxInt, Limit: limit}, admin)
		require.NoError(t, err)
		assert.Empty(t, res.Items)
		assert.Equal(t, 5, res.Total)
	}
}

func TestListEntities_LimiteNegativoSeAcotaAUno(t *testing.T) {
	uc := newUseCase(seed(t))
	res, err := uc.ListEntities(context.Background(), entity.KindContact,
		listing.ListParams{Limit: -5}, policy.Principal{UserID: adminID, Role: policy.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Limit)
	assert.Equal(t, 5, res.TotalPages)
	require.Len(t, res.Items, 1)
}

func TestListEntities_BusquedaNoAmpliaVisibilidad(t *testing.T) {
	uc := newUseCase(seed(t))
	res, err := uc.ListEntities(context.Background(), entity.KindContact,
		listing.ListParams{Search: "acme.pe"},
		policy.Principal{UserID: userID, Role: policy.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
}

func TestListEntities_DealsYTareasPorAsignado(t *testing.T) {
	uc := newUseCase(seed(t))
	ctx := context.Background()
	user := policy.Principal{UserID: userID, Role: policy.RoleUser}

	deals, err := uc.ListEntities(ctx, entity.KindDeal, listing.ListParams{}, user)
	require.NoError(t, err)
	require.Len(t, deals.Items, 1)
	assert.Equal(t, "Licencias", deals.Items[0]["title"])
	assert.Equal(t, "1500.50", deals.Items[0]["amount"])

	deals, err = uc.ListEntities(ctx, entity.KindDeal,
		listing.ListParams{Filters: map[string]string{"currency": "USD"}},
		policy.Principal{UserID: adminID, Role: policy.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, deals.Items, 1)
	assert.Equal(t, "Soporte", deals.Items[0]["title"])

	tasks, err := uc.ListEntities(ctx, entity.KindTask, listing.ListParams{}, policy.Principal{UserID: managerID, Role: policy.RoleManager})
	require.NoError(t, err)
	assert.Zero(t, tasks.Total)
	assert.Empty(t, tasks.Items)
	assert.Zero(t, tasks.TotalPages)
}

func TestListEntities_ErroresDeEntrada(t *testing.T) {
	uc := newUseCase(seed(t))
	admin := policy.Principal{UserID: adminID, Role: policy.RoleAdmin}

	_, err := uc.ListEntities(context.Background(), entity.Kind("invoice"), listing.ListParams{}, admin)
	assert.ErrorIs(t, err, domain.ErrUnknownEntity)

	_, err = uc.ListEntities(context.Background(), entity.KindContact,
		listing.ListParams{Filters: map[string]string{"dni": "1"}}, admin)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
