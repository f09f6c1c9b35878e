package policy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/crm-api/internal/domain/policy"
	"github.com/jhoicas/crm-api/internal/domain/query"
)

func ptr(v int64) *int64 { return &v }

var allRoles = []policy.Role{policy.RoleUser, policy.RoleManager, policy.RoleJefeComercial, policy.RoleAdmin}

func TestRank(t *testing.T) {
	assert.Equal(t, 1, policy.Rank(policy.RoleUser))
	assert.Equal(t, 2, policy.Rank(policy.RoleManager))
	assert.Equal(t, 3, policy.Rank(policy.RoleJefeComercial))
	assert.Equal(t, 4, policy.Rank(policy.RoleAdmin))
	assert.Equal(t, 0, policy.Rank("superusuario"))
}

func TestAtLeast(t *testing.T) {
	assert.True(t, policy.AtLeast(policy.RoleAdmin, policy.RoleJefeComercial))
	assert.True(t, policy.AtLeast(policy.RoleJefeComercial, policy.RoleJefeComercial))
	assert.False(t, policy.AtLeast(policy.RoleManager, policy.RoleJefeComercial))
	assert.False(t, policy.AtLeast("", policy.RoleUser))
}

func TestVisibilityFilter(t *testing.T) {
	assert.Nil(t, policy.VisibilityFilter(policy.RoleAdmin, 1))
	assert.Nil(t, policy.VisibilityFilter(policy.RoleJefeComercial, 1))

	for _, r := range []policy.Role{policy.RoleUser, policy.RoleManager, "desconocido"} {
		p := policy.VisibilityFilter(r, 42)
		if assert.NotNil(t, p, "rol %s debe quedar restringido", r) {
			assert.Equal(t, query.OpEq, p.Op)
			assert.Equal(t, policy.FieldOwnerID, p.Field)
			assert.Equal(t, int64(42), p.Value)
		}
	}
}

// jefe_comercial ve todo pero no modifica lo ajeno: visibilidad y rango son reglas distintas.
func TestJefeComercial_VeTodoPeroNoModificaLoAjeno(t *testing.T) {
	assert.True(t, policy.CanRead(policy.RoleJefeComercial, 3, ptr(99)))
	assert.False(t, policy.CanMutate(policy.RoleJefeComercial, 3, ptr(99)))
	assert.True(t, policy.CanMutate(policy.RoleJefeComercial, 3, ptr(3)))
}

func TestCanMutate(t *testing.T) {
	assert.True(t, policy.CanMutate(policy.RoleAdmin, 1, ptr(2)))
	assert.True(t, policy.CanMutate(policy.RoleAdmin, 1, nil))
	assert.True(t, policy.CanMutate(policy.RoleUser, 5, ptr(5)))
	assert.False(t, policy.CanMutate(policy.RoleUser, 5, ptr(6)))
	assert.False(t, policy.CanMutate(policy.RoleManager, 5, nil))
}

// Sin userID nunca se concede acceso, sea cual sea el rol.
func TestCanMutateYCanDelete_SinUsuario(t *testing.T) {
	for _, r := range allRoles {
		assert.False(t, policy.CanMutate(r, 0, ptr(0)), "rol %s", r)
		assert.False(t, policy.CanDelete(r, 0, ptr(7)), "rol %s", r)
		assert.False(t, policy.CanDelete(r, 0, nil), "rol %s", r)
	}
}

func TestCanRead_RegistroSinPropietario(t *testing.T) {
	assert.False(t, policy.CanRead(policy.RoleUser, 5, nil))
	assert.True(t, policy.CanRead(policy.RoleAdmin, 5, nil))
}

func TestParseRole(t *testing.T) {
	r, ok := policy.ParseRole("jefe_comercial")
	assert.True(t, ok)
	assert.Equal(t, policy.RoleJefeComercial, r)

	_, ok = policy.ParseRole("root")
	assert.False(t, ok)
}
