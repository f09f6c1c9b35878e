// Package policy concentra las reglas de autorización por rol. Son funciones puras:
// ante datos faltantes devuelven false o la restricción más estricta, nunca más acceso.
package policy

import "github.com/jhoicas/crm-api/internal/domain/query"

// Role rol de un usuario del CRM.
type Role string

const (
	RoleUser          Role = "user"
	RoleManager       Role = "manager"
	RoleJefeComercial Role = "jefe_comercial"
	RoleAdmin         Role = "admin"
)

// FieldOwnerID campo lógico del propietario; cada entidad lo mapea a su columna
// (owner_id en contactos y empresas, assigned_to_id en deals y tareas).
const FieldOwnerID = "ownerId"

// Principal actor autenticado sobre el que se evalúan las reglas. UserID 0 = ausente.
type Principal struct {
	UserID int64
	Role   Role
}

var ranks = map[Role]int{
	RoleUser:          1,
	RoleManager:       2,
	RoleJefeComercial: 3,
	RoleAdmin:         4,
}

// ParseRole valida un rol recibido como texto (p. ej. desde el token).
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := ranks[r]
	return r, ok
}

// Rank nivel jerárquico del rol; 0 para roles desconocidos.
func Rank(r Role) int {
	return ranks[r]
}

// AtLeast indica si role alcanza el nivel de required. Se usa para proteger rutas.
func AtLeast(role, required Role) bool {
	return Rank(role) >= Rank(required)
}

// VisibilityFilter devuelve el predicado de lectura del rol. admin y jefe_comercial
// ven todo (nil); manager, user y cualquier rol desconocido solo ven lo propio.
// No se deriva de Rank: jefe_comercial ve todo sin tener permisos de admin.
func VisibilityFilter(role Role, userID int64) *query.Predicate {
	switch role {
	case RoleAdmin, RoleJefeComercial:
		return nil
	}
	return query.Eq(FieldOwnerID, userID)
}

// CanMutate indica si el usuario puede modificar un registro del propietario indicado.
func CanMutate(role Role, userID int64, ownerID *int64) bool {
	if userID <= 0 {
		return false
	}
	if role == RoleAdmin {
		return true
	}
	return ownerID != nil && *ownerID == userID
}

// CanDelete comparte la regla de CanMutate.
func CanDelete(role Role, userID int64, ownerID *int64) bool {
	return CanMutate(role, userID, ownerID)
}

// CanRead aplica VisibilityFilter a un único registro.
func CanRead(role Role, userID int64, ownerID *int64) bool {
	return VisibilityFilter(role, userID).Match(func(string) any { return ownerID })
}
