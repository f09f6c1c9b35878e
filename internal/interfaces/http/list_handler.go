package http

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/crm-api/internal/application/dto"
	"github.com/jhoicas/crm-api/internal/application/listing"
	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/pkg/logger"
)

// Parámetros de query que no son filtros de columna.
var reservedParams = map[string]bool{
	"search": true, "sort": true, "order": true, "page": true, "limit": true, "owners": true,
}

// ListHandler listados de cualquier tipo de entidad.
type ListHandler struct {
	uc  *listing.ListUseCase
	log *logger.Logger
}

func NewListHandler(uc *listing.ListUseCase, log *logger.Logger) *ListHandler {
	return &ListHandler{uc: uc, log: log}
}

// List godoc
// @Summary      Listar entidades
// @Tags         list
// @Produce      json
// @Param        kind    path   string  true   "contacts | companies | deals | tasks"
// @Param        search  query  string  false  "Texto libre"
// @Param        sort    query  string  false  "Campo de orden"
// @Param        order   query  string  false  "asc | desc"
// @Param        page    query  int     false  "Página"  default(1)
// @Param        limit   query  int     false  "Límite, acotado a [1, 100]"  default(20)
// @Param        owners  query  string  false  "IDs de propietario separados por coma (jefe_comercial y admin)"
// @Success      200     {object}  dto.ListResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Router       /api/{kind} [get]
func (h *ListHandler) List(c *fiber.Ctx) error {
	kind, ok := entity.ParseKind(c.Params("kind"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "UNKNOWN_ENTITY", Message: "tipo de entidad desconocido"})
	}
	owners, err := parseIDList(c.Query("owners"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "owners debe ser una lista de enteros"})
	}
	limit := listing.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "limit debe ser un entero"})
		}
		limit = listing.ClampLimit(n)
	}
	params := listing.ListParams{
		Search:  c.Query("search"),
		Sort:    c.Query("sort"),
		Order:   c.Query("order"),
		Page:    c.QueryInt("page", 1),
		Limit:   limit,
		Owners:  owners,
		Filters: map[string]string{},
	}
	for k, v := range c.Queries() {
		if !reservedParams[k] {
			params.Filters[k] = v
		}
	}

	out, err := h.uc.ListEntities(c.UserContext(), kind, params, GetPrincipal(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

func parseIDList(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
