package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/crm-api/internal/application/dto"
	"github.com/jhoicas/crm-api/internal/application/importer"
	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/infrastructure/spreadsheet"
	"github.com/jhoicas/crm-api/pkg/logger"
)

// ImportOptions límites HTTP de la importación.
type ImportOptions struct {
	RateLimitPerMinute int
	MaxUploadMB        int
	MaxRows            int
	Timeout            time.Duration
}

// ImportHandler importación masiva por JSON o por hoja de cálculo.
type ImportHandler struct {
	engine *importer.Engine
	opts   ImportOptions
	log    *logger.Logger
}

// NewImportHandler construye el handler inyectando el motor.
func NewImportHandler(engine *importer.Engine, opts ImportOptions, log *logger.Logger) *ImportHandler {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	return &ImportHandler{engine: engine, opts: opts, log: log}
}

// ImportJSON godoc
// @Summary      Importación masiva (JSON)
// @Tags         import
// @Accept       json
// @Produce      json
// @Param        kind  path  string             true  "contacts | companies"
// @Param        body  body  dto.ImportRequest  true  "Filas a importar"
// @Success      200   {object}  dto.ImportResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/import/{kind} [post]
func (h *ImportHandler) ImportJSON(c *fiber.Ctx) error {
	kind, ok := entity.ParseKind(c.Params("kind"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "UNKNOWN_ENTITY", Message: "tipo de entidad desconocido"})
	}
	var in dto.ImportRequest
	dec := json.NewDecoder(bytes.NewReader(c.Body()))
	dec.UseNumber() // enteros grandes (RUC, DNI) sin pasar por float64
	if err := dec.Decode(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	return h.run(c, importer.ImportRequest{Kind: kind, Items: in.Items, BatchSize: in.BatchSize})
}

// ImportXLSX godoc
// @Summary      Importación masiva (xlsx)
// @Tags         import
// @Accept       multipart/form-data
// @Produce      json
// @Param        kind       path      string  true   "contacts | companies"
// @Param        file       formData  file    true   "Primera hoja; la fila 1 es la cabecera"
// @Param        batchSize  formData  int     false  "Tamaño de lote"
// @Success      200        {object}  dto.ImportResponse
// @Failure      400        {object}  dto.ErrorResponse
// @Router       /api/import/{kind}/xlsx [post]
func (h *ImportHandler) ImportXLSX(c *fiber.Ctx) error {
	return h.importFile(c, spreadsheet.ReadRows)
}

// ImportCSV godoc
// @Summary      Importación masiva (csv)
// @Description  UTF-8 o Windows-1252; separador coma o punto y coma.
// @Tags         import
// @Accept       multipart/form-data
// @Produce      json
// @Param        kind       path      string  true   "contacts | companies"
// @Param        file       formData  file    true   "La fila 1 es la cabecera"
// @Param        batchSize  formData  int     false  "Tamaño de lote"
// @Success      200        {object}  dto.ImportResponse
// @Failure      400        {object}  dto.ErrorResponse
// @Router       /api/import/{kind}/csv [post]
func (h *ImportHandler) ImportCSV(c *fiber.Ctx) error {
	return h.importFile(c, spreadsheet.ReadCSV)
}

type rowReader func(r io.Reader, maxRows int) ([]map[string]any, error)

func (h *ImportHandler) importFile(c *fiber.Ctx, read rowReader) error {
	kind, ok := entity.ParseKind(c.Params("kind"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "UNKNOWN_ENTITY", Message: "tipo de entidad desconocido"})
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_FILE", Message: "campo file requerido"})
	}
	if h.opts.MaxUploadMB > 0 && fh.Size > int64(h.opts.MaxUploadMB)<<20 {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(dto.ErrorResponse{Code: "FILE_TOO_LARGE", Message: "el archivo supera el tamaño permitido"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_FILE", Message: "no se pudo abrir el archivo"})
	}
	defer f.Close()

	items, err := read(f, h.opts.MaxRows)
	if err != nil {
		code := "INVALID_FILE"
		if errors.Is(err, spreadsheet.ErrNoRows) {
			code = "EMPTY_FILE"
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
	}
	batchSize := 0
	if v := c.FormValue("batchSize"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "batchSize debe ser un entero"})
		}
		batchSize = n
	}
	return h.run(c, importer.ImportRequest{Kind: kind, Items: items, BatchSize: batchSize})
}

func (h *ImportHandler) run(c *fiber.Ctx, req importer.ImportRequest) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.opts.Timeout)
	defer cancel()

	summary, err := h.engine.ImportBatch(ctx, req, GetPrincipal(c))
	if err != nil {
		if summary != nil {
			// Cancelado a mitad: lo ya confirmado es definitivo; el cliente reenvía el resto.
			h.log.Warn().Err(err).Int("processed", summary.Total).Int("requested", len(req.Items)).Msg("importación interrumpida")
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ImportResponse{Success: false, ImportSummary: summary})
		}
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewImportResponse(summary))
}
