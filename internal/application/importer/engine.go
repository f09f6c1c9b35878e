package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/crm-api/internal/application/dedup"
	"github.com/jhoicas/crm-api/internal/application/projection"
	"github.com/jhoicas/crm-api/internal/domain"
	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/domain/policy"
	"github.com/jhoicas/crm-api/internal/domain/repository"
	"github.com/jhoicas/crm-api/pkg/logger"
)

// rowFailure rechazo de una fila. Devolverlo dentro de un savepoint deshace solo esa fila.
type rowFailure struct {
	result string
	msg    string
}

func (f *rowFailure) Error() string { return f.msg }

func reject(result, format string, args ...any) *rowFailure {
	return &rowFailure{result: result, msg: fmt.Sprintf(format, args...)}
}

// Engine motor de importación masiva: valida, resuelve referencias, detecta duplicados y
// persiste en lotes transaccionales de tamaño fijo, con un resultado por fila.
type Engine struct {
	tx       repository.TxRunner
	audit    repository.AuditRepository
	resolver *dedup.EntityResolver
	metrics  Metrics
	log      *logger.Logger
	cfg      Config
	now      func() time.Time
}

// NewEngine construye el motor. metrics puede ser nil.
func NewEngine(
	tx repository.TxRunner,
	audit repository.AuditRepository,
	metrics Metrics,
	log *logger.Logger,
	cfg Config,
) *Engine {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		tx:       tx,
		audit:    audit,
		resolver: dedup.NewEntityResolver(),
		metrics:  metrics,
		log:      log,
		cfg:      cfg.normalized(),
		now:      time.Now,
	}
}

// MaxBatchSize tamaño máximo de lote aceptado.
func (e *Engine) MaxBatchSize() int { return e.cfg.MaxBatchSize }

func (e *Engine) batchSize(req ImportRequest) (int, error) {
	switch req.Kind {
	case entity.KindContact, entity.KindCompany:
	default:
		return 0, fmt.Errorf("importar %q: %w", req.Kind, domain.ErrUnknownEntity)
	}
	if len(req.Items) == 0 {
		return 0, domain.ErrEmptyImport
	}
	if req.BatchSize > e.cfg.MaxBatchSize {
		return 0, fmt.Errorf("%w (%d > %d)", domain.ErrBatchTooLarge, req.BatchSize, e.cfg.MaxBatchSize)
	}
	if req.BatchSize <= 0 {
		return e.cfg.DefaultBatchSize, nil
	}
	return req.BatchSize, nil
}

// ImportBatch importa req.Items en lotes consecutivos de BatchSize, cada uno en su propia
// transacción y en orden. Los fallos de fila quedan en el resumen y nunca se devuelven como
// error. Un error de almacenamiento revierte solo el lote en curso: sus filas se marcan como
// fallidas y se continúa con el siguiente. Si el contexto se cancela se devuelve el resumen
// parcial de las filas ya confirmadas junto con el error del contexto.
func (e *Engine) ImportBatch(ctx context.Context, req ImportRequest, p policy.Principal) (*ImportSummary, error) {
	size, err := e.batchSize(req)
	if err != nil {
		return nil, err
	}

	started := e.now()
	runID := uuid.NewString()
	log := e.log.With().
		Str("run_id", runID).
		Str("kind", string(req.Kind)).
		Int64("user_id", p.UserID).
		Logger()
	defer func() { e.metrics.ObserveImport(req.Kind, e.now().Sub(started)) }()

	summary := &ImportSummary{Results: make([]ImportOutcome, 0, len(req.Items))}
	for start := 0; start < len(req.Items); start += size {
		end := min(start+size, len(req.Items))
		if err := ctx.Err(); err != nil {
			summary.tally()
			return summary, err
		}

		outcomes, audits, err := e.runChunk(ctx, req.Kind, req.Items[start:end], start, p, runID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				log.Warn().Err(err).Int("chunk_start", start).Msg("importación cancelada, lote en curso revertido")
				summary.tally()
				return summary, ctxErr
			}
			log.Error().Err(err).Int("chunk_start", start).Int("chunk_size", end-start).Msg("lote abortado y revertido")
			e.metrics.ObserveChunk(req.Kind, false)
			outcomes = abortedOutcomes(req.Kind, req.Items[start:end], start, err)
		} else {
			e.metrics.ObserveChunk(req.Kind, true)
			e.writeAudit(ctx, log, audits)
		}

		for _, o := range outcomes {
			e.metrics.ObserveRow(req.Kind, o.result)
		}
		summary.Results = append(summary.Results, outcomes...)
	}

	summary.tally()
	log.Info().
		Int("total", summary.Total).
		Int("success", summary.SuccessCount).
		Int("errors", summary.ErrorCount).
		Dur("elapsed", e.now().Sub(started)).
		Msg("importación finalizada")
	return summary, nil
}

func (e *Engine) runChunk(
	ctx context.Context,
	kind entity.Kind,
	rows []map[string]any,
	offset int,
	p policy.Principal,
	runID string,
) ([]ImportOutcome, []entity.AuditLog, error) {
	var (
		outcomes []ImportOutcome
		audits   []entity.AuditLog
	)
	err := e.tx.RunInTx(ctx, func(s repository.Session) error {
		outcomes = make([]ImportOutcome, 0, len(rows))
		audits = audits[:0]
		for i, raw := range rows {
			out, created, err := e.importRow(ctx, s, kind, raw, p)
			if err != nil {
				return fmt.Errorf("fila %d: %w", offset+i, err)
			}
			out.Index = offset + i
			outcomes = append(outcomes, out)
			for _, a := range created {
				a.RunID = runID
				audits = append(audits, a)
			}
		}
		return nil
	})
	return outcomes, audits, err
}

// importRow procesa una fila dentro de la sesión del lote. Solo devuelve error ante fallos
// de almacenamiento; cualquier otro problema queda en el ImportOutcome.
func (e *Engine) importRow(
	ctx context.Context,
	s repository.Session,
	kind entity.Kind,
	raw map[string]any,
	p policy.Principal,
) (ImportOutcome, []entity.AuditLog, error) {
	name := displayName(kind, raw)

	var (
		data    projection.PublicEntity
		created []entity.AuditLog
	)
	err := s.Savepoint(ctx, func(sp repository.Session) error {
		var err error
		switch kind {
		case entity.KindCompany:
			data, created, err = e.createCompany(ctx, sp, raw, p)
		case entity.KindContact:
			data, created, err = e.createContact(ctx, sp, raw, p)
		default:
			err = domain.ErrUnknownEntity
		}
		return err
	})

	var rf *rowFailure
	switch {
	case err == nil:
		return ImportOutcome{Name: name, Success: true, Data: data, result: ResultCreated}, created, nil
	case errors.As(err, &rf):
		return ImportOutcome{Name: name, Error: rf.msg, result: rf.result}, nil, nil
	case errors.Is(err, domain.ErrDuplicate):
		// Carrera con otra importación: la restricción única de la BD actuó de respaldo.
		return ImportOutcome{
			Name:   name,
			Error:  "duplicado: la base de datos rechazó el registro por un campo único",
			result: ResultDuplicate,
		}, nil, nil
	}
	return ImportOutcome{}, nil, err
}

func (e *Engine) createCompany(
	ctx context.Context,
	s repository.Session,
	raw map[string]any,
	p policy.Principal,
) (projection.PublicEntity, []entity.AuditLog, error) {
	company, err := decodeCompany(raw)
	if err != nil {
		return nil, nil, reject(ResultInvalid, "%s", err.Error())
	}
	now := e.now()
	company.OwnerID = ownerFor(company.OwnerID, p)
	company.CreatedAt, company.UpdatedAt = now, now

	res, err := dedup.CheckConflicts(ctx, s.Lookup(), entity.KindCompany,
		dedup.CompanyValues(company), dedup.CompanyRules, 0)
	if err != nil {
		return nil, nil, err
	}
	if res.Conflict {
		return nil, nil, reject(ResultDuplicate, "%s", res.Message())
	}
	if err := s.Companies().Create(ctx, company); err != nil {
		return nil, nil, err
	}
	return projection.Company(company, projection.Detail),
		[]entity.AuditLog{e.auditEntry(p, entity.KindCompany, company.ID)}, nil
}

func (e *Engine) createContact(
	ctx context.Context,
	s repository.Session,
	raw map[string]any,
	p policy.Principal,
) (projection.PublicEntity, []entity.AuditLog, error) {
	cand, err := decodeContact(raw)
	if err != nil {
		return nil, nil, reject(ResultInvalid, "%s", err.Error())
	}
	contact := cand.Contact
	now := e.now()
	contact.OwnerID = ownerFor(contact.OwnerID, p)
	contact.CreatedAt, contact.UpdatedAt = now, now

	var audits []entity.AuditLog
	switch {
	case cand.CompanyID != nil:
		company, err := s.Companies().GetByID(ctx, *cand.CompanyID)
		if err != nil {
			return nil, nil, err
		}
		if company == nil {
			return nil, nil, reject(ResultUnresolved, "companyId: la empresa %d no existe", *cand.CompanyID)
		}
		contact.CompanyID = cand.CompanyID
	case cand.CompanyName != "":
		id, created, err := e.resolver.ResolveOrCreateByName(ctx, s, entity.KindCompany, cand.CompanyName, principalOwner(p))
		if errors.Is(err, dedup.ErrUnresolved) {
			return nil, nil, reject(ResultUnresolved, "companyId: %s", err.Error())
		}
		if err != nil {
			return nil, nil, err
		}
		contact.CompanyID = &id
		if created {
			audits = append(audits, e.auditEntry(p, entity.KindCompany, id))
		}
	}

	res, err := dedup.CheckConflicts(ctx, s.Lookup(), entity.KindContact,
		dedup.ContactValues(contact), dedup.ContactRules, 0)
	if err != nil {
		return nil, nil, err
	}
	if res.Conflict {
		return nil, nil, reject(ResultDuplicate, "%s", res.Message())
	}
	if err := s.Contacts().Create(ctx, contact); err != nil {
		return nil, nil, err
	}
	audits = append(audits, e.auditEntry(p, entity.KindContact, contact.ID))
	return projection.Contact(contact, projection.Detail), audits, nil
}

func (e *Engine) auditEntry(p policy.Principal, kind entity.Kind, id int64) entity.AuditLog {
	return entity.AuditLog{
		UserID:     p.UserID,
		Action:     entity.AuditActionImportCreate,
		EntityType: kind,
		EntityID:   id,
		CreatedAt:  e.now(),
	}
}

// writeAudit escribe la bitácora del lote ya confirmado. Es best effort: un fallo se
// registra pero no altera los resultados.
func (e *Engine) writeAudit(ctx context.Context, log zerolog.Logger, entries []entity.AuditLog) {
	if e.audit == nil || len(entries) == 0 {
		return
	}
	if err := e.audit.Write(ctx, entries); err != nil {
		log.Warn().Err(err).Int("entries", len(entries)).Msg("no se pudo escribir la bitácora de importación")
	}
}

// ownerFor regla de propiedad: ownerId explícito, si no el usuario actuante, si no nil.
func ownerFor(explicit *int64, p policy.Principal) *int64 {
	if explicit != nil {
		return explicit
	}
	return principalOwner(p)
}

func principalOwner(p policy.Principal) *int64 {
	if p.UserID <= 0 {
		return nil
	}
	id := p.UserID
	return &id
}

func abortedOutcomes(kind entity.Kind, rows []map[string]any, offset int, cause error) []ImportOutcome {
	out := make([]ImportOutcome, len(rows))
	for i, raw := range rows {
		out[i] = ImportOutcome{
			Index:  offset + i,
			Name:   displayName(kind, raw),
			Error:  "transacción abortada, el lote se revirtió: " + cause.Error(),
			result: ResultAborted,
		}
	}
	return out
}
