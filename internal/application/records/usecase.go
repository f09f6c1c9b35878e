// Package records expone lectura, edición y borrado de contactos y empresas con la
// autorización por rol y propietario.
package records

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jhoicas/crm-api/internal/application/dedup"
	"github.com/jhoicas/crm-api/internal/application/dto"
	"github.com/jhoicas/crm-api/internal/application/projection"
	"github.com/jhoicas/crm-api/internal/domain"
	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/domain/policy"
	"github.com/jhoicas/crm-api/internal/domain/repository"
	"github.com/jhoicas/crm-api/pkg/logger"
)

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return v
}()

// RecordsUseCase casos de uso de registro individual. Las comprobaciones de autorización
// ocurren antes de cualquier escritura.
type RecordsUseCase struct {
	tx    repository.TxRunner
	audit repository.AuditRepository
	log   *logger.Logger
	now   func() time.Time
}

// NewRecordsUseCase construye el caso de uso. audit puede ser nil.
func NewRecordsUseCase(tx repository.TxRunner, audit repository.AuditRepository, log *logger.Logger) *RecordsUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &RecordsUseCase{tx: tx, audit: audit, log: log, now: time.Now}
}

// GetContact detalle de un contacto. Un registro fuera de la visibilidad del principal
// se reporta como inexistente.
func (uc *RecordsUseCase) GetContact(ctx context.Context, p policy.Principal, id int64) (projection.PublicEntity, error) {
	var out projection.PublicEntity
	err := uc.tx.RunInTx(ctx, func(s repository.Session) error {
		c, err := loadContact(ctx, s, p, id)
		if err != nil {
			return err
		}
		out = projection.Contact(c, projection.Detail)
		return nil
	})
	return out, err
}

// GetCompany detalle de una empresa.
func (uc *RecordsUseCase) GetCompany(ctx context.Context, p policy.Principal, id int64) (projection.PublicEntity, error) {
	var out projection.PublicEntity
	err := uc.tx.RunInTx(ctx, func(s repository.Session) error {
		c, err := loadCompany(ctx, s, p, id)
		if err != nil {
			return err
		}
		out = projection.Company(c, projection.Detail)
		return nil
	})
	return out, err
}

// UpdateContact aplica un cambio parcial. Devuelve ErrForbidden si el principal no puede
// modificarlo y ErrDuplicate si choca con otro registro por un campo único.
func (uc *RecordsUseCase) UpdateContact(
	ctx context.Context,
	p policy.Principal,
	id int64,
	in dto.UpdateContactRequest,
) (projection.PublicEntity, error) {
	if err := validateRequest(in); err != nil {
		return nil, err
	}
	var out projection.PublicEntity
	err := uc.tx.RunInTx(ctx, func(s repository.Session) error {
		c, err := loadContact(ctx, s, p, id)
		if err != nil {
			return err
		}
		if !policy.CanMutate(p.Role, p.UserID, c.OwnerID) {
			return domain.ErrForbidden
		}
		if err := checkOwnerChange(p, c.OwnerID, in.OwnerID); err != nil {
			return err
		}

		patchText(&c.FirstName, in.FirstName)
		patchText(&c.LastName, in.LastName)
		patchText(&c.Email, in.Email)
		if c.FirstName == "" || c.LastName == "" || c.Email == "" {
			return fmt.Errorf("%w: firstName, lastName y email no pueden quedar vacíos", domain.ErrInvalidInput)
		}
		patchOpt(&c.Phone, in.Phone)
		patchOpt(&c.DNI, in.DNI)
		patchOpt(&c.CEE, in.CEE)
		patchOpt(&c.Position, in.Position)
		patchOpt(&c.Address, in.Address)
		patchText(&c.LifecycleStage, in.LifecycleStage)
		if in.OwnerID != nil {
			c.OwnerID = in.OwnerID
		}
		if in.CompanyID != nil {
			company, err := s.Companies().GetByID(ctx, *in.CompanyID)
			if err != nil {
				return err
			}
			if company == nil {
				return fmt.Errorf("%w: la empresa %d no existe", domain.ErrInvalidInput, *in.CompanyID)
			}
			c.CompanyID = in.CompanyID
		}

		if err := ensureUnique(ctx, s, entity.KindContact, dedup.ContactValues(c), id); err != nil {
			return err
		}
		c.UpdatedAt = uc.now()
		if err := s.Contacts().Update(ctx, c); err != nil {
			return err
		}
		out = projection.Contact(c, projection.Detail)
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.writeAudit(ctx, p, entity.AuditActionUpdate, entity.KindContact, id)
	return out, nil
}

// UpdateCompany aplica un cambio parcial a una empresa.
func (uc *RecordsUseCase) UpdateCompany(
	ctx context.Context,
	p policy.Principal,
	id int64,
	in dto.UpdateCompanyRequest,
) (projection.PublicEntity, error) {
	if err := validateRequest(in); err != nil {
		return nil, err
	}
	var out projection.PublicEntity
	err := uc.tx.RunInTx(ctx, func(s repository.Session) error {
		c, err := loadCompany(ctx, s, p, id)
		if err != nil {
			return err
		}
		if !policy.CanMutate(p.Role, p.UserID, c.OwnerID) {
			return domain.ErrForbidden
		}
		if err := checkOwnerChange(p, c.OwnerID, in.OwnerID); err != nil {
			return err
		}

		patchText(&c.Name, in.Name)
		if c.Name == "" {
			return fmt.Errorf("%w: name no puede quedar vacío", domain.ErrInvalidInput)
		}
		patchOpt(&c.Domain, in.Domain)
		patchOpt(&c.RUC, in.RUC)
		patchOpt(&c.Industry, in.Industry)
		patchOpt(&c.Phone, in.Phone)
		patchOpt(&c.Address, in.Address)
		patchText(&c.LifecycleStage, in.LifecycleStage)
		if in.Employees != nil {
			c.Employees = in.Employees
		}
		if in.OwnerID != nil {
			c.OwnerID = in.OwnerID
		}

		if err := ensureUnique(ctx, s, entity.KindCompany, dedup.CompanyValues(c), id); err != nil {
			return err
		}
		c.UpdatedAt = uc.now()
		if err := s.Companies().Update(ctx, c); err != nil {
			return err
		}
		out = projection.Company(c, projection.Detail)
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.writeAudit(ctx, p, entity.AuditActionUpdate, entity.KindCompany, id)
	return out, nil
}

// DeleteContact borra un contacto si el principal puede hacerlo.
func (uc *RecordsUseCase) DeleteContact(ctx context.Context, p policy.Principal, id int64) error {
	err := uc.tx.RunInTx(ctx, func(s repository.Session) error {
		c, err := loadContact(ctx, s, p, id)
		if err != nil {
			return err
		}
		if !policy.CanDelete(p.Role, p.UserID, c.OwnerID) {
			return domain.ErrForbidden
		}
		return s.Contacts().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	uc.writeAudit(ctx, p, entity.AuditActionDelete, entity.KindContact, id)
	return nil
}

// DeleteCompany borra una empresa si el principal puede hacerlo.
func (uc *RecordsUseCase) DeleteCompany(ctx context.Context, p policy.Principal, id int64) error {
	err := uc.tx.RunInTx(ctx, func(s repository.Session) error {
		c, err := loadCompany(ctx, s, p, id)
		if err != nil {
			return err
		}
		if !policy.CanDelete(p.Role, p.UserID, c.OwnerID) {
			return domain.ErrForbidden
		}
		return s.Companies().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	uc.writeAudit(ctx, p, entity.AuditActionDelete, entity.KindCompany, id)
	return nil
}

func loadContact(ctx context.Context, s repository.Session, p policy.Principal, id int64) (*entity.Contact, error) {
	c, err := s.Contacts().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil || !policy.CanRead(p.Role, p.UserID, c.OwnerID) {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func loadCompany(ctx context.Context, s repository.Session, p policy.Principal, id int64) (*entity.Company, error) {
	c, err := s.Companies().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil || !policy.CanRead(p.Role, p.UserID, c.OwnerID) {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

// checkOwnerChange solo admin reasigna propietario.
func checkOwnerChange(p policy.Principal, current, requested *int64) error {
	if requested == nil || p.Role == policy.RoleAdmin {
		return nil
	}
	if current != nil && *current == *requested {
		return nil
	}
	return fmt.Errorf("%w: solo admin puede reasignar el propietario", domain.ErrForbidden)
}

func ensureUnique(ctx context.Context, s repository.Session, kind entity.Kind, values map[string]string, id int64) error {
	res, err := dedup.CheckConflicts(ctx, s.Lookup(), kind, values, dedup.RulesFor(kind), id)
	if err != nil {
		return err
	}
	if res.Conflict {
		return fmt.Errorf("%w: %s", domain.ErrDuplicate, res.Message())
	}
	return nil
}

func validateRequest(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Errorf("%w: %s (%s)", domain.ErrInvalidInput, verrs[0].Field(), verrs[0].Tag())
	}
	return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
}

func patchText(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// patchOpt cadena vacía borra el campo.
func patchOpt(dst **string, v *string) {
	if v == nil {
		return
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		*dst = nil
		return
	}
	*dst = &s
}

func (uc *RecordsUseCase) writeAudit(ctx context.Context, p policy.Principal, action string, kind entity.Kind, id int64) {
	if uc.audit == nil {
		return
	}
	entry := entity.AuditLog{UserID: p.UserID, Action: action, EntityType: kind, EntityID: id, CreatedAt: uc.now()}
	if err := uc.audit.Write(ctx, []entity.AuditLog{entry}); err != nil {
		uc.log.Warn().Err(err).Str("action", action).Str("kind", string(kind)).Int64("id", id).Msg("no se pudo escribir la bitácora")
	}
}
