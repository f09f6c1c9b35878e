package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jhoicas/crm-api/internal/domain/entity"
)

// fieldType tipo esperado de una columna de importación.
type fieldType int

const (
	textField fieldType = iota
	intField
	// refField referencia a otra entidad: número = id existente, texto = nombre a resolver.
	refField
)

// schema columnas aceptadas por tipo de entidad; cualquier otra clave se rechaza.
type schema map[string]fieldType

var companySchema = schema{
	"name":           textField,
	"domain":         textField,
	"ruc":            textField,
	"industry":       textField,
	"phone":          textField,
	"address":        textField,
	"employees":      intField,
	"lifecycleStage": textField,
	"ownerId":        intField,
}

var contactSchema = schema{
	"firstName":      textField,
	"lastName":       textField,
	"email":          textField,
	"phone":          textField,
	"dni":            textField,
	"cee":            textField,
	"position":       textField,
	"address":        textField,
	"lifecycleStage": textField,
	"ownerId":        intField,
	"companyId":      refField,
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Los errores usan el nombre de la columna (tag json), no el del campo Go.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// normalize recorta textos, convierte "" en ausente y coacciona solo las columnas numéricas.
func (sc schema) normalize(raw map[string]any) (map[string]any, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(raw))
	for _, k := range keys {
		typ, ok := sc[k]
		if !ok {
			return nil, fmt.Errorf("campo desconocido: %s", k)
		}
		v, present, err := coerce(k, raw[k], typ)
		if err != nil {
			return nil, err
		}
		if present {
			out[k] = v
		}
	}
	return out, nil
}

func coerce(key string, v any, typ fieldType) (any, bool, error) {
	s, ok := textOf(v)
	if !ok {
		return nil, false, fmt.Errorf("%s: tipo de dato no soportado", key)
	}
	if s == "" {
		return nil, false, nil
	}
	switch typ {
	case intField:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, false, fmt.Errorf("%s: debe ser un número entero", key)
		}
		return n, true, nil
	case refField:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true, nil
		}
	}
	return s, true, nil
}

// textOf representación textual recortada de un valor escalar. nil -> "".
func textOf(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	}
	return "", false
}

func text(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func optText(m map[string]any, key string) *string {
	if s, ok := m[key].(string); ok {
		return &s
	}
	return nil
}

func optInt64(m map[string]any, key string) *int64 {
	if n, ok := m[key].(int64); ok {
		return &n
	}
	return nil
}

type companyRow struct {
	Name           string  `json:"name" validate:"required,max=200"`
	Domain         *string `json:"domain" validate:"omitempty,max=255"`
	RUC            *string `json:"ruc" validate:"omitempty,numeric,len=11"`
	Industry       *string `json:"industry" validate:"omitempty,max=100"`
	Phone          *string `json:"phone" validate:"omitempty,max=30"`
	Address        *string `json:"address" validate:"omitempty,max=255"`
	Employees      *int64  `json:"employees" validate:"omitempty,gte=0"`
	LifecycleStage *string `json:"lifecycleStage" validate:"omitempty,oneof=lead prospecto cliente inactivo"`
	OwnerID        *int64  `json:"ownerId" validate:"omitempty,gt=0"`
}

// decodeCompany convierte una fila libre en una empresa validada (sin ID ni fechas).
func decodeCompany(raw map[string]any) (*entity.Company, error) {
	m, err := companySchema.normalize(raw)
	if err != nil {
		return nil, err
	}
	row := companyRow{
		Name:           text(m, "name"),
		Domain:         optText(m, "domain"),
		RUC:            optText(m, "ruc"),
		Industry:       optText(m, "industry"),
		Phone:          optText(m, "phone"),
		Address:        optText(m, "address"),
		Employees:      optInt64(m, "employees"),
		LifecycleStage: optText(m, "lifecycleStage"),
		OwnerID:        optInt64(m, "ownerId"),
	}
	if err := validate.Struct(row); err != nil {
		return nil, describeValidation(err)
	}
	c := &entity.Company{
		Name:           row.Name,
		Domain:         row.Domain,
		RUC:            row.RUC,
		Industry:       row.Industry,
		Phone:          row.Phone,
		Address:        row.Address,
		LifecycleStage: entity.StageLead,
		OwnerID:        row.OwnerID,
	}
	if row.Employees != nil {
		n := int(*row.Employees)
		c.Employees = &n
	}
	if row.LifecycleStage != nil {
		c.LifecycleStage = *row.LifecycleStage
	}
	return c, nil
}

type contactRow struct {
	FirstName      string  `json:"firstName" validate:"required,max=100"`
	LastName       string  `json:"lastName" validate:"required,max=100"`
	Email          string  `json:"email" validate:"required,email,max=254"`
	Phone          *string `json:"phone" validate:"omitempty,max=30"`
	DNI            *string `json:"dni" validate:"omitempty,numeric,len=8"`
	CEE            *string `json:"cee" validate:"omitempty,alphanum,max=12"`
	Position       *string `json:"position" validate:"omitempty,max=100"`
	Address        *string `json:"address" validate:"omitempty,max=255"`
	LifecycleStage *string `json:"lifecycleStage" validate:"omitempty,oneof=lead prospecto cliente inactivo"`
	OwnerID        *int64  `json:"ownerId" validate:"omitempty,gt=0"`
	CompanyID      *int64  `json:"companyId" validate:"omitempty,gt=0"`
}

// contactCandidate contacto decodificado más su referencia de empresa pendiente de resolver.
type contactCandidate struct {
	Contact     *entity.Contact
	CompanyID   *int64 // id explícito: debe existir
	CompanyName string // nombre: se resuelve o se crea
}

func decodeContact(raw map[string]any) (*contactCandidate, error) {
	m, err := contactSchema.normalize(raw)
	if err != nil {
		return nil, err
	}
	row := contactRow{
		FirstName:      text(m, "firstName"),
		LastName:       text(m, "lastName"),
		Email:          text(m, "email"),
		Phone:          optText(m, "phone"),
		DNI:            optText(m, "dni"),
		CEE:            optText(m, "cee"),
		Position:       optText(m, "position"),
		Address:        optText(m, "address"),
		LifecycleStage: optText(m, "lifecycleStage"),
		OwnerID:        optInt64(m, "ownerId"),
		CompanyID:      optInt64(m, "companyId"),
	}
	if err := validate.Struct(row); err != nil {
		return nil, describeValidation(err)
	}
	c := &entity.Contact{
		FirstName:      row.FirstName,
		LastName:       row.LastName,
		Email:          row.Email,
		Phone:          row.Phone,
		DNI:            row.DNI,
		CEE:            row.CEE,
		Position:       row.Position,
		Address:        row.Address,
		LifecycleStage: entity.StageLead,
		OwnerID:        row.OwnerID,
	}
	if row.LifecycleStage != nil {
		c.LifecycleStage = *row.LifecycleStage
	}
	return &contactCandidate{
		Contact:     c,
		CompanyID:   row.CompanyID,
		CompanyName: text(m, "companyId"),
	}, nil
}

// describeValidation traduce el primer error del validador a un mensaje que nombra la columna.
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("campo requerido: %s", fe.Field())
	case "email":
		return fmt.Errorf("%s: formato de email inválido", fe.Field())
	case "max":
		return fmt.Errorf("%s: supera los %s caracteres", fe.Field(), fe.Param())
	case "len":
		return fmt.Errorf("%s: debe tener %s caracteres", fe.Field(), fe.Param())
	case "numeric", "alphanum":
		return fmt.Errorf("%s: contiene caracteres no permitidos", fe.Field())
	case "oneof":
		return fmt.Errorf("%s: debe ser uno de [%s]", fe.Field(), fe.Param())
	}
	return fmt.Errorf("%s: valor inválido", fe.Field())
}

// displayName nombre legible de la fila para el resultado, aunque la fila sea inválida.
func displayName(kind entity.Kind, raw map[string]any) string {
	get := func(k string) string {
		s, _ := textOf(raw[k])
		return s
	}
	switch kind {
	case entity.KindCompany:
		return get("name")
	case entity.KindContact:
		name := strings.TrimSpace(get("firstName") + " " + get("lastName"))
		if name == "" {
			return get("email")
		}
		return name
	}
	return ""
}
