package dto

// UpdateContactRequest cambios parciales sobre un contacto.
type UpdateContactRequest struct {
	FirstName      *string `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName       *string `json:"lastName" validate:"omitempty,min=1,max=100"`
	Email          *string `json:"email" validate:"omitempty,email,max=254"`
	Phone          *string `json:"phone" validate:"omitempty,max=30"`
	DNI            *string `json:"dni" validate:"omitempty,numeric,len=8"`
	CEE            *string `json:"cee" validate:"omitempty,alphanum,max=12"`
	Position       *string `json:"position" validate:"omitempty,max=100"`
	Address        *string `json:"address" validate:"omitempty,max=255"`
	CompanyID      *int64  `json:"companyId" validate:"omitempty,gt=0"`
	LifecycleStage *string `json:"lifecycleStage" validate:"omitempty,oneof=lead prospecto cliente inactivo"`
	OwnerID        *int64  `json:"ownerId" validate:"omitempty,gt=0"`
}
