package dto

// UpdateCompanyRequest cambios parciales sobre una empresa. Los punteros nil no se tocan;
// una cadena vacía borra el campo opcional.
type UpdateCompanyRequest struct {
	Name           *string `json:"name" validate:"omitempty,min=1,max=200"`
	Domain         *string `json:"domain" validate:"omitempty,max=255"`
	RUC            *string `json:"ruc" validate:"omitempty,numeric,len=11"`
	Industry       *string `json:"industry" validate:"omitempty,max=100"`
	Phone          *string `json:"phone" validate:"omitempty,max=30"`
	Address        *string `json:"address" validate:"omitempty,max=255"`
	Employees      *int    `json:"employees" validate:"omitempty,gte=0"`
	LifecycleStage *string `json:"lifecycleStage" validate:"omitempty,oneof=lead prospecto cliente inactivo"`
	OwnerID        *int64  `json:"ownerId" validate:"omitempty,gt=0"`
}
