package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Deal representa una oportunidad de negocio. Siempre tiene un responsable (AssignedToID).
type Deal struct {
	ID                int64
	Title             string
	Amount            decimal.Decimal
	Currency          string
	Stage             string
	CompanyID         *int64
	ContactID         *int64
	AssignedToID      int64
	ExpectedCloseDate *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
