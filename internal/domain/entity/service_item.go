package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServiceItem is a priced entry in the clinic's service catalog
// (consultations, lab tests, procedures). Billing line items may be
// resolved from it by the receptionist.
type ServiceItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Active      bool            `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ServiceItem) TableName() string {
	return "service_items"
}
