package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingStatus represents the settlement state of a billing record
type BillingStatus string

const (
	BillingStatusOpen BillingStatus = "open"
	BillingStatusPaid BillingStatus = "paid"
)

// PaymentMethod values accepted at settlement
const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
)

// Billing is the invoice for one appointment. At most one open billing may
// exist per appointment at a time (enforced by a partial unique index and
// the billing usecase).
type Billing struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	AppointmentID uuid.UUID       `gorm:"type:uuid;not null;index" json:"appointment_id"`
	Status        BillingStatus   `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	Tax           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax"`
	Discount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	PaymentMethod string          `gorm:"type:varchar(20)" json:"payment_method,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Appointment Appointment   `gorm:"foreignKey:AppointmentID" json:"appointment,omitempty"`
	Items       []BillingItem `gorm:"foreignKey:BillingID" json:"items,omitempty"`
}

func (Billing) TableName() string {
	return "billings"
}

// BillingItem is one line of an invoice. Amount is the unit price at the
// time the line was added; catalog price changes never rewrite history.
type BillingItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	BillingID uuid.UUID       `gorm:"type:uuid;not null;index" json:"billing_id"`
	ItemID    *uuid.UUID      `gorm:"type:uuid" json:"item_id,omitempty"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Quantity  int             `gorm:"not null;default:1" json:"quantity"`
}

func (BillingItem) TableName() string {
	return "billing_items"
}

// Recompute derives subtotal and total from scratch, never incrementally:
// subtotal = sum(amount * quantity), total = max(0, subtotal + tax - discount).
func (b *Billing) Recompute() {
	subtotal := decimal.Zero
	for _, item := range b.Items {
		subtotal = subtotal.Add(item.Amount.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	b.Subtotal = subtotal

	total := subtotal.Add(b.Tax).Sub(b.Discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	b.Total = total
}

func (b *Billing) IsOpen() bool {
	return b.Status == BillingStatusOpen
}

// Settle marks the billing paid with the given method.
func (b *Billing) Settle(paymentMethod string, at time.Time) {
	b.Status = BillingStatusPaid
	b.PaymentMethod = paymentMethod
	b.PaidAt = &at
}
