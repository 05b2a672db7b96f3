package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

// BillingItemRequest is one invoice line. Catalog lines set item_id and
// are priced from the catalog; ad-hoc lines carry name and amount.
type BillingItemRequest struct {
	ItemID   *uuid.UUID `json:"item_id" validate:"omitempty"`
	Name     string     `json:"name" validate:"required_without=ItemID"`
	Amount   string     `json:"amount" validate:"required_without=ItemID"`
	Quantity int        `json:"quantity" validate:"omitempty,min=1"`
}

// CreateBillingRequest opens an invoice. With no items given the billing
// defaults to a single consultation line priced from the doctor's profile.
type CreateBillingRequest struct {
	AppointmentID uuid.UUID            `json:"appointment_id" validate:"required"`
	Items         []BillingItemRequest `json:"items" validate:"omitempty,dive"`
	Tax           string               `json:"tax" validate:"omitempty"`
	Discount      string               `json:"discount" validate:"omitempty"`
}

type UpdateBillingRequest struct {
	Items    []BillingItemRequest `json:"items" validate:"required,min=1,dive"`
	Tax      string               `json:"tax" validate:"omitempty"`
	Discount string               `json:"discount" validate:"omitempty"`
}

type SettleBillingRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cash card transfer"`
}

// Response DTOs

type BillingItemResponse struct {
	ID       uuid.UUID       `json:"id"`
	ItemID   *uuid.UUID      `json:"item_id,omitempty"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Quantity int             `json:"quantity"`
}

type BillingResponse struct {
	ID            uuid.UUID             `json:"id"`
	AppointmentID uuid.UUID             `json:"appointment_id"`
	Status        string                `json:"status"`
	Subtotal      decimal.Decimal       `json:"subtotal"`
	Tax           decimal.Decimal       `json:"tax"`
	Discount      decimal.Decimal       `json:"discount"`
	Total         decimal.Decimal       `json:"total"`
	PaymentMethod string                `json:"payment_method,omitempty"`
	PaidAt        *time.Time            `json:"paid_at,omitempty"`
	Items         []BillingItemResponse `json:"items"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}
