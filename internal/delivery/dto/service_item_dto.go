package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type CreateServiceItemRequest struct {
	Name        string `json:"name" validate:"required,min=2"`
	Description string `json:"description" validate:"omitempty"`
	Price       string `json:"price" validate:"required"`
}

type UpdateServiceItemRequest struct {
	Name        string `json:"name" validate:"omitempty,min=2"`
	Description string `json:"description" validate:"omitempty"`
	Price       string `json:"price" validate:"omitempty"`
	Active      *bool  `json:"active" validate:"omitempty"`
}

// Response DTOs

type ServiceItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type ServiceItemListResponse struct {
	Items []ServiceItemResponse `json:"items"`
	Total int                   `json:"total"`
}
