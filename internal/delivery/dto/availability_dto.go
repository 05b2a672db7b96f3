package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateAvailabilityRequest struct {
	DoctorID  uuid.UUID `json:"doctor_id" validate:"omitempty"` // ignored for doctors, required for admins
	Date      string    `json:"date" validate:"required"`       // Format: YYYY-MM-DD
	StartTime string    `json:"start_time" validate:"required,hhmm"` // Format: HH:MM
	EndTime   string    `json:"end_time" validate:"required,hhmm"`   // Format: HH:MM
}

type UpdateAvailabilityRequest struct {
	Date      string `json:"date" validate:"omitempty"`       // Format: YYYY-MM-DD
	StartTime string `json:"start_time" validate:"omitempty,hhmm"` // Format: HH:MM
	EndTime   string `json:"end_time" validate:"omitempty,hhmm"`   // Format: HH:MM
}

type SearchAvailabilityRequest struct {
	StartAt        string `json:"start_at" validate:"omitempty"` // Format: YYYY-MM-DD
	EndAt          string `json:"end_at" validate:"omitempty"`   // Format: YYYY-MM-DD
	DoctorName     string `json:"doctor_name" validate:"omitempty"`
	Specialization string `json:"specialization" validate:"omitempty"`
}

// Response DTOs

type AvailabilityResponse struct {
	ID        int             `json:"id"`
	DoctorID  uuid.UUID       `json:"doctor_id"`
	Doctor    *DoctorResponse `json:"doctor,omitempty"`
	Date      string          `json:"date"`
	StartTime string          `json:"start_time"`
	EndTime   string          `json:"end_time"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type AvailabilityListResponse struct {
	Availabilities []AvailabilityResponse `json:"availabilities"`
	Total          int                    `json:"total"`
}
