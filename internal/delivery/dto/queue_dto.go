package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type ReorderQueueRequest struct {
	DoctorID uuid.UUID   `json:"doctor_id" validate:"required"`
	Date     string      `json:"date" validate:"required"` // Format: YYYY-MM-DD
	EntryIDs []uuid.UUID `json:"entry_ids" validate:"required,min=1"`
}

// Response DTOs

type QueueEntryResponse struct {
	ID            uuid.UUID  `json:"id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	DoctorID      uuid.UUID  `json:"doctor_id"`
	Date          string     `json:"date"`
	Token         int        `json:"token"`
	Position      int        `json:"position"`
	Status        string     `json:"status"`
	PatientName   string     `json:"patient_name,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type QueueListResponse struct {
	DoctorID uuid.UUID            `json:"doctor_id"`
	Date     string               `json:"date"`
	Entries  []QueueEntryResponse `json:"entries"`
	Total    int                  `json:"total"`
}
