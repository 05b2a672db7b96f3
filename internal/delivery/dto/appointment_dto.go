package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type BookAppointmentRequest struct {
	DoctorID             uuid.UUID `json:"doctor_id" validate:"required"`
	Date                 string    `json:"date" validate:"required"`       // Format: YYYY-MM-DD
	StartTime            string    `json:"start_time" validate:"required,hhmm"` // Format: HH:MM
	EndTime              string    `json:"end_time" validate:"required,hhmm"`   // Format: HH:MM
	Reason               string    `json:"reason" validate:"omitempty,max=500"`
	MedicalRecordConsent bool      `json:"medical_record_consent"`
}

type RegisterWalkInRequest struct {
	PatientID            uuid.UUID `json:"patient_id" validate:"required"`
	DoctorID             uuid.UUID `json:"doctor_id" validate:"required"`
	Reason               string    `json:"reason" validate:"omitempty,max=500"`
	MedicalRecordConsent bool      `json:"medical_record_consent"`
}

type CheckInRequest struct {
	Priority bool `json:"priority"`
}

// Response DTOs

type AppointmentResponse struct {
	ID                   uuid.UUID           `json:"id"`
	PatientID            uuid.UUID           `json:"patient_id"`
	DoctorID             uuid.UUID           `json:"doctor_id"`
	Kind                 string              `json:"kind"`
	Date                 string              `json:"date"`
	StartTime            string              `json:"start_time,omitempty"`
	EndTime              string              `json:"end_time,omitempty"`
	Reason               string              `json:"reason,omitempty"`
	Status               string              `json:"status"`
	MedicalRecordConsent bool                `json:"medical_record_consent"`
	QueueEntry           *QueueEntryResponse `json:"queue_entry,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}
