package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CompleteConsultationRequest struct {
	Diagnosis     string                 `json:"diagnosis" validate:"omitempty,max=2000"`
	Symptoms      string                 `json:"symptoms" validate:"omitempty,max=2000"`
	Prescriptions map[string]interface{} `json:"prescriptions" validate:"omitempty"`
	LabTests      map[string]interface{} `json:"lab_tests" validate:"omitempty"`
}

// Response DTOs

type MedicalRecordResponse struct {
	ID            uuid.UUID              `json:"id"`
	AppointmentID uuid.UUID              `json:"appointment_id"`
	Diagnosis     string                 `json:"diagnosis,omitempty"`
	Symptoms      string                 `json:"symptoms,omitempty"`
	Prescriptions map[string]interface{} `json:"prescriptions,omitempty"`
	LabTests      map[string]interface{} `json:"lab_tests,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}
