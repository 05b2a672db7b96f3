package entity

import (
	"time"

	"github.com/google/uuid"
)

// MedicalRecord stores the clinical payload captured when a consultation
// completes. Diagnosis text is clinically optional; the record row itself
// is not. Completing a consultation without a durably written record is
// never allowed.
type MedicalRecord struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	AppointmentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"appointment_id"`
	Diagnosis     string    `gorm:"type:text" json:"diagnosis,omitempty"`
	Symptoms      string    `gorm:"type:text" json:"symptoms,omitempty"`
	Prescriptions JSON      `gorm:"type:jsonb" json:"prescriptions,omitempty"`
	LabTests      JSON      `gorm:"type:jsonb" json:"lab_tests,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Appointment Appointment `gorm:"foreignKey:AppointmentID" json:"appointment,omitempty"`
}

func (MedicalRecord) TableName() string {
	return "medical_records"
}
