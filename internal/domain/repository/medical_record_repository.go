package repository

import (
	"clinicflow/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MedicalRecordRepository interface {
	Create(db *gorm.DB, record *entity.MedicalRecord) error
	FindByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) (*entity.MedicalRecord, error)
}
