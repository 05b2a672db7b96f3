package repository

import (
	"errors"

	"clinicflow/internal/domain/entity"
	domainRepo "clinicflow/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type medicalRecordRepository struct{}

func NewMedicalRecordRepository() domainRepo.MedicalRecordRepository {
	return &medicalRecordRepository{}
}

func (r *medicalRecordRepository) Create(db *gorm.DB, record *entity.MedicalRecord) error {
	return db.Create(record).Error
}

func (r *medicalRecordRepository) FindByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) (*entity.MedicalRecord, error) {
	var record entity.MedicalRecord
	err := db.Where("appointment_id = ?", appointmentID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}
