package service

import (
	"fmt"

	"clinicflow/internal/domain/entity"
	"clinicflow/internal/domain/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MedicalRecordStore persists clinical payloads. Save runs on the caller's
// transaction handle: the caller's transition must not commit unless the
// record write is durably acknowledged, and a failed write aborts the
// whole transaction (fail closed).
type MedicalRecordStore interface {
	Save(tx *gorm.DB, record *entity.MedicalRecord) error
}

type medicalRecordService struct {
	log        *logrus.Logger
	recordRepo repository.MedicalRecordRepository
}

func NewMedicalRecordService(log *logrus.Logger, recordRepo repository.MedicalRecordRepository) MedicalRecordStore {
	return &medicalRecordService{
		log:        log,
		recordRepo: recordRepo,
	}
}

func (s *medicalRecordService) Save(tx *gorm.DB, record *entity.MedicalRecord) error {
	if err := s.recordRepo.Create(tx, record); err != nil {
		s.log.Warnf("Failed to save medical record for appointment %s: %+v", record.AppointmentID, err)
		return fmt.Errorf("save medical record for appointment %s: %w", record.AppointmentID, err)
	}
	return nil
}
