package repository

import (
	"time"

	"clinicflow/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentRepository interface {
	Create(db *gorm.DB, appointment *entity.Appointment) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	// FindByIDForUpdate locks the appointment row for the duration of the
	// surrounding transaction.
	FindByIDForUpdate(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindByPatientID(db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error)
	FindByDoctorAndDate(db *gorm.DB, doctorID uuid.UUID, date time.Time) ([]entity.Appointment, error)
	// UpdateStatusGuarded performs a compare-and-swap on status. Returns
	// affected rows: 0 means the expected status no longer holds and the
	// caller lost a race.
	UpdateStatusGuarded(db *gorm.DB, id uuid.UUID, from, to entity.AppointmentStatus) (int64, error)
	Update(db *gorm.DB, appointment *entity.Appointment) error
}
