package repository

import (
	"time"

	"clinicflow/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DoctorAvailabilityRepository interface {
	Create(db *gorm.DB, window *entity.DoctorAvailability) error
	FindByID(db *gorm.DB, id int) (*entity.DoctorAvailability, error)
	FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) ([]entity.DoctorAvailability, error)
	FindByDoctorAndDate(db *gorm.DB, doctorID uuid.UUID, date time.Time) ([]entity.DoctorAvailability, error)
	FindAllWithActiveDoctor(db *gorm.DB, filter *entity.AvailabilityFilter) ([]entity.DoctorAvailability, error)
	Update(db *gorm.DB, window *entity.DoctorAvailability) error
	Delete(db *gorm.DB, id int) (int64, error)
}
