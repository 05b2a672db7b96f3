package repository

import (
	"errors"
	"time"

	"clinicflow/internal/domain/entity"
	domainRepo "clinicflow/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type doctorAvailabilityRepository struct{}

func NewDoctorAvailabilityRepository() domainRepo.DoctorAvailabilityRepository {
	return &doctorAvailabilityRepository{}
}

func (r *doctorAvailabilityRepository) Create(db *gorm.DB, window *entity.DoctorAvailability) error {
	return db.Create(window).Error
}

func (r *doctorAvailabilityRepository) FindByID(db *gorm.DB, id int) (*entity.DoctorAvailability, error) {
	var window entity.DoctorAvailability
	err := db.Preload("Doctor.User").Where("id = ?", id).First(&window).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &window, nil
}

func (r *doctorAvailabilityRepository) FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) ([]entity.DoctorAvailability, error) {
	var windows []entity.DoctorAvailability
	err := db.Where("doctor_id = ?", doctorID).Order("date ASC, start_time ASC").Find(&windows).Error
	if err != nil {
		return nil, err
	}
	return windows, nil
}

func (r *doctorAvailabilityRepository) FindByDoctorAndDate(db *gorm.DB, doctorID uuid.UUID, date time.Time) ([]entity.DoctorAvailability, error) {
	var windows []entity.DoctorAvailability
	err := db.Where("doctor_id = ? AND date = ?", doctorID, date).Order("start_time ASC").Find(&windows).Error
	if err != nil {
		return nil, err
	}
	return windows, nil
}

// FindAllWithActiveDoctor returns windows only for doctors whose user
// account is active. Supports optional filters: date range, doctor name,
// and specialization.
func (r *doctorAvailabilityRepository) FindAllWithActiveDoctor(db *gorm.DB, filter *entity.AvailabilityFilter) ([]entity.DoctorAvailability, error) {
	var windows []entity.DoctorAvailability
	query := db.
		Joins("JOIN doctor_profiles ON doctor_profiles.user_id = doctor_availabilities.doctor_id").
		Joins("JOIN users ON users.id = doctor_profiles.user_id").
		Where("users.is_active = ?", true)

	if filter != nil {
		if filter.StartAt != "" {
			query = query.Where("doctor_availabilities.date >= ?", filter.StartAt)
		}
		if filter.EndAt != "" {
			query = query.Where("doctor_availabilities.date <= ?", filter.EndAt)
		}
		if filter.DoctorName != "" {
			query = query.Where("users.full_name ILIKE ?", "%"+filter.DoctorName+"%")
		}
		if filter.Specialization != "" {
			query = query.Where("doctor_profiles.specialization ILIKE ?", "%"+filter.Specialization+"%")
		}
	}

	err := query.
		Preload("Doctor").Preload("Doctor.User").
		Order("date ASC, start_time ASC").
		Find(&windows).Error
	if err != nil {
		return nil, err
	}
	return windows, nil
}

func (r *doctorAvailabilityRepository) Update(db *gorm.DB, window *entity.DoctorAvailability) error {
	return db.Omit("Doctor").Save(window).Error
}

func (r *doctorAvailabilityRepository) Delete(db *gorm.DB, id int) (int64, error) {
	affected := db.Where("id = ?", id).Delete(&entity.DoctorAvailability{})
	return affected.RowsAffected, affected.Error
}
