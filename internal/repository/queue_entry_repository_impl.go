package repository

import (
	"errors"
	"time"

	"clinicflow/internal/domain/entity"
	domainRepo "clinicflow/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type queueEntryRepository struct{}

func NewQueueEntryRepository() domainRepo.QueueEntryRepository {
	return &queueEntryRepository{}
}

func (r *queueEntryRepository) Create(db *gorm.DB, entry *entity.QueueEntry) error {
	return db.Create(entry).Error
}

func (r *queueEntryRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.QueueEntry, error) {
	var entry entity.QueueEntry
	err := db.Preload("Appointment").Where("id = ?", id).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *queueEntryRepository) FindByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) (*entity.QueueEntry, error) {
	var entry entity.QueueEntry
	err := db.Where("appointment_id = ?", appointmentID).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *queueEntryRepository) FindActiveForUpdate(db *gorm.DB, doctorID uuid.UUID, date time.Time) ([]*entity.QueueEntry, error) {
	var entries []*entity.QueueEntry
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("doctor_id = ? AND date = ? AND status IN ?", doctorID, date,
			[]entity.QueueEntryStatus{entity.QueueStatusWaiting, entity.QueueStatusInConsultation}).
		Order("position ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *queueEntryRepository) FindByDoctorAndDate(db *gorm.DB, doctorID uuid.UUID, date time.Time) ([]*entity.QueueEntry, error) {
	var entries []*entity.QueueEntry
	err := db.Preload("Appointment.Patient.User").
		Where("doctor_id = ? AND date = ?", doctorID, date).
		Order("position ASC, token ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *queueEntryRepository) UpdateStatusGuarded(db *gorm.DB, id uuid.UUID, from, to entity.QueueEntryStatus) (int64, error) {
	result := db.Model(&entity.QueueEntry{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return result.RowsAffected, result.Error
}

func (r *queueEntryRepository) UpdatePosition(db *gorm.DB, id uuid.UUID, position int) error {
	return db.Model(&entity.QueueEntry{}).
		Where("id = ?", id).
		Update("position", position).Error
}

func (r *queueEntryRepository) CountInConsultation(db *gorm.DB, doctorID uuid.UUID, date time.Time) (int64, error) {
	var count int64
	err := db.Model(&entity.QueueEntry{}).
		Where("doctor_id = ? AND date = ? AND status = ?", doctorID, date, entity.QueueStatusInConsultation).
		Count(&count).Error
	return count, err
}

func (r *queueEntryRepository) MaxTokenByScope(db *gorm.DB, since time.Time, limit, offset int) ([]entity.TokenHighWater, error) {
	var results []entity.TokenHighWater
	err := db.Model(&entity.QueueEntry{}).
		Select("doctor_id, date, MAX(token) as max_token").
		Where("date >= ?", since).
		Group("doctor_id, date").
		Order("doctor_id, date").
		Limit(limit).
		Offset(offset).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *queueEntryRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	return db.Where("id = ?", id).Delete(&entity.QueueEntry{}).Error
}
