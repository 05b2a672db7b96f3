package repository

import (
	"time"

	"clinicflow/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type QueueEntryRepository interface {
	Create(db *gorm.DB, entry *entity.QueueEntry) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.QueueEntry, error)
	FindByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) (*entity.QueueEntry, error)
	// FindActiveForUpdate loads the active set (waiting, in-consultation)
	// of one doctor+date scope ordered by position, locking the rows for
	// the surrounding transaction.
	FindActiveForUpdate(db *gorm.DB, doctorID uuid.UUID, date time.Time) ([]*entity.QueueEntry, error)
	FindByDoctorAndDate(db *gorm.DB, doctorID uuid.UUID, date time.Time) ([]*entity.QueueEntry, error)
	// UpdateStatusGuarded performs a compare-and-swap on status. Returns
	// affected rows: 0 means the caller lost a race.
	UpdateStatusGuarded(db *gorm.DB, id uuid.UUID, from, to entity.QueueEntryStatus) (int64, error)
	UpdatePosition(db *gorm.DB, id uuid.UUID, position int) error
	// CountInConsultation counts entries currently in consultation for a
	// doctor+date scope (the invariant ceiling is one).
	CountInConsultation(db *gorm.DB, doctorID uuid.UUID, date time.Time) (int64, error)
	// MaxTokenByScope returns the highest token issued per doctor+date at
	// or after the given date, for re-seeding the allocator on startup.
	MaxTokenByScope(db *gorm.DB, since time.Time, limit, offset int) ([]entity.TokenHighWater, error)
	Delete(db *gorm.DB, id uuid.UUID) error
}
