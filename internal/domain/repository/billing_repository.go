package repository

import (
	"clinicflow/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BillingRepository interface {
	Create(db *gorm.DB, billing *entity.Billing) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Billing, error)
	// FindOpenByAppointmentID returns the open billing for an appointment,
	// nil when none exists.
	FindOpenByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) (*entity.Billing, error)
	FindByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) ([]entity.Billing, error)
	Update(db *gorm.DB, billing *entity.Billing) error
	ReplaceItems(db *gorm.DB, billingID uuid.UUID, items []entity.BillingItem) error
	// SettleGuarded marks an open billing paid. Returns affected rows:
	// 0 means the billing was not open (lost race or already settled).
	SettleGuarded(db *gorm.DB, billing *entity.Billing) (int64, error)
	Delete(db *gorm.DB, id uuid.UUID) (int64, error)
}
