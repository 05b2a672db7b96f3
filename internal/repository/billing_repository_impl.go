package repository

import (
	"errors"

	"clinicflow/internal/domain/entity"
	domainRepo "clinicflow/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type billingRepository struct{}

func NewBillingRepository() domainRepo.BillingRepository {
	return &billingRepository{}
}

func (r *billingRepository) Create(db *gorm.DB, billing *entity.Billing) error {
	return db.Create(billing).Error
}

func (r *billingRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Billing, error) {
	var billing entity.Billing
	err := db.Preload("Items").Where("id = ?", id).First(&billing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &billing, nil
}

func (r *billingRepository) FindOpenByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) (*entity.Billing, error) {
	var billing entity.Billing
	err := db.Preload("Items").
		Where("appointment_id = ? AND status = ?", appointmentID, entity.BillingStatusOpen).
		First(&billing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &billing, nil
}

func (r *billingRepository) FindByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) ([]entity.Billing, error) {
	var billings []entity.Billing
	err := db.Preload("Items").
		Where("appointment_id = ?", appointmentID).
		Order("created_at DESC").
		Find(&billings).Error
	if err != nil {
		return nil, err
	}
	return billings, nil
}

func (r *billingRepository) Update(db *gorm.DB, billing *entity.Billing) error {
	return db.Omit("Appointment", "Items").Save(billing).Error
}

// ReplaceItems swaps the full line-item set; totals are recomputed by the
// caller from scratch, never incrementally.
func (r *billingRepository) ReplaceItems(db *gorm.DB, billingID uuid.UUID, items []entity.BillingItem) error {
	if err := db.Where("billing_id = ?", billingID).Delete(&entity.BillingItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].BillingID = billingID
	}
	return db.Create(&items).Error
}

func (r *billingRepository) SettleGuarded(db *gorm.DB, billing *entity.Billing) (int64, error) {
	result := db.Model(&entity.Billing{}).
		Where("id = ? AND status = ?", billing.ID, entity.BillingStatusOpen).
		Updates(map[string]interface{}{
			"status":         entity.BillingStatusPaid,
			"payment_method": billing.PaymentMethod,
			"paid_at":        billing.PaidAt,
		})
	return result.RowsAffected, result.Error
}

func (r *billingRepository) Delete(db *gorm.DB, id uuid.UUID) (int64, error) {
	if err := db.Where("billing_id = ?", id).Delete(&entity.BillingItem{}).Error; err != nil {
		return 0, err
	}
	result := db.Where("id = ? AND status = ?", id, entity.BillingStatusOpen).Delete(&entity.Billing{})
	return result.RowsAffected, result.Error
}
