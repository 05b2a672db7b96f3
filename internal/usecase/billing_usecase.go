package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinicflow/internal/converter"
	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/delivery/http/middleware"
	"clinicflow/internal/domain/entity"
	"clinicflow/internal/domain/repository"
	"clinicflow/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrBillingNotFound     = errors.New("billing not found")
	ErrDuplicateBilling    = errors.New("appointment already has an open billing")
	ErrBillingNotOpen      = errors.New("billing is not open")
	ErrBillingNotBillable  = errors.New("appointment is not awaiting billing")
	ErrServiceItemNotFound = errors.New("service item not found")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidPayment      = errors.New("invalid payment method")
)

type BillingUsecase interface {
	// CreateBilling opens the invoice for an appointment that finished
	// consultation. At most one open billing per appointment.
	CreateBilling(ctx context.Context, req *dto.CreateBillingRequest) (*dto.BillingResponse, error)
	GetBilling(ctx context.Context, billingID uuid.UUID) (*dto.BillingResponse, error)
	GetBillingByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]dto.BillingResponse, error)
	// UpdateBilling replaces the line items of an open billing and
	// recomputes all amounts from scratch.
	UpdateBilling(ctx context.Context, billingID uuid.UUID, req *dto.UpdateBillingRequest) (*dto.BillingResponse, error)
	DeleteBilling(ctx context.Context, billingID uuid.UUID) error
	// SettleBilling marks the billing paid and completes the appointment
	// lifecycle in the same transaction.
	SettleBilling(ctx context.Context, billingID uuid.UUID, req *dto.SettleBillingRequest) (*dto.BillingResponse, error)
}

type billingUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	billingRepo     repository.BillingRepository
	appointmentRepo repository.AppointmentRepository
	queueRepo       repository.QueueEntryRepository
	itemRepo        repository.ServiceItemRepository
	doctorRepo      repository.DoctorProfileRepository
	patientRepo     repository.PatientProfileRepository
	auditService    service.AuditService
	notifier        service.Notifier
}

func NewBillingUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	billingRepo repository.BillingRepository,
	appointmentRepo repository.AppointmentRepository,
	queueRepo repository.QueueEntryRepository,
	itemRepo repository.ServiceItemRepository,
	doctorRepo repository.DoctorProfileRepository,
	patientRepo repository.PatientProfileRepository,
	auditService service.AuditService,
	notifier service.Notifier,
) BillingUsecase {
	return &billingUsecase{
		db:              db,
		log:             log,
		billingRepo:     billingRepo,
		appointmentRepo: appointmentRepo,
		queueRepo:       queueRepo,
		itemRepo:        itemRepo,
		doctorRepo:      doctorRepo,
		patientRepo:     patientRepo,
		auditService:    auditService,
		notifier:        notifier,
	}
}

func (u *billingUsecase) CreateBilling(ctx context.Context, req *dto.CreateBillingRequest) (*dto.BillingResponse, error) {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	appointment, err := u.appointmentRepo.FindByIDForUpdate(tx, req.AppointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", req.AppointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if appointment.Status != entity.StatusPendingBill && appointment.Status != entity.StatusPendingTxn {
		return nil, ErrBillingNotBillable
	}

	existing, err := u.billingRepo.FindOpenByAppointmentID(tx, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateBilling
	}

	billing := &entity.Billing{
		AppointmentID: req.AppointmentID,
		Status:        entity.BillingStatusOpen,
	}
	billing.Tax, billing.Discount, err = parseBillingAmounts(req.Tax, req.Discount)
	if err != nil {
		return nil, err
	}

	if len(req.Items) > 0 {
		billing.Items, err = u.buildItems(tx, req.Items)
	} else {
		billing.Items, err = u.defaultConsultationLine(tx, appointment.DoctorID)
	}
	if err != nil {
		return nil, err
	}
	billing.Recompute()

	if err := u.billingRepo.Create(tx, billing); err != nil {
		u.log.Warnf("Failed to create billing for appointment %s: %+v", req.AppointmentID, err)
		return nil, err
	}

	u.audit(ctx, tx, entity.AuditActionBillingCreate, billing)

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.log.Infof("Billing created: id=%s, appointment=%s, total=%s", billing.ID, req.AppointmentID, billing.Total)
	return converter.BillingToResponse(billing), nil
}

func (u *billingUsecase) GetBilling(ctx context.Context, billingID uuid.UUID) (*dto.BillingResponse, error) {
	billing, err := u.billingRepo.FindByID(u.db.WithContext(ctx), billingID)
	if err != nil {
		u.log.Warnf("Failed to find billing %s: %+v", billingID, err)
		return nil, err
	}
	if billing == nil {
		return nil, ErrBillingNotFound
	}
	return converter.BillingToResponse(billing), nil
}

func (u *billingUsecase) GetBillingByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]dto.BillingResponse, error) {
	billings, err := u.billingRepo.FindByAppointmentID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find billings for appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	responses := make([]dto.BillingResponse, 0, len(billings))
	for i := range billings {
		responses = append(responses, *converter.BillingToResponse(&billings[i]))
	}
	return responses, nil
}

func (u *billingUsecase) UpdateBilling(ctx context.Context, billingID uuid.UUID, req *dto.UpdateBillingRequest) (*dto.BillingResponse, error) {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	billing, err := u.billingRepo.FindByID(tx, billingID)
	if err != nil {
		u.log.Warnf("Failed to find billing %s: %+v", billingID, err)
		return nil, err
	}
	if billing == nil {
		return nil, ErrBillingNotFound
	}
	if !billing.IsOpen() {
		return nil, ErrBillingNotOpen
	}

	billing.Tax, billing.Discount, err = parseBillingAmounts(req.Tax, req.Discount)
	if err != nil {
		return nil, err
	}

	billing.Items, err = u.buildItems(tx, req.Items)
	if err != nil {
		return nil, err
	}
	billing.Recompute()

	if err := u.billingRepo.ReplaceItems(tx, billing.ID, billing.Items); err != nil {
		return nil, err
	}
	if err := u.billingRepo.Update(tx, billing); err != nil {
		return nil, err
	}

	u.audit(ctx, tx, entity.AuditActionBillingUpdate, billing)

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.log.Infof("Billing updated: id=%s, total=%s", billingID, billing.Total)
	return converter.BillingToResponse(billing), nil
}

func (u *billingUsecase) DeleteBilling(ctx context.Context, billingID uuid.UUID) error {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	billing, err := u.billingRepo.FindByID(tx, billingID)
	if err != nil {
		u.log.Warnf("Failed to find billing %s: %+v", billingID, err)
		return err
	}
	if billing == nil {
		return ErrBillingNotFound
	}
	if !billing.IsOpen() {
		return ErrBillingNotOpen
	}

	affected, err := u.billingRepo.Delete(tx, billingID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBillingNotFound
	}

	u.audit(ctx, tx, entity.AuditActionBillingDelete, billing)

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return err
	}

	u.log.Infof("Billing deleted: id=%s", billingID)
	return nil
}

func (u *billingUsecase) SettleBilling(ctx context.Context, billingID uuid.UUID, req *dto.SettleBillingRequest) (*dto.BillingResponse, error) {
	switch req.PaymentMethod {
	case entity.PaymentCash, entity.PaymentCard, entity.PaymentTransfer:
	default:
		return nil, ErrInvalidPayment
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	billing, err := u.billingRepo.FindByID(tx, billingID)
	if err != nil {
		u.log.Warnf("Failed to find billing %s: %+v", billingID, err)
		return nil, err
	}
	if billing == nil {
		return nil, ErrBillingNotFound
	}

	billing.Settle(req.PaymentMethod, time.Now().UTC())

	affected, err := u.billingRepo.SettleGuarded(tx, billing)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrBillingNotOpen
	}

	appointment, err := u.appointmentRepo.FindByIDForUpdate(tx, billing.AppointmentID)
	if err != nil {
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	from := appointment.Status
	if err := appointment.Transition(entity.EventSettleBilling); err != nil {
		return nil, err
	}

	swapped, err := u.appointmentRepo.UpdateStatusGuarded(tx, appointment.ID, from, entity.StatusCompleted)
	if err != nil {
		return nil, err
	}
	if swapped == 0 {
		return nil, ErrConcurrencyConflict
	}

	// Retire the parked queue entry; it left the active set when the
	// consultation completed.
	entry, err := u.queueRepo.FindByAppointmentID(tx, billing.AppointmentID)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		swapped, err = u.queueRepo.UpdateStatusGuarded(tx, entry.ID, entity.QueueStatusPendingTxn, entity.QueueStatusCompleted)
		if err != nil {
			return nil, err
		}
		if swapped == 0 {
			return nil, ErrConcurrencyConflict
		}
	}

	u.audit(ctx, tx, entity.AuditActionBillingSettle, billing)

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.log.Infof("Billing settled: id=%s, appointment=%s, method=%s, total=%s",
		billingID, billing.AppointmentID, req.PaymentMethod, billing.Total)

	u.notifyPatient(ctx, appointment, service.NotifyBillingSettled,
		fmt.Sprintf("Payment of %s received. Thank you for your visit.", billing.Total))

	return converter.BillingToResponse(billing), nil
}

// buildItems resolves request lines into billing items. Catalog lines take
// name and unit price from the catalog at this moment; ad-hoc lines carry
// their own.
func (u *billingUsecase) buildItems(tx *gorm.DB, lines []dto.BillingItemRequest) ([]entity.BillingItem, error) {
	items := make([]entity.BillingItem, 0, len(lines))
	for _, line := range lines {
		quantity := line.Quantity
		if quantity < 1 {
			quantity = 1
		}

		if line.ItemID != nil {
			catalogItem, err := u.itemRepo.FindByID(tx, *line.ItemID)
			if err != nil {
				return nil, err
			}
			if catalogItem == nil || !catalogItem.Active {
				return nil, ErrServiceItemNotFound
			}
			items = append(items, entity.BillingItem{
				ItemID:   line.ItemID,
				Name:     catalogItem.Name,
				Amount:   catalogItem.Price,
				Quantity: quantity,
			})
			continue
		}

		amount, err := decimal.NewFromString(line.Amount)
		if err != nil || amount.IsNegative() {
			return nil, ErrInvalidAmount
		}
		items = append(items, entity.BillingItem{
			Name:     line.Name,
			Amount:   amount,
			Quantity: quantity,
		})
	}
	return items, nil
}

// defaultConsultationLine prices a billing opened without explicit items
// from the doctor's consultation fee.
func (u *billingUsecase) defaultConsultationLine(tx *gorm.DB, doctorID uuid.UUID) ([]entity.BillingItem, error) {
	doctor, err := u.doctorRepo.FindByUserID(tx, doctorID)
	if err != nil {
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}
	return []entity.BillingItem{{
		Name:     "Consultation",
		Amount:   doctor.ConsultationFee,
		Quantity: 1,
	}}, nil
}

// parseBillingAmounts parses tax and discount. Empty strings mean zero.
func parseBillingAmounts(tax, discount string) (decimal.Decimal, decimal.Decimal, error) {
	parsed := func(s string) (decimal.Decimal, error) {
		if s == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil || d.IsNegative() {
			return decimal.Zero, ErrInvalidAmount
		}
		return d, nil
	}
	t, err := parsed(tax)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	d, err := parsed(discount)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return t, d, nil
}

func (u *billingUsecase) audit(ctx context.Context, tx *gorm.DB, action string, billing *entity.Billing) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	var actor *uuid.UUID
	if ok {
		actor = &userID
	}
	_ = u.auditService.LogUpdate(ctx, tx, actor, action, "billing", billing.ID.String(), nil, map[string]interface{}{
		"appointment_id": billing.AppointmentID,
		"status":         billing.Status,
		"total":          billing.Total,
	})
}

func (u *billingUsecase) notifyPatient(ctx context.Context, appointment *entity.Appointment, event, message string) {
	patient, err := u.patientRepo.FindByUserID(ctx, u.db, appointment.PatientID)
	if err != nil || patient == nil {
		u.log.Warnf("Skipping %s notification, patient %s not loaded: %+v", event, appointment.PatientID, err)
		return
	}
	result := u.notifier.NotifyPatient(patient.User.Email, event, message)
	if !result.Delivered {
		u.log.Infof("Notification %s for appointment %s not delivered", event, appointment.ID)
	}
}
