package usecase

import (
	"context"
	"errors"

	"clinicflow/internal/converter"
	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/delivery/http/middleware"
	"clinicflow/internal/domain/entity"
	"clinicflow/internal/domain/repository"
	"clinicflow/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrConsultationInProgress = errors.New("doctor already has a patient in consultation")
	ErrNotYourPatient         = errors.New("appointment belongs to another doctor")
	ErrQueueEntryMissing      = errors.New("appointment has no queue entry")
)

type ConsultationUsecase interface {
	// StartConsultation pulls a queued patient into the consultation room.
	// At most one patient per doctor per day may be in consultation.
	StartConsultation(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error)
	// CompleteConsultation writes the medical record and moves the
	// appointment to its billing-pending status in one transaction. The
	// record write failing aborts the whole transition.
	CompleteConsultation(ctx context.Context, appointmentID uuid.UUID, req *dto.CompleteConsultationRequest) (*dto.AppointmentResponse, error)
	GetMedicalRecord(ctx context.Context, appointmentID uuid.UUID) (*dto.MedicalRecordResponse, error)
}

type consultationUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	queueRepo       repository.QueueEntryRepository
	recordRepo      repository.MedicalRecordRepository
	patientRepo     repository.PatientProfileRepository
	engine          *queueEngine
	recordStore     service.MedicalRecordStore
	auditService    service.AuditService
	notifier        service.Notifier
}

func NewConsultationUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	queueRepo repository.QueueEntryRepository,
	recordRepo repository.MedicalRecordRepository,
	patientRepo repository.PatientProfileRepository,
	engine *queueEngine,
	recordStore service.MedicalRecordStore,
	auditService service.AuditService,
	notifier service.Notifier,
) ConsultationUsecase {
	return &consultationUsecase{
		db:              db,
		log:             log,
		appointmentRepo: appointmentRepo,
		queueRepo:       queueRepo,
		recordRepo:      recordRepo,
		patientRepo:     patientRepo,
		engine:          engine,
		recordStore:     recordStore,
		auditService:    auditService,
		notifier:        notifier,
	}
}

func (u *consultationUsecase) StartConsultation(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.loadOwnAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	unlock := u.engine.locks.Lock(appointment.DoctorID, appointment.Date)
	defer unlock()

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	appointment, err = u.appointmentRepo.FindByIDForUpdate(tx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	// The one-patient-in-consultation ceiling. Checked under the scope
	// lock and re-enforced by a partial unique index.
	busy, err := u.queueRepo.CountInConsultation(tx, appointment.DoctorID, appointment.Date)
	if err != nil {
		return nil, err
	}
	if busy > 0 {
		return nil, ErrConsultationInProgress
	}

	entry, err := u.queueRepo.FindByAppointmentID(tx, appointmentID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrQueueEntryMissing
	}

	from := appointment.Status
	if err := appointment.Transition(entity.EventStartConsultation); err != nil {
		return nil, err
	}

	affected, err := u.appointmentRepo.UpdateStatusGuarded(tx, appointmentID, from, appointment.Status)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrConcurrencyConflict
	}

	affected, err = u.queueRepo.UpdateStatusGuarded(tx, entry.ID, entity.QueueStatusWaiting, entity.QueueStatusInConsultation)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrConcurrencyConflict
	}

	u.audit(ctx, tx, entity.AuditActionConsultationStart, appointment)

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.log.Infof("Consultation started: appointment=%s, doctor=%s, token=%d", appointmentID, appointment.DoctorID, entry.Token)
	return converter.AppointmentToResponse(appointment), nil
}

func (u *consultationUsecase) CompleteConsultation(ctx context.Context, appointmentID uuid.UUID, req *dto.CompleteConsultationRequest) (*dto.AppointmentResponse, error) {
	appointment, err := u.loadOwnAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	unlock := u.engine.locks.Lock(appointment.DoctorID, appointment.Date)
	defer unlock()

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	appointment, err = u.appointmentRepo.FindByIDForUpdate(tx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	entry, err := u.queueRepo.FindByAppointmentID(tx, appointmentID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrQueueEntryMissing
	}

	from := appointment.Status
	if err := appointment.Transition(entity.EventCompleteConsultation); err != nil {
		return nil, err
	}

	// The record write precedes the status swap in the same transaction.
	// If it fails, the appointment stays in consultation.
	record := &entity.MedicalRecord{
		AppointmentID: appointmentID,
		Diagnosis:     req.Diagnosis,
		Symptoms:      req.Symptoms,
		Prescriptions: entity.JSON(req.Prescriptions),
		LabTests:      entity.JSON(req.LabTests),
	}
	if err := u.recordStore.Save(tx, record); err != nil {
		return nil, err
	}

	affected, err := u.appointmentRepo.UpdateStatusGuarded(tx, appointmentID, from, appointment.Status)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrConcurrencyConflict
	}

	affected, err = u.queueRepo.UpdateStatusGuarded(tx, entry.ID, entity.QueueStatusInConsultation, entity.QueueStatusPendingTxn)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrConcurrencyConflict
	}

	// The entry leaves the active set; the line behind it moves up. Its
	// own position stays frozen for display until settlement retires it.
	if err := u.engine.closeGapAfterExit(tx, entry); err != nil {
		return nil, err
	}

	u.audit(ctx, tx, entity.AuditActionConsultationComplete, appointment)

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.log.Infof("Consultation completed: appointment=%s, status=%s", appointmentID, appointment.Status)

	u.notifyPatient(ctx, appointment, service.NotifyConsultationComplete,
		"Your consultation is complete. Please proceed to the payment desk.")

	return converter.AppointmentToResponse(appointment), nil
}

// GetMedicalRecord returns the clinical record of an appointment. Doctors
// see records of their own appointments; patients see their own when they
// consented to record keeping.
func (u *consultationUsecase) GetMedicalRecord(ctx context.Context, appointmentID uuid.UUID) (*dto.MedicalRecordResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}
	roleID, _ := middleware.GetRoleIDFromContext(ctx)

	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	switch roleID {
	case entity.RoleIDDoctor:
		if appointment.DoctorID != userID {
			return nil, ErrNotYourPatient
		}
	case entity.RoleIDPatient:
		if appointment.PatientID != userID {
			return nil, ErrAppointmentNotOwned
		}
		if !appointment.Consent {
			return nil, ErrMedicalRecordNotFound
		}
	}

	record, err := u.recordRepo.FindByAppointmentID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find medical record for appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if record == nil {
		return nil, ErrMedicalRecordNotFound
	}

	return converter.MedicalRecordToResponse(record), nil
}

var ErrMedicalRecordNotFound = errors.New("medical record not found")

// loadOwnAppointment loads the appointment and verifies the calling doctor
// owns it. Admins pass the ownership check.
func (u *consultationUsecase) loadOwnAppointment(ctx context.Context, appointmentID uuid.UUID) (*entity.Appointment, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}
	roleID, _ := middleware.GetRoleIDFromContext(ctx)

	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if roleID == entity.RoleIDDoctor && appointment.DoctorID != userID {
		return nil, ErrNotYourPatient
	}
	return appointment, nil
}

func (u *consultationUsecase) audit(ctx context.Context, tx *gorm.DB, action string, appointment *entity.Appointment) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	var actor *uuid.UUID
	if ok {
		actor = &userID
	}
	_ = u.auditService.LogUpdate(ctx, tx, actor, action, "appointment", appointment.ID.String(), nil, map[string]interface{}{
		"status": appointment.Status,
	})
}

func (u *consultationUsecase) notifyPatient(ctx context.Context, appointment *entity.Appointment, event, message string) {
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
