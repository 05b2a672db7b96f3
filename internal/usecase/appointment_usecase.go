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
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrAppointmentNotOwned = errors.New("appointment does not belong to you")
	ErrSlotUnavailable     = errors.New("requested slot is outside the doctor's availability")
	ErrAppointmentPast     = errors.New("cannot book an appointment in the past")
	ErrAlreadyQueued       = errors.New("appointment already has a queue entry")
	ErrConcurrencyConflict = errors.New("lost a race for this record, re-read and retry")
	ErrQueueEntryNotActive = errors.New("queue entry is not in the active waiting line")
)

type AppointmentUsecase interface {
	BookAppointment(ctx context.Context, req *dto.BookAppointmentRequest) (*dto.AppointmentResponse, error)
	RegisterWalkIn(ctx context.Context, req *dto.RegisterWalkInRequest) (*dto.AppointmentResponse, error)
	ConfirmAppointment(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error)
	// CheckInPatient moves a scheduled appointment to arrived, or a walk-in
	// to waiting, and creates the queue entry. With priority set the entry
	// lands at position 1 instead of the tail.
	CheckInPatient(ctx context.Context, appointmentID uuid.UUID, priority bool) (*dto.AppointmentResponse, error)
	AcceptAppointment(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error)
	CancelAppointment(ctx context.Context, appointmentID uuid.UUID) error
	GetAppointment(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error)
	GetMyAppointments(ctx context.Context) (*dto.AppointmentListResponse, error)
}

type appointmentUsecase struct {
	db               *gorm.DB
	log              *logrus.Logger
	appointmentRepo  repository.AppointmentRepository
	queueRepo        repository.QueueEntryRepository
	doctorRepo       repository.DoctorProfileRepository
	patientRepo      repository.PatientProfileRepository
	availabilityRepo repository.DoctorAvailabilityRepository
	engine           *queueEngine
	auditService     service.AuditService
	notifier         service.Notifier
}

func NewAppointmentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	queueRepo repository.QueueEntryRepository,
	doctorRepo repository.DoctorProfileRepository,
	patientRepo repository.PatientProfileRepository,
	availabilityRepo repository.DoctorAvailabilityRepository,
	engine *queueEngine,
	auditService service.AuditService,
	notifier service.Notifier,
) AppointmentUsecase {
	return &appointmentUsecase{
		db:               db,
		log:              log,
		appointmentRepo:  appointmentRepo,
		queueRepo:        queueRepo,
		doctorRepo:       doctorRepo,
		patientRepo:      patientRepo,
		availabilityRepo: availabilityRepo,
		engine:           engine,
		auditService:     auditService,
		notifier:         notifier,
	}
}

// BookAppointment creates a scheduled appointment for the logged-in
// patient after validating the slot against the doctor's availability.
func (u *appointmentUsecase) BookAppointment(ctx context.Context, req *dto.BookAppointmentRequest) (*dto.AppointmentResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, ErrInvalidDateFormat
	}
	if _, err := time.Parse("15:04", req.StartTime); err != nil {
		return nil, ErrInvalidTimeFormat
	}
	if _, err := time.Parse("15:04", req.EndTime); err != nil {
		return nil, ErrInvalidTimeFormat
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	if date.Before(today) {
		return nil, ErrAppointmentPast
	}

	doctor, err := u.doctorRepo.FindByUserID(u.db.WithContext(ctx), req.DoctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", req.DoctorID, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	windows, err := u.availabilityRepo.FindByDoctorAndDate(u.db.WithContext(ctx), req.DoctorID, date)
	if err != nil {
		u.log.Warnf("Failed to load availability for doctor %s: %+v", req.DoctorID, err)
		return nil, err
	}
	covered := false
	for i := range windows {
		if windows[i].Covers(req.StartTime, req.EndTime) {
			covered = true
			break
		}
	}
	if !covered {
		return nil, ErrSlotUnavailable
	}

	appointment := &entity.Appointment{
		PatientID: userID,
		DoctorID:  req.DoctorID,
		Kind:      entity.KindScheduled,
		Date:      date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Reason:    req.Reason,
		Status:    entity.StatusScheduled,
		Consent:   req.MedicalRecordConsent,
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := u.appointmentRepo.Create(tx, appointment); err != nil {
		u.log.Warnf("Failed to create appointment: %+v", err)
		return nil, err
	}

	u.audit(ctx, tx, entity.AuditActionAppointmentBook, appointment)

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.log.Infof("Appointment booked: id=%s, doctor=%s, date=%s", appointment.ID, appointment.DoctorID, req.Date)
	return converter.AppointmentToResponse(appointment), nil
}

// RegisterWalkIn creates a same-day walk-in appointment on behalf of a
// patient. The appointment starts in registered; the token is issued by a
// separate call once the patient is actually put in the line.
func (u *appointmentUsecase) RegisterWalkIn(ctx context.Context, req *dto.RegisterWalkInRequest) (*dto.AppointmentResponse, error) {
	doctor, err := u.doctorRepo.FindByUserID(u.db.WithContext(ctx), req.DoctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", req.DoctorID, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	patient, err := u.patientRepo.FindByUserID(ctx, u.db, req.PatientID)
	if err != nil {
		u.log.Warnf("Failed to find patient %s: %+v", req.PatientID, err)
		return nil, err
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}

	appointment := &entity.Appointment{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		Kind:      entity.KindWalkIn,
		Date:      time.Now().UTC().Truncate(24 * time.Hour),
		Reason:    req.Reason,
		Status:    entity.StatusRegistered,
		Consent:   req.MedicalRecordConsent,
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := u.appointmentRepo.Create(tx, appointment); err != nil {
		u.log.Warnf("Failed to register walk-in: %+v", err)
		return nil, err
	}

	u.audit(ctx, tx, entity.AuditActionWalkInRegister, appointment)

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.log.Infof("Walk-in registered: id=%s, doctor=%s", appointment.ID, appointment.DoctorID)
	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentUsecase) ConfirmAppointment(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.transition(ctx, appointmentID, entity.EventConfirm, entity.AuditActionAppointmentConfirm)
	if err != nil {
		return nil, err
	}
	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentUsecase) AcceptAppointment(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.transition(ctx, appointmentID, entity.EventAccept, entity.AuditActionAppointmentAccept)
	if err != nil {
		return nil, err
	}
	return converter.AppointmentToResponse(appointment), nil
}

// CheckInPatient applies the check-in transition and creates the queue
// entry in one transaction, under the scope lock, so appointment status
// and queue status can never diverge.
func (u *appointmentUsecase) CheckInPatient(ctx context.Context, appointmentID uuid.UUID, priority bool) (*dto.AppointmentResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
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

	// Double check-in of the same appointment must not produce two entries
	existing, err := u.queueRepo.FindByAppointmentID(tx, appointmentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyQueued
	}

	from := appointment.Status
	if err := appointment.Transition(entity.EventCheckIn); err != nil {
		return nil, err
	}

	affected, err := u.appointmentRepo.UpdateStatusGuarded(tx, appointmentID, from, appointment.Status)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrConcurrencyConflict
	}

	entry, err := u.engine.append(ctx, tx, appointment, priority)
	if err != nil {
		u.log.Warnf("Failed to append appointment %s to queue: %+v", appointmentID, err)
		return nil, err
	}
	appointment.QueueEntry = entry

	u.audit(ctx, tx, entity.AuditActionAppointmentCheckIn, appointment)

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.log.Infof("Patient checked in: appointment=%s, token=%d, position=%d, priority=%t",
		appointmentID, entry.Token, entry.Position, priority)

	u.notifyPatient(ctx, appointment, service.NotifyCheckedIn,
		fmt.Sprintf("You are checked in. Your queue token is %d.", entry.Token))

	return converter.AppointmentToResponse(appointment), nil
}

// CancelAppointment is terminal and only legal strictly before
// consultation. Patients may cancel their own appointments pre-arrival;
// receptionists may cancel any cancellable appointment.
func (u *appointmentUsecase) CancelAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	userID, _ := middleware.GetUserIDFromContext(ctx)
	roleID, _ := middleware.GetRoleIDFromContext(ctx)

	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return err
	}
	if appointment == nil {
		return ErrAppointmentNotFound
	}

	if roleID == entity.RoleIDPatient {
		if appointment.PatientID != userID {
			return ErrAppointmentNotOwned
		}
		// Once the patient is in the building cancellation moves to the desk
		if appointment.Status == entity.StatusArrived || appointment.Status == entity.StatusAccepted {
			return &entity.InvalidTransitionError{Kind: appointment.Kind, From: appointment.Status, Event: entity.EventCancel}
		}
	}

	unlock := u.engine.locks.Lock(appointment.DoctorID, appointment.Date)
	defer unlock()

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	appointment, err = u.appointmentRepo.FindByIDForUpdate(tx, appointmentID)
	if err != nil {
		return err
	}
	if appointment == nil {
		return ErrAppointmentNotFound
	}

	from := appointment.Status
	if err := appointment.Transition(entity.EventCancel); err != nil {
		return err
	}

	affected, err := u.appointmentRepo.UpdateStatusGuarded(tx, appointmentID, from, entity.StatusCancelled)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConcurrencyConflict
	}

	// Drop the queue entry, if any, and close the gap in the line
	entry, err := u.queueRepo.FindByAppointmentID(tx, appointmentID)
	if err != nil {
		return err
	}
	if entry != nil {
		if err := u.queueRepo.Delete(tx, entry.ID); err != nil {
			return err
		}
		if err := u.engine.closeGapAfterExit(tx, entry); err != nil {
			return err
		}
	}

	u.audit(ctx, tx, entity.AuditActionAppointmentCancel, appointment)

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return err
	}

	u.log.Infof("Appointment cancelled: id=%s (was %s)", appointmentID, from)

	u.notifyPatient(ctx, appointment, service.NotifyAppointmentCancelled, "Your appointment has been cancelled.")
	return nil
}

func (u *appointmentUsecase) GetAppointment(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentUsecase) GetMyAppointments(ctx context.Context) (*dto.AppointmentListResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	appointments, err := u.appointmentRepo.FindByPatientID(u.db.WithContext(ctx), userID)
	if err != nil {
		u.log.Warnf("Failed to find appointments for patient %s: %+v", userID, err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

// transition applies a queue-less lifecycle event (confirm, accept) with a
// guarded status swap.
func (u *appointmentUsecase) transition(ctx context.Context, appointmentID uuid.UUID, event entity.AppointmentEvent, auditAction string) (*entity.Appointment, error) {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	appointment, err := u.appointmentRepo.FindByIDForUpdate(tx, appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	from := appointment.Status
	if err := appointment.Transition(event); err != nil {
		return nil, err
	}

	affected, err := u.appointmentRepo.UpdateStatusGuarded(tx, appointmentID, from, appointment.Status)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrConcurrencyConflict
	}

	u.audit(ctx, tx, auditAction, appointment)

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.log.Infof("Appointment %s: %s -> %s", appointmentID, from, appointment.Status)
	return appointment, nil
}

func (u *appointmentUsecase) audit(ctx context.Context, tx *gorm.DB, action string, appointment *entity.Appointment) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	var actor *uuid.UUID
	if ok {
		actor = &userID
	}
	// Audit failures are logged by the service; they don't abort the flow
	_ = u.auditService.LogUpdate(ctx, tx, actor, action, "appointment", appointment.ID.String(), nil, map[string]interface{}{
		"status": appointment.Status,
		"kind":   appointment.Kind,
	})
}

// notifyPatient is strictly best-effort; the result is logged and dropped.
func (u *appointmentUsecase) notifyPatient(ctx context.Context, appointment *entity.Appointment, event, message string) {
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
