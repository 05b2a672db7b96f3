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
	ErrQueueEntryNotFound = errors.New("queue entry not found")
	ErrNotWalkIn          = errors.New("appointment is not a walk-in")
)

type QueueUsecase interface {
	// IssueWalkInToken moves a registered walk-in into the waiting line
	// and returns the entry carrying its token and position.
	IssueWalkInToken(ctx context.Context, appointmentID uuid.UUID) (*dto.QueueEntryResponse, error)
	GetQueue(ctx context.Context, doctorID uuid.UUID, date string) (*dto.QueueListResponse, error)
	// ReorderQueue replaces the ordering of a scope's active entries. The
	// payload must list exactly the current active ids; otherwise nothing
	// changes and the mismatch is reported.
	ReorderQueue(ctx context.Context, req *dto.ReorderQueueRequest) (*dto.QueueListResponse, error)
	// PrioritizeEntry moves one waiting entry to position 1.
	PrioritizeEntry(ctx context.Context, entryID uuid.UUID) (*dto.QueueEntryResponse, error)
	// RemoveFromQueue takes a waiting patient out of the line (no-show or
	// walked out), cancels the appointment and closes the position gap.
	RemoveFromQueue(ctx context.Context, entryID uuid.UUID) error
}

type queueUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	queueRepo    repository.QueueEntryRepository
	appointment  repository.AppointmentRepository
	engine       *queueEngine
	auditService service.AuditService
}

func NewQueueUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	queueRepo repository.QueueEntryRepository,
	appointmentRepo repository.AppointmentRepository,
	engine *queueEngine,
	auditService service.AuditService,
) QueueUsecase {
	return &queueUsecase{
		db:           db,
		log:          log,
		queueRepo:    queueRepo,
		appointment:  appointmentRepo,
		engine:       engine,
		auditService: auditService,
	}
}

func (u *queueUsecase) IssueWalkInToken(ctx context.Context, appointmentID uuid.UUID) (*dto.QueueEntryResponse, error) {
	appointment, err := u.appointment.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if !appointment.IsWalkIn() {
		return nil, ErrNotWalkIn
	}

	unlock := u.engine.locks.Lock(appointment.DoctorID, appointment.Date)
	defer unlock()

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	appointment, err = u.appointment.FindByIDForUpdate(tx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

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

	affected, err := u.appointment.UpdateStatusGuarded(tx, appointmentID, from, appointment.Status)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrConcurrencyConflict
	}

	entry, err := u.engine.append(ctx, tx, appointment, false)
	if err != nil {
		u.log.Warnf("Failed to append walk-in %s to queue: %+v", appointmentID, err)
		return nil, err
	}

	u.audit(ctx, tx, entity.AuditActionWalkInToken, entry.ID, map[string]interface{}{
		"appointment_id": appointmentID,
		"token":          entry.Token,
		"position":       entry.Position,
	})

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.log.Infof("Walk-in token issued: appointment=%s, token=%d, position=%d", appointmentID, entry.Token, entry.Position)

	entry.Appointment = appointment
	return converter.QueueEntryToResponse(entry), nil
}

func (u *queueUsecase) GetQueue(ctx context.Context, doctorID uuid.UUID, date string) (*dto.QueueListResponse, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, ErrInvalidDateFormat
	}

	entries, err := u.queueRepo.FindByDoctorAndDate(u.db.WithContext(ctx), doctorID, day)
	if err != nil {
		u.log.Warnf("Failed to load queue for doctor %s on %s: %+v", doctorID, date, err)
		return nil, err
	}

	// Active entries lead in position order; retired and parked entries
	// trail in arrival order.
	var active, rest []*entity.QueueEntry
	for _, e := range entries {
		if e.IsActive() {
			active = append(active, e)
		} else {
			rest = append(rest, e)
		}
	}
	entity.SortByPosition(active)

	ordered := make([]*entity.QueueEntry, 0, len(entries))
	ordered = append(ordered, active...)
	ordered = append(ordered, rest...)

	return &dto.QueueListResponse{
		DoctorID: doctorID,
		Date:     date,
		Entries:  converter.QueueEntriesToResponses(ordered),
		Total:    len(ordered),
	}, nil
}

func (u *queueUsecase) ReorderQueue(ctx context.Context, req *dto.ReorderQueueRequest) (*dto.QueueListResponse, error) {
	day, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, ErrInvalidDateFormat
	}

	unlock := u.engine.locks.Lock(req.DoctorID, day)
	defer unlock()

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	active, err := u.queueRepo.FindActiveForUpdate(tx, req.DoctorID, day)
	if err != nil {
		u.log.Warnf("Failed to load active queue for doctor %s: %+v", req.DoctorID, err)
		return nil, err
	}

	if err := entity.ApplyReorder(active, req.EntryIDs); err != nil {
		return nil, err
	}
	if err := u.engine.persistPositions(tx, active); err != nil {
		return nil, err
	}

	u.audit(ctx, tx, entity.AuditActionQueueReorder, req.DoctorID, map[string]interface{}{
		"date":  req.Date,
		"order": req.EntryIDs,
	})

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.log.Infof("Queue reordered: doctor=%s, date=%s, entries=%d", req.DoctorID, req.Date, len(req.EntryIDs))
	return u.GetQueue(ctx, req.DoctorID, req.Date)
}

func (u *queueUsecase) PrioritizeEntry(ctx context.Context, entryID uuid.UUID) (*dto.QueueEntryResponse, error) {
	entry, err := u.queueRepo.FindByID(u.db.WithContext(ctx), entryID)
	if err != nil {
		u.log.Warnf("Failed to find queue entry %s: %+v", entryID, err)
		return nil, err
	}
	if entry == nil {
		return nil, ErrQueueEntryNotFound
	}

	unlock := u.engine.locks.Lock(entry.DoctorID, entry.Date)
	defer unlock()

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	entry, err = u.queueRepo.FindByID(tx, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrQueueEntryNotFound
	}
	if entry.Status != entity.QueueStatusWaiting {
		return nil, ErrQueueEntryNotActive
	}

	if err := u.engine.moveToHead(tx, entry); err != nil {
		return nil, err
	}

	u.audit(ctx, tx, entity.AuditActionQueuePriority, entry.ID, map[string]interface{}{
		"token": entry.Token,
	})

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.log.Infof("Queue entry prioritized: id=%s, token=%d", entryID, entry.Token)

	entry, err = u.queueRepo.FindByID(u.db.WithContext(ctx), entryID)
	if err != nil {
		return nil, err
	}
	return converter.QueueEntryToResponse(entry), nil
}

func (u *queueUsecase) RemoveFromQueue(ctx context.Context, entryID uuid.UUID) error {
	entry, err := u.queueRepo.FindByID(u.db.WithContext(ctx), entryID)
	if err != nil {
		u.log.Warnf("Failed to find queue entry %s: %+v", entryID, err)
		return err
	}
	if entry == nil {
		return ErrQueueEntryNotFound
	}

	unlock := u.engine.locks.Lock(entry.DoctorID, entry.Date)
	defer unlock()

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	entry, err = u.queueRepo.FindByID(tx, entryID)
	if err != nil {
		return err
	}
	if entry == nil {
		return ErrQueueEntryNotFound
	}
	if entry.Status != entity.QueueStatusWaiting {
		return ErrQueueEntryNotActive
	}

	if entry.AppointmentID != nil {
		appointment, err := u.appointment.FindByIDForUpdate(tx, *entry.AppointmentID)
		if err != nil {
			return err
		}
		if appointment != nil {
			from := appointment.Status
			if err := appointment.Transition(entity.EventCancel); err != nil {
				return err
			}
			affected, err := u.appointment.UpdateStatusGuarded(tx, appointment.ID, from, entity.StatusCancelled)
			if err != nil {
				return err
			}
			if affected == 0 {
				return ErrConcurrencyConflict
			}
		}
	}

	if err := u.queueRepo.Delete(tx, entry.ID); err != nil {
		return err
	}
	if err := u.engine.closeGapAfterExit(tx, entry); err != nil {
		return err
	}

	u.audit(ctx, tx, entity.AuditActionQueueRemove, entry.ID, map[string]interface{}{
		"token":    entry.Token,
		"position": entry.Position,
	})

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return err
	}

	u.log.Infof("Queue entry removed: id=%s, token=%d", entryID, entry.Token)
	return nil
}

func (u *queueUsecase) audit(ctx context.Context, tx *gorm.DB, action string, entityID uuid.UUID, detail map[string]interface{}) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	var actor *uuid.UUID
	if ok {
		actor = &userID
	}
	_ = u.auditService.LogUpdate(ctx, tx, actor, action, "queue_entry", fmt.Sprint(entityID), nil, detail)
}
