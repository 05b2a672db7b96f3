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
	ErrAvailabilityNotFound = errors.New("availability window not found")
	ErrInvalidTimeFormat    = errors.New("invalid time format, use HH:MM")
	ErrInvalidTimeRange     = errors.New("start time must be before end time")
	ErrNotYourWindow        = errors.New("availability window belongs to another doctor")
)

type AvailabilityUsecase interface {
	CreateAvailability(ctx context.Context, req *dto.CreateAvailabilityRequest) (*dto.AvailabilityResponse, error)
	GetAvailability(ctx context.Context, windowID int) (*dto.AvailabilityResponse, error)
	GetAvailabilitiesByDoctor(ctx context.Context, doctorID uuid.UUID) (*dto.AvailabilityListResponse, error)
	// SearchAvailabilities is the public browse endpoint patients book from.
	SearchAvailabilities(ctx context.Context, req *dto.SearchAvailabilityRequest) (*dto.AvailabilityListResponse, error)
	UpdateAvailability(ctx context.Context, windowID int, req *dto.UpdateAvailabilityRequest) (*dto.AvailabilityResponse, error)
	DeleteAvailability(ctx context.Context, windowID int) error
}

type availabilityUsecase struct {
	db               *gorm.DB
	log              *logrus.Logger
	availabilityRepo repository.DoctorAvailabilityRepository
	doctorRepo       repository.DoctorProfileRepository
	auditService     service.AuditService
}

func NewAvailabilityUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	availabilityRepo repository.DoctorAvailabilityRepository,
	doctorRepo repository.DoctorProfileRepository,
	auditService service.AuditService,
) AvailabilityUsecase {
	return &availabilityUsecase{
		db:               db,
		log:              log,
		availabilityRepo: availabilityRepo,
		doctorRepo:       doctorRepo,
		auditService:     auditService,
	}
}

func (u *availabilityUsecase) CreateAvailability(ctx context.Context, req *dto.CreateAvailabilityRequest) (*dto.AvailabilityResponse, error) {
	doctorID, err := u.resolveDoctorID(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	doctor, err := u.doctorRepo.FindByUserID(u.db.WithContext(ctx), doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", doctorID, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, ErrInvalidDateFormat
	}
	if err := validateTimeRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	window := &entity.DoctorAvailability{
		DoctorID:  doctorID,
		Date:      date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := u.availabilityRepo.Create(tx, window); err != nil {
		u.log.Warnf("Failed to create availability window: %+v", err)
		return nil, err
	}

	u.audit(ctx, tx, entity.AuditActionAvailabilityCreate, window)

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	return converter.AvailabilityToResponse(window), nil
}

func (u *availabilityUsecase) GetAvailability(ctx context.Context, windowID int) (*dto.AvailabilityResponse, error) {
	window, err := u.availabilityRepo.FindByID(u.db.WithContext(ctx), windowID)
	if err != nil {
		u.log.Warnf("Failed to find availability window %d: %+v", windowID, err)
		return nil, err
	}
	if window == nil {
		return nil, ErrAvailabilityNotFound
	}
	return converter.AvailabilityToResponse(window), nil
}

func (u *availabilityUsecase) GetAvailabilitiesByDoctor(ctx context.Context, doctorID uuid.UUID) (*dto.AvailabilityListResponse, error) {
	windows, err := u.availabilityRepo.FindByDoctorID(u.db.WithContext(ctx), doctorID)
	if err != nil {
		u.log.Warnf("Failed to find availability windows for doctor %s: %+v", doctorID, err)
		return nil, err
	}
	return &dto.AvailabilityListResponse{
		Availabilities: converter.AvailabilitiesToResponses(windows),
		Total:          len(windows),
	}, nil
}

func (u *availabilityUsecase) SearchAvailabilities(ctx context.Context, req *dto.SearchAvailabilityRequest) (*dto.AvailabilityListResponse, error) {
	filter := &entity.AvailabilityFilter{
		StartAt:        req.StartAt,
		EndAt:          req.EndAt,
		DoctorName:     req.DoctorName,
		Specialization: req.Specialization,
	}

	windows, err := u.availabilityRepo.FindAllWithActiveDoctor(u.db.WithContext(ctx), filter)
	if err != nil {
		u.log.Warnf("Failed to search availability windows: %+v", err)
		return nil, err
	}

	return &dto.AvailabilityListResponse{
		Availabilities: converter.AvailabilitiesToResponses(windows),
		Total:          len(windows),
	}, nil
}

func (u *availabilityUsecase) UpdateAvailability(ctx context.Context, windowID int, req *dto.UpdateAvailabilityRequest) (*dto.AvailabilityResponse, error) {
	window, err := u.loadOwnWindow(ctx, windowID)
	if err != nil {
		return nil, err
	}

	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return nil, ErrInvalidDateFormat
		}
		window.Date = date
	}
	if req.StartTime != "" {
		window.StartTime = req.StartTime
	}
	if req.EndTime != "" {
		window.EndTime = req.EndTime
	}
	if err := validateTimeRange(window.StartTime, window.EndTime); err != nil {
		return nil, err
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := u.availabilityRepo.Update(tx, window); err != nil {
		u.log.Warnf("Failed to update availability window %d: %+v", windowID, err)
		return nil, err
	}

	u.audit(ctx, tx, entity.AuditActionAvailabilityUpdate, window)

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	return converter.AvailabilityToResponse(window), nil
}

func (u *availabilityUsecase) DeleteAvailability(ctx context.Context, windowID int) error {
	window, err := u.loadOwnWindow(ctx, windowID)
	if err != nil {
		return err
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	affected, err := u.availabilityRepo.Delete(tx, windowID)
	if err != nil {
		u.log.Warnf("Failed to delete availability window %d: %+v", windowID, err)
		return err
	}
	if affected == 0 {
		return ErrAvailabilityNotFound
	}

	u.audit(ctx, tx, entity.AuditActionAvailabilityDelete, window)

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return err
	}

	return nil
}

// resolveDoctorID picks the target doctor. Doctors always act on their own
// windows; admins may pass any doctor id.
func (u *availabilityUsecase) resolveDoctorID(ctx context.Context, requested uuid.UUID) (uuid.UUID, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, errors.New("user not found in context")
	}
	roleID, _ := middleware.GetRoleIDFromContext(ctx)
	if roleID == entity.RoleIDDoctor {
		return userID, nil
	}
	if requested == uuid.Nil {
		return uuid.Nil, ErrDoctorNotFound
	}
	return requested, nil
}

func (u *availabilityUsecase) loadOwnWindow(ctx context.Context, windowID int) (*entity.DoctorAvailability, error) {
	window, err := u.availabilityRepo.FindByID(u.db.WithContext(ctx), windowID)
	if err != nil {
		u.log.Warnf("Failed to find availability window %d: %+v", windowID, err)
		return nil, err
	}
	if window == nil {
		return nil, ErrAvailabilityNotFound
	}

	userID, _ := middleware.GetUserIDFromContext(ctx)
	roleID, _ := middleware.GetRoleIDFromContext(ctx)
	if roleID == entity.RoleIDDoctor && window.DoctorID != userID {
		return nil, ErrNotYourWindow
	}
	return window, nil
}

func validateTimeRange(start, end string) error {
	if _, err := time.Parse("15:04", start); err != nil {
		return ErrInvalidTimeFormat
	}
	if _, err := time.Parse("15:04", end); err != nil {
		return ErrInvalidTimeFormat
	}
	if start >= end {
		return ErrInvalidTimeRange
	}
	return nil
}

func (u *availabilityUsecase) audit(ctx context.Context, tx *gorm.DB, action string, window *entity.DoctorAvailability) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	var actor *uuid.UUID
	if ok {
		actor = &userID
	}
	_ = u.auditService.LogUpdate(ctx, tx, actor, action, "doctor_availability", fmt.Sprint(window.ID), nil, map[string]interface{}{
		"doctor_id": window.DoctorID,
		"date":      window.Date.Format("2006-01-02"),
		"window":    window.StartTime + "-" + window.EndTime,
	})
}
