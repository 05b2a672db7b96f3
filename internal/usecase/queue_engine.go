package usecase

import (
	"context"

	"clinicflow/internal/domain/entity"
	"clinicflow/internal/domain/repository"
	"clinicflow/internal/service"

	"gorm.io/gorm"
)

// queueEngine is the shared core of the waiting-line invariant: every
// mutation of a (doctor, date) line goes through it, under the scope lock
// and inside the caller's transaction, so active positions always form a
// dense 1..N permutation.
type queueEngine struct {
	locks     *service.ScopeLockService
	tokens    service.TokenAllocator
	queueRepo repository.QueueEntryRepository
}

func NewQueueEngine(locks *service.ScopeLockService, tokens service.TokenAllocator, queueRepo repository.QueueEntryRepository) *queueEngine {
	return &queueEngine{
		locks:     locks,
		tokens:    tokens,
		queueRepo: queueRepo,
	}
}

// append creates the waiting entry for an appointment at the tail of the
// line (or at its head when priority is set). Token allocation happens
// first; a token is burned if the transaction later aborts, which is fine:
// tokens must be unique and increasing, not contiguous.
func (e *queueEngine) append(ctx context.Context, tx *gorm.DB, appointment *entity.Appointment, priority bool) (*entity.QueueEntry, error) {
	token, err := e.tokens.Allocate(ctx, appointment.DoctorID, appointment.Date)
	if err != nil {
		return nil, err
	}

	active, err := e.queueRepo.FindActiveForUpdate(tx, appointment.DoctorID, appointment.Date)
	if err != nil {
		return nil, err
	}

	appointmentID := appointment.ID
	entry := &entity.QueueEntry{
		AppointmentID: &appointmentID,
		DoctorID:      appointment.DoctorID,
		Date:          appointment.Date,
		Token:         token,
		Position:      entity.NextPosition(active),
		Status:        entity.QueueStatusWaiting,
	}
	if err := e.queueRepo.Create(tx, entry); err != nil {
		return nil, err
	}

	if priority {
		active = append(active, entry)
		if err := entity.MoveToHead(active, entry.ID); err != nil {
			return nil, err
		}
		if err := e.persistPositions(tx, active); err != nil {
			return nil, err
		}
	}

	return entry, nil
}

// moveToHead moves an existing active entry to position 1.
func (e *queueEngine) moveToHead(tx *gorm.DB, entry *entity.QueueEntry) error {
	active, err := e.queueRepo.FindActiveForUpdate(tx, entry.DoctorID, entry.Date)
	if err != nil {
		return err
	}
	if err := entity.MoveToHead(active, entry.ID); err != nil {
		return ErrQueueEntryNotActive
	}
	return e.persistPositions(tx, active)
}

// closeGapAfterExit renumbers the remaining active entries once the given
// entry has left the active set (retired, removed, or parked pending
// billing). The departing entry keeps whatever position value it had.
func (e *queueEngine) closeGapAfterExit(tx *gorm.DB, departed *entity.QueueEntry) error {
	active, err := e.queueRepo.FindActiveForUpdate(tx, departed.DoctorID, departed.Date)
	if err != nil {
		return err
	}
	remaining := make([]*entity.QueueEntry, 0, len(active))
	for _, a := range active {
		if a.ID != departed.ID {
			remaining = append(remaining, a)
		}
	}
	entity.CloseGap(remaining)
	return e.persistPositions(tx, remaining)
}

// persistPositions writes the entries' positions back.
func (e *queueEngine) persistPositions(tx *gorm.DB, entries []*entity.QueueEntry) error {
	for _, entry := range entries {
		if err := e.queueRepo.UpdatePosition(tx, entry.ID, entry.Position); err != nil {
			return err
		}
	}
	return nil
}
