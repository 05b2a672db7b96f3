package usecase

import (
	"context"
	"errors"
	"testing"

	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/delivery/http/middleware"
	"clinicflow/internal/domain/entity"
	"clinicflow/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeRecordRepo struct {
	records   map[uuid.UUID]*entity.MedicalRecord
	createErr error
}

func newFakeRecordRepo(records ...*entity.MedicalRecord) *fakeRecordRepo {
	repo := &fakeRecordRepo{records: map[uuid.UUID]*entity.MedicalRecord{}}
	for _, r := range records {
		repo.records[r.AppointmentID] = r
	}
	return repo
}

func (r *fakeRecordRepo) Create(db *gorm.DB, record *entity.MedicalRecord) error {
	if r.createErr != nil {
		return r.createErr
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	r.records[record.AppointmentID] = record
	return nil
}

func (r *fakeRecordRepo) FindByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) (*entity.MedicalRecord, error) {
	return r.records[appointmentID], nil
}

type consultationFixture struct {
	usecase    ConsultationUsecase
	recordRepo *fakeRecordRepo
	queueRepo  *fakeQueueRepo
	notifier   *fakeNotifier
}

func newConsultationFixture(t *testing.T, appointments []*entity.Appointment, entries []*entity.QueueEntry, records []*entity.MedicalRecord) *consultationFixture {
	t.Helper()

	db, mock := newTestDB(t)
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 8; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}

	locks := service.NewScopeLockService(quietLogger())
	t.Cleanup(locks.Stop)

	f := &consultationFixture{
		recordRepo: newFakeRecordRepo(records...),
		queueRepo:  newFakeQueueRepo(entries...),
		notifier:   &fakeNotifier{},
	}

	patientRepo := newFakePatientRepo()
	for _, a := range appointments {
		patientRepo.profiles[a.PatientID] = &entity.PatientProfile{
			UserID: a.PatientID,
			User:   entity.User{Email: "patient@example.com"},
		}
	}

	engine := NewQueueEngine(locks, newFakeTokenAllocator(entries...), f.queueRepo)
	recordStore := service.NewMedicalRecordService(quietLogger(), f.recordRepo)

	f.usecase = NewConsultationUsecase(db, quietLogger(), newFakeAppointmentRepo(appointments...), f.queueRepo,
		f.recordRepo, patientRepo, engine, recordStore, &fakeAuditService{}, f.notifier)
	return f
}

func doctorCtx(doctorID uuid.UUID) context.Context {
	ctx := context.WithValue(context.Background(), middleware.UserIDKey, doctorID)
	return context.WithValue(ctx, middleware.RoleIDKey, entity.RoleIDDoctor)
}

func patientCtx(patientID uuid.UUID) context.Context {
	ctx := context.WithValue(context.Background(), middleware.UserIDKey, patientID)
	return context.WithValue(ctx, middleware.RoleIDKey, entity.RoleIDPatient)
}

func waitingAppointment(doctorID uuid.UUID) *entity.Appointment {
	return &entity.Appointment{
		ID:        uuid.New(),
		PatientID: uuid.New(),
		DoctorID:  doctorID,
		Kind:      entity.KindWalkIn,
		Date:      queueDate,
		Status:    entity.StatusWaiting,
	}
}

func TestConsultationUsecase_StartConsultation(t *testing.T) {
	doctorID := uuid.New()
	appointment := waitingAppointment(doctorID)
	entry := waitingEntry(doctorID, 1, 1)
	entry.AppointmentID = &appointment.ID

	f := newConsultationFixture(t, []*entity.Appointment{appointment}, []*entity.QueueEntry{entry}, nil)

	resp, err := f.usecase.StartConsultation(doctorCtx(doctorID), appointment.ID)
	require.NoError(t, err)

	assert.Equal(t, string(entity.StatusInConsultation), resp.Status)
	assert.Equal(t, entity.StatusInConsultation, appointment.Status)
	assert.Equal(t, entity.QueueStatusInConsultation, entry.Status)
}

func TestConsultationUsecase_StartConsultation_OnePatientCeiling(t *testing.T) {
	doctorID := uuid.New()

	busy := waitingAppointment(doctorID)
	busy.Status = entity.StatusInConsultation
	busyEntry := waitingEntry(doctorID, 1, 1)
	busyEntry.AppointmentID = &busy.ID
	busyEntry.Status = entity.QueueStatusInConsultation

	next := waitingAppointment(doctorID)
	nextEntry := waitingEntry(doctorID, 2, 1)
	nextEntry.AppointmentID = &next.ID

	f := newConsultationFixture(t, []*entity.Appointment{busy, next}, []*entity.QueueEntry{busyEntry, nextEntry}, nil)

	_, err := f.usecase.StartConsultation(doctorCtx(doctorID), next.ID)
	assert.ErrorIs(t, err, ErrConsultationInProgress)
	assert.Equal(t, entity.StatusWaiting, next.Status)
}

func TestConsultationUsecase_StartConsultation_NotYourPatient(t *testing.T) {
	doctorID := uuid.New()
	appointment := waitingAppointment(doctorID)
	f := newConsultationFixture(t, []*entity.Appointment{appointment}, nil, nil)

	_, err := f.usecase.StartConsultation(doctorCtx(uuid.New()), appointment.ID)
	assert.ErrorIs(t, err, ErrNotYourPatient)
}

func TestConsultationUsecase_StartConsultation_NoQueueEntry(t *testing.T) {
	doctorID := uuid.New()
	appointment := waitingAppointment(doctorID)
	f := newConsultationFixture(t, []*entity.Appointment{appointment}, nil, nil)

	_, err := f.usecase.StartConsultation(doctorCtx(doctorID), appointment.ID)
	assert.ErrorIs(t, err, ErrQueueEntryMissing)
}

func TestConsultationUsecase_CompleteConsultation(t *testing.T) {
	doctorID := uuid.New()
	appointment := waitingAppointment(doctorID)
	appointment.Status = entity.StatusInConsultation

	entry := waitingEntry(doctorID, 1, 1)
	entry.AppointmentID = &appointment.ID
	entry.Status = entity.QueueStatusInConsultation
	behind := waitingEntry(doctorID, 2, 2)

	f := newConsultationFixture(t, []*entity.Appointment{appointment}, []*entity.QueueEntry{entry, behind}, nil)

	resp, err := f.usecase.CompleteConsultation(doctorCtx(doctorID), appointment.ID, &dto.CompleteConsultationRequest{
		Diagnosis: "Acute pharyngitis",
		Symptoms:  "Sore throat, fever",
		Prescriptions: map[string]interface{}{
			"amoxicillin": "500mg 3x daily",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, string(entity.StatusPendingTxn), resp.Status)
	assert.Equal(t, entity.QueueStatusPendingTxn, entry.Status)
	// The next patient in line moves up
	assert.Equal(t, 1, behind.Position)

	record := f.recordRepo.records[appointment.ID]
	require.NotNil(t, record)
	assert.Equal(t, "Acute pharyngitis", record.Diagnosis)

	assert.Contains(t, f.notifier.events, service.NotifyConsultationComplete)
}

func TestConsultationUsecase_CompleteConsultation_RecordWriteAborts(t *testing.T) {
	doctorID := uuid.New()
	appointment := waitingAppointment(doctorID)
	appointment.Status = entity.StatusInConsultation
	entry := waitingEntry(doctorID, 1, 1)
	entry.AppointmentID = &appointment.ID
	entry.Status = entity.QueueStatusInConsultation

	f := newConsultationFixture(t, []*entity.Appointment{appointment}, []*entity.QueueEntry{entry}, nil)
	f.recordRepo.createErr = errors.New("disk full")

	_, err := f.usecase.CompleteConsultation(doctorCtx(doctorID), appointment.ID, &dto.CompleteConsultationRequest{
		Diagnosis: "Acute pharyngitis",
	})

	assert.ErrorContains(t, err, "save medical record")
	// The queue entry stays put, so nothing downstream proceeds
	assert.Equal(t, entity.QueueStatusInConsultation, entry.Status)
	assert.Empty(t, f.notifier.events)
}

func TestConsultationUsecase_CompleteConsultation_WrongPhase(t *testing.T) {
	doctorID := uuid.New()
	appointment := waitingAppointment(doctorID)
	entry := waitingEntry(doctorID, 1, 1)
	entry.AppointmentID = &appointment.ID

	f := newConsultationFixture(t, []*entity.Appointment{appointment}, []*entity.QueueEntry{entry}, nil)

	_, err := f.usecase.CompleteConsultation(doctorCtx(doctorID), appointment.ID, &dto.CompleteConsultationRequest{})

	var transitionErr *entity.InvalidTransitionError
	assert.True(t, errors.As(err, &transitionErr))
}

func TestConsultationUsecase_GetMedicalRecord(t *testing.T) {
	doctorID := uuid.New()
	appointment := waitingAppointment(doctorID)
	appointment.Status = entity.StatusCompleted
	appointment.Consent = true

	record := &entity.MedicalRecord{
		ID:            uuid.New(),
		AppointmentID: appointment.ID,
		Diagnosis:     "Acute pharyngitis",
	}

	f := newConsultationFixture(t, []*entity.Appointment{appointment}, nil, []*entity.MedicalRecord{record})

	resp, err := f.usecase.GetMedicalRecord(doctorCtx(doctorID), appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acute pharyngitis", resp.Diagnosis)

	resp, err = f.usecase.GetMedicalRecord(patientCtx(appointment.PatientID), appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, resp.ID)
}

func TestConsultationUsecase_GetMedicalRecord_AccessDenied(t *testing.T) {
	doctorID := uuid.New()
	appointment := waitingAppointment(doctorID)
	appointment.Status = entity.StatusCompleted

	record := &entity.MedicalRecord{ID: uuid.New(), AppointmentID: appointment.ID}
	f := newConsultationFixture(t, []*entity.Appointment{appointment}, nil, []*entity.MedicalRecord{record})

	_, err := f.usecase.GetMedicalRecord(doctorCtx(uuid.New()), appointment.ID)
	assert.ErrorIs(t, err, ErrNotYourPatient)

	_, err = f.usecase.GetMedicalRecord(patientCtx(uuid.New()), appointment.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotOwned)

	// Owner without record keeping consent sees nothing
	_, err = f.usecase.GetMedicalRecord(patientCtx(appointment.PatientID), appointment.ID)
	assert.ErrorIs(t, err, ErrMedicalRecordNotFound)
}

func TestConsultationUsecase_GetMedicalRecord_Missing(t *testing.T) {
	doctorID := uuid.New()
	appointment := waitingAppointment(doctorID)
	appointment.Status = entity.StatusInConsultation

	f := newConsultationFixture(t, []*entity.Appointment{appointment}, nil, nil)

	_, err := f.usecase.GetMedicalRecord(doctorCtx(doctorID), appointment.ID)
	assert.ErrorIs(t, err, ErrMedicalRecordNotFound)
}
