package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/domain/entity"
	"clinicflow/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeDoctorRepo struct {
	profiles map[uuid.UUID]*entity.DoctorProfile
}

func newFakeDoctorRepo(profiles ...*entity.DoctorProfile) *fakeDoctorRepo {
	repo := &fakeDoctorRepo{profiles: map[uuid.UUID]*entity.DoctorProfile{}}
	for _, p := range profiles {
		repo.profiles[p.UserID] = p
	}
	return repo
}

func (r *fakeDoctorRepo) Create(db *gorm.DB, profile *entity.DoctorProfile) error {
	r.profiles[profile.UserID] = profile
	return nil
}

func (r *fakeDoctorRepo) FindByUserID(db *gorm.DB, userID uuid.UUID) (*entity.DoctorProfile, error) {
	return r.profiles[userID], nil
}

func (r *fakeDoctorRepo) FindAll(db *gorm.DB) ([]entity.DoctorProfile, error) {
	var out []entity.DoctorProfile
	for _, p := range r.profiles {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakeDoctorRepo) Update(db *gorm.DB, profile *entity.DoctorProfile) error {
	r.profiles[profile.UserID] = profile
	return nil
}

func (r *fakeDoctorRepo) Delete(db *gorm.DB, userID uuid.UUID) error {
	delete(r.profiles, userID)
	return nil
}

type fakeAvailabilityRepo struct {
	windows []*entity.DoctorAvailability
}

func (r *fakeAvailabilityRepo) Create(db *gorm.DB, window *entity.DoctorAvailability) error {
	r.windows = append(r.windows, window)
	return nil
}

func (r *fakeAvailabilityRepo) FindByID(db *gorm.DB, id int) (*entity.DoctorAvailability, error) {
	for _, w := range r.windows {
		if w.ID == id {
			return w, nil
		}
	}
	return nil, nil
}

func (r *fakeAvailabilityRepo) FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) ([]entity.DoctorAvailability, error) {
	var out []entity.DoctorAvailability
	for _, w := range r.windows {
		if w.DoctorID == doctorID {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (r *fakeAvailabilityRepo) FindByDoctorAndDate(db *gorm.DB, doctorID uuid.UUID, date time.Time) ([]entity.DoctorAvailability, error) {
	var out []entity.DoctorAvailability
	for _, w := range r.windows {
		if w.DoctorID == doctorID && w.Date.Equal(date) {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (r *fakeAvailabilityRepo) FindAllWithActiveDoctor(db *gorm.DB, filter *entity.AvailabilityFilter) ([]entity.DoctorAvailability, error) {
	var out []entity.DoctorAvailability
	for _, w := range r.windows {
		out = append(out, *w)
	}
	return out, nil
}

func (r *fakeAvailabilityRepo) Update(db *gorm.DB, window *entity.DoctorAvailability) error {
	return nil
}

func (r *fakeAvailabilityRepo) Delete(db *gorm.DB, id int) (int64, error) {
	for i, w := range r.windows {
		if w.ID == id {
			r.windows = append(r.windows[:i], r.windows[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

type appointmentFixture struct {
	usecase          AppointmentUsecase
	appointmentRepo  *fakeAppointmentRepo
	queueRepo        *fakeQueueRepo
	doctorRepo       *fakeDoctorRepo
	patientRepo      *fakePatientRepo
	availabilityRepo *fakeAvailabilityRepo
	notifier         *fakeNotifier
}

func newAppointmentFixture(t *testing.T, appointments []*entity.Appointment, entries []*entity.QueueEntry) *appointmentFixture {
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

	f := &appointmentFixture{
		appointmentRepo:  newFakeAppointmentRepo(appointments...),
		queueRepo:        newFakeQueueRepo(entries...),
		doctorRepo:       newFakeDoctorRepo(),
		patientRepo:      newFakePatientRepo(),
		availabilityRepo: &fakeAvailabilityRepo{},
		notifier:         &fakeNotifier{},
	}

	for _, a := range appointments {
		f.patientRepo.profiles[a.PatientID] = &entity.PatientProfile{
			UserID: a.PatientID,
			User:   entity.User{Email: "patient@example.com"},
		}
	}

	engine := NewQueueEngine(locks, newFakeTokenAllocator(entries...), f.queueRepo)
	f.usecase = NewAppointmentUsecase(db, quietLogger(), f.appointmentRepo, f.queueRepo,
		f.doctorRepo, f.patientRepo, f.availabilityRepo, engine, &fakeAuditService{}, f.notifier)
	return f
}

func (f *appointmentFixture) seedDoctor(doctorID uuid.UUID) {
	f.doctorRepo.profiles[doctorID] = &entity.DoctorProfile{UserID: doctorID, Specialization: "general"}
}

func futureDate() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 7)
}

func TestAppointmentUsecase_BookAppointment(t *testing.T) {
	doctorID := uuid.New()
	patientID := uuid.New()
	date := futureDate()

	f := newAppointmentFixture(t, nil, nil)
	f.seedDoctor(doctorID)
	f.availabilityRepo.windows = append(f.availabilityRepo.windows, &entity.DoctorAvailability{
		ID: 1, DoctorID: doctorID, Date: date, StartTime: "09:00", EndTime: "12:00",
	})

	resp, err := f.usecase.BookAppointment(patientCtx(patientID), &dto.BookAppointmentRequest{
		DoctorID:             doctorID,
		Date:                 date.Format("2006-01-02"),
		StartTime:            "09:30",
		EndTime:              "10:00",
		Reason:               "checkup",
		MedicalRecordConsent: true,
	})

	require.NoError(t, err)
	assert.Equal(t, string(entity.StatusScheduled), resp.Status)
	assert.Equal(t, string(entity.KindScheduled), resp.Kind)
	assert.Equal(t, patientID, resp.PatientID)
}

func TestAppointmentUsecase_BookAppointment_Rejections(t *testing.T) {
	doctorID := uuid.New()
	date := futureDate()

	f := newAppointmentFixture(t, nil, nil)
	f.seedDoctor(doctorID)
	f.availabilityRepo.windows = append(f.availabilityRepo.windows, &entity.DoctorAvailability{
		ID: 1, DoctorID: doctorID, Date: date, StartTime: "09:00", EndTime: "12:00",
	})

	base := func() *dto.BookAppointmentRequest {
		return &dto.BookAppointmentRequest{
			DoctorID:  doctorID,
			Date:      date.Format("2006-01-02"),
			StartTime: "09:30",
			EndTime:   "10:00",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*dto.BookAppointmentRequest)
		wantErr error
	}{
		{"bad date format", func(r *dto.BookAppointmentRequest) { r.Date = "07/09/2026" }, ErrInvalidDateFormat},
		{"bad time format", func(r *dto.BookAppointmentRequest) { r.StartTime = "9am" }, ErrInvalidTimeFormat},
		{"past date", func(r *dto.BookAppointmentRequest) { r.Date = "2020-01-01" }, ErrAppointmentPast},
		{"unknown doctor", func(r *dto.BookAppointmentRequest) { r.DoctorID = uuid.New() }, ErrDoctorNotFound},
		{"slot outside window", func(r *dto.BookAppointmentRequest) { r.StartTime = "13:00"; r.EndTime = "13:30" }, ErrSlotUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			tt.mutate(req)
			_, err := f.usecase.BookAppointment(patientCtx(uuid.New()), req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAppointmentUsecase_RegisterWalkIn(t *testing.T) {
	doctorID := uuid.New()
	patientID := uuid.New()

	f := newAppointmentFixture(t, nil, nil)
	f.seedDoctor(doctorID)
	f.patientRepo.profiles[patientID] = &entity.PatientProfile{UserID: patientID}

	resp, err := f.usecase.RegisterWalkIn(context.Background(), &dto.RegisterWalkInRequest{
		PatientID: patientID,
		DoctorID:  doctorID,
		Reason:    "fever",
	})

	require.NoError(t, err)
	assert.Equal(t, string(entity.StatusRegistered), resp.Status)
	assert.Equal(t, string(entity.KindWalkIn), resp.Kind)

	_, err = f.usecase.RegisterWalkIn(context.Background(), &dto.RegisterWalkInRequest{
		PatientID: patientID,
		DoctorID:  uuid.New(),
	})
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	_, err = f.usecase.RegisterWalkIn(context.Background(), &dto.RegisterWalkInRequest{
		PatientID: uuid.New(),
		DoctorID:  doctorID,
	})
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestAppointmentUsecase_ConfirmAppointment(t *testing.T) {
	appointment := &entity.Appointment{
		ID:       uuid.New(),
		DoctorID: uuid.New(),
		Kind:     entity.KindScheduled,
		Date:     futureDate(),
		Status:   entity.StatusScheduled,
	}
	f := newAppointmentFixture(t, []*entity.Appointment{appointment}, nil)

	resp, err := f.usecase.ConfirmAppointment(context.Background(), appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.StatusConfirmed), resp.Status)

	// Confirming twice is an illegal transition
	_, err = f.usecase.ConfirmAppointment(context.Background(), appointment.ID)
	var transitionErr *entity.InvalidTransitionError
	assert.True(t, errors.As(err, &transitionErr))
}

func TestAppointmentUsecase_CheckInPatient(t *testing.T) {
	doctorID := uuid.New()
	appointment := &entity.Appointment{
		ID:        uuid.New(),
		PatientID: uuid.New(),
		DoctorID:  doctorID,
		Kind:      entity.KindScheduled,
		Date:      queueDate,
		Status:    entity.StatusConfirmed,
	}
	f := newAppointmentFixture(t, []*entity.Appointment{appointment}, nil)

	resp, err := f.usecase.CheckInPatient(context.Background(), appointment.ID, false)
	require.NoError(t, err)

	assert.Equal(t, string(entity.StatusArrived), resp.Status)
	require.NotNil(t, resp.QueueEntry)
	assert.Equal(t, 1, resp.QueueEntry.Token)
	assert.Equal(t, 1, resp.QueueEntry.Position)
	assert.Contains(t, f.notifier.events, service.NotifyCheckedIn)

	// A second check-in must not mint a second entry
	_, err = f.usecase.CheckInPatient(context.Background(), appointment.ID, false)
	assert.ErrorIs(t, err, ErrAlreadyQueued)
}

func TestAppointmentUsecase_CheckInPatient_PriorityJumpsTheLine(t *testing.T) {
	doctorID := uuid.New()
	ahead := waitingEntry(doctorID, 1, 1)
	appointment := &entity.Appointment{
		ID:        uuid.New(),
		PatientID: uuid.New(),
		DoctorID:  doctorID,
		Kind:      entity.KindScheduled,
		Date:      queueDate,
		Status:    entity.StatusConfirmed,
	}
	f := newAppointmentFixture(t, []*entity.Appointment{appointment}, []*entity.QueueEntry{ahead})

	resp, err := f.usecase.CheckInPatient(context.Background(), appointment.ID, true)
	require.NoError(t, err)

	require.NotNil(t, resp.QueueEntry)
	assert.Equal(t, 2, resp.QueueEntry.Token)
	assert.Equal(t, 1, resp.QueueEntry.Position)
	assert.Equal(t, 2, ahead.Position)
}

func TestAppointmentUsecase_CancelAppointment(t *testing.T) {
	patientID := uuid.New()
	appointment := &entity.Appointment{
		ID:        uuid.New(),
		PatientID: patientID,
		DoctorID:  uuid.New(),
		Kind:      entity.KindScheduled,
		Date:      futureDate(),
		Status:    entity.StatusConfirmed,
	}
	f := newAppointmentFixture(t, []*entity.Appointment{appointment}, nil)

	require.NoError(t, f.usecase.CancelAppointment(patientCtx(patientID), appointment.ID))
	assert.Equal(t, entity.StatusCancelled, appointment.Status)
	assert.Contains(t, f.notifier.events, service.NotifyAppointmentCancelled)
}

func TestAppointmentUsecase_CancelAppointment_Denied(t *testing.T) {
	patientID := uuid.New()
	appointment := &entity.Appointment{
		ID:        uuid.New(),
		PatientID: patientID,
		DoctorID:  uuid.New(),
		Kind:      entity.KindScheduled,
		Date:      queueDate,
		Status:    entity.StatusArrived,
	}
	f := newAppointmentFixture(t, []*entity.Appointment{appointment}, nil)

	err := f.usecase.CancelAppointment(patientCtx(uuid.New()), appointment.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotOwned)

	// Once arrived, the patient can no longer self-cancel
	err = f.usecase.CancelAppointment(patientCtx(patientID), appointment.ID)
	var transitionErr *entity.InvalidTransitionError
	assert.True(t, errors.As(err, &transitionErr))
	assert.Equal(t, entity.StatusArrived, appointment.Status)
}

func TestAppointmentUsecase_CancelAppointment_RemovesQueueEntry(t *testing.T) {
	doctorID := uuid.New()
	appointment := &entity.Appointment{
		ID:        uuid.New(),
		PatientID: uuid.New(),
		DoctorID:  doctorID,
		Kind:      entity.KindWalkIn,
		Date:      queueDate,
		Status:    entity.StatusWaiting,
	}
	entry := waitingEntry(doctorID, 1, 1)
	entry.AppointmentID = &appointment.ID
	behind := waitingEntry(doctorID, 2, 2)

	f := newAppointmentFixture(t, []*entity.Appointment{appointment}, []*entity.QueueEntry{entry, behind})

	// Front desk pulls the waiting patient out entirely
	require.NoError(t, f.usecase.CancelAppointment(context.Background(), appointment.ID))

	assert.Equal(t, entity.StatusCancelled, appointment.Status)
	_, ok := f.queueRepo.entries[entry.ID]
	assert.False(t, ok)
	assert.Equal(t, 1, behind.Position)
}

func TestAppointmentUsecase_GetMyAppointments(t *testing.T) {
	patientID := uuid.New()
	mine := &entity.Appointment{ID: uuid.New(), PatientID: patientID, DoctorID: uuid.New(), Kind: entity.KindScheduled, Status: entity.StatusScheduled}
	other := &entity.Appointment{ID: uuid.New(), PatientID: uuid.New(), DoctorID: uuid.New(), Kind: entity.KindScheduled, Status: entity.StatusScheduled}
	f := newAppointmentFixture(t, []*entity.Appointment{mine, other}, nil)

	resp, err := f.usecase.GetMyAppointments(patientCtx(patientID))
	require.NoError(t, err)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, mine.ID, resp.Appointments[0].ID)
}
