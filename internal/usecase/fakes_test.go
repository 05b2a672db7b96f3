package usecase

import (
	"context"
	"testing"
	"time"

	"clinicflow/internal/domain/entity"
	"clinicflow/internal/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newTestDB returns a gorm handle over sqlmock. The repositories are all
// faked in these tests, so the mock only has to serve transaction control.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	return db, mock
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.FatalLevel)
	return log
}

type fakeAppointmentRepo struct {
	appointments map[uuid.UUID]*entity.Appointment
	swapFails    bool
}

func newFakeAppointmentRepo(appointments ...*entity.Appointment) *fakeAppointmentRepo {
	repo := &fakeAppointmentRepo{appointments: map[uuid.UUID]*entity.Appointment{}}
	for _, a := range appointments {
		repo.appointments[a.ID] = a
	}
	return repo
}

func (r *fakeAppointmentRepo) Create(db *gorm.DB, appointment *entity.Appointment) error {
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	r.appointments[appointment.ID] = appointment
	return nil
}

func (r *fakeAppointmentRepo) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	return r.appointments[id], nil
}

func (r *fakeAppointmentRepo) FindByIDForUpdate(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	return r.appointments[id], nil
}

func (r *fakeAppointmentRepo) FindByPatientID(db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error) {
	var out []entity.Appointment
	for _, a := range r.appointments {
		if a.PatientID == patientID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeAppointmentRepo) FindByDoctorAndDate(db *gorm.DB, doctorID uuid.UUID, date time.Time) ([]entity.Appointment, error) {
	var out []entity.Appointment
	for _, a := range r.appointments {
		if a.DoctorID == doctorID && a.Date.Equal(date) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeAppointmentRepo) UpdateStatusGuarded(db *gorm.DB, id uuid.UUID, from, to entity.AppointmentStatus) (int64, error) {
	if r.swapFails {
		return 0, nil
	}
	a, ok := r.appointments[id]
	// The usecases mutate the loaded row in place before the guarded swap,
	// so the stored status may already equal the target.
	if !ok || (a.Status != from && a.Status != to) {
		return 0, nil
	}
	a.Status = to
	return 1, nil
}

func (r *fakeAppointmentRepo) Update(db *gorm.DB, appointment *entity.Appointment) error {
	r.appointments[appointment.ID] = appointment
	return nil
}

type fakeQueueRepo struct {
	entries   map[uuid.UUID]*entity.QueueEntry
	swapFails bool
}

func newFakeQueueRepo(entries ...*entity.QueueEntry) *fakeQueueRepo {
	repo := &fakeQueueRepo{entries: map[uuid.UUID]*entity.QueueEntry{}}
	for _, e := range entries {
		repo.entries[e.ID] = e
	}
	return repo
}

func (r *fakeQueueRepo) Create(db *gorm.DB, entry *entity.QueueEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.entries[entry.ID] = entry
	return nil
}

func (r *fakeQueueRepo) FindByID(db *gorm.DB, id uuid.UUID) (*entity.QueueEntry, error) {
	return r.entries[id], nil
}

func (r *fakeQueueRepo) FindByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) (*entity.QueueEntry, error) {
	for _, e := range r.entries {
		if e.AppointmentID != nil && *e.AppointmentID == appointmentID {
			return e, nil
		}
	}
	return nil, nil
}

func (r *fakeQueueRepo) FindActiveForUpdate(db *gorm.DB, doctorID uuid.UUID, date time.Time) ([]*entity.QueueEntry, error) {
	var out []*entity.QueueEntry
	for _, e := range r.entries {
		if e.DoctorID == doctorID && e.Date.Equal(date) && e.IsActive() {
			out = append(out, e)
		}
	}
	entity.SortByPosition(out)
	return out, nil
}

func (r *fakeQueueRepo) FindByDoctorAndDate(db *gorm.DB, doctorID uuid.UUID, date time.Time) ([]*entity.QueueEntry, error) {
	var out []*entity.QueueEntry
	for _, e := range r.entries {
		if e.DoctorID == doctorID && e.Date.Equal(date) {
			out = append(out, e)
		}
	}
	entity.SortByPosition(out)
	return out, nil
}

func (r *fakeQueueRepo) UpdateStatusGuarded(db *gorm.DB, id uuid.UUID, from, to entity.QueueEntryStatus) (int64, error) {
	if r.swapFails {
		return 0, nil
	}
	e, ok := r.entries[id]
	if !ok || e.Status != from {
		return 0, nil
	}
	e.Status = to
	return 1, nil
}

func (r *fakeQueueRepo) UpdatePosition(db *gorm.DB, id uuid.UUID, position int) error {
	if e, ok := r.entries[id]; ok {
		e.Position = position
	}
	return nil
}

func (r *fakeQueueRepo) CountInConsultation(db *gorm.DB, doctorID uuid.UUID, date time.Time) (int64, error) {
	var count int64
	for _, e := range r.entries {
		if e.DoctorID == doctorID && e.Date.Equal(date) && e.Status == entity.QueueStatusInConsultation {
			count++
		}
	}
	return count, nil
}

func (r *fakeQueueRepo) MaxTokenByScope(db *gorm.DB, since time.Time, limit, offset int) ([]entity.TokenHighWater, error) {
	return nil, nil
}

func (r *fakeQueueRepo) Delete(db *gorm.DB, id uuid.UUID) error {
	delete(r.entries, id)
	return nil
}

type fakeBillingRepo struct {
	billings map[uuid.UUID]*entity.Billing
}

func newFakeBillingRepo(billings ...*entity.Billing) *fakeBillingRepo {
	repo := &fakeBillingRepo{billings: map[uuid.UUID]*entity.Billing{}}
	for _, b := range billings {
		repo.billings[b.ID] = b
	}
	return repo
}

func (r *fakeBillingRepo) Create(db *gorm.DB, billing *entity.Billing) error {
	if billing.ID == uuid.Nil {
		billing.ID = uuid.New()
	}
	r.billings[billing.ID] = billing
	return nil
}

// FindByID returns a copy so callers mutating the result do not bypass
// the guarded update, mirroring a real row fetch.
func (r *fakeBillingRepo) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Billing, error) {
	b, ok := r.billings[id]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

func (r *fakeBillingRepo) FindOpenByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) (*entity.Billing, error) {
	for _, b := range r.billings {
		if b.AppointmentID == appointmentID && b.IsOpen() {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeBillingRepo) FindByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) ([]entity.Billing, error) {
	var out []entity.Billing
	for _, b := range r.billings {
		if b.AppointmentID == appointmentID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeBillingRepo) Update(db *gorm.DB, billing *entity.Billing) error {
	r.billings[billing.ID] = billing
	return nil
}

func (r *fakeBillingRepo) ReplaceItems(db *gorm.DB, billingID uuid.UUID, items []entity.BillingItem) error {
	if b, ok := r.billings[billingID]; ok {
		b.Items = items
	}
	return nil
}

func (r *fakeBillingRepo) SettleGuarded(db *gorm.DB, billing *entity.Billing) (int64, error) {
	stored, ok := r.billings[billing.ID]
	if !ok || !stored.IsOpen() {
		return 0, nil
	}
	*stored = *billing
	return 1, nil
}

func (r *fakeBillingRepo) Delete(db *gorm.DB, id uuid.UUID) (int64, error) {
	if _, ok := r.billings[id]; !ok {
		return 0, nil
	}
	delete(r.billings, id)
	return 1, nil
}

type fakeItemRepo struct {
	items map[uuid.UUID]*entity.ServiceItem
}

func newFakeItemRepo(items ...*entity.ServiceItem) *fakeItemRepo {
	repo := &fakeItemRepo{items: map[uuid.UUID]*entity.ServiceItem{}}
	for _, item := range items {
		repo.items[item.ID] = item
	}
	return repo
}

func (r *fakeItemRepo) Create(db *gorm.DB, item *entity.ServiceItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	r.items[item.ID] = item
	return nil
}

func (r *fakeItemRepo) FindAll(db *gorm.DB, limit, offset int) ([]entity.ServiceItem, int64, error) {
	var out []entity.ServiceItem
	for _, item := range r.items {
		out = append(out, *item)
	}
	return out, int64(len(out)), nil
}

func (r *fakeItemRepo) FindByID(db *gorm.DB, id uuid.UUID) (*entity.ServiceItem, error) {
	return r.items[id], nil
}

func (r *fakeItemRepo) FindByIDs(db *gorm.DB, ids []uuid.UUID) ([]entity.ServiceItem, error) {
	var out []entity.ServiceItem
	for _, id := range ids {
		if item, ok := r.items[id]; ok {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *fakeItemRepo) Update(db *gorm.DB, item *entity.ServiceItem) error {
	r.items[item.ID] = item
	return nil
}

func (r *fakeItemRepo) Delete(db *gorm.DB, id uuid.UUID) error {
	delete(r.items, id)
	return nil
}

type fakePatientRepo struct {
	profiles map[uuid.UUID]*entity.PatientProfile
}

func newFakePatientRepo(profiles ...*entity.PatientProfile) *fakePatientRepo {
	repo := &fakePatientRepo{profiles: map[uuid.UUID]*entity.PatientProfile{}}
	for _, p := range profiles {
		repo.profiles[p.UserID] = p
	}
	return repo
}

func (r *fakePatientRepo) Create(ctx context.Context, db *gorm.DB, profile *entity.PatientProfile) error {
	r.profiles[profile.UserID] = profile
	return nil
}

func (r *fakePatientRepo) FindByUserID(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*entity.PatientProfile, error) {
	return r.profiles[userID], nil
}

func (r *fakePatientRepo) FindAll(ctx context.Context, db *gorm.DB) ([]entity.PatientProfile, error) {
	var out []entity.PatientProfile
	for _, p := range r.profiles {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakePatientRepo) Update(ctx context.Context, db *gorm.DB, profile *entity.PatientProfile) error {
	r.profiles[profile.UserID] = profile
	return nil
}

func (r *fakePatientRepo) Delete(ctx context.Context, db *gorm.DB, userID uuid.UUID) error {
	delete(r.profiles, userID)
	return nil
}

type fakeAuditService struct {
	actions []string
}

func (s *fakeAuditService) LogCreate(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, action, entityName, entityID string, newValue interface{}) error {
	s.actions = append(s.actions, action)
	return nil
}

func (s *fakeAuditService) LogUpdate(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, action, entityName, entityID string, oldValue, newValue interface{}) error {
	s.actions = append(s.actions, action)
	return nil
}

func (s *fakeAuditService) LogDelete(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, action, entityName, entityID string, oldValue interface{}) error {
	s.actions = append(s.actions, action)
	return nil
}

type fakeNotifier struct {
	events []string
}

func (n *fakeNotifier) NotifyPatient(email, event, message string) service.DeliveryResult {
	n.events = append(n.events, event)
	return service.DeliveryResult{Delivered: true}
}
