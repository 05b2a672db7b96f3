package usecase

import (
	"context"
	"testing"

	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/domain/entity"
	"clinicflow/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type billingFixture struct {
	usecase         BillingUsecase
	appointmentRepo *fakeAppointmentRepo
	queueRepo       *fakeQueueRepo
	billingRepo     *fakeBillingRepo
	itemRepo        *fakeItemRepo
	doctorRepo      *fakeDoctorRepo
	audit           *fakeAuditService
	notifier        *fakeNotifier
}

func newBillingFixture(t *testing.T, appointments []*entity.Appointment, entries []*entity.QueueEntry, billings []*entity.Billing, items []*entity.ServiceItem) *billingFixture {
	t.Helper()

	db, mock := newTestDB(t)
	mock.MatchExpectationsInOrder(false)
	// Each usecase call opens one transaction; allow any number of them
	for i := 0; i < 8; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}

	f := &billingFixture{
		appointmentRepo: newFakeAppointmentRepo(appointments...),
		queueRepo:       newFakeQueueRepo(entries...),
		billingRepo:     newFakeBillingRepo(billings...),
		itemRepo:        newFakeItemRepo(items...),
		doctorRepo:      newFakeDoctorRepo(),
		audit:           &fakeAuditService{},
		notifier:        &fakeNotifier{},
	}

	patientRepo := newFakePatientRepo(&entity.PatientProfile{
		UserID: testPatientID,
		User:   entity.User{Email: "patient@example.com"},
	})

	f.usecase = NewBillingUsecase(db, quietLogger(), f.billingRepo, f.appointmentRepo, f.queueRepo, f.itemRepo, f.doctorRepo, patientRepo, f.audit, f.notifier)
	return f
}

var testPatientID = uuid.New()

func pendingTxnAppointment() *entity.Appointment {
	return &entity.Appointment{
		ID:        uuid.New(),
		PatientID: testPatientID,
		DoctorID:  uuid.New(),
		Kind:      entity.KindWalkIn,
		Status:    entity.StatusPendingTxn,
	}
}

func TestBillingUsecase_CreateBilling(t *testing.T) {
	appointment := pendingTxnAppointment()
	catalogItem := &entity.ServiceItem{
		ID:     uuid.New(),
		Name:   "General Consultation",
		Price:  decimal.NewFromInt(150000),
		Active: true,
	}
	f := newBillingFixture(t, []*entity.Appointment{appointment}, nil, nil, []*entity.ServiceItem{catalogItem})

	billing, err := f.usecase.CreateBilling(context.Background(), &dto.CreateBillingRequest{
		AppointmentID: appointment.ID,
		Items: []dto.BillingItemRequest{
			{ItemID: &catalogItem.ID, Quantity: 2},
			{Name: "Bandage", Amount: "10000"},
		},
		Tax: "5000",
	})

	require.NoError(t, err)
	assert.Equal(t, string(entity.BillingStatusOpen), billing.Status)
	require.Len(t, billing.Items, 2)
	// Catalog lines take name and price from the catalog
	assert.Equal(t, "General Consultation", billing.Items[0].Name)
	assert.True(t, billing.Items[0].Amount.Equal(decimal.NewFromInt(150000)))
	// Omitted quantity defaults to 1
	assert.Equal(t, 1, billing.Items[1].Quantity)
	assert.True(t, billing.Subtotal.Equal(decimal.NewFromInt(310000)), "subtotal = %s", billing.Subtotal)
	assert.True(t, billing.Total.Equal(decimal.NewFromInt(315000)), "total = %s", billing.Total)
	assert.Contains(t, f.audit.actions, entity.AuditActionBillingCreate)
}

func TestBillingUsecase_CreateBilling_DefaultsToConsultationFee(t *testing.T) {
	appointment := pendingTxnAppointment()
	f := newBillingFixture(t, []*entity.Appointment{appointment}, nil, nil, nil)
	f.doctorRepo.profiles[appointment.DoctorID] = &entity.DoctorProfile{
		UserID:          appointment.DoctorID,
		ConsultationFee: decimal.NewFromInt(150000),
	}

	billing, err := f.usecase.CreateBilling(context.Background(), &dto.CreateBillingRequest{
		AppointmentID: appointment.ID,
	})

	require.NoError(t, err)
	require.Len(t, billing.Items, 1)
	assert.Equal(t, "Consultation", billing.Items[0].Name)
	assert.True(t, billing.Total.Equal(decimal.NewFromInt(150000)))
}

func TestBillingUsecase_CreateBilling_NotBillable(t *testing.T) {
	appointment := pendingTxnAppointment()
	appointment.Status = entity.StatusWaiting
	f := newBillingFixture(t, []*entity.Appointment{appointment}, nil, nil, nil)

	_, err := f.usecase.CreateBilling(context.Background(), &dto.CreateBillingRequest{
		AppointmentID: appointment.ID,
		Items:         []dto.BillingItemRequest{{Name: "Consultation", Amount: "100"}},
	})

	assert.ErrorIs(t, err, ErrBillingNotBillable)
}

func TestBillingUsecase_CreateBilling_DuplicateOpen(t *testing.T) {
	appointment := pendingTxnAppointment()
	open := &entity.Billing{ID: uuid.New(), AppointmentID: appointment.ID, Status: entity.BillingStatusOpen}
	f := newBillingFixture(t, []*entity.Appointment{appointment}, nil, []*entity.Billing{open}, nil)

	_, err := f.usecase.CreateBilling(context.Background(), &dto.CreateBillingRequest{
		AppointmentID: appointment.ID,
		Items:         []dto.BillingItemRequest{{Name: "Consultation", Amount: "100"}},
	})

	assert.ErrorIs(t, err, ErrDuplicateBilling)
}

func TestBillingUsecase_CreateBilling_InactiveCatalogItem(t *testing.T) {
	appointment := pendingTxnAppointment()
	retired := &entity.ServiceItem{ID: uuid.New(), Name: "Old Service", Price: decimal.NewFromInt(1000), Active: false}
	f := newBillingFixture(t, []*entity.Appointment{appointment}, nil, nil, []*entity.ServiceItem{retired})

	_, err := f.usecase.CreateBilling(context.Background(), &dto.CreateBillingRequest{
		AppointmentID: appointment.ID,
		Items:         []dto.BillingItemRequest{{ItemID: &retired.ID}},
	})

	assert.ErrorIs(t, err, ErrServiceItemNotFound)
}

func TestBillingUsecase_CreateBilling_InvalidAmount(t *testing.T) {
	appointment := pendingTxnAppointment()
	f := newBillingFixture(t, []*entity.Appointment{appointment}, nil, nil, nil)

	tests := []struct {
		name string
		req  *dto.CreateBillingRequest
	}{
		{
			name: "malformed line amount",
			req: &dto.CreateBillingRequest{
				AppointmentID: appointment.ID,
				Items:         []dto.BillingItemRequest{{Name: "X", Amount: "abc"}},
			},
		},
		{
			name: "negative line amount",
			req: &dto.CreateBillingRequest{
				AppointmentID: appointment.ID,
				Items:         []dto.BillingItemRequest{{Name: "X", Amount: "-5"}},
			},
		},
		{
			name: "negative tax",
			req: &dto.CreateBillingRequest{
				AppointmentID: appointment.ID,
				Items:         []dto.BillingItemRequest{{Name: "X", Amount: "100"}},
				Tax:           "-1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.usecase.CreateBilling(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidAmount)
		})
	}
}

func TestBillingUsecase_UpdateBilling_ReplacesItems(t *testing.T) {
	appointment := pendingTxnAppointment()
	billing := &entity.Billing{
		ID:            uuid.New(),
		AppointmentID: appointment.ID,
		Status:        entity.BillingStatusOpen,
		Items: []entity.BillingItem{
			{Name: "Old line", Amount: decimal.NewFromInt(999), Quantity: 1},
		},
	}
	f := newBillingFixture(t, []*entity.Appointment{appointment}, nil, []*entity.Billing{billing}, nil)

	updated, err := f.usecase.UpdateBilling(context.Background(), billing.ID, &dto.UpdateBillingRequest{
		Items:    []dto.BillingItemRequest{{Name: "New line", Amount: "200", Quantity: 3}},
		Discount: "100",
	})

	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, "New line", updated.Items[0].Name)
	assert.True(t, updated.Subtotal.Equal(decimal.NewFromInt(600)))
	assert.True(t, updated.Total.Equal(decimal.NewFromInt(500)))
}

func TestBillingUsecase_UpdateBilling_SettledIsImmutable(t *testing.T) {
	appointment := pendingTxnAppointment()
	billing := &entity.Billing{ID: uuid.New(), AppointmentID: appointment.ID, Status: entity.BillingStatusPaid}
	f := newBillingFixture(t, []*entity.Appointment{appointment}, nil, []*entity.Billing{billing}, nil)

	_, err := f.usecase.UpdateBilling(context.Background(), billing.ID, &dto.UpdateBillingRequest{
		Items: []dto.BillingItemRequest{{Name: "X", Amount: "100"}},
	})
	assert.ErrorIs(t, err, ErrBillingNotOpen)

	err = f.usecase.DeleteBilling(context.Background(), billing.ID)
	assert.ErrorIs(t, err, ErrBillingNotOpen)
}

func TestBillingUsecase_SettleBilling_CompletesLifecycle(t *testing.T) {
	appointment := pendingTxnAppointment()
	entry := &entity.QueueEntry{
		ID:            uuid.New(),
		AppointmentID: &appointment.ID,
		DoctorID:      appointment.DoctorID,
		Date:          appointment.Date,
		Token:         1,
		Position:      1,
		Status:        entity.QueueStatusPendingTxn,
	}
	billing := &entity.Billing{
		ID:            uuid.New(),
		AppointmentID: appointment.ID,
		Status:        entity.BillingStatusOpen,
		Total:         decimal.NewFromInt(150000),
	}
	f := newBillingFixture(t, []*entity.Appointment{appointment}, []*entity.QueueEntry{entry}, []*entity.Billing{billing}, nil)

	settled, err := f.usecase.SettleBilling(context.Background(), billing.ID, &dto.SettleBillingRequest{
		PaymentMethod: entity.PaymentCash,
	})

	require.NoError(t, err)
	assert.Equal(t, string(entity.BillingStatusPaid), settled.Status)
	assert.Equal(t, entity.PaymentCash, settled.PaymentMethod)
	assert.NotNil(t, settled.PaidAt)

	// Settlement closes the whole encounter in one go
	assert.Equal(t, entity.StatusCompleted, appointment.Status)
	assert.Equal(t, entity.QueueStatusCompleted, entry.Status)
	assert.Contains(t, f.audit.actions, entity.AuditActionBillingSettle)
	assert.Contains(t, f.notifier.events, service.NotifyBillingSettled)
}

func TestBillingUsecase_SettleBilling_AlreadyPaid(t *testing.T) {
	appointment := pendingTxnAppointment()
	billing := &entity.Billing{ID: uuid.New(), AppointmentID: appointment.ID, Status: entity.BillingStatusPaid}
	f := newBillingFixture(t, []*entity.Appointment{appointment}, nil, []*entity.Billing{billing}, nil)

	_, err := f.usecase.SettleBilling(context.Background(), billing.ID, &dto.SettleBillingRequest{
		PaymentMethod: entity.PaymentCard,
	})

	assert.ErrorIs(t, err, ErrBillingNotOpen)
}

func TestBillingUsecase_SettleBilling_RejectsUnknownMethod(t *testing.T) {
	f := newBillingFixture(t, nil, nil, nil, nil)

	_, err := f.usecase.SettleBilling(context.Background(), uuid.New(), &dto.SettleBillingRequest{
		PaymentMethod: "iou",
	})

	assert.ErrorIs(t, err, ErrInvalidPayment)
}
