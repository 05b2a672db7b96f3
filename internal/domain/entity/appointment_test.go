package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name    string
		kind    AppointmentKind
		from    AppointmentStatus
		event   AppointmentEvent
		want    AppointmentStatus
		wantErr bool
	}{
		{"scheduled confirm", KindScheduled, StatusScheduled, EventConfirm, StatusConfirmed, false},
		{"scheduled check-in without confirmation", KindScheduled, StatusScheduled, EventCheckIn, StatusArrived, false},
		{"confirmed check-in", KindScheduled, StatusConfirmed, EventCheckIn, StatusArrived, false},
		{"arrived accept", KindScheduled, StatusArrived, EventAccept, StatusAccepted, false},
		{"arrived straight to consultation", KindScheduled, StatusArrived, EventStartConsultation, StatusInConsultation, false},
		{"accepted to consultation", KindScheduled, StatusAccepted, EventStartConsultation, StatusInConsultation, false},
		{"scheduled complete consultation", KindScheduled, StatusInConsultation, EventCompleteConsultation, StatusPendingBill, false},
		{"scheduled settle billing", KindScheduled, StatusPendingBill, EventSettleBilling, StatusCompleted, false},
		{"scheduled cancel before arrival", KindScheduled, StatusConfirmed, EventCancel, StatusCancelled, false},
		{"scheduled cancel after accept", KindScheduled, StatusAccepted, EventCancel, StatusCancelled, false},

		{"walk-in check-in", KindWalkIn, StatusRegistered, EventCheckIn, StatusWaiting, false},
		{"walk-in start consultation", KindWalkIn, StatusWaiting, EventStartConsultation, StatusInConsultation, false},
		{"walk-in complete consultation", KindWalkIn, StatusInConsultation, EventCompleteConsultation, StatusPendingTxn, false},
		{"walk-in settle billing", KindWalkIn, StatusPendingTxn, EventSettleBilling, StatusCompleted, false},
		{"walk-in cancel while waiting", KindWalkIn, StatusWaiting, EventCancel, StatusCancelled, false},

		{"no confirm for walk-in", KindWalkIn, StatusRegistered, EventConfirm, "", true},
		{"no accept for walk-in", KindWalkIn, StatusWaiting, EventAccept, "", true},
		{"no double check-in", KindScheduled, StatusArrived, EventCheckIn, "", true},
		{"cancel during consultation", KindScheduled, StatusInConsultation, EventCancel, "", true},
		{"cancel after consultation walk-in", KindWalkIn, StatusPendingTxn, EventCancel, "", true},
		{"settle before consultation", KindScheduled, StatusArrived, EventSettleBilling, "", true},
		{"no transitions from completed", KindScheduled, StatusCompleted, EventCancel, "", true},
		{"no transitions from cancelled", KindWalkIn, StatusCancelled, EventCheckIn, "", true},
		{"walk-in status on scheduled path", KindScheduled, StatusRegistered, EventCheckIn, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextStatus(tt.kind, tt.from, tt.event)
			if tt.wantErr {
				var transitionErr *InvalidTransitionError
				require.Error(t, err)
				require.True(t, errors.As(err, &transitionErr))
				assert.Equal(t, tt.kind, transitionErr.Kind)
				assert.Equal(t, tt.from, transitionErr.From)
				assert.Equal(t, tt.event, transitionErr.Event)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAppointment_Transition(t *testing.T) {
	appointment := &Appointment{Kind: KindWalkIn, Status: StatusRegistered}

	require.NoError(t, appointment.Transition(EventCheckIn))
	assert.Equal(t, StatusWaiting, appointment.Status)

	err := appointment.Transition(EventSettleBilling)
	require.Error(t, err)
	// A failed transition must not move the status
	assert.Equal(t, StatusWaiting, appointment.Status)
}

func TestAppointment_IsCancellable(t *testing.T) {
	tests := []struct {
		kind   AppointmentKind
		status AppointmentStatus
		want   bool
	}{
		{KindScheduled, StatusScheduled, true},
		{KindScheduled, StatusConfirmed, true},
		{KindScheduled, StatusArrived, true},
		{KindScheduled, StatusAccepted, true},
		{KindScheduled, StatusInConsultation, false},
		{KindScheduled, StatusPendingBill, false},
		{KindScheduled, StatusCompleted, false},
		{KindWalkIn, StatusRegistered, true},
		{KindWalkIn, StatusWaiting, true},
		{KindWalkIn, StatusInConsultation, false},
		{KindWalkIn, StatusPendingTxn, false},
	}

	for _, tt := range tests {
		appointment := &Appointment{Kind: tt.kind, Status: tt.status}
		assert.Equal(t, tt.want, appointment.IsCancellable(), "%s/%s", tt.kind, tt.status)
	}
}

func TestQueueStatusFor(t *testing.T) {
	tests := []struct {
		status AppointmentStatus
		want   QueueEntryStatus
		paired bool
	}{
		{StatusArrived, QueueStatusWaiting, true},
		{StatusAccepted, QueueStatusWaiting, true},
		{StatusWaiting, QueueStatusWaiting, true},
		{StatusInConsultation, QueueStatusInConsultation, true},
		{StatusPendingBill, QueueStatusPendingTxn, true},
		{StatusPendingTxn, QueueStatusPendingTxn, true},
		{StatusCompleted, QueueStatusCompleted, true},
		{StatusScheduled, "", false},
		{StatusConfirmed, "", false},
		{StatusRegistered, "", false},
		{StatusCancelled, "", false},
	}

	for _, tt := range tests {
		got, ok := QueueStatusFor(tt.status)
		assert.Equal(t, tt.paired, ok, "%s", tt.status)
		if tt.paired {
			assert.Equal(t, tt.want, got, "%s", tt.status)
		}
	}
}

func TestAppointmentStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusScheduled.IsTerminal())
	assert.False(t, StatusPendingTxn.IsTerminal())
}
