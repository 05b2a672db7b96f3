package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AppointmentKind distinguishes pre-booked visits from same-day walk-ins
type AppointmentKind string

const (
	KindScheduled AppointmentKind = "scheduled"
	KindWalkIn    AppointmentKind = "walk-in"
)

// AppointmentStatus represents the lifecycle status of an appointment
type AppointmentStatus string

const (
	// Scheduled path
	StatusScheduled AppointmentStatus = "scheduled"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusArrived   AppointmentStatus = "arrived"
	StatusAccepted  AppointmentStatus = "accepted"

	// Walk-in path
	StatusRegistered AppointmentStatus = "registered"
	StatusWaiting    AppointmentStatus = "waiting"

	// Shared tail of both paths
	StatusInConsultation AppointmentStatus = "in-consultation"
	StatusPendingBill    AppointmentStatus = "pending-bill"
	StatusPendingTxn     AppointmentStatus = "pending-transaction"
	StatusCompleted      AppointmentStatus = "completed"
	StatusCancelled      AppointmentStatus = "cancelled"
)

// AppointmentEvent is a lifecycle transition trigger
type AppointmentEvent string

const (
	EventConfirm              AppointmentEvent = "confirm"
	EventCheckIn              AppointmentEvent = "check-in"
	EventAccept               AppointmentEvent = "accept"
	EventStartConsultation    AppointmentEvent = "start-consultation"
	EventCompleteConsultation AppointmentEvent = "complete-consultation"
	EventSettleBilling        AppointmentEvent = "settle-billing"
	EventCancel               AppointmentEvent = "cancel"
)

// InvalidTransitionError reports a lifecycle change that is not permitted
// from the appointment's current status. Surfaced verbatim to the caller.
type InvalidTransitionError struct {
	Kind  AppointmentKind
	From  AppointmentStatus
	Event AppointmentEvent
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: event %q not permitted for %s appointment in status %q", e.Event, e.Kind, e.From)
}

// transitionTable is the single authority on which lifecycle transitions
// are legal. Encoded explicitly per kind; nothing is inferred at runtime.
var transitionTable = map[AppointmentKind]map[AppointmentEvent]map[AppointmentStatus]AppointmentStatus{
	KindScheduled: {
		EventConfirm: {
			StatusScheduled: StatusConfirmed,
		},
		EventCheckIn: {
			StatusScheduled: StatusArrived,
			StatusConfirmed: StatusArrived,
		},
		EventAccept: {
			StatusArrived: StatusAccepted,
		},
		EventStartConsultation: {
			StatusArrived:  StatusInConsultation,
			StatusAccepted: StatusInConsultation,
		},
		EventCompleteConsultation: {
			StatusInConsultation: StatusPendingBill,
		},
		EventSettleBilling: {
			StatusPendingBill: StatusCompleted,
		},
		EventCancel: {
			StatusScheduled: StatusCancelled,
			StatusConfirmed: StatusCancelled,
			StatusArrived:   StatusCancelled,
			StatusAccepted:  StatusCancelled,
		},
	},
	KindWalkIn: {
		EventCheckIn: {
			StatusRegistered: StatusWaiting,
		},
		EventStartConsultation: {
			StatusWaiting: StatusInConsultation,
		},
		EventCompleteConsultation: {
			StatusInConsultation: StatusPendingTxn,
		},
		EventSettleBilling: {
			StatusPendingTxn: StatusCompleted,
		},
		EventCancel: {
			StatusRegistered: StatusCancelled,
			StatusWaiting:    StatusCancelled,
		},
	},
}

// queuePairTable maps each appointment status to the queue-entry status it
// must be paired with. Statuses absent from the map have no queue entry.
var queuePairTable = map[AppointmentStatus]QueueEntryStatus{
	StatusArrived:        QueueStatusWaiting,
	StatusAccepted:       QueueStatusWaiting,
	StatusWaiting:        QueueStatusWaiting,
	StatusInConsultation: QueueStatusInConsultation,
	StatusPendingBill:    QueueStatusPendingTxn,
	StatusPendingTxn:     QueueStatusPendingTxn,
	StatusCompleted:      QueueStatusCompleted,
}

// NextStatus resolves the target status for an event from the transition
// table. Returns *InvalidTransitionError when the event is not legal from
// the given status.
func NextStatus(kind AppointmentKind, from AppointmentStatus, event AppointmentEvent) (AppointmentStatus, error) {
	events, ok := transitionTable[kind]
	if !ok {
		return "", &InvalidTransitionError{Kind: kind, From: from, Event: event}
	}
	targets, ok := events[event]
	if !ok {
		return "", &InvalidTransitionError{Kind: kind, From: from, Event: event}
	}
	to, ok := targets[from]
	if !ok {
		return "", &InvalidTransitionError{Kind: kind, From: from, Event: event}
	}
	return to, nil
}

// QueueStatusFor returns the queue-entry status paired with an appointment
// status, or false when that status carries no queue entry.
func QueueStatusFor(status AppointmentStatus) (QueueEntryStatus, bool) {
	qs, ok := queuePairTable[status]
	return qs, ok
}

// IsTerminal reports whether no further transitions are permitted.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Appointment represents one patient-doctor encounter. It is never
// physically deleted; cancellation and completion are terminal statuses.
type Appointment struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PatientID uuid.UUID         `gorm:"type:uuid;not null;index" json:"patient_id"`
	DoctorID  uuid.UUID         `gorm:"type:uuid;not null;index:idx_appointments_doctor_date" json:"doctor_id"`
	Kind      AppointmentKind   `gorm:"type:varchar(20);not null" json:"kind"`
	Date      time.Time         `gorm:"type:date;not null;index:idx_appointments_doctor_date" json:"date"`
	StartTime string            `gorm:"type:time" json:"start_time,omitempty"`
	EndTime   string            `gorm:"type:time" json:"end_time,omitempty"`
	Reason    string            `gorm:"type:text" json:"reason,omitempty"`
	Status    AppointmentStatus `gorm:"type:varchar(30);not null;index" json:"status"`
	Consent   bool              `gorm:"column:medical_record_consent;not null;default:false" json:"medical_record_consent"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time         `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Patient    PatientProfile `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor     DoctorProfile  `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	QueueEntry *QueueEntry    `gorm:"foreignKey:AppointmentID" json:"queue_entry,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// Transition applies an event to the appointment in place. The caller is
// responsible for persisting appointment and queue entry atomically.
func (a *Appointment) Transition(event AppointmentEvent) error {
	to, err := NextStatus(a.Kind, a.Status, event)
	if err != nil {
		return err
	}
	a.Status = to
	return nil
}

// CanTransition reports whether an event is legal from the current status.
func (a *Appointment) CanTransition(event AppointmentEvent) bool {
	_, err := NextStatus(a.Kind, a.Status, event)
	return err == nil
}

// IsCancellable reports whether the appointment is still strictly before
// consultation, the only window in which cancel is permitted.
func (a *Appointment) IsCancellable() bool {
	return a.CanTransition(EventCancel)
}

func (a *Appointment) IsWalkIn() bool {
	return a.Kind == KindWalkIn
}
