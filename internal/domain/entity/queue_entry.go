package entity

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// QueueEntryStatus represents the status of a waiting-line entry
type QueueEntryStatus string

const (
	QueueStatusWaiting        QueueEntryStatus = "waiting"
	QueueStatusInConsultation QueueEntryStatus = "in-consultation"
	QueueStatusPendingTxn     QueueEntryStatus = "pending-transaction"
	QueueStatusCompleted      QueueEntryStatus = "completed"
)

// InvalidReorderError reports a reorder payload whose id set does not
// exactly match the current active set for the scope.
type InvalidReorderError struct {
	Missing []uuid.UUID
	Unknown []uuid.UUID
}

func (e *InvalidReorderError) Error() string {
	return fmt.Sprintf("invalid reorder: payload does not match active queue (missing=%d, unknown=%d)", len(e.Missing), len(e.Unknown))
}

// QueueEntry represents an appointment's live position in a doctor's
// waiting line for one date. Token is immutable; Position is mutable and
// distinct from it. Once the entry leaves the active set the last position
// is kept frozen for display until the entry is retired.
type QueueEntry struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	AppointmentID *uuid.UUID       `gorm:"type:uuid;uniqueIndex" json:"appointment_id,omitempty"`
	DoctorID      uuid.UUID        `gorm:"type:uuid;not null;index:idx_queue_entries_doctor_date" json:"doctor_id"`
	Date          time.Time        `gorm:"type:date;not null;index:idx_queue_entries_doctor_date" json:"date"`
	Token         int              `gorm:"not null" json:"token"`
	Position      int              `gorm:"not null" json:"position"`
	Status        QueueEntryStatus `gorm:"type:varchar(30);not null;index" json:"status"`
	CreatedAt     time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Appointment *Appointment `gorm:"foreignKey:AppointmentID" json:"appointment,omitempty"`
}

func (QueueEntry) TableName() string {
	return "queue_entries"
}

// TokenHighWater is the highest token issued for one doctor+date scope.
// Scanned from an aggregate query when re-seeding the token allocator.
type TokenHighWater struct {
	DoctorID uuid.UUID
	Date     time.Time
	MaxToken int
}

// IsActive reports whether the entry occupies a slot in the dense
// 1..N ordering of its doctor+date line.
func (q *QueueEntry) IsActive() bool {
	return q.Status == QueueStatusWaiting || q.Status == QueueStatusInConsultation
}

// The helpers below operate on the full active set of one (doctor, date)
// scope. Callers load that set under a scope lock, mutate it through these
// functions, and persist every changed entry in one transaction so the
// dense-permutation invariant holds after every operation.

// SortByPosition orders entries by position ascending, token ascending as
// the deterministic tie-break (tokens are the arrival sequence).
func SortByPosition(entries []*QueueEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Position != entries[j].Position {
			return entries[i].Position < entries[j].Position
		}
		return entries[i].Token < entries[j].Token
	})
}

// Renumber reassigns positions 1..N in the entries' current order.
func Renumber(entries []*QueueEntry) {
	for i, e := range entries {
		e.Position = i + 1
	}
}

// NextPosition returns max(position)+1 over the given active entries.
func NextPosition(entries []*QueueEntry) int {
	max := 0
	for _, e := range entries {
		if e.Position > max {
			max = e.Position
		}
	}
	return max + 1
}

// MoveToHead places the entry with the given id at position 1 and shifts
// every other entry down by one, preserving their relative order.
func MoveToHead(entries []*QueueEntry, id uuid.UUID) error {
	SortByPosition(entries)
	idx := -1
	for i, e := range entries {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("queue entry %s is not in the active set", id)
	}
	target := entries[idx]
	reordered := make([]*QueueEntry, 0, len(entries))
	reordered = append(reordered, target)
	for i, e := range entries {
		if i != idx {
			reordered = append(reordered, e)
		}
	}
	Renumber(reordered)
	return nil
}

// ApplyReorder replaces the active ordering with the given id sequence.
// The id set must exactly match the active set; otherwise nothing is
// mutated and an *InvalidReorderError describes the mismatch.
func ApplyReorder(entries []*QueueEntry, order []uuid.UUID) error {
	byID := make(map[uuid.UUID]*QueueEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	seen := make(map[uuid.UUID]bool, len(order))
	var unknown []uuid.UUID
	for _, id := range order {
		if seen[id] {
			unknown = append(unknown, id)
			continue
		}
		seen[id] = true
		if _, ok := byID[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	var missing []uuid.UUID
	for id := range byID {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	if len(unknown) > 0 || len(missing) > 0 || len(order) != len(entries) {
		return &InvalidReorderError{Missing: missing, Unknown: unknown}
	}

	for i, id := range order {
		byID[id].Position = i + 1
	}
	return nil
}

// CloseGap renumbers the remaining active entries after one has been
// removed from the line, so positions stay exactly {1..N}.
func CloseGap(remaining []*QueueEntry) {
	SortByPosition(remaining)
	Renumber(remaining)
}
