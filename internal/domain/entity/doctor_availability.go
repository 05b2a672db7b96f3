package entity

import (
	"time"

	"github.com/google/uuid"
)

// DoctorAvailability is one consultation window a doctor is open for on a
// given date. Booking a scheduled appointment requires the requested slot
// to fall inside one of these windows.
type DoctorAvailability struct {
	ID        int       `gorm:"primaryKey;autoIncrement" json:"id"`
	DoctorID  uuid.UUID `gorm:"type:uuid;not null;index" json:"doctor_id"`
	Date      time.Time `gorm:"type:date;not null;index" json:"date"`
	StartTime string    `gorm:"type:time;not null" json:"start_time"`
	EndTime   string    `gorm:"type:time;not null" json:"end_time"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Doctor DoctorProfile `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

func (DoctorAvailability) TableName() string {
	return "doctor_availabilities"
}

// Covers reports whether the window fully contains [start, end), with
// times in "15:04" form. String comparison is valid for zero-padded HH:MM.
func (a *DoctorAvailability) Covers(start, end string) bool {
	return a.StartTime <= start && end <= a.EndTime && start < end
}
