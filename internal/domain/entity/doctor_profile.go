package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DoctorProfile represents doctor-specific profile data
type DoctorProfile struct {
	UserID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"user_id"`
	LicenseNumber   string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"license_number"`
	Specialization  string          `gorm:"type:varchar(100);not null;index" json:"specialization"`
	ConsultationFee decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"consultation_fee"`
	Biography       string          `gorm:"type:text" json:"biography,omitempty"`

	// Relationships
	User           User                 `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Availabilities []DoctorAvailability `gorm:"foreignKey:DoctorID" json:"availabilities,omitempty"`
}

func (DoctorProfile) TableName() string {
	return "doctor_profiles"
}
