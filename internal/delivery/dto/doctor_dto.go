package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type CreateDoctorRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	FullName        string `json:"full_name" validate:"required,min=2"`
	LicenseNumber   string `json:"license_number" validate:"required"`
	Specialization  string `json:"specialization" validate:"required"`
	ConsultationFee string `json:"consultation_fee" validate:"omitempty"`
	Biography       string `json:"biography" validate:"omitempty"`
}

type UpdateDoctorRequest struct {
	Email           string `json:"email" validate:"omitempty,email"`
	Password        string `json:"password" validate:"omitempty,min=6"`
	FullName        string `json:"full_name" validate:"omitempty,min=2"`
	LicenseNumber   string `json:"license_number" validate:"omitempty"`
	Specialization  string `json:"specialization" validate:"omitempty"`
	ConsultationFee string `json:"consultation_fee" validate:"omitempty"`
	Biography       string `json:"biography" validate:"omitempty"`
	IsActive        *bool  `json:"is_active" validate:"omitempty"`
}

type DoctorUpdateSelfRequest struct {
	OldPassword string `json:"old_password" validate:"required_with=Password"`
	Password    string `json:"password" validate:"omitempty,min=6"`
	Biography   string `json:"biography" validate:"omitempty"`
}

// Response DTOs

type DoctorResponse struct {
	ID              uuid.UUID       `json:"id"`
	Email           string          `json:"email"`
	FullName        string          `json:"full_name"`
	LicenseNumber   string          `json:"license_number"`
	Specialization  string          `json:"specialization"`
	ConsultationFee decimal.Decimal `json:"consultation_fee"`
	Biography       string          `json:"biography,omitempty"`
	IsActive        *bool           `json:"is_active"`
}

// DoctorProfileResponse is the profile fragment embedded in UserResponse.
type DoctorProfileResponse struct {
	UserID          uuid.UUID       `json:"user_id"`
	LicenseNumber   string          `json:"license_number"`
	Specialization  string          `json:"specialization"`
	ConsultationFee decimal.Decimal `json:"consultation_fee"`
	Biography       string          `json:"biography,omitempty"`
}

type DoctorListResponse struct {
	Doctors []DoctorResponse `json:"doctors"`
	Total   int              `json:"total"`
}
