package converter

import (
	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/domain/entity"

	"github.com/google/uuid"
)

// AvailabilityToResponse converts a DoctorAvailability entity to AvailabilityResponse DTO
func AvailabilityToResponse(window *entity.DoctorAvailability) *dto.AvailabilityResponse {
	if window == nil {
		return nil
	}

	response := &dto.AvailabilityResponse{
		ID:        window.ID,
		DoctorID:  window.DoctorID,
		Date:      window.Date.Format("2006-01-02"),
		StartTime: window.StartTime,
		EndTime:   window.EndTime,
		CreatedAt: window.CreatedAt,
		UpdatedAt: window.UpdatedAt,
	}

	// Include doctor info if available
	if window.Doctor.UserID != uuid.Nil {
		response.Doctor = DoctorProfileToResponse(&window.Doctor)
	}

	return response
}

// AvailabilitiesToResponses converts a slice of DoctorAvailability entities to slice of AvailabilityResponse DTOs
func AvailabilitiesToResponses(windows []entity.DoctorAvailability) []dto.AvailabilityResponse {
	responses := make([]dto.AvailabilityResponse, len(windows))
	for i := range windows {
		responses[i] = *AvailabilityToResponse(&windows[i])
	}
	return responses
}
