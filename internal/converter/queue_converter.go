package converter

import (
	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/domain/entity"
)

// QueueEntryToResponse converts a QueueEntry entity to QueueEntryResponse DTO
func QueueEntryToResponse(entry *entity.QueueEntry) *dto.QueueEntryResponse {
	if entry == nil {
		return nil
	}

	response := &dto.QueueEntryResponse{
		ID:            entry.ID,
		AppointmentID: entry.AppointmentID,
		DoctorID:      entry.DoctorID,
		Date:          entry.Date.Format("2006-01-02"),
		Token:         entry.Token,
		Position:      entry.Position,
		Status:        string(entry.Status),
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     entry.UpdatedAt,
	}

	// Include patient name if the appointment chain is loaded
	if entry.Appointment != nil {
		response.PatientName = entry.Appointment.Patient.User.FullName
	}

	return response
}

// QueueEntriesToResponses converts a slice of QueueEntry entities to slice of QueueEntryResponse DTOs
func QueueEntriesToResponses(entries []*entity.QueueEntry) []dto.QueueEntryResponse {
	responses := make([]dto.QueueEntryResponse, len(entries))
	for i, entry := range entries {
		responses[i] = *QueueEntryToResponse(entry)
	}
	return responses
}
