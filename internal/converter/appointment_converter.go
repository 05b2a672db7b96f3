package converter

import (
	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/domain/entity"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO
func AppointmentToResponse(appointment *entity.Appointment) *dto.AppointmentResponse {
	if appointment == nil {
		return nil
	}

	response := &dto.AppointmentResponse{
		ID:                   appointment.ID,
		PatientID:            appointment.PatientID,
		DoctorID:             appointment.DoctorID,
		Kind:                 string(appointment.Kind),
		Date:                 appointment.Date.Format("2006-01-02"),
		StartTime:            appointment.StartTime,
		EndTime:              appointment.EndTime,
		Reason:               appointment.Reason,
		Status:               string(appointment.Status),
		MedicalRecordConsent: appointment.Consent,
		CreatedAt:            appointment.CreatedAt,
		UpdatedAt:            appointment.UpdatedAt,
	}

	// Include queue entry if loaded
	if appointment.QueueEntry != nil {
		response.QueueEntry = QueueEntryToResponse(appointment.QueueEntry)
	}

	return response
}

// AppointmentsToResponses converts a slice of Appointment entities to slice of AppointmentResponse DTOs
func AppointmentsToResponses(appointments []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		responses[i] = *AppointmentToResponse(&appointments[i])
	}
	return responses
}
