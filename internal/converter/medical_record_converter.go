package converter

import (
	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/domain/entity"
)

// MedicalRecordToResponse converts a MedicalRecord entity to MedicalRecordResponse DTO
func MedicalRecordToResponse(record *entity.MedicalRecord) *dto.MedicalRecordResponse {
	if record == nil {
		return nil
	}

	return &dto.MedicalRecordResponse{
		ID:            record.ID,
		AppointmentID: record.AppointmentID,
		Diagnosis:     record.Diagnosis,
		Symptoms:      record.Symptoms,
		Prescriptions: record.Prescriptions,
		LabTests:      record.LabTests,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}
