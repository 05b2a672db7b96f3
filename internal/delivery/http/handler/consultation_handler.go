package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/domain/entity"
	"clinicflow/internal/usecase"
	"clinicflow/pkg/response"
	"clinicflow/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type ConsultationHandler struct {
	consultationUsecase usecase.ConsultationUsecase
	validator           *validator.CustomValidator
}

func NewConsultationHandler(consultationUsecase usecase.ConsultationUsecase, validator *validator.CustomValidator) *ConsultationHandler {
	return &ConsultationHandler{
		consultationUsecase: consultationUsecase,
		validator:           validator,
	}
}

// StartConsultation handles pulling a queued patient into consultation
// @Summary Start consultation
// @Description Start consulting the given appointment's patient
// @Tags Consultations
// @Security BearerAuth
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /consultations/{id}/start [put]
func (h *ConsultationHandler) StartConsultation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	appointment, err := h.consultationUsecase.StartConsultation(r.Context(), appointmentID)
	if err != nil {
		writeConsultationError(w, err, "Failed to start consultation")
		return
	}

	response.Success(w, http.StatusOK, "Consultation started successfully", appointment)
}

// CompleteConsultation handles finishing a consultation with its record
// @Summary Complete consultation
// @Description Write the medical record and close the consultation
// @Tags Consultations
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param request body dto.CompleteConsultationRequest true "Complete Consultation Request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /consultations/{id}/complete [put]
func (h *ConsultationHandler) CompleteConsultation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	var req dto.CompleteConsultationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.consultationUsecase.CompleteConsultation(r.Context(), appointmentID, &req)
	if err != nil {
		writeConsultationError(w, err, "Failed to complete consultation")
		return
	}

	response.Success(w, http.StatusOK, "Consultation completed successfully", appointment)
}

// GetMedicalRecord handles reading an appointment's medical record
// @Summary Get medical record
// @Description Get the medical record written for an appointment
// @Tags Consultations
// @Security BearerAuth
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /appointments/{id}/medical-record [get]
func (h *ConsultationHandler) GetMedicalRecord(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	record, err := h.consultationUsecase.GetMedicalRecord(r.Context(), appointmentID)
	if err != nil {
		writeConsultationError(w, err, "Failed to get medical record")
		return
	}

	response.Success(w, http.StatusOK, "Medical record retrieved successfully", record)
}

func writeConsultationError(w http.ResponseWriter, err error, fallback string) {
	var transitionErr *entity.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		response.Conflict(w, transitionErr.Error())
		return
	}

	switch err {
	case usecase.ErrAppointmentNotFound:
		response.NotFound(w, "Appointment not found")
	case usecase.ErrMedicalRecordNotFound:
		response.NotFound(w, "Medical record not found")
	case usecase.ErrNotYourPatient:
		response.Forbidden(w, "Appointment belongs to another doctor")
	case usecase.ErrAppointmentNotOwned:
		response.Forbidden(w, "Medical record does not belong to you")
	case usecase.ErrConsultationInProgress:
		response.Conflict(w, "Another consultation is already in progress")
	case usecase.ErrQueueEntryMissing:
		response.Conflict(w, "Appointment has no active queue entry")
	case usecase.ErrConcurrencyConflict:
		response.Conflict(w, "Appointment was modified concurrently, please retry")
	default:
		response.InternalServerError(w, fallback)
	}
}
