package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/domain/entity"
	"clinicflow/internal/service"
	"clinicflow/internal/usecase"
	"clinicflow/pkg/response"
	"clinicflow/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type AppointmentHandler struct {
	appointmentUsecase usecase.AppointmentUsecase
	validator          *validator.CustomValidator
}

func NewAppointmentHandler(appointmentUsecase usecase.AppointmentUsecase, validator *validator.CustomValidator) *AppointmentHandler {
	return &AppointmentHandler{
		appointmentUsecase: appointmentUsecase,
		validator:          validator,
	}
}

func (h *AppointmentHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	var req dto.BookAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.appointmentUsecase.BookAppointment(r.Context(), &req)
	if err != nil {
		switch err {
		case usecase.ErrDoctorNotFound:
			response.NotFound(w, "Doctor not found")
		case usecase.ErrInvalidDateFormat, usecase.ErrInvalidTimeFormat:
			response.Error(w, http.StatusBadRequest, err.Error(), nil)
		case usecase.ErrAppointmentPast:
			response.Error(w, http.StatusBadRequest, "Cannot book an appointment in the past", nil)
		case usecase.ErrSlotUnavailable:
			response.Conflict(w, "Requested slot is outside the doctor's availability")
		default:
			response.InternalServerError(w, "Failed to book appointment")
		}
		return
	}

	response.Success(w, http.StatusCreated, "Appointment booked successfully", appointment)
}

func (h *AppointmentHandler) RegisterWalkIn(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterWalkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.appointmentUsecase.RegisterWalkIn(r.Context(), &req)
	if err != nil {
		switch err {
		case usecase.ErrDoctorNotFound:
			response.NotFound(w, "Doctor not found")
		case usecase.ErrPatientNotFound:
			response.NotFound(w, "Patient not found")
		default:
			response.InternalServerError(w, "Failed to register walk-in")
		}
		return
	}

	response.Success(w, http.StatusCreated, "Walk-in registered successfully", appointment)
}

func (h *AppointmentHandler) ConfirmAppointment(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, h.appointmentUsecase.ConfirmAppointment, "Appointment confirmed successfully")
}

func (h *AppointmentHandler) AcceptAppointment(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, h.appointmentUsecase.AcceptAppointment, "Appointment accepted successfully")
}

func (h *AppointmentHandler) CheckInPatient(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	// Body is optional; absence means a normal tail check-in
	var req dto.CheckInRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	appointment, err := h.appointmentUsecase.CheckInPatient(r.Context(), appointmentID, req.Priority)
	if err != nil {
		writeAppointmentError(w, err, "Failed to check in patient")
		return
	}

	response.Success(w, http.StatusOK, "Patient checked in successfully", appointment)
}

func (h *AppointmentHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	if err := h.appointmentUsecase.CancelAppointment(r.Context(), appointmentID); err != nil {
		writeAppointmentError(w, err, "Failed to cancel appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment cancelled successfully", nil)
}

func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	appointment, err := h.appointmentUsecase.GetAppointment(r.Context(), appointmentID)
	if err != nil {
		writeAppointmentError(w, err, "Failed to get appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment retrieved successfully", appointment)
}

func (h *AppointmentHandler) GetMyAppointments(w http.ResponseWriter, r *http.Request) {
	appointments, err := h.appointmentUsecase.GetMyAppointments(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to get appointments")
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", appointments)
}

func (h *AppointmentHandler) applyTransition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error),
	message string,
) {
	vars := mux.Vars(r)
	appointmentID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	appointment, err := apply(r.Context(), appointmentID)
	if err != nil {
		writeAppointmentError(w, err, "Failed to update appointment")
		return
	}

	response.Success(w, http.StatusOK, message, appointment)
}

// writeAppointmentError maps appointment lifecycle errors onto the HTTP
// envelope. Invalid transitions surface as 409 with the exact reason.
func writeAppointmentError(w http.ResponseWriter, err error, fallback string) {
	var transitionErr *entity.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		response.Conflict(w, transitionErr.Error())
		return
	}

	switch err {
	case usecase.ErrAppointmentNotFound:
		response.NotFound(w, "Appointment not found")
	case usecase.ErrAppointmentNotOwned:
		response.Forbidden(w, "Appointment does not belong to you")
	case usecase.ErrAlreadyQueued:
		response.Conflict(w, "Appointment already has a queue entry")
	case usecase.ErrConcurrencyConflict:
		response.Conflict(w, "Appointment was modified concurrently, please retry")
	case service.ErrInvalidScope:
		response.Error(w, http.StatusBadRequest, "Queue scope is not open for token issuance", nil)
	default:
		response.InternalServerError(w, fallback)
	}
}
