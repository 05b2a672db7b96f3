package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/usecase"
	"clinicflow/pkg/response"
	"clinicflow/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type AvailabilityHandler struct {
	availabilityUsecase usecase.AvailabilityUsecase
	validator           *validator.CustomValidator
}

func NewAvailabilityHandler(availabilityUsecase usecase.AvailabilityUsecase, validator *validator.CustomValidator) *AvailabilityHandler {
	return &AvailabilityHandler{
		availabilityUsecase: availabilityUsecase,
		validator:           validator,
	}
}

// Create handles availability window creation
// @Summary Create availability window
// @Description Publish a bookable window for a doctor and date
// @Tags Availabilities
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CreateAvailabilityRequest true "Create Availability Request"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /availabilities [post]
func (h *AvailabilityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	window, err := h.availabilityUsecase.CreateAvailability(r.Context(), &req)
	if err != nil {
		writeAvailabilityError(w, err, "Failed to create availability")
		return
	}

	response.Success(w, http.StatusCreated, "Availability created successfully", window)
}

// GetByID handles getting one availability window
// @Summary Get availability by ID
// @Description Get one availability window
// @Tags Availabilities
// @Produce json
// @Param id path int true "Availability ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /availabilities/{id} [get]
func (h *AvailabilityHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	windowID, err := strconv.Atoi(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid availability ID", nil)
		return
	}

	window, err := h.availabilityUsecase.GetAvailability(r.Context(), windowID)
	if err != nil {
		writeAvailabilityError(w, err, "Failed to get availability")
		return
	}

	response.Success(w, http.StatusOK, "Availability retrieved successfully", window)
}

// GetByDoctor handles listing a doctor's windows
// @Summary Get availabilities by doctor
// @Description Get all availability windows published by a doctor
// @Tags Availabilities
// @Produce json
// @Param id path string true "Doctor ID"
// @Success 200 {object} response.Response
// @Router /doctors/{id}/availabilities [get]
func (h *AvailabilityHandler) GetByDoctor(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	doctorID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid doctor ID", nil)
		return
	}

	windows, err := h.availabilityUsecase.GetAvailabilitiesByDoctor(r.Context(), doctorID)
	if err != nil {
		response.InternalServerError(w, "Failed to get availabilities")
		return
	}

	response.Success(w, http.StatusOK, "Availabilities retrieved successfully", windows)
}

// Search handles the public browse endpoint patients book from
// @Summary Search availabilities
// @Description Search bookable windows by date and specialization
// @Tags Availabilities
// @Produce json
// @Param date query string false "Earliest date (YYYY-MM-DD)"
// @Param end_at query string false "Latest date (YYYY-MM-DD)"
// @Param doctor_name query string false "Doctor name"
// @Param specialization query string false "Doctor specialization"
// @Success 200 {object} response.Response
// @Router /availabilities [get]
func (h *AvailabilityHandler) Search(w http.ResponseWriter, r *http.Request) {
	req := &dto.SearchAvailabilityRequest{
		StartAt:        r.URL.Query().Get("date"),
		EndAt:          r.URL.Query().Get("end_at"),
		DoctorName:     r.URL.Query().Get("doctor_name"),
		Specialization: r.URL.Query().Get("specialization"),
	}

	windows, err := h.availabilityUsecase.SearchAvailabilities(r.Context(), req)
	if err != nil {
		writeAvailabilityError(w, err, "Failed to search availabilities")
		return
	}

	response.Success(w, http.StatusOK, "Availabilities retrieved successfully", windows)
}

// Update handles changing an availability window
// @Summary Update availability window
// @Description Update the date or times of an availability window
// @Tags Availabilities
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Availability ID"
// @Param request body dto.UpdateAvailabilityRequest true "Update Availability Request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /availabilities/{id} [put]
func (h *AvailabilityHandler) Update(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	windowID, err := strconv.Atoi(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid availability ID", nil)
		return
	}

	var req dto.UpdateAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	window, err := h.availabilityUsecase.UpdateAvailability(r.Context(), windowID, &req)
	if err != nil {
		writeAvailabilityError(w, err, "Failed to update availability")
		return
	}

	response.Success(w, http.StatusOK, "Availability updated successfully", window)
}

// Delete handles removing an availability window
// @Summary Delete availability window
// @Description Withdraw an availability window
// @Tags Availabilities
// @Security BearerAuth
// @Produce json
// @Param id path int true "Availability ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /availabilities/{id} [delete]
func (h *AvailabilityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	windowID, err := strconv.Atoi(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid availability ID", nil)
		return
	}

	if err := h.availabilityUsecase.DeleteAvailability(r.Context(), windowID); err != nil {
		writeAvailabilityError(w, err, "Failed to delete availability")
		return
	}

	response.Success(w, http.StatusOK, "Availability deleted successfully", nil)
}

func writeAvailabilityError(w http.ResponseWriter, err error, fallback string) {
	switch err {
	case usecase.ErrAvailabilityNotFound:
		response.NotFound(w, "Availability not found")
	case usecase.ErrDoctorNotFound:
		response.NotFound(w, "Doctor not found")
	case usecase.ErrNotYourWindow:
		response.Forbidden(w, "Availability belongs to another doctor")
	case usecase.ErrInvalidDateFormat:
		response.Error(w, http.StatusBadRequest, "Invalid date format, use YYYY-MM-DD", nil)
	case usecase.ErrInvalidTimeFormat:
		response.Error(w, http.StatusBadRequest, "Invalid time format, use HH:MM", nil)
	case usecase.ErrInvalidTimeRange:
		response.Error(w, http.StatusBadRequest, "Start time must be before end time", nil)
	default:
		response.InternalServerError(w, fallback)
	}
}
