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

type BillingHandler struct {
	billingUsecase usecase.BillingUsecase
	validator      *validator.CustomValidator
}

func NewBillingHandler(billingUsecase usecase.BillingUsecase, validator *validator.CustomValidator) *BillingHandler {
	return &BillingHandler{
		billingUsecase: billingUsecase,
		validator:      validator,
	}
}

// Create handles opening a billing for an appointment
// @Summary Create billing
// @Description Open the invoice for an appointment that finished consultation
// @Tags Billings
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CreateBillingRequest true "Create Billing Request"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /billings [post]
func (h *BillingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBillingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	billing, err := h.billingUsecase.CreateBilling(r.Context(), &req)
	if err != nil {
		writeBillingError(w, err, "Failed to create billing")
		return
	}

	response.Success(w, http.StatusCreated, "Billing created successfully", billing)
}

// GetByID handles getting a billing by ID
// @Summary Get billing by ID
// @Description Get a billing with its line items
// @Tags Billings
// @Security BearerAuth
// @Produce json
// @Param id path string true "Billing ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /billings/{id} [get]
func (h *BillingHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	billingID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid billing ID", nil)
		return
	}

	billing, err := h.billingUsecase.GetBilling(r.Context(), billingID)
	if err != nil {
		writeBillingError(w, err, "Failed to get billing")
		return
	}

	response.Success(w, http.StatusOK, "Billing retrieved successfully", billing)
}

// GetByAppointment handles getting all billings of an appointment
// @Summary Get billings by appointment
// @Description Get every billing recorded for an appointment
// @Tags Billings
// @Security BearerAuth
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Response
// @Router /appointments/{id}/billings [get]
func (h *BillingHandler) GetByAppointment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	billings, err := h.billingUsecase.GetBillingByAppointment(r.Context(), appointmentID)
	if err != nil {
		writeBillingError(w, err, "Failed to get billings")
		return
	}

	response.Success(w, http.StatusOK, "Billings retrieved successfully", billings)
}

// Update handles replacing the line items of an open billing
// @Summary Update billing
// @Description Replace the line items of an open billing and recompute amounts
// @Tags Billings
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Billing ID"
// @Param request body dto.UpdateBillingRequest true "Update Billing Request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /billings/{id} [put]
func (h *BillingHandler) Update(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	billingID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid billing ID", nil)
		return
	}

	var req dto.UpdateBillingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	billing, err := h.billingUsecase.UpdateBilling(r.Context(), billingID, &req)
	if err != nil {
		writeBillingError(w, err, "Failed to update billing")
		return
	}

	response.Success(w, http.StatusOK, "Billing updated successfully", billing)
}

// Delete handles voiding an open billing
// @Summary Delete billing
// @Description Delete an open billing before settlement
// @Tags Billings
// @Security BearerAuth
// @Produce json
// @Param id path string true "Billing ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /billings/{id} [delete]
func (h *BillingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	billingID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid billing ID", nil)
		return
	}

	if err := h.billingUsecase.DeleteBilling(r.Context(), billingID); err != nil {
		writeBillingError(w, err, "Failed to delete billing")
		return
	}

	response.Success(w, http.StatusOK, "Billing deleted successfully", nil)
}

// Settle handles marking a billing paid
// @Summary Settle billing
// @Description Record payment and complete the appointment lifecycle
// @Tags Billings
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Billing ID"
// @Param request body dto.SettleBillingRequest true "Settle Billing Request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /billings/{id}/settle [put]
func (h *BillingHandler) Settle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	billingID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid billing ID", nil)
		return
	}

	var req dto.SettleBillingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	billing, err := h.billingUsecase.SettleBilling(r.Context(), billingID, &req)
	if err != nil {
		writeBillingError(w, err, "Failed to settle billing")
		return
	}

	response.Success(w, http.StatusOK, "Billing settled successfully", billing)
}

func writeBillingError(w http.ResponseWriter, err error, fallback string) {
	var transitionErr *entity.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		response.Conflict(w, transitionErr.Error())
		return
	}

	switch err {
	case usecase.ErrBillingNotFound:
		response.NotFound(w, "Billing not found")
	case usecase.ErrAppointmentNotFound:
		response.NotFound(w, "Appointment not found")
	case usecase.ErrServiceItemNotFound:
		response.Error(w, http.StatusBadRequest, "Service item not found or inactive", nil)
	case usecase.ErrDuplicateBilling:
		response.Conflict(w, "Appointment already has an open billing")
	case usecase.ErrBillingNotOpen:
		response.Conflict(w, "Billing is already settled")
	case usecase.ErrBillingNotBillable:
		response.Conflict(w, "Appointment is not ready for billing")
	case usecase.ErrInvalidAmount:
		response.Error(w, http.StatusBadRequest, "Invalid amount", nil)
	case usecase.ErrInvalidPayment:
		response.Error(w, http.StatusBadRequest, "Invalid payment method", nil)
	case usecase.ErrConcurrencyConflict:
		response.Conflict(w, "Billing was modified concurrently, please retry")
	default:
		response.InternalServerError(w, fallback)
	}
}
