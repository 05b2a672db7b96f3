package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/domain/entity"
	"clinicflow/internal/usecase"
	"clinicflow/pkg/response"
	"clinicflow/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type QueueHandler struct {
	queueUsecase usecase.QueueUsecase
	validator    *validator.CustomValidator
}

func NewQueueHandler(queueUsecase usecase.QueueUsecase, validator *validator.CustomValidator) *QueueHandler {
	return &QueueHandler{
		queueUsecase: queueUsecase,
		validator:    validator,
	}
}

// IssueWalkInToken handles token issuance for a registered walk-in
// @Summary Issue a walk-in token
// @Description Put a registered walk-in appointment into the waiting line
// @Tags Queue
// @Security BearerAuth
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /queue/walk-in/{id} [post]
func (h *QueueHandler) IssueWalkInToken(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	entry, err := h.queueUsecase.IssueWalkInToken(r.Context(), appointmentID)
	if err != nil {
		switch err {
		case usecase.ErrAppointmentNotFound:
			response.NotFound(w, "Appointment not found")
		case usecase.ErrNotWalkIn:
			response.Error(w, http.StatusBadRequest, "Appointment is not a walk-in", nil)
		default:
			writeQueueError(w, err, "Failed to issue walk-in token")
		}
		return
	}

	response.Success(w, http.StatusCreated, "Walk-in token issued successfully", entry)
}

// GetQueue handles getting a doctor's queue for a date
// @Summary Get queue
// @Description Get the ordered queue for a doctor and date
// @Tags Queue
// @Security BearerAuth
// @Produce json
// @Param doctor_id query string true "Doctor ID"
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Response
// @Router /queue [get]
func (h *QueueHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	doctorID, err := uuid.Parse(r.URL.Query().Get("doctor_id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid doctor ID", nil)
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	queue, err := h.queueUsecase.GetQueue(r.Context(), doctorID, date)
	if err != nil {
		switch err {
		case usecase.ErrInvalidDateFormat:
			response.Error(w, http.StatusBadRequest, "Invalid date format, use YYYY-MM-DD", nil)
		default:
			response.InternalServerError(w, "Failed to get queue")
		}
		return
	}

	response.Success(w, http.StatusOK, "Queue retrieved successfully", queue)
}

// ReorderQueue handles front-desk reordering of the active queue
// @Summary Reorder queue
// @Description Replace the ordering of a scope's active entries
// @Tags Queue
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.ReorderQueueRequest true "Reorder Queue Request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /queue/reorder [put]
func (h *QueueHandler) ReorderQueue(w http.ResponseWriter, r *http.Request) {
	var req dto.ReorderQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	queue, err := h.queueUsecase.ReorderQueue(r.Context(), &req)
	if err != nil {
		var reorderErr *entity.InvalidReorderError
		if errors.As(err, &reorderErr) {
			response.Conflict(w, reorderErr.Error())
			return
		}
		switch err {
		case usecase.ErrInvalidDateFormat:
			response.Error(w, http.StatusBadRequest, "Invalid date format, use YYYY-MM-DD", nil)
		default:
			response.InternalServerError(w, "Failed to reorder queue")
		}
		return
	}

	response.Success(w, http.StatusOK, "Queue reordered successfully", queue)
}

// PrioritizeEntry handles moving one waiting entry to the head
// @Summary Prioritize queue entry
// @Description Move a waiting entry to position 1
// @Tags Queue
// @Security BearerAuth
// @Produce json
// @Param id path string true "Queue Entry ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /queue/{id}/prioritize [put]
func (h *QueueHandler) PrioritizeEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	entryID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid queue entry ID", nil)
		return
	}

	entry, err := h.queueUsecase.PrioritizeEntry(r.Context(), entryID)
	if err != nil {
		writeQueueError(w, err, "Failed to prioritize queue entry")
		return
	}

	response.Success(w, http.StatusOK, "Queue entry prioritized successfully", entry)
}

// RemoveFromQueue handles taking a waiting patient out of the line
// @Summary Remove queue entry
// @Description Remove a waiting entry and cancel its appointment
// @Tags Queue
// @Security BearerAuth
// @Produce json
// @Param id path string true "Queue Entry ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /queue/{id} [delete]
func (h *QueueHandler) RemoveFromQueue(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	entryID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid queue entry ID", nil)
		return
	}

	if err := h.queueUsecase.RemoveFromQueue(r.Context(), entryID); err != nil {
		writeQueueError(w, err, "Failed to remove queue entry")
		return
	}

	response.Success(w, http.StatusOK, "Queue entry removed successfully", nil)
}

func writeQueueError(w http.ResponseWriter, err error, fallback string) {
	switch err {
	case usecase.ErrQueueEntryNotFound:
		response.NotFound(w, "Queue entry not found")
	case usecase.ErrAppointmentNotFound:
		response.NotFound(w, "Appointment not found")
	case usecase.ErrQueueEntryNotActive:
		response.Conflict(w, "Queue entry is no longer waiting")
	case usecase.ErrAlreadyQueued:
		response.Conflict(w, "Appointment already has a queue entry")
	case usecase.ErrConcurrencyConflict:
		response.Conflict(w, "Queue was modified concurrently, please retry")
	default:
		response.InternalServerError(w, fallback)
	}
}
