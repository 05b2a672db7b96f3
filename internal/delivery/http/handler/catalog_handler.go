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

type CatalogHandler struct {
	catalogUsecase usecase.CatalogUsecase
	validator      *validator.CustomValidator
}

func NewCatalogHandler(catalogUsecase usecase.CatalogUsecase, validator *validator.CustomValidator) *CatalogHandler {
	return &CatalogHandler{
		catalogUsecase: catalogUsecase,
		validator:      validator,
	}
}

// Create handles service item creation
// @Summary Create a service item
// @Description Add a billable service to the catalog
// @Tags Catalog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CreateServiceItemRequest true "Create Service Item Request"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /service-items [post]
func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateServiceItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	item, err := h.catalogUsecase.Create(r.Context(), &req)
	if err != nil {
		switch err {
		case usecase.ErrInvalidAmount:
			response.Error(w, http.StatusBadRequest, "Invalid price", nil)
		default:
			response.InternalServerError(w, "Failed to create service item")
		}
		return
	}

	response.Success(w, http.StatusCreated, "Service item created successfully", item)
}

// GetAll handles listing the catalog
// @Summary Get all service items
// @Description Get the service catalog with pagination
// @Tags Catalog
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(10)
// @Success 200 {object} response.Response
// @Router /service-items [get]
func (h *CatalogHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	items, total, err := h.catalogUsecase.GetAll(r.Context(), page, limit)
	if err != nil {
		response.InternalServerError(w, "Failed to get service items")
		return
	}

	totalPages := int(total) / limit
	if int(total)%limit > 0 {
		totalPages++
	}

	meta := &response.Meta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}

	response.SuccessWithMeta(w, http.StatusOK, "Service items retrieved successfully", items, meta)
}

// GetByID handles getting a service item by ID
// @Summary Get service item by ID
// @Description Get a service item by its ID
// @Tags Catalog
// @Produce json
// @Param id path string true "Service Item ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /service-items/{id} [get]
func (h *CatalogHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid service item ID", nil)
		return
	}

	item, err := h.catalogUsecase.GetByID(r.Context(), id)
	if err != nil {
		switch err {
		case usecase.ErrCatalogItemNotFound:
			response.NotFound(w, "Service item not found")
		default:
			response.InternalServerError(w, "Failed to get service item")
		}
		return
	}

	response.Success(w, http.StatusOK, "Service item retrieved successfully", item)
}

// Update handles service item updates
// @Summary Update a service item
// @Description Update a catalog entry's name, price or active flag
// @Tags Catalog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Service Item ID"
// @Param request body dto.UpdateServiceItemRequest true "Update Service Item Request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /service-items/{id} [put]
func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid service item ID", nil)
		return
	}

	var req dto.UpdateServiceItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	item, err := h.catalogUsecase.Update(r.Context(), id, &req)
	if err != nil {
		switch err {
		case usecase.ErrCatalogItemNotFound:
			response.NotFound(w, "Service item not found")
		case usecase.ErrInvalidAmount:
			response.Error(w, http.StatusBadRequest, "Invalid price", nil)
		default:
			response.InternalServerError(w, "Failed to update service item")
		}
		return
	}

	response.Success(w, http.StatusOK, "Service item updated successfully", item)
}

// Delete handles service item deactivation
// @Summary Delete a service item
// @Description Deactivate a catalog entry so new billings cannot use it
// @Tags Catalog
// @Security BearerAuth
// @Produce json
// @Param id path string true "Service Item ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /service-items/{id} [delete]
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid service item ID", nil)
		return
	}

	if err := h.catalogUsecase.Delete(r.Context(), id); err != nil {
		switch err {
		case usecase.ErrCatalogItemNotFound:
			response.NotFound(w, "Service item not found")
		default:
			response.InternalServerError(w, "Failed to delete service item")
		}
		return
	}

	response.Success(w, http.StatusOK, "Service item deleted successfully", nil)
}
