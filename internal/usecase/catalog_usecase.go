package usecase

import (
	"context"
	"errors"

	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/domain/entity"
	"clinicflow/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrCatalogItemNotFound = errors.New("service item not found in catalog")

// CatalogUsecase manages the clinic's priced service catalog. Billing
// resolves its catalog lines against these items.
type CatalogUsecase interface {
	Create(ctx context.Context, req *dto.CreateServiceItemRequest) (*dto.ServiceItemResponse, error)
	GetAll(ctx context.Context, page, limit int) ([]dto.ServiceItemResponse, int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.ServiceItemResponse, error)
	Update(ctx context.Context, id uuid.UUID, req *dto.UpdateServiceItemRequest) (*dto.ServiceItemResponse, error)
	// Delete deactivates the item. Billing history keeps its prices, so
	// items are never physically removed.
	Delete(ctx context.Context, id uuid.UUID) error
}

type catalogUsecase struct {
	db       *gorm.DB
	itemRepo repository.ServiceItemRepository
}

func NewCatalogUsecase(db *gorm.DB, itemRepo repository.ServiceItemRepository) CatalogUsecase {
	return &catalogUsecase{db: db, itemRepo: itemRepo}
}

func (u *catalogUsecase) Create(ctx context.Context, req *dto.CreateServiceItemRequest) (*dto.ServiceItemResponse, error) {
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return nil, ErrInvalidAmount
	}

	item := &entity.ServiceItem{
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		Active:      true,
	}

	if err := u.itemRepo.Create(u.db.WithContext(ctx), item); err != nil {
		return nil, err
	}

	return u.toResponse(item), nil
}

func (u *catalogUsecase) GetAll(ctx context.Context, page, limit int) ([]dto.ServiceItemResponse, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	offset := (page - 1) * limit

	items, total, err := u.itemRepo.FindAll(u.db.WithContext(ctx), limit, offset)
	if err != nil {
		return nil, 0, err
	}

	var responses []dto.ServiceItemResponse
	for i := range items {
		responses = append(responses, *u.toResponse(&items[i]))
	}

	return responses, total, nil
}

func (u *catalogUsecase) GetByID(ctx context.Context, id uuid.UUID) (*dto.ServiceItemResponse, error) {
	item, err := u.itemRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrCatalogItemNotFound
	}

	return u.toResponse(item), nil
}

func (u *catalogUsecase) Update(ctx context.Context, id uuid.UUID, req *dto.UpdateServiceItemRequest) (*dto.ServiceItemResponse, error) {
	item, err := u.itemRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrCatalogItemNotFound
	}

	if req.Name != "" {
		item.Name = req.Name
	}
	if req.Description != "" {
		item.Description = req.Description
	}
	if req.Price != "" {
		price, err := decimal.NewFromString(req.Price)
		if err != nil || price.IsNegative() {
			return nil, ErrInvalidAmount
		}
		item.Price = price
	}
	if req.Active != nil {
		item.Active = *req.Active
	}

	if err := u.itemRepo.Update(u.db.WithContext(ctx), item); err != nil {
		return nil, err
	}

	return u.toResponse(item), nil
}

func (u *catalogUsecase) Delete(ctx context.Context, id uuid.UUID) error {
	item, err := u.itemRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		return err
	}
	if item == nil {
		return ErrCatalogItemNotFound
	}

	item.Active = false
	return u.itemRepo.Update(u.db.WithContext(ctx), item)
}

func (u *catalogUsecase) toResponse(item *entity.ServiceItem) *dto.ServiceItemResponse {
	return &dto.ServiceItemResponse{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Price:       item.Price,
		Active:      item.Active,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}
