package repository

import (
	"errors"

	"clinicflow/internal/domain/entity"
	domainRepo "clinicflow/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type serviceItemRepository struct{}

func NewServiceItemRepository() domainRepo.ServiceItemRepository {
	return &serviceItemRepository{}
}

func (r *serviceItemRepository) Create(db *gorm.DB, item *entity.ServiceItem) error {
	return db.Create(item).Error
}

func (r *serviceItemRepository) FindAll(db *gorm.DB, limit, offset int) ([]entity.ServiceItem, int64, error) {
	var items []entity.ServiceItem
	var total int64

	if err := db.Model(&entity.ServiceItem{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Limit(limit).Offset(offset).Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *serviceItemRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.ServiceItem, error) {
	var item entity.ServiceItem
	err := db.Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *serviceItemRepository) FindByIDs(db *gorm.DB, ids []uuid.UUID) ([]entity.ServiceItem, error) {
	var items []entity.ServiceItem
	err := db.Where("id IN ?", ids).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *serviceItemRepository) Update(db *gorm.DB, item *entity.ServiceItem) error {
	return db.Save(item).Error
}

func (r *serviceItemRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	return db.Where("id = ?", id).Delete(&entity.ServiceItem{}).Error
}
