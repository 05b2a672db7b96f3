package repository

import (
	"clinicflow/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ServiceItemRepository interface {
	Create(db *gorm.DB, item *entity.ServiceItem) error
	FindAll(db *gorm.DB, limit, offset int) ([]entity.ServiceItem, int64, error)
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.ServiceItem, error)
	FindByIDs(db *gorm.DB, ids []uuid.UUID) ([]entity.ServiceItem, error)
	Update(db *gorm.DB, item *entity.ServiceItem) error
	Delete(db *gorm.DB, id uuid.UUID) error
}
