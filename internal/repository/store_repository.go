package repository

import (
	"errors"
	"fmt"

	"github.com/lingquan-next/internal/models"

	"gorm.io/gorm"
)

// StoreRepository 门店数据访问接口
type StoreRepository interface {
	GetByID(id uint) (*models.Store, error)
	Create(store *models.Store) error
	Update(store *models.Store) error
	Delete(id uint) error
	List(filter StoreListFilter) ([]models.Store, int64, error)
	WithTx(tx *gorm.DB) *GormStoreRepository
}

// GormStoreRepository GORM 实现
type GormStoreRepository struct {
	db *gorm.DB
}

// NewStoreRepository 创建门店仓库
func NewStoreRepository(db *gorm.DB) *GormStoreRepository {
	return &GormStoreRepository{db: db}
}

// WithTx 绑定事务
func (r *GormStoreRepository) WithTx(tx *gorm.DB) *GormStoreRepository {
	if tx == nil {
		return r
	}
	return &GormStoreRepository{db: tx}
}

// GetByID 根据ID获取门店
func (r *GormStoreRepository) GetByID(id uint) (*models.Store, error) {
	var store models.Store
	if err := r.db.First(&store, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &store, nil
}

// Create 创建门店
func (r *GormStoreRepository) Create(store *models.Store) error {
	return r.db.Create(store).Error
}

// Update 更新门店
func (r *GormStoreRepository) Update(store *models.Store) error {
	return r.db.Save(store).Error
}

// Delete 删除门店
func (r *GormStoreRepository) Delete(id uint) error {
	return r.db.Delete(&models.Store{}, id).Error
}

// List 获取门店列表
func (r *GormStoreRepository) List(filter StoreListFilter) ([]models.Store, int64, error) {
	query := r.db.Model(&models.Store{})

	if filter.Search != "" {
		operator := likeOperator(r.db)
		query = query.Where(fmt.Sprintf("name %s ?", operator), "%"+filter.Search+"%")
	}
	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var stores []models.Store
	if err := query.Order("id desc").Find(&stores).Error; err != nil {
		return nil, 0, err
	}
	return stores, total, nil
}
