package service

import (
	"strings"

	"github.com/lingquan-next/internal/models"
	"github.com/lingquan-next/internal/repository"
)

// StoreAdminService 后台门店管理
type StoreAdminService struct {
	storeRepo repository.StoreRepository
}

// NewStoreAdminService 创建门店管理服务
func NewStoreAdminService(storeRepo repository.StoreRepository) *StoreAdminService {
	return &StoreAdminService{storeRepo: storeRepo}
}

// StoreInput 创建/更新门店输入
type StoreInput struct {
	Name      string
	Address   string
	Latitude  float64
	Longitude float64
	IsActive  *bool
}

// List 门店列表
func (s *StoreAdminService) List(filter repository.StoreListFilter) ([]models.Store, int64, error) {
	return s.storeRepo.List(filter)
}

// GetByID 门店详情
func (s *StoreAdminService) GetByID(id uint) (*models.Store, error) {
	store, err := s.storeRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, ErrStoreNotFound
	}
	return store, nil
}

// Create 创建门店
func (s *StoreAdminService) Create(input StoreInput) (*models.Store, error) {
	store := &models.Store{IsActive: true}
	if err := applyStoreInput(store, input); err != nil {
		return nil, err
	}
	if err := s.storeRepo.Create(store); err != nil {
		return nil, err
	}
	return store, nil
}

// Update 更新门店
func (s *StoreAdminService) Update(id uint, input StoreInput) (*models.Store, error) {
	store, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := applyStoreInput(store, input); err != nil {
		return nil, err
	}
	if err := s.storeRepo.Update(store); err != nil {
		return nil, err
	}
	return store, nil
}

// Delete 删除门店（软删除）
func (s *StoreAdminService) Delete(id uint) error {
	if _, err := s.GetByID(id); err != nil {
		return err
	}
	return s.storeRepo.Delete(id)
}

func applyStoreInput(store *models.Store, input StoreInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return ErrStoreInvalid
	}
	if input.Latitude < -90 || input.Latitude > 90 {
		return ErrStoreInvalid
	}
	if input.Longitude < -180 || input.Longitude > 180 {
		return ErrStoreInvalid
	}
	store.Name = name
	store.Address = strings.TrimSpace(input.Address)
	store.Latitude = input.Latitude
	store.Longitude = input.Longitude
	if input.IsActive != nil {
		store.IsActive = *input.IsActive
	}
	return nil
}
