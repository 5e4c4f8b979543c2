package repository

import (
	"context"
	"errors"

	"github.com/wfunc/park-gate/internal/models"
	"gorm.io/gorm"
)

// TariffRepository 费率配置仓储接口
type TariffRepository interface {
	BaseRepository
	Create(ctx context.Context, tariff *models.Tariff) error
	FindByID(ctx context.Context, id uint) (*models.Tariff, error)
	// ListEnabled 返回所有启用的费率，按ID升序
	ListEnabled(ctx context.Context) ([]*models.Tariff, error)
	List(ctx context.Context, pagination *Pagination) ([]*models.Tariff, error)
	Update(ctx context.Context, tariff *models.Tariff) error
	SetEnabled(ctx context.Context, id uint, enabled bool) error
	Delete(ctx context.Context, id uint) error
}

// tariffRepo 费率配置仓储实现
type tariffRepo struct {
	*BaseRepo
}

// NewTariffRepository 创建费率配置仓储
func NewTariffRepository(db *gorm.DB) TariffRepository {
	return &tariffRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建费率
func (r *tariffRepo) Create(ctx context.Context, tariff *models.Tariff) error {
	return r.db.WithContext(ctx).Create(tariff).Error
}

// FindByID 根据ID查找费率
func (r *tariffRepo) FindByID(ctx context.Context, id uint) (*models.Tariff, error) {
	var tariff models.Tariff
	err := r.db.WithContext(ctx).First(&tariff, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("费率不存在")
		}
		return nil, err
	}
	return &tariff, nil
}

// ListEnabled 返回所有启用的费率
func (r *tariffRepo) ListEnabled(ctx context.Context) ([]*models.Tariff, error) {
	var tariffs []*models.Tariff
	err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("id ASC").
		Find(&tariffs).Error
	return tariffs, err
}

// List 分页查询
func (r *tariffRepo) List(ctx context.Context, pagination *Pagination) ([]*models.Tariff, error) {
	var tariffs []*models.Tariff
	query := r.db.WithContext(ctx).Model(&models.Tariff{})

	var total int64
	query.Count(&total)
	pagination.Total = total

	err := query.
		Scopes(Paginate(pagination)).
		Order("id ASC").
		Find(&tariffs).Error
	return tariffs, err
}

// Update 保存费率
func (r *tariffRepo) Update(ctx context.Context, tariff *models.Tariff) error {
	return r.db.WithContext(ctx).Save(tariff).Error
}

// SetEnabled 启用或停用费率
func (r *tariffRepo) SetEnabled(ctx context.Context, id uint, enabled bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Tariff{}).
		Where("id = ?", id).
		Update("enabled", enabled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("费率不存在")
	}
	return nil
}

// Delete 删除费率
func (r *tariffRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Tariff{}, id).Error
}

// WithTx 使用事务
func (r *tariffRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &tariffRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
