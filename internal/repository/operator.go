package repository

import (
	"context"
	"errors"
	"time"

	"github.com/wfunc/park-gate/internal/models"
	"gorm.io/gorm"
)

// OperatorRepository 操作员账号仓储接口
type OperatorRepository interface {
	BaseRepository
	Create(ctx context.Context, operator *models.Operator) error
	FindByID(ctx context.Context, id uint) (*models.Operator, error)
	FindByUsername(ctx context.Context, username string) (*models.Operator, error)
	Update(ctx context.Context, operator *models.Operator) error
	UpdateLastLogin(ctx context.Context, id uint, ip string) error
	List(ctx context.Context, pagination *Pagination) ([]*models.Operator, error)
	Delete(ctx context.Context, id uint) error
}

// operatorRepo 操作员账号仓储实现
type operatorRepo struct {
	*BaseRepo
}

// NewOperatorRepository 创建操作员账号仓储
func NewOperatorRepository(db *gorm.DB) OperatorRepository {
	return &operatorRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建操作员
func (r *operatorRepo) Create(ctx context.Context, operator *models.Operator) error {
	return r.db.WithContext(ctx).Create(operator).Error
}

// FindByID 根据ID查找操作员
func (r *operatorRepo) FindByID(ctx context.Context, id uint) (*models.Operator, error) {
	var operator models.Operator
	err := r.db.WithContext(ctx).First(&operator, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("操作员不存在")
		}
		return nil, err
	}
	return &operator, nil
}

// FindByUsername 根据用户名查找操作员
func (r *operatorRepo) FindByUsername(ctx context.Context, username string) (*models.Operator, error) {
	var operator models.Operator
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&operator).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("操作员不存在")
		}
		return nil, err
	}
	return &operator, nil
}

// Update 保存操作员
func (r *operatorRepo) Update(ctx context.Context, operator *models.Operator) error {
	return r.db.WithContext(ctx).Save(operator).Error
}

// UpdateLastLogin 更新最后登录信息
func (r *operatorRepo) UpdateLastLogin(ctx context.Context, id uint, ip string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.Operator{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_login_at": now,
			"last_login_ip": ip,
		}).Error
}

// List 分页查询
func (r *operatorRepo) List(ctx context.Context, pagination *Pagination) ([]*models.Operator, error) {
	var operators []*models.Operator
	query := r.db.WithContext(ctx).Model(&models.Operator{})

	var total int64
	query.Count(&total)
	pagination.Total = total

	err := query.
		Scopes(Paginate(pagination)).
		Order("id ASC").
		Find(&operators).Error
	return operators, err
}

// Delete 删除操作员
func (r *operatorRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Operator{}, id).Error
}

// WithTx 使用事务
func (r *operatorRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &operatorRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
