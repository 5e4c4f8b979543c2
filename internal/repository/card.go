package repository

import (
	"context"
	"errors"
	"time"

	"github.com/wfunc/park-gate/internal/billing"
	"github.com/wfunc/park-gate/internal/models"
	"gorm.io/gorm"
)

// CardRepository 通行卡片仓储接口
type CardRepository interface {
	BaseRepository
	Create(ctx context.Context, card *models.Card) error
	// FindBySerial 根据序列号查找，未登记的卡返回 (nil, nil)
	FindBySerial(ctx context.Context, serial string) (*models.Card, error)
	FindByID(ctx context.Context, id uint) (*models.Card, error)
	Update(ctx context.Context, card *models.Card) error
	Delete(ctx context.Context, id uint) error
	// UpdateWindow 卡片续期：写入新有效期窗口与费率信息
	UpdateWindow(ctx context.Context, serial string, begin, end time.Time, tariffID, cost, price int) error
	// UpdateMoved 卡片过闸：翻转场内/场外状态并记录时刻
	UpdateMoved(ctx context.Context, serial string, inside bool, at time.Time) error
	List(ctx context.Context, pagination *Pagination) ([]*models.Card, error)
}

// cardRepo 通行卡片仓储实现
type cardRepo struct {
	*BaseRepo
}

// NewCardRepository 创建通行卡片仓储
func NewCardRepository(db *gorm.DB) CardRepository {
	return &cardRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 登记新卡
func (r *cardRepo) Create(ctx context.Context, card *models.Card) error {
	return r.db.WithContext(ctx).Create(card).Error
}

// FindBySerial 根据序列号查找
func (r *cardRepo) FindBySerial(ctx context.Context, serial string) (*models.Card, error) {
	var card models.Card
	err := r.db.WithContext(ctx).Where("serial = ?", serial).First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

// FindByID 根据ID查找
func (r *cardRepo) FindByID(ctx context.Context, id uint) (*models.Card, error) {
	var card models.Card
	err := r.db.WithContext(ctx).First(&card, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("卡片不存在")
		}
		return nil, err
	}
	return &card, nil
}

// Update 保存卡片
func (r *cardRepo) Update(ctx context.Context, card *models.Card) error {
	return r.db.WithContext(ctx).Save(card).Error
}

// Delete 删除卡片
func (r *cardRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Card{}, id).Error
}

// UpdateWindow 续期落库
func (r *cardRepo) UpdateWindow(ctx context.Context, serial string, begin, end time.Time, tariffID, cost, price int) error {
	result := r.db.WithContext(ctx).
		Model(&models.Card{}).
		Where("serial = ?", serial).
		Updates(map[string]interface{}{
			"date_reg":     begin,
			"date_end":     end,
			"tariff_id":    tariffID,
			"tariff_price": cost,
			"tariff_sum":   price,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("卡片不存在")
	}
	return nil
}

// UpdateMoved 过闸落库
func (r *cardRepo) UpdateMoved(ctx context.Context, serial string, inside bool, at time.Time) error {
	updates := map[string]interface{}{}
	if inside {
		updates["status"] = billing.CardInside
		updates["date_in"] = at
	} else {
		updates["status"] = billing.CardOutside
		updates["date_out"] = at
	}

	result := r.db.WithContext(ctx).
		Model(&models.Card{}).
		Where("serial = ?", serial).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("卡片不存在")
	}
	return nil
}

// List 分页查询
func (r *cardRepo) List(ctx context.Context, pagination *Pagination) ([]*models.Card, error) {
	var cards []*models.Card
	query := r.db.WithContext(ctx).Model(&models.Card{})

	var total int64
	query.Count(&total)
	pagination.Total = total

	err := query.
		Scopes(Paginate(pagination)).
		Order("created_at DESC").
		Find(&cards).Error
	return cards, err
}

// WithTx 使用事务
func (r *cardRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &cardRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
