package repository

import (
	"context"
	"errors"

	"github.com/wfunc/park-gate/internal/models"
	"gorm.io/gorm"
)

// LotRepository 场区状态仓储接口，单行表
type LotRepository interface {
	BaseRepository
	// Get 读取场区状态，不存在时初始化一行
	Get(ctx context.Context) (*models.LotState, error)
	SetTotalPlaces(ctx context.Context, total int) error
	SetFreePlaces(ctx context.Context, free int) error
	// AdjustFreePlaces 原子增减空位数，钳制在 [0, total] 区间内
	AdjustFreePlaces(ctx context.Context, delta int) (int, error)
}

// lotRepo 场区状态仓储实现
type lotRepo struct {
	*BaseRepo
}

// NewLotRepository 创建场区状态仓储
func NewLotRepository(db *gorm.DB) LotRepository {
	return &lotRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Get 读取场区状态
func (r *lotRepo) Get(ctx context.Context) (*models.LotState, error) {
	var state models.LotState
	err := r.db.WithContext(ctx).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			state = models.LotState{}
			if cerr := r.db.WithContext(ctx).Create(&state).Error; cerr != nil {
				return nil, cerr
			}
			return &state, nil
		}
		return nil, err
	}
	return &state, nil
}

// SetTotalPlaces 设置总车位数
func (r *lotRepo) SetTotalPlaces(ctx context.Context, total int) error {
	state, err := r.Get(ctx)
	if err != nil {
		return err
	}
	state.TotalPlaces = total
	if state.FreePlaces > total {
		state.FreePlaces = total
	}
	return r.db.WithContext(ctx).Save(state).Error
}

// SetFreePlaces 人工校正空位数
func (r *lotRepo) SetFreePlaces(ctx context.Context, free int) error {
	state, err := r.Get(ctx)
	if err != nil {
		return err
	}
	if free < 0 {
		free = 0
	}
	if free > state.TotalPlaces {
		free = state.TotalPlaces
	}
	state.FreePlaces = free
	return r.db.WithContext(ctx).Save(state).Error
}

// AdjustFreePlaces 原子增减空位数，返回调整后的值
func (r *lotRepo) AdjustFreePlaces(ctx context.Context, delta int) (int, error) {
	var free int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var state models.LotState
		if err := tx.First(&state).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			state = models.LotState{}
			if cerr := tx.Create(&state).Error; cerr != nil {
				return cerr
			}
		}
		free = state.FreePlaces + delta
		if free < 0 {
			free = 0
		}
		if free > state.TotalPlaces {
			free = state.TotalPlaces
		}
		return tx.Model(&state).Update("free_places", free).Error
	})
	return free, err
}

// WithTx 使用事务
func (r *lotRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &lotRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
