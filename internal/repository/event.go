package repository

import (
	"context"
	"time"

	"github.com/wfunc/park-gate/internal/models"
	"gorm.io/gorm"
)

// PassEventRepository 通行事件仓储接口
type PassEventRepository interface {
	BaseRepository
	Create(ctx context.Context, event *models.PassEvent) error
	List(ctx context.Context, pagination *Pagination) ([]*models.PassEvent, error)
	ListByAddr(ctx context.Context, addr uint8, pagination *Pagination) ([]*models.PassEvent, error)
	CountBetween(ctx context.Context, from, to time.Time) (int64, error)
}

// passEventRepo 通行事件仓储实现
type passEventRepo struct {
	*BaseRepo
}

// NewPassEventRepository 创建通行事件仓储
func NewPassEventRepository(db *gorm.DB) PassEventRepository {
	return &passEventRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 记录通行事件
func (r *passEventRepo) Create(ctx context.Context, event *models.PassEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// List 按时间倒序分页
func (r *passEventRepo) List(ctx context.Context, pagination *Pagination) ([]*models.PassEvent, error) {
	var events []*models.PassEvent
	query := r.db.WithContext(ctx).Model(&models.PassEvent{})

	var total int64
	query.Count(&total)
	pagination.Total = total

	err := query.
		Scopes(Paginate(pagination)).
		Order("at DESC").
		Find(&events).Error
	return events, err
}

// ListByAddr 按车道地址筛选分页
func (r *passEventRepo) ListByAddr(ctx context.Context, addr uint8, pagination *Pagination) ([]*models.PassEvent, error) {
	var events []*models.PassEvent
	query := r.db.WithContext(ctx).Model(&models.PassEvent{}).Where("addr = ?", addr)

	var total int64
	query.Count(&total)
	pagination.Total = total

	err := query.
		Scopes(Paginate(pagination)).
		Order("at DESC").
		Find(&events).Error
	return events, err
}

// CountBetween 统计时间段内通行次数
func (r *passEventRepo) CountBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PassEvent{}).
		Where("at BETWEEN ? AND ?", from, to).
		Count(&count).Error
	return count, err
}

// WithTx 使用事务
func (r *passEventRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &passEventRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}

// GateEventRepository 开闸事件仓储接口
type GateEventRepository interface {
	BaseRepository
	Create(ctx context.Context, event *models.GateEvent) error
	List(ctx context.Context, pagination *Pagination) ([]*models.GateEvent, error)
}

// gateEventRepo 开闸事件仓储实现
type gateEventRepo struct {
	*BaseRepo
}

// NewGateEventRepository 创建开闸事件仓储
func NewGateEventRepository(db *gorm.DB) GateEventRepository {
	return &gateEventRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 记录开闸事件
func (r *gateEventRepo) Create(ctx context.Context, event *models.GateEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// List 按时间倒序分页
func (r *gateEventRepo) List(ctx context.Context, pagination *Pagination) ([]*models.GateEvent, error) {
	var events []*models.GateEvent
	query := r.db.WithContext(ctx).Model(&models.GateEvent{})

	var total int64
	query.Count(&total)
	pagination.Total = total

	err := query.
		Scopes(Paginate(pagination)).
		Order("at DESC").
		Find(&events).Error
	return events, err
}

// WithTx 使用事务
func (r *gateEventRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &gateEventRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
