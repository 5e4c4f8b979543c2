package repository

import (
	"context"
	"time"

	"github.com/wfunc/park-gate/internal/models"
	"gorm.io/gorm"
)

// PaymentRepository 付费留档仓储接口
type PaymentRepository interface {
	BaseRepository
	Create(ctx context.Context, payment *models.Payment) error
	List(ctx context.Context, pagination *Pagination) ([]*models.Payment, error)
	ListByRef(ctx context.Context, ref string, pagination *Pagination) ([]*models.Payment, error)
	GetDailyRevenue(ctx context.Context, date time.Time) (*RevenueStats, error)
}

// RevenueStats 营收统计
type RevenueStats struct {
	TicketSum int64 `json:"ticket_sum"`
	ExcessSum int64 `json:"excess_sum"`
	CardSum   int64 `json:"card_sum"`
	OnceSum   int64 `json:"once_sum"`
	Total     int64 `json:"total"`
	Count     int   `json:"count"`
}

// paymentRepo 付费留档仓储实现
type paymentRepo struct {
	*BaseRepo
}

// NewPaymentRepository 创建付费留档仓储
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 记录付费
func (r *paymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// List 按时间倒序分页
func (r *paymentRepo) List(ctx context.Context, pagination *Pagination) ([]*models.Payment, error) {
	var payments []*models.Payment
	query := r.db.WithContext(ctx).Model(&models.Payment{})

	var total int64
	query.Count(&total)
	pagination.Total = total

	err := query.
		Scopes(Paginate(pagination)).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}

// ListByRef 按票条码或卡序列号筛选分页
func (r *paymentRepo) ListByRef(ctx context.Context, ref string, pagination *Pagination) ([]*models.Payment, error) {
	var payments []*models.Payment
	query := r.db.WithContext(ctx).Model(&models.Payment{}).Where("ref = ?", ref)

	var total int64
	query.Count(&total)
	pagination.Total = total

	err := query.
		Scopes(Paginate(pagination)).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}

// GetDailyRevenue 获取日营收统计
func (r *paymentRepo) GetDailyRevenue(ctx context.Context, date time.Time) (*RevenueStats, error) {
	stats := &RevenueStats{}

	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	sumKind := func(kind string, dest *int64) {
		r.db.WithContext(ctx).
			Model(&models.Payment{}).
			Where("kind = ? AND created_at BETWEEN ? AND ?", kind, startOfDay, endOfDay).
			Select("COALESCE(SUM(price), 0)").
			Scan(dest)
	}

	sumKind("ticket", &stats.TicketSum)
	sumKind("excess", &stats.ExcessSum)
	sumKind("card", &stats.CardSum)
	sumKind("once", &stats.OnceSum)
	stats.Total = stats.TicketSum + stats.ExcessSum + stats.CardSum + stats.OnceSum

	var count int64
	r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("created_at BETWEEN ? AND ?", startOfDay, endOfDay).
		Count(&count)
	stats.Count = int(count)

	return stats, nil
}

// WithTx 使用事务
func (r *paymentRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &paymentRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
