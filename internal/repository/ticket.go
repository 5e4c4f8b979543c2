package repository

import (
	"context"
	"errors"
	"time"

	"github.com/wfunc/park-gate/internal/billing"
	"github.com/wfunc/park-gate/internal/models"
	"gorm.io/gorm"
)

// TicketRepository 停车票仓储接口
type TicketRepository interface {
	BaseRepository
	Create(ctx context.Context, ticket *models.Ticket) error
	// FindByBar 根据条码查找，未登记的条码返回 (nil, nil)
	FindByBar(ctx context.Context, bar string) (*models.Ticket, error)
	// MarkPaid 首次付费：写入费率信息与已付截止时刻并升位到已付状态
	MarkPaid(ctx context.Context, bar string, tariffID, cost, price int, paidUntil time.Time) error
	// MarkExcessPaid 超时补缴：累加补缴金额并刷新补缴截止时刻
	MarkExcessPaid(ctx context.Context, bar string, price int, paidUntil time.Time) error
	MarkOut(ctx context.Context, bar string, timeOut time.Time) error
	List(ctx context.Context, pagination *Pagination) ([]*models.Ticket, error)
	ListByStatus(ctx context.Context, status int, pagination *Pagination) ([]*models.Ticket, error)
	CountInside(ctx context.Context) (int64, error)
}

// ticketRepo 停车票仓储实现
type ticketRepo struct {
	*BaseRepo
}

// NewTicketRepository 创建停车票仓储
func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 登记新票
func (r *ticketRepo) Create(ctx context.Context, ticket *models.Ticket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

// FindByBar 根据条码查找
func (r *ticketRepo) FindByBar(ctx context.Context, bar string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).Where("bar = ?", bar).First(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ticket, nil
}

// MarkPaid 首次付费落库
func (r *ticketRepo) MarkPaid(ctx context.Context, bar string, tariffID, cost, price int, paidUntil time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("bar = ? AND status = ?", bar, billing.TicketIn).
		Updates(map[string]interface{}{
			"tariff_id":    tariffID,
			"tariff_price": cost,
			"tariff_sum":   price,
			"time_paid":    paidUntil,
			"status":       billing.TicketPaid,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("停车票不存在或状态不符")
	}
	return nil
}

// MarkExcessPaid 补缴落库，状态位不变
func (r *ticketRepo) MarkExcessPaid(ctx context.Context, bar string, price int, paidUntil time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("bar = ? AND status = ?", bar, billing.TicketPaid).
		Updates(map[string]interface{}{
			"tariff_sum_excess": gorm.Expr("tariff_sum_excess + ?", price),
			"time_excess_paid":  paidUntil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("停车票不存在或状态不符")
	}
	return nil
}

// MarkOut 离场落库
func (r *ticketRepo) MarkOut(ctx context.Context, bar string, timeOut time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("bar = ?", bar).
		Updates(map[string]interface{}{
			"time_out": timeOut,
			"status":   billing.TicketOut,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("停车票不存在")
	}
	return nil
}

// List 按入场时间倒序分页
func (r *ticketRepo) List(ctx context.Context, pagination *Pagination) ([]*models.Ticket, error) {
	var tickets []*models.Ticket
	query := r.db.WithContext(ctx).Model(&models.Ticket{})

	var total int64
	query.Count(&total)
	pagination.Total = total

	err := query.
		Scopes(Paginate(pagination)).
		Order("time_in DESC").
		Find(&tickets).Error
	return tickets, err
}

// ListByStatus 按状态筛选分页
func (r *ticketRepo) ListByStatus(ctx context.Context, status int, pagination *Pagination) ([]*models.Ticket, error) {
	var tickets []*models.Ticket
	query := r.db.WithContext(ctx).Model(&models.Ticket{}).Where("status = ?", status)

	var total int64
	query.Count(&total)
	pagination.Total = total

	err := query.
		Scopes(Paginate(pagination)).
		Order("time_in DESC").
		Find(&tickets).Error
	return tickets, err
}

// CountInside 统计场内未离场票数
func (r *ticketRepo) CountInside(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("status <> ?", billing.TicketOut).
		Count(&count).Error
	return count, err
}

// WithTx 使用事务
func (r *ticketRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &ticketRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
