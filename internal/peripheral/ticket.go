package peripheral

import (
	"context"

	"go.uber.org/zap"

	"github.com/wfunc/park-gate/internal/billing"
	"github.com/wfunc/park-gate/internal/logger"
)

// Store 条码解析所需的持久化能力
type Store interface {
	FindTicketByBar(ctx context.Context, bar string) (*billing.Ticket, error)
	RegisterTicket(ctx context.Context, bar string) (*billing.Ticket, error)
}

// PayableFunc 解析出可计费停车票后的回调，通常推给收银界面
type PayableFunc func(ticket *billing.Ticket)

// TicketHandler 把扫到的条码解析成停车票。
// 未登记的条码视为新入场车辆，先登记再投递。
type TicketHandler struct {
	store     Store
	onPayable PayableFunc
	log       *zap.Logger
}

// NewTicketHandler 创建条码处理器
func NewTicketHandler(store Store, onPayable PayableFunc) *TicketHandler {
	return &TicketHandler{
		store:     store,
		onPayable: onPayable,
		log:       logger.GetModuleLogger("peripheral"),
	}
}

// HandleBar 解析条码并投递停车票
func (h *TicketHandler) HandleBar(ctx context.Context, bar string) {
	ticket, err := h.store.FindTicketByBar(ctx, bar)
	if err != nil {
		h.log.Error("查询停车票失败", zap.String("bar", bar), zap.Error(err))
		return
	}
	if ticket == nil {
		ticket, err = h.store.RegisterTicket(ctx, bar)
		if err != nil {
			h.log.Warn("登记停车票失败", zap.String("bar", bar), zap.Error(err))
			return
		}
		h.log.Info("新停车票已登记", zap.String("bar", bar))
	}
	if h.onPayable != nil {
		h.onPayable(ticket)
	}
}
