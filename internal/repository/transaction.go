package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// TransactionManager 事务管理器接口
type TransactionManager interface {
	// Begin 开始事务
	Begin(ctx context.Context) (*Transaction, error)
	// WithTransaction 在事务中执行函数
	WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error
}

// Transaction 事务包装器
type Transaction struct {
	tx         *gorm.DB
	ctx        context.Context
	committed  bool
	rolledback bool

	// 事务中的仓储实例
	ticket    TicketRepository
	card      CardRepository
	tariff    TariffRepository
	passEvent PassEventRepository
	gateEvent GateEventRepository
	payment   PaymentRepository
	lot       LotRepository
	operator  OperatorRepository
}

// txManager 事务管理器实现
type txManager struct {
	db *gorm.DB
}

// NewTransactionManager 创建事务管理器
func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &txManager{db: db}
}

// Begin 开始事务
func (m *txManager) Begin(ctx context.Context) (*Transaction, error) {
	tx := m.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &Transaction{
		tx:  tx,
		ctx: ctx,
	}, nil
}

// WithTransaction 在事务中执行函数
func (m *txManager) WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}

	// 确保事务被处理
	defer func() {
		if !tx.committed && !tx.rolledback {
			tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// Commit 提交事务
func (t *Transaction) Commit() error {
	if t.committed {
		return fmt.Errorf("事务已提交")
	}
	if t.rolledback {
		return fmt.Errorf("事务已回滚")
	}

	if err := t.tx.Commit().Error; err != nil {
		return err
	}

	t.committed = true
	return nil
}

// Rollback 回滚事务
func (t *Transaction) Rollback() error {
	if t.committed {
		return fmt.Errorf("事务已提交，无法回滚")
	}
	if t.rolledback {
		return fmt.Errorf("事务已回滚")
	}

	if err := t.tx.Rollback().Error; err != nil {
		return err
	}

	t.rolledback = true
	return nil
}

// GetDB 获取事务中的数据库实例
func (t *Transaction) GetDB() *gorm.DB {
	return t.tx
}

// Ticket 获取事务中的停车票仓储
func (t *Transaction) Ticket() TicketRepository {
	if t.ticket == nil {
		t.ticket = &ticketRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.ticket
}

// Card 获取事务中的通行卡片仓储
func (t *Transaction) Card() CardRepository {
	if t.card == nil {
		t.card = &cardRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.card
}

// Tariff 获取事务中的费率配置仓储
func (t *Transaction) Tariff() TariffRepository {
	if t.tariff == nil {
		t.tariff = &tariffRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.tariff
}

// PassEvent 获取事务中的通行事件仓储
func (t *Transaction) PassEvent() PassEventRepository {
	if t.passEvent == nil {
		t.passEvent = &passEventRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.passEvent
}

// GateEvent 获取事务中的开闸事件仓储
func (t *Transaction) GateEvent() GateEventRepository {
	if t.gateEvent == nil {
		t.gateEvent = &gateEventRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.gateEvent
}

// Payment 获取事务中的付费留档仓储
func (t *Transaction) Payment() PaymentRepository {
	if t.payment == nil {
		t.payment = &paymentRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.payment
}

// Lot 获取事务中的场区状态仓储
func (t *Transaction) Lot() LotRepository {
	if t.lot == nil {
		t.lot = &lotRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.lot
}

// Operator 获取事务中的操作员账号仓储
func (t *Transaction) Operator() OperatorRepository {
	if t.operator == nil {
		t.operator = &operatorRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.operator
}
