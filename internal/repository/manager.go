package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Manager 仓储管理器，提供所有仓储的统一访问接口
type Manager struct {
	db *gorm.DB

	// 事务管理器
	txManager TransactionManager

	// 仓储实例（使用懒加载）
	ticketOnce sync.Once
	ticket     TicketRepository

	cardOnce sync.Once
	card     CardRepository

	tariffOnce sync.Once
	tariff     TariffRepository

	passEventOnce sync.Once
	passEvent     PassEventRepository

	gateEventOnce sync.Once
	gateEvent     GateEventRepository

	paymentOnce sync.Once
	payment     PaymentRepository

	lotOnce sync.Once
	lot     LotRepository

	operatorOnce sync.Once
	operator     OperatorRepository
}

// NewManager 创建仓储管理器
func NewManager(db *gorm.DB) *Manager {
	return &Manager{
		db:        db,
		txManager: NewTransactionManager(db),
	}
}

// GetDB 获取数据库实例
func (m *Manager) GetDB() *gorm.DB {
	return m.db
}

// Transaction 获取事务管理器
func (m *Manager) Transaction() TransactionManager {
	return m.txManager
}

// Ticket 获取停车票仓储
func (m *Manager) Ticket() TicketRepository {
	m.ticketOnce.Do(func() {
		m.ticket = NewTicketRepository(m.db)
	})
	return m.ticket
}

// Card 获取通行卡片仓储
func (m *Manager) Card() CardRepository {
	m.cardOnce.Do(func() {
		m.card = NewCardRepository(m.db)
	})
	return m.card
}

// Tariff 获取费率配置仓储
func (m *Manager) Tariff() TariffRepository {
	m.tariffOnce.Do(func() {
		m.tariff = NewTariffRepository(m.db)
	})
	return m.tariff
}

// PassEvent 获取通行事件仓储
func (m *Manager) PassEvent() PassEventRepository {
	m.passEventOnce.Do(func() {
		m.passEvent = NewPassEventRepository(m.db)
	})
	return m.passEvent
}

// GateEvent 获取开闸事件仓储
func (m *Manager) GateEvent() GateEventRepository {
	m.gateEventOnce.Do(func() {
		m.gateEvent = NewGateEventRepository(m.db)
	})
	return m.gateEvent
}

// Payment 获取付费留档仓储
func (m *Manager) Payment() PaymentRepository {
	m.paymentOnce.Do(func() {
		m.payment = NewPaymentRepository(m.db)
	})
	return m.payment
}

// Lot 获取场区状态仓储
func (m *Manager) Lot() LotRepository {
	m.lotOnce.Do(func() {
		m.lot = NewLotRepository(m.db)
	})
	return m.lot
}

// Operator 获取操作员账号仓储
func (m *Manager) Operator() OperatorRepository {
	m.operatorOnce.Do(func() {
		m.operator = NewOperatorRepository(m.db)
	})
	return m.operator
}
