package billing

import (
	"context"
	"time"
)

// mockStore 记录所有持久化调用的内存桩
type mockStore struct {
	ticketPaid []struct {
		Bar       string
		TariffID  int
		Cost      int
		Price     int
		PaidUntil time.Time
	}
	ticketExcess []struct {
		Bar       string
		Price     int
		PaidUntil time.Time
	}
	ticketOut []struct {
		Bar     string
		TimeOut time.Time
	}
	cardWindows []struct {
		Serial     string
		Begin, End time.Time
		TariffID   int
		Cost       int
		Price      int
	}
	cardMoved []struct {
		Serial string
		Inside bool
		At     time.Time
	}
	passEvents []struct {
		Addr   uint8
		Inside bool
		Ref    string
	}
	payments []*PaymentRecord
}

func (m *mockStore) UpdateTicketPaid(_ context.Context, bar string, tariffID, cost, price int, paidUntil time.Time) error {
	m.ticketPaid = append(m.ticketPaid, struct {
		Bar       string
		TariffID  int
		Cost      int
		Price     int
		PaidUntil time.Time
	}{bar, tariffID, cost, price, paidUntil})
	return nil
}

func (m *mockStore) UpdateTicketExcessPaid(_ context.Context, bar string, price int, paidUntil time.Time) error {
	m.ticketExcess = append(m.ticketExcess, struct {
		Bar       string
		Price     int
		PaidUntil time.Time
	}{bar, price, paidUntil})
	return nil
}

func (m *mockStore) UpdateTicketOut(_ context.Context, bar string, timeOut time.Time) error {
	m.ticketOut = append(m.ticketOut, struct {
		Bar     string
		TimeOut time.Time
	}{bar, timeOut})
	return nil
}

func (m *mockStore) UpdateCardWindow(_ context.Context, serial string, begin, end time.Time, tariffID, cost, price int) error {
	m.cardWindows = append(m.cardWindows, struct {
		Serial     string
		Begin, End time.Time
		TariffID   int
		Cost       int
		Price      int
	}{serial, begin, end, tariffID, cost, price})
	return nil
}

func (m *mockStore) UpdateCardMoved(_ context.Context, serial string, inside bool, at time.Time) error {
	m.cardMoved = append(m.cardMoved, struct {
		Serial string
		Inside bool
		At     time.Time
	}{serial, inside, at})
	return nil
}

func (m *mockStore) RecordPassEvent(_ context.Context, addr uint8, inside bool, ref string) error {
	m.passEvents = append(m.passEvents, struct {
		Addr   uint8
		Inside bool
		Ref    string
	}{addr, inside, ref})
	return nil
}

func (m *mockStore) RecordPayment(_ context.Context, rec *PaymentRecord) error {
	m.payments = append(m.payments, rec)
	return nil
}
