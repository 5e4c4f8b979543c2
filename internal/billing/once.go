package billing

import (
	"context"
	"fmt"

	"github.com/wfunc/park-gate/internal/tariff"
)

// OncePayable 无票无卡的一次性收费对象（现场收银）
type OncePayable struct {
	Payments []Payment
}

// Pay 仅一次性收费费率可执行
func (o *OncePayable) Pay(calc tariff.Calculator) Payment {
	var p Payment
	if calc.Tariff().Type != tariff.TypeOnce {
		p = &disabledPayment{}
	} else {
		p = &oncePayment{calc: calc}
	}
	o.Payments = append(o.Payments, p)
	return p
}

// oncePayment 一次性收费
type oncePayment struct {
	calc tariff.Calculator
}

func (p *oncePayment) Enabled() bool {
	return true
}

func (p *oncePayment) Price() int {
	return p.calc.Tariff().Cost
}

func (p *oncePayment) Explanation() string {
	return fmt.Sprintf("一次性收费\n应付: %d", p.Price())
}

func (p *oncePayment) Execute(ctx context.Context, store Store) error {
	return store.RecordPayment(ctx, &PaymentRecord{
		Kind:     "once",
		TariffID: p.calc.Tariff().ID,
		Units:    1,
		Cost:     p.calc.Tariff().Cost,
		Price:    p.Price(),
	})
}
