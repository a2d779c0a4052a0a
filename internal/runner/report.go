package runner

import (
	"fmt"
	"strings"

	"signal_relay/internal/models"
	"signal_relay/internal/modules/trading/service"
)

type Kind string

const (
	KindIgnored   Kind = "ignored"
	KindSignal    Kind = "signal"
	KindClose     Kind = "close"
	KindTargetHit Kind = "target_hit"
)

type LegOutcome struct {
	Target models.TakeProfit
	Volume int64
	Result *service.ExecutionResult
	Err    error
}

type AccountReport struct {
	AccountID int64
	Legs      []LegOutcome
	Err       error // аккаунт не дошёл до ордеров
}

// Report — итог обработки одного сообщения.
type Report struct {
	Kind      Kind
	Signal    *models.ParsedSignal
	Skipped   string
	Accounts  []AccountReport
	Positions []service.AccountOutcome[[]service.PositionOutcome]
}

// Failed — сколько ордеров/операций с позициями не прошло.
func (r Report) Failed() int {
	n := 0
	for _, a := range r.Accounts {
		if a.Err != nil {
			n++
			continue
		}
		for _, l := range a.Legs {
			if l.Err != nil {
				n++
			}
		}
	}
	for _, a := range r.Positions {
		if a.Err != nil {
			n++
			continue
		}
		for _, p := range a.Value {
			if p.Err != nil {
				n++
			}
		}
	}
	return n
}

// Summary — текст для оператора.
func (r Report) Summary() string {
	var b strings.Builder

	switch r.Kind {
	case KindSignal:
		s := r.Signal
		fmt.Fprintf(&b, "📩 %s %s %s @ %s SL %s\n", s.Direction, s.Symbol, s.OrderKind, s.Entry.Decimal, s.StopLoss)
		if r.Skipped != "" {
			fmt.Fprintf(&b, "⏭ %s", r.Skipped)
			return b.String()
		}
		for _, a := range r.Accounts {
			if a.Err != nil {
				fmt.Fprintf(&b, "❌ %d: %v\n", a.AccountID, a.Err)
				continue
			}
			for _, l := range a.Legs {
				if l.Err != nil {
					fmt.Fprintf(&b, "❌ %d TP %s x%d: %v\n", a.AccountID, l.Target, l.Volume, l.Err)
					continue
				}
				fmt.Fprintf(&b, "✅ %d TP %s x%d\n", a.AccountID, l.Target, l.Volume)
			}
		}

	case KindClose, KindTargetHit:
		title := "🔒 Закрытие позиций"
		if r.Kind == KindTargetHit {
			title = "🎯 Цель взята, стопы подтянуты"
		}
		b.WriteString(title + "\n")
		for _, a := range r.Positions {
			if a.Err != nil {
				fmt.Fprintf(&b, "❌ %d: %v\n", a.AccountID, a.Err)
				continue
			}
			ok, skipped, failed := 0, 0, 0
			for _, p := range a.Value {
				switch {
				case p.Err != nil:
					failed++
				case p.Skipped:
					skipped++
				default:
					ok++
				}
			}
			fmt.Fprintf(&b, "%d: ok %d, skipped %d, failed %d\n", a.AccountID, ok, skipped, failed)
		}

	default:
		return ""
	}

	return strings.TrimRight(b.String(), "\n")
}
