package sizing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"signal_relay/internal/models"
)

// ErrInvalidStopLoss — стоп по другую сторону от входа (или на нём самом).
var ErrInvalidStopLoss = errors.New("invalid stop loss")

// LegKind — какую защитную ногу переводим в относительное смещение.
type LegKind int

const (
	LegStopLoss LegKind = iota
	LegTakeProfit
)

func (k LegKind) String() string {
	if k == LegTakeProfit {
		return "take_profit"
	}
	return "stop_loss"
}

// Offset — относительное смещение в единицах 10^-pipExponent.
// Set=false: смещения нет, поле на проводе не отправляется.
type Offset struct {
	Value int64
	Set   bool
}

// Ptr для полей с omitempty.
func (o Offset) Ptr() *int64 {
	if !o.Set {
		return nil
	}
	v := o.Value
	return &v
}

var thousand = decimal.NewFromInt(1000)

// RelativeOffset переводит абсолютную цену цели в смещение от входа.
// Знак: для (BUY, SL) и (SELL, TP) считаем entry-target, иначе target-entry,
// так что корректно выставленные ноги всегда положительны.
func RelativeOffset(
	dir models.Direction,
	leg LegKind,
	entry decimal.Decimal,
	target decimal.NullDecimal,
	pipExponent int,
	instrumentID, metalsID int64,
) Offset {
	if !target.Valid {
		return Offset{}
	}

	var diff decimal.Decimal
	if (dir == models.DirectionBuy && leg == LegStopLoss) || (dir == models.DirectionSell && leg == LegTakeProfit) {
		diff = entry.Sub(target.Decimal)
	} else {
		diff = target.Decimal.Sub(entry)
	}

	// decimal.Round — half away from zero
	v := diff.Shift(int32(pipExponent)).Round(0)

	// металлы: цели кратны 1000
	if instrumentID == metalsID && leg == LegTakeProfit {
		v = v.Div(thousand).Round(0).Mul(thousand)
	}

	return Offset{Value: v.IntPart(), Set: true}
}

// TakeProfitOffset — как RelativeOffset, но нулевое смещение считается отсутствием цели.
func TakeProfitOffset(
	dir models.Direction,
	entry decimal.Decimal,
	tp models.TakeProfit,
	pipExponent int,
	instrumentID, metalsID int64,
) Offset {
	if tp.Open {
		return Offset{}
	}
	o := RelativeOffset(dir, LegTakeProfit, entry, decimal.NewNullDecimal(tp.Price), pipExponent, instrumentID, metalsID)
	if o.Value == 0 {
		return Offset{}
	}
	return o
}

// ValidateStopLoss: стоп обязателен и должен быть строго положительным смещением.
func ValidateStopLoss(o Offset) error {
	if !o.Set {
		return fmt.Errorf("%w: missing", ErrInvalidStopLoss)
	}
	if o.Value <= 0 {
		return fmt.Errorf("%w: relative offset %d", ErrInvalidStopLoss, o.Value)
	}
	return nil
}
