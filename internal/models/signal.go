package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Direction — сторона сделки из сигнала: "BUY"/"SELL".
type Direction string

const (
	DirectionNone Direction = ""
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// ParseDirection нечувствителен к регистру, неизвестное -> DirectionNone.
func ParseDirection(s string) Direction {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return DirectionBuy
	case "SELL":
		return DirectionSell
	}
	return DirectionNone
}

// TradeSide — значение ProtoOATradeSide: 1 = BUY, 2 = SELL.
func (d Direction) TradeSide() int {
	switch d {
	case DirectionBuy:
		return 1
	case DirectionSell:
		return 2
	}
	return 0
}

// DirectionFromTradeSide обратное к TradeSide; мусор -> DirectionNone.
func DirectionFromTradeSide(side int) Direction {
	switch side {
	case 1:
		return DirectionBuy
	case 2:
		return DirectionSell
	}
	return DirectionNone
}

type OrderKind string

const (
	OrderMarket OrderKind = "market"
	OrderLimit  OrderKind = "limit"
	OrderStop   OrderKind = "stop"
)

// OrderType — значение ProtoOAOrderType.
func (k OrderKind) OrderType() int {
	switch k {
	case OrderLimit:
		return 2
	case OrderStop:
		return 3
	default:
		return 1
	}
}

// TakeProfit — одна цель. Open=true означает "open": без цели, держим до закрытия.
type TakeProfit struct {
	Price decimal.Decimal
	Open  bool
}

func OpenTarget() TakeProfit { return TakeProfit{Open: true} }

func Target(price decimal.Decimal) TakeProfit { return TakeProfit{Price: price} }

func (tp TakeProfit) String() string {
	if tp.Open {
		return "open"
	}
	return tp.Price.String()
}

// ParsedSignal — результат разбора одного текстового сообщения.
// Direction и StopLoss есть всегда, иначе это не сигнал.
type ParsedSignal struct {
	Direction   Direction
	OrderKind   OrderKind
	Symbol      string
	Entry       decimal.NullDecimal
	StopLoss    decimal.Decimal
	TakeProfits []TakeProfit
}

// Targets возвращает цели; без целей — одна "open" нога.
func (s ParsedSignal) Targets() []TakeProfit {
	if len(s.TakeProfits) == 0 {
		return []TakeProfit{OpenTarget()}
	}
	return s.TakeProfits
}
