package models

// Position — открытая позиция аккаунта из RECONCILE_RES, цены уже в обычных единицах.
type Position struct {
	AccountID  int64
	PositionID int64
	SymbolID   int64
	Direction  Direction // DirectionNone — битые данные от брокера
	Volume     int64
	EntryPrice float64
	StopLoss   *float64
	TakeProfit *float64
}

func (p Position) HasStopLoss() bool { return p.StopLoss != nil && *p.StopLoss > 0 }
