package sizing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"signal_relay/internal/models"
)

var (
	ErrZeroStopDistance  = errors.New("zero stop distance")
	ErrInvalidMinVolume  = errors.New("min volume <= 0")
	ErrInvalidPipDistKey = errors.New("unknown pip distance strategy")
)

var (
	hundred = decimal.NewFromInt(100)
	lotStep = decimal.RequireFromString("0.01")
)

// PipDistance — сколько "пипов" между входом и стопом.
type PipDistance func(entry, stop decimal.Decimal, pipExponent int) decimal.Decimal

// FixedPipDistance — фиксированный размер пипа для всех инструментов.
// Для золота с pipSize=0.01 совпадает с реальностью, для FX — нет (так было исторически).
func FixedPipDistance(pipSize float64) PipDistance {
	size := decimal.NewFromFloat(pipSize)
	return func(entry, stop decimal.Decimal, _ int) decimal.Decimal {
		return entry.Sub(stop).Abs().Div(size)
	}
}

// ExponentPipDistance использует настоящую точность инструмента (та же шкала, что у смещений).
func ExponentPipDistance() PipDistance {
	return func(entry, stop decimal.Decimal, pipExponent int) decimal.Decimal {
		return entry.Sub(stop).Abs().Shift(int32(pipExponent))
	}
}

// PipDistanceByName — выбор стратегии по ключу конфига trading.pip_distance.
func PipDistanceByName(name string) (PipDistance, error) {
	switch name {
	case "", "fixed":
		return FixedPipDistance(0.01), nil
	case "exponent":
		return ExponentPipDistance(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidPipDistKey, name)
}

// Sizer считает объём позиции по риску от баланса.
type Sizer struct {
	RiskFraction      float64
	MinWorkingBalance float64
	PipValueMetals    float64
	PipValueDefault   float64
	MetalsID          int64
	Distance          PipDistance
}

func NewSizer() Sizer {
	return Sizer{
		RiskFraction:      0.15,
		MinWorkingBalance: 100,
		PipValueMetals:    1.0,
		PipValueDefault:   10.0,
		MetalsID:          41,
		Distance:          FixedPipDistance(0.01),
	}
}

// Volume возвращает объём в единицах протокола (0.01 лота = minVolume).
func (s Sizer) Volume(balance, entry, stop decimal.Decimal, instrumentID int64, profile models.InstrumentProfile) (int64, error) {
	if profile.MinVolume <= 0 {
		return 0, ErrInvalidMinVolume
	}

	// баланс вниз до сотен, но не меньше рабочего минимума (нулевой и отрицательный тоже)
	working := balance.Div(hundred).Floor().Mul(hundred)
	if floor := decimal.NewFromFloat(s.MinWorkingBalance); working.LessThan(floor) {
		working = floor
	}

	dist := s.distance()(entry, stop, profile.PipExponent)
	if !dist.IsPositive() {
		return 0, ErrZeroStopDistance
	}

	risk := working.Mul(decimal.NewFromFloat(s.RiskFraction))

	pipValue := s.PipValueDefault
	if instrumentID == s.MetalsID {
		pipValue = s.PipValueMetals
	}
	if pipValue <= 0 {
		return 0, fmt.Errorf("pip value <= 0 for instrument %d", instrumentID)
	}

	// lots = risk / (dist × pipValue); volume = lots × minVolume / 0.01.
	// Делим один раз в конце: целое частное получается точно, без 2999.99… -> 2999.
	volume := risk.Mul(decimal.NewFromInt(profile.MinVolume)).
		Div(dist.Mul(decimal.NewFromFloat(pipValue)).Mul(lotStep)).
		Truncate(0)
	if volume.IsNegative() {
		return 0, fmt.Errorf("volume invalid: %s", volume)
	}

	return volume.IntPart(), nil
}

func (s Sizer) distance() PipDistance {
	if s.Distance == nil {
		return FixedPipDistance(0.01)
	}
	return s.Distance
}
