package sizing

import (
	"errors"
	"fmt"

	"signal_relay/internal/models"
)

var (
	ErrVolumeBelowMinimum = errors.New("volume below minimum")
	ErrNoTargets          = errors.New("no take profit targets")
)

// Leg — одна нога сигнала: цель и её объём.
type Leg struct {
	Target models.TakeProfit
	Volume int64
}

// SmartRound округляет до сотен: остаток 50..99 — вверх, 0..49 — вниз.
func SmartRound(v int64) int64 {
	hundreds := v / 100 * 100
	if v%100 >= 50 {
		return hundreds + 100
	}
	return hundreds
}

// Distribute делит общий объём между целями.
// Все объёмы кратны minVolume, сумма не больше округлённого total, порядок целей сохраняется,
// ноги меньше minVolume выкидываются.
func Distribute(targets []models.TakeProfit, total, minVolume int64) ([]Leg, error) {
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	if minVolume <= 0 {
		return nil, ErrInvalidMinVolume
	}
	if total < minVolume {
		return nil, fmt.Errorf("%w: %d < %d", ErrVolumeBelowMinimum, total, minVolume)
	}

	rounded := SmartRound(total)
	n := int64(len(targets))

	// поровну, вниз до шага
	share := rounded / n / minVolume * minVolume

	volumes := make([]int64, n)
	for i := range volumes {
		volumes[i] = share
	}

	// остаток раздаём по шагу с первой цели
	leftover := rounded - share*n
	for i := 0; i < len(volumes) && leftover >= minVolume; i++ {
		volumes[i] += minVolume
		leftover -= minVolume
	}

	legs := make([]Leg, 0, n)
	for i, tp := range targets {
		if volumes[i] < minVolume {
			continue
		}
		legs = append(legs, Leg{Target: tp, Volume: volumes[i]})
	}

	return legs, nil
}
