package service

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Backoff — параметры паузы между попытками переподключения.
type Backoff struct {
	Initial     time.Duration
	Factor      float64
	Max         time.Duration
	MaxAttempts int // 0 — без ограничения
}

func DefaultBackoff() Backoff {
	return Backoff{
		Initial:     5 * time.Second,
		Factor:      1.5,
		Max:         60 * time.Second,
		MaxAttempts: 10,
	}
}

// Policy собирает экспоненциальную паузу без джиттера: задержки не убывают.
func (b Backoff) Policy() *backoff.ExponentialBackOff {
	p := backoff.NewExponentialBackOff()
	p.InitialInterval = b.Initial
	p.Multiplier = math.Max(b.Factor, 1)
	p.RandomizationFactor = 0
	p.MaxInterval = b.Max
	if p.MaxInterval <= 0 {
		p.MaxInterval = time.Duration(math.MaxInt64)
	}
	p.Reset()
	return p
}

// Exhausted: попыток больше, чем разрешено.
func (b Backoff) Exhausted(attempt int) bool {
	return b.MaxAttempts > 0 && attempt > b.MaxAttempts
}
