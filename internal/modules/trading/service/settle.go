package service

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// AccountOutcome — итог операции по одному аккаунту.
type AccountOutcome[T any] struct {
	AccountID int64
	Value     T
	Err       error
}

// SettleAll запускает fn по всем элементам параллельно и собирает все итоги.
// Горутины всегда возвращают nil: ошибка одного не отменяет соседей.
func SettleAll[T, R any](ctx context.Context, items []T, fn func(ctx context.Context, item T) R) []R {
	out := make([]R, len(items))

	var g errgroup.Group
	for i, item := range items {
		g.Go(func() error {
			out[i] = fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// Settle — fan-out по аккаунтам, порядок итогов совпадает с accounts.
func Settle[T any](ctx context.Context, accounts []int64, fn func(ctx context.Context, accountID int64) (T, error)) []AccountOutcome[T] {
	return SettleAll(ctx, accounts, func(ctx context.Context, accountID int64) AccountOutcome[T] {
		v, err := fn(ctx, accountID)
		return AccountOutcome[T]{AccountID: accountID, Value: v, Err: err}
	})
}
