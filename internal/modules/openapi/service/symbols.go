package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Requester — всё, что индексу нужно от клиента.
type Requester interface {
	Request(ctx context.Context, pt PayloadType, payload any) (*Envelope, error)
}

// SymbolIndex — имя инструмента -> symbolId, отдельно для каждого аккаунта.
// Имена без учёта регистра.
type SymbolIndex struct {
	req Requester

	mu        sync.RWMutex
	byAccount map[int64]map[string]int64
}

func NewSymbolIndex(req Requester) *SymbolIndex {
	return &SymbolIndex{
		req:       req,
		byAccount: make(map[int64]map[string]int64),
	}
}

// Refresh перечитывает список символов аккаунта целиком.
func (x *SymbolIndex) Refresh(ctx context.Context, accountID int64) error {
	env, err := x.req.Request(ctx, SymbolsListReq, SymbolsListRequest{
		CtidTraderAccountID:    accountID,
		IncludeArchivedSymbols: false,
	})
	if err != nil {
		return fmt.Errorf("symbols list for %d: %w", accountID, err)
	}
	if env.PayloadType != SymbolsListRes {
		return fmt.Errorf("symbols list for %d: %w: %s", accountID, ErrUnexpectedResponse, env.PayloadType)
	}

	var res SymbolsListResponse
	if err := env.DecodePayload(&res); err != nil {
		return err
	}

	archived := make(map[int64]struct{}, len(res.ArchivedSymbol))
	for _, a := range res.ArchivedSymbol {
		archived[a.SymbolID] = struct{}{}
	}

	table := make(map[string]int64, len(res.Symbol))
	for _, s := range res.Symbol {
		if _, skip := archived[s.SymbolID]; skip {
			continue
		}
		if s.SymbolName == "" {
			continue
		}
		table[strings.ToLower(s.SymbolName)] = s.SymbolID
	}

	x.Replace(accountID, table)
	return nil
}

// Replace подменяет таблицу аккаунта (ключи приводятся к нижнему регистру).
func (x *SymbolIndex) Replace(accountID int64, symbols map[string]int64) {
	table := make(map[string]int64, len(symbols))
	for name, symbolID := range symbols {
		table[strings.ToLower(name)] = symbolID
	}

	x.mu.Lock()
	x.byAccount[accountID] = table
	x.mu.Unlock()
}

func (x *SymbolIndex) Lookup(accountID int64, name string) (int64, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	symbolID, ok := x.byAccount[accountID][strings.ToLower(name)]
	return symbolID, ok
}

func (x *SymbolIndex) Loaded(accountID int64) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()

	_, ok := x.byAccount[accountID]
	return ok
}

// Resolve: если аккаунт ещё не загружен — один Refresh и повторный поиск.
func (x *SymbolIndex) Resolve(ctx context.Context, accountID int64, name string) (int64, error) {
	if symbolID, ok := x.Lookup(accountID, name); ok {
		return symbolID, nil
	}
	if !x.Loaded(accountID) {
		if err := x.Refresh(ctx, accountID); err != nil {
			return 0, err
		}
		if symbolID, ok := x.Lookup(accountID, name); ok {
			return symbolID, nil
		}
	}
	return 0, fmt.Errorf("%w: %q on account %d", ErrSymbolNotFound, name, accountID)
}

// RefreshAll — хук на Ready: после реконнекта таблицы перечитываются.
// Ошибка одного аккаунта не мешает остальным.
func (x *SymbolIndex) RefreshAll(ctx context.Context, accountIDs []int64) map[int64]error {
	results := make([]error, len(accountIDs))

	var g errgroup.Group
	for i, accountID := range accountIDs {
		g.Go(func() error {
			results[i] = x.Refresh(ctx, accountID)
			return nil
		})
	}
	_ = g.Wait()

	errs := make(map[int64]error)
	for i, err := range results {
		if err != nil {
			errs[accountIDs[i]] = err
		}
	}
	return errs
}
