package runner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"signal_relay/internal/models"
	"signal_relay/internal/modules/trading/service"
	"signal_relay/internal/parser"
	"signal_relay/internal/sizing"
	"signal_relay/pkg/metrics"
)

const persistTimeout = 10 * time.Second

// Trader — торговые операции, которые нужны роутеру (trading.Service).
type Trader interface {
	Profile(instrumentID int64) models.InstrumentProfile
	CalculateVolume(ctx context.Context, accountID int64, entry, stop decimal.Decimal, instrumentID int64) (int64, error)
	PlaceOrder(ctx context.Context, req service.OrderRequest) (*service.ExecutionResult, error)
	CloseAllAccounts(ctx context.Context, accounts []int64) []service.AccountOutcome[[]service.PositionOutcome]
	HalveStopLossAllAccounts(ctx context.Context, accounts []int64) []service.AccountOutcome[[]service.PositionOutcome]
}

// SymbolResolver — имя инструмента -> symbolId аккаунта.
type SymbolResolver interface {
	Resolve(ctx context.Context, accountID int64, name string) (int64, error)
}

// SignalStore — журнал разобранных сигналов. Ошибки только логируются.
type SignalStore interface {
	SaveSignal(ctx context.Context, channel int64, text string, sig models.ParsedSignal) error
}

type Config struct {
	Accounts []int64
	// пусто — торгуем любой распознанный инструмент
	AllowedInstruments []string
}

// Router — точка входа текста из чатов: сигнал, close или "TP hit".
type Router struct {
	trader  Trader
	symbols SymbolResolver
	store   SignalStore
	log     *zap.Logger
	metrics *metrics.Metrics

	accounts []int64
	allowed  map[string]struct{}

	persist sync.WaitGroup
}

func NewRouter(cfg Config, trader Trader, symbols SymbolResolver, store SignalStore, log *zap.Logger, m *metrics.Metrics) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedInstruments))
	for _, sym := range cfg.AllowedInstruments {
		allowed[parser.NormalizeSymbol(sym)] = struct{}{}
	}
	return &Router{
		trader:   trader,
		symbols:  symbols,
		store:    store,
		log:      log.Named("router"),
		metrics:  m,
		accounts: append([]int64(nil), cfg.Accounts...),
		allowed:  allowed,
	}
}

// HandleText классифицирует сообщение и отрабатывает его по всем аккаунтам.
// Ошибки отдельных аккаунтов и ног остаются в Report, соседей они не трогают.
func (r *Router) HandleText(ctx context.Context, channel int64, text string) Report {
	span, ctx := opentracing.StartSpanFromContext(ctx, "runner.HandleText")
	defer span.Finish()
	span.SetTag("channel", channel)

	log := r.log.With(zap.Int64("channel", channel))

	if sig, ok := parser.Parse(text); ok {
		span.SetTag("kind", string(KindSignal))
		r.metrics.IncMessage(string(KindSignal))
		r.save(ctx, channel, text, sig)
		return r.relay(ctx, log, sig)
	}

	switch {
	case parser.IsCloseCommand(text):
		span.SetTag("kind", string(KindClose))
		r.metrics.IncMessage(string(KindClose))
		log.Info("close command, closing all positions")
		return Report{Kind: KindClose, Positions: r.trader.CloseAllAccounts(ctx, r.accounts)}

	case parser.IsTargetHit(text):
		span.SetTag("kind", string(KindTargetHit))
		r.metrics.IncMessage(string(KindTargetHit))
		log.Info("target hit, moving stops")
		return Report{Kind: KindTargetHit, Positions: r.trader.HalveStopLossAllAccounts(ctx, r.accounts)}
	}

	r.metrics.IncMessage(string(KindIgnored))
	log.Debug("message ignored")
	return Report{Kind: KindIgnored}
}

// Wait дожидается фоновых записей в журнал (на остановке).
func (r *Router) Wait() {
	r.persist.Wait()
}

func (r *Router) save(ctx context.Context, channel int64, text string, sig models.ParsedSignal) {
	if r.store == nil {
		return
	}

	r.persist.Add(1)
	go func() {
		defer r.persist.Done()

		// запись не должна умирать вместе с обработкой сообщения
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()

		if err := r.store.SaveSignal(ctx, channel, text, sig); err != nil {
			r.log.Warn("signal not persisted", zap.Int64("channel", channel), zap.Error(err))
		}
	}()
}

func (r *Router) relay(ctx context.Context, log *zap.Logger, sig models.ParsedSignal) Report {
	rep := Report{Kind: KindSignal, Signal: &sig}

	log = log.With(
		zap.String("symbol", sig.Symbol),
		zap.String("side", string(sig.Direction)),
		zap.String("order_kind", string(sig.OrderKind)),
	)

	if !r.isAllowed(sig.Symbol) {
		rep.Skipped = fmt.Sprintf("instrument %s is not allowed", sig.Symbol)
		log.Info("signal skipped", zap.String("reason", rep.Skipped))
		return rep
	}
	if !sig.Entry.Valid {
		rep.Skipped = "signal has no entry price"
		log.Info("signal skipped", zap.String("reason", rep.Skipped))
		return rep
	}

	log.Info("signal received",
		zap.Stringer("entry", sig.Entry.Decimal),
		zap.Stringer("stop_loss", sig.StopLoss),
		zap.Int("targets", len(sig.Targets())),
	)

	outcomes := service.Settle(ctx, r.accounts, func(ctx context.Context, accountID int64) ([]LegOutcome, error) {
		return r.relayAccount(ctx, log.With(zap.Int64("account_id", accountID)), accountID, sig)
	})
	for _, o := range outcomes {
		rep.Accounts = append(rep.Accounts, AccountReport{AccountID: o.AccountID, Legs: o.Value, Err: o.Err})
	}
	return rep
}

func (r *Router) relayAccount(ctx context.Context, log *zap.Logger, accountID int64, sig models.ParsedSignal) ([]LegOutcome, error) {
	instrumentID, err := r.symbols.Resolve(ctx, accountID, sig.Symbol)
	if err != nil {
		log.Warn("symbol not resolved", zap.Error(err))
		return nil, err
	}
	log = log.With(zap.Int64("instrument_id", instrumentID))

	entry := sig.Entry.Decimal
	volume, err := r.trader.CalculateVolume(ctx, accountID, entry, sig.StopLoss, instrumentID)
	if err != nil {
		log.Warn("volume not calculated", zap.Error(err))
		return nil, err
	}

	legs, err := sizing.Distribute(sig.Targets(), volume, r.trader.Profile(instrumentID).MinVolume)
	if err != nil {
		log.Warn("volume not distributed", zap.Int64("volume", volume), zap.Error(err))
		return nil, err
	}

	return service.SettleAll(ctx, legs, func(ctx context.Context, leg sizing.Leg) LegOutcome {
		res, err := r.trader.PlaceOrder(ctx, service.OrderRequest{
			AccountID:    accountID,
			InstrumentID: instrumentID,
			Direction:    sig.Direction,
			OrderKind:    sig.OrderKind,
			Volume:       leg.Volume,
			Entry:        entry,
			StopLoss:     sig.StopLoss,
			TakeProfit:   leg.Target,
		})
		return LegOutcome{Target: leg.Target, Volume: leg.Volume, Result: res, Err: err}
	}), nil
}

func (r *Router) isAllowed(symbol string) bool {
	if len(r.allowed) == 0 {
		return true
	}
	_, ok := r.allowed[strings.ToUpper(symbol)]
	return ok
}
