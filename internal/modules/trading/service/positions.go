package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"signal_relay/internal/models"
	openapi "signal_relay/internal/modules/openapi/service"
)

// PositionOutcome — итог по одной позиции: закрыта/изменена, пропущена или ошибка.
type PositionOutcome struct {
	AccountID  int64
	PositionID int64
	Skipped    bool
	Reason     string
	StopLoss   float64 // новый стоп для halve
	Err        error
}

var two = decimal.NewFromInt(2)

// OpenPositions — открытые позиции аккаунта (RECONCILE_REQ).
func (s *Service) OpenPositions(ctx context.Context, accountID int64) ([]models.Position, error) {
	env, err := s.req.Request(ctx, openapi.ReconcileReq, openapi.AccountRequest{CtidTraderAccountID: accountID})
	if err != nil {
		return nil, fmt.Errorf("reconcile %d: %w", accountID, err)
	}
	if env.PayloadType != openapi.ReconcileRes {
		return nil, fmt.Errorf("reconcile %d: %w: %s", accountID, openapi.ErrUnexpectedResponse, env.PayloadType)
	}

	var res openapi.ReconcileResponse
	if err := env.DecodePayload(&res); err != nil {
		return nil, err
	}

	out := make([]models.Position, 0, len(res.Position))
	for _, p := range res.Position {
		out = append(out, models.Position{
			AccountID:  accountID,
			PositionID: p.PositionID,
			SymbolID:   p.TradeData.SymbolID,
			Direction:  models.DirectionFromTradeSide(p.TradeData.TradeSide),
			Volume:     p.TradeData.Volume,
			EntryPrice: p.Price,
			StopLoss:   p.StopLoss,
			TakeProfit: p.TakeProfit,
		})
	}
	return out, nil
}

// CloseAllPositions закрывает все позиции аккаунта параллельно, собирая все итоги.
func (s *Service) CloseAllPositions(ctx context.Context, accountID int64) ([]PositionOutcome, error) {
	positions, err := s.OpenPositions(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return SettleAll(ctx, positions, func(ctx context.Context, p models.Position) PositionOutcome {
		out := PositionOutcome{AccountID: accountID, PositionID: p.PositionID}
		out.Err = s.expectExecution(ctx, openapi.ClosePositionReq, openapi.ClosePositionRequest{
			CtidTraderAccountID: accountID,
			PositionID:          p.PositionID,
			Volume:              p.Volume,
		})
		s.logOutcome("position closed", out)
		return out
	}), nil
}

// HalvedStopLoss — стоп посередине между входом и текущим стопом.
// ok=false: стопа нет, сторона битая или стоп уже на/за входом.
func HalvedStopLoss(p models.Position, moneyDigits int) (price float64, reason string, ok bool) {
	if !p.HasStopLoss() {
		return 0, "no stop loss", false
	}

	entry := decimal.NewFromFloat(p.EntryPrice)
	sl := decimal.NewFromFloat(*p.StopLoss)

	switch p.Direction {
	case models.DirectionBuy:
		// лонг: стоп ниже входа и двигается вверх
		if !sl.LessThan(entry) {
			return 0, "stop already at or above entry", false
		}
	case models.DirectionSell:
		// шорт: стоп выше входа и двигается вниз
		if !sl.GreaterThan(entry) {
			return 0, "stop already at or below entry", false
		}
	default:
		return 0, "invalid trade side", false
	}

	mid := entry.Add(sl).Div(two).Round(int32(moneyDigits))
	return mid.InexactFloat64(), "", true
}

// HalveStopLossOnTargetHit подтягивает стопы всех позиций аккаунта на половину расстояния до входа.
// Тейк отправляется заново, иначе брокер его снимет.
func (s *Service) HalveStopLossOnTargetHit(ctx context.Context, accountID int64) ([]PositionOutcome, error) {
	positions, err := s.OpenPositions(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return SettleAll(ctx, positions, func(ctx context.Context, p models.Position) PositionOutcome {
		out := PositionOutcome{AccountID: accountID, PositionID: p.PositionID}

		price, reason, ok := HalvedStopLoss(p, s.Profile(p.SymbolID).MoneyDigits)
		if !ok {
			out.Skipped, out.Reason = true, reason
			s.logOutcome("stop loss not moved", out)
			return out
		}

		out.StopLoss = price
		out.Err = s.expectExecution(ctx, openapi.AmendPositionSLTPReq, openapi.AmendPositionSLTPRequest{
			CtidTraderAccountID: accountID,
			PositionID:          p.PositionID,
			StopLoss:            &price,
			TakeProfit:          p.TakeProfit,
		})
		s.logOutcome("stop loss moved", out)
		return out
	}), nil
}

// CloseAllAccounts — закрытие по всем аккаунтам, отказ одного не мешает остальным.
func (s *Service) CloseAllAccounts(ctx context.Context, accounts []int64) []AccountOutcome[[]PositionOutcome] {
	return Settle(ctx, accounts, s.CloseAllPositions)
}

func (s *Service) HalveStopLossAllAccounts(ctx context.Context, accounts []int64) []AccountOutcome[[]PositionOutcome] {
	return Settle(ctx, accounts, s.HalveStopLossOnTargetHit)
}

func (s *Service) expectExecution(ctx context.Context, pt openapi.PayloadType, payload any) error {
	env, err := s.req.Request(ctx, pt, payload)
	if err != nil {
		return err
	}
	if env.PayloadType != openapi.ExecutionEvent {
		return fmt.Errorf("%s: %w: %s", pt, openapi.ErrUnexpectedResponse, env.PayloadType)
	}
	return nil
}

func (s *Service) logOutcome(msg string, out PositionOutcome) {
	fields := []zap.Field{
		zap.Int64("account_id", out.AccountID),
		zap.Int64("position_id", out.PositionID),
	}
	switch {
	case out.Err != nil:
		s.log.Error(msg, append(fields, zap.Error(out.Err))...)
	case out.Skipped:
		s.log.Info(msg, append(fields, zap.String("reason", out.Reason))...)
	default:
		s.log.Info(msg, fields...)
	}
}
