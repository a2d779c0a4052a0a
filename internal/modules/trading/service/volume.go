package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	openapi "signal_relay/internal/modules/openapi/service"
)

// Balance — баланс аккаунта в валюте депозита (TRADER_REQ).
func (s *Service) Balance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	env, err := s.req.Request(ctx, openapi.TraderReq, openapi.AccountRequest{CtidTraderAccountID: accountID})
	if err != nil {
		return decimal.Zero, fmt.Errorf("trader %d: %w", accountID, err)
	}
	if env.PayloadType != openapi.TraderRes {
		return decimal.Zero, fmt.Errorf("trader %d: %w: %s", accountID, openapi.ErrUnexpectedResponse, env.PayloadType)
	}

	var res openapi.TraderResponse
	if err := env.DecodePayload(&res); err != nil {
		return decimal.Zero, err
	}

	return decimal.New(res.Trader.Balance, -int32(res.Trader.MoneyDigits)), nil
}

// CalculateVolume: баланс аккаунта → объём по риску. Ошибка — ордер по аккаунту не ставим.
func (s *Service) CalculateVolume(ctx context.Context, accountID int64, entry, stop decimal.Decimal, instrumentID int64) (int64, error) {
	balance, err := s.Balance(ctx, accountID)
	if err != nil {
		return 0, err
	}

	volume, err := s.cfg.Sizer.Volume(balance, entry, stop, instrumentID, s.Profile(instrumentID))
	if err != nil {
		return 0, fmt.Errorf("account %d volume: %w", accountID, err)
	}

	s.log.Debug("volume calculated",
		zap.Int64("account_id", accountID),
		zap.Int64("instrument_id", instrumentID),
		zap.Stringer("balance", balance),
		zap.Int64("volume", volume),
	)
	return volume, nil
}
