package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"signal_relay/internal/models"
	openapi "signal_relay/internal/modules/openapi/service"
	"signal_relay/internal/sizing"
)

var (
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidVolume    = errors.New("volume must be positive")
)

type OrderRequest struct {
	AccountID    int64
	InstrumentID int64
	Direction    models.Direction
	OrderKind    models.OrderKind
	Volume       int64
	Entry        decimal.Decimal
	StopLoss     decimal.Decimal
	TakeProfit   models.TakeProfit
}

type ExecutionResult struct {
	AccountID     int64
	OrderID       int64
	PositionID    int64
	ExecutionType int
}

// BuildNewOrder — запрос NEW_ORDER_REQ со смещениями; стоп проверяется до любой сети.
func (s *Service) BuildNewOrder(req OrderRequest) (openapi.NewOrderRequest, error) {
	side := req.Direction.TradeSide()
	if side == 0 {
		return openapi.NewOrderRequest{}, fmt.Errorf("%w: %q", ErrInvalidDirection, req.Direction)
	}
	if req.Volume <= 0 {
		return openapi.NewOrderRequest{}, fmt.Errorf("%w: %d", ErrInvalidVolume, req.Volume)
	}

	profile := s.Profile(req.InstrumentID)

	sl := sizing.RelativeOffset(req.Direction, sizing.LegStopLoss, req.Entry, decimal.NewNullDecimal(req.StopLoss),
		profile.PipExponent, req.InstrumentID, s.cfg.MetalsID)
	if err := sizing.ValidateStopLoss(sl); err != nil {
		return openapi.NewOrderRequest{}, err
	}
	tp := sizing.TakeProfitOffset(req.Direction, req.Entry, req.TakeProfit, profile.PipExponent, req.InstrumentID, s.cfg.MetalsID)

	order := openapi.NewOrderRequest{
		CtidTraderAccountID: req.AccountID,
		SymbolID:            req.InstrumentID,
		OrderType:           req.OrderKind.OrderType(),
		TradeSide:           side,
		Volume:              req.Volume,
		RelativeStopLoss:    sl.Ptr(),
		RelativeTakeProfit:  tp.Ptr(),
		Label:               s.cfg.Label,
	}

	entry := req.Entry.InexactFloat64()
	switch req.OrderKind {
	case models.OrderLimit:
		order.LimitPrice = &entry
	case models.OrderStop:
		order.StopPrice = &entry
	}
	return order, nil
}

// PlaceOrder: один NEW_ORDER_REQ, успех — EXECUTION_EVENT.
func (s *Service) PlaceOrder(ctx context.Context, req OrderRequest) (*ExecutionResult, error) {
	log := s.log.With(
		zap.Int64("account_id", req.AccountID),
		zap.Int64("instrument_id", req.InstrumentID),
		zap.String("side", string(req.Direction)),
		zap.Int64("volume", req.Volume),
		zap.Stringer("target", req.TakeProfit),
	)

	order, err := s.BuildNewOrder(req)
	if err != nil {
		log.Warn("order rejected before sending", zap.Error(err))
		s.metrics.IncOrder(string(req.Direction), "invalid")
		return nil, err
	}

	env, err := s.req.Request(ctx, openapi.NewOrderReq, order)
	if err != nil {
		log.Error("order failed", zap.Error(err))
		s.metrics.IncOrder(string(req.Direction), "error")
		return nil, fmt.Errorf("account %d new order: %w", req.AccountID, err)
	}
	if env.PayloadType != openapi.ExecutionEvent {
		s.metrics.IncOrder(string(req.Direction), "error")
		return nil, fmt.Errorf("account %d new order: %w: %s", req.AccountID, openapi.ErrUnexpectedResponse, env.PayloadType)
	}

	var ev openapi.ExecutionEventPayload
	if err := env.DecodePayload(&ev); err != nil {
		return nil, err
	}

	res := &ExecutionResult{AccountID: req.AccountID, ExecutionType: ev.ExecutionType}
	if ev.Order != nil {
		res.OrderID = ev.Order.OrderID
		res.PositionID = ev.Order.PositionID
	}
	if res.PositionID == 0 && ev.Position != nil {
		res.PositionID = ev.Position.PositionID
	}

	log.Info("order executed",
		zap.String("correlation_id", env.ClientMsgID),
		zap.Int64("order_id", res.OrderID),
		zap.Int64("position_id", res.PositionID),
	)
	s.metrics.IncOrder(string(req.Direction), "ok")
	return res, nil
}
