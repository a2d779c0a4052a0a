package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_relay/internal/models"
	openapi "signal_relay/internal/modules/openapi/service"
	"signal_relay/internal/sizing"
)

const gold = int64(41)

func newTestService(req Requester) *Service {
	return NewService(req, Config{
		MetalsID:    gold,
		Label:       "relay",
		Instruments: models.DefaultInstruments(),
		Sizer:       sizing.NewSizer(),
	}, nil, nil)
}

func traderRes(balance int64, digits int) *openapi.Envelope {
	return envelope(openapi.TraderRes, openapi.TraderResponse{
		Trader: openapi.Trader{Balance: balance, MoneyDigits: digits},
	})
}

func TestBalance(t *testing.T) {
	f := &fakeRequester{handle: func(openapi.PayloadType, any) (*openapi.Envelope, error) {
		return traderRes(105075, 2), nil
	}}
	s := newTestService(f)

	balance, err := s.Balance(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "1050.75", balance.String())

	req := f.sentOf(openapi.TraderReq)
	require.Len(t, req, 1)
	assert.Equal(t, openapi.AccountRequest{CtidTraderAccountID: 7}, req[0])
}

func TestCalculateVolume(t *testing.T) {
	f := &fakeRequester{handle: func(openapi.PayloadType, any) (*openapi.Envelope, error) {
		return traderRes(105075, 2), nil
	}}
	s := newTestService(f)

	volume, err := s.CalculateVolume(context.Background(), 7,
		decimal.RequireFromString("2000"), decimal.RequireFromString("1995"), gold)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), volume)
}

func TestCalculateVolumeBalanceError(t *testing.T) {
	f := &fakeRequester{handle: func(openapi.PayloadType, any) (*openapi.Envelope, error) {
		return nil, openapi.ErrRequestTimeout
	}}
	s := newTestService(f)

	_, err := s.CalculateVolume(context.Background(), 7,
		decimal.RequireFromString("2000"), decimal.RequireFromString("1995"), gold)
	assert.ErrorIs(t, err, openapi.ErrRequestTimeout)
}

func TestBuildNewOrder(t *testing.T) {
	s := newTestService(&fakeRequester{})

	t.Run("market fx", func(t *testing.T) {
		order, err := s.BuildNewOrder(OrderRequest{
			AccountID:    7,
			InstrumentID: 1,
			Direction:    models.DirectionBuy,
			OrderKind:    models.OrderMarket,
			Volume:       100000,
			Entry:        decimal.RequireFromString("1.1000"),
			StopLoss:     decimal.RequireFromString("1.0950"),
			TakeProfit:   models.Target(decimal.RequireFromString("1.1100")),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, order.TradeSide)
		assert.Equal(t, 1, order.OrderType)
		assert.Equal(t, "relay", order.Label)
		require.NotNil(t, order.RelativeStopLoss)
		assert.Equal(t, int64(500), *order.RelativeStopLoss)
		require.NotNil(t, order.RelativeTakeProfit)
		assert.Equal(t, int64(1000), *order.RelativeTakeProfit)
		assert.Nil(t, order.LimitPrice)
		assert.Nil(t, order.StopPrice)
	})

	t.Run("limit sell gold open target", func(t *testing.T) {
		order, err := s.BuildNewOrder(OrderRequest{
			AccountID:    7,
			InstrumentID: gold,
			Direction:    models.DirectionSell,
			OrderKind:    models.OrderLimit,
			Volume:       100,
			Entry:        decimal.RequireFromString("2000"),
			StopLoss:     decimal.RequireFromString("2005"),
			TakeProfit:   models.OpenTarget(),
		})
		require.NoError(t, err)
		assert.Equal(t, 2, order.TradeSide)
		assert.Equal(t, 2, order.OrderType)
		require.NotNil(t, order.LimitPrice)
		assert.Equal(t, 2000.0, *order.LimitPrice)
		assert.Equal(t, int64(500000), *order.RelativeStopLoss)
		assert.Nil(t, order.RelativeTakeProfit)
	})

	t.Run("stop on wrong side", func(t *testing.T) {
		_, err := s.BuildNewOrder(OrderRequest{
			InstrumentID: 1,
			Direction:    models.DirectionBuy,
			Volume:       100000,
			Entry:        decimal.RequireFromString("1.1000"),
			StopLoss:     decimal.RequireFromString("1.1050"),
			TakeProfit:   models.OpenTarget(),
		})
		assert.ErrorIs(t, err, sizing.ErrInvalidStopLoss)
	})

	t.Run("no direction", func(t *testing.T) {
		_, err := s.BuildNewOrder(OrderRequest{Volume: 1})
		assert.ErrorIs(t, err, ErrInvalidDirection)
	})

	t.Run("zero volume", func(t *testing.T) {
		_, err := s.BuildNewOrder(OrderRequest{Direction: models.DirectionBuy})
		assert.ErrorIs(t, err, ErrInvalidVolume)
	})
}

func TestPlaceOrder(t *testing.T) {
	f := &fakeRequester{handle: func(pt openapi.PayloadType, _ any) (*openapi.Envelope, error) {
		require.Equal(t, openapi.NewOrderReq, pt)
		return executed(11, 22), nil
	}}
	s := newTestService(f)

	res, err := s.PlaceOrder(context.Background(), OrderRequest{
		AccountID:    7,
		InstrumentID: gold,
		Direction:    models.DirectionBuy,
		OrderKind:    models.OrderMarket,
		Volume:       3000,
		Entry:        decimal.RequireFromString("2000"),
		StopLoss:     decimal.RequireFromString("1995"),
		TakeProfit:   models.Target(decimal.RequireFromString("2010")),
	})
	require.NoError(t, err)
	assert.Equal(t, &ExecutionResult{AccountID: 7, OrderID: 11, PositionID: 22, ExecutionType: 2}, res)

	orders := f.sentOf(openapi.NewOrderReq)
	require.Len(t, orders, 1)
	order := orders[0].(openapi.NewOrderRequest)
	assert.Equal(t, int64(3000), order.Volume)
	assert.Equal(t, int64(1000000), *order.RelativeTakeProfit)
}

func TestPlaceOrderRejected(t *testing.T) {
	t.Run("broker error", func(t *testing.T) {
		apiErr := &openapi.APIError{PayloadType: openapi.OrderErrorEvent, ErrorCode: "NOT_ENOUGH_MONEY"}
		f := &fakeRequester{handle: func(openapi.PayloadType, any) (*openapi.Envelope, error) {
			return nil, apiErr
		}}
		_, err := newTestService(f).PlaceOrder(context.Background(), OrderRequest{
			AccountID: 7, InstrumentID: 1, Direction: models.DirectionBuy, Volume: 100000,
			Entry: decimal.RequireFromString("1.1"), StopLoss: decimal.RequireFromString("1.09"),
		})
		var target *openapi.APIError
		require.True(t, errors.As(err, &target))
		assert.Equal(t, "NOT_ENOUGH_MONEY", target.ErrorCode)
	})

	t.Run("unexpected response", func(t *testing.T) {
		f := &fakeRequester{handle: func(openapi.PayloadType, any) (*openapi.Envelope, error) {
			return traderRes(1, 2), nil
		}}
		_, err := newTestService(f).PlaceOrder(context.Background(), OrderRequest{
			AccountID: 7, InstrumentID: 1, Direction: models.DirectionBuy, Volume: 100000,
			Entry: decimal.RequireFromString("1.1"), StopLoss: decimal.RequireFromString("1.09"),
		})
		assert.ErrorIs(t, err, openapi.ErrUnexpectedResponse)
	})

	t.Run("invalid stop never reaches broker", func(t *testing.T) {
		f := &fakeRequester{handle: func(openapi.PayloadType, any) (*openapi.Envelope, error) {
			t.Fatal("unexpected request")
			return nil, nil
		}}
		_, err := newTestService(f).PlaceOrder(context.Background(), OrderRequest{
			AccountID: 7, InstrumentID: 1, Direction: models.DirectionSell, Volume: 100000,
			Entry: decimal.RequireFromString("1.1"), StopLoss: decimal.RequireFromString("1.09"),
		})
		assert.ErrorIs(t, err, sizing.ErrInvalidStopLoss)
	})
}
