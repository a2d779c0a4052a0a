package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelator_ResolveOnce(t *testing.T) {
	c := NewCorrelator()
	ch := c.Register("a")
	require.Equal(t, 1, c.Len())

	env := &Envelope{ClientMsgID: "a", PayloadType: ExecutionEvent}
	assert.True(t, c.Resolve(env))
	assert.False(t, c.Resolve(env), "второй ответ с тем же id не коррелируется")
	assert.Equal(t, 0, c.Len())

	res := <-ch
	require.NoError(t, res.Err)
	assert.Same(t, env, res.Env)
}

func TestCorrelator_UnknownAndMissingID(t *testing.T) {
	c := NewCorrelator()
	c.Register("a")

	assert.False(t, c.Resolve(&Envelope{ClientMsgID: "zzz", PayloadType: ExecutionEvent}))
	assert.False(t, c.Resolve(&Envelope{PayloadType: HeartbeatEvent}))
	assert.False(t, c.Resolve(nil))
	assert.Equal(t, 1, c.Len(), "чужие кадры не трогают ожидание")
}

func TestCorrelator_ErrorPayloads(t *testing.T) {
	tests := []struct {
		name    string
		pt      PayloadType
		payload string
		code    string
	}{
		{"error response", ErrorRes, `{"errorCode":"INVALID_REQUEST","description":"bad volume","ctidTraderAccountId":7}`, "INVALID_REQUEST"},
		{"order error event", OrderErrorEvent, `{"errorCode":"TRADING_BAD_STOPS","ctidTraderAccountId":7}`, "TRADING_BAD_STOPS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCorrelator()
			ch := c.Register("x")
			require.True(t, c.Resolve(&Envelope{ClientMsgID: "x", PayloadType: tt.pt, Payload: []byte(tt.payload)}))

			res := <-ch
			var apiErr *APIError
			require.True(t, errors.As(res.Err, &apiErr))
			assert.Equal(t, tt.code, apiErr.ErrorCode)
			assert.Equal(t, int64(7), apiErr.AccountID)
			assert.Equal(t, tt.pt, apiErr.PayloadType)
			assert.False(t, apiErr.FatalAuth())
		})
	}
}

func TestCorrelator_CancelAndFailAll(t *testing.T) {
	c := NewCorrelator()
	a := c.Register("a")
	b := c.Register("b")
	d := c.Register("d")

	assert.True(t, c.Cancel("a", ErrRequestTimeout))
	assert.False(t, c.Cancel("a", ErrRequestTimeout))
	assert.ErrorIs(t, (<-a).Err, ErrRequestTimeout)

	assert.Equal(t, 2, c.FailAll(ErrDisconnected))
	assert.ErrorIs(t, (<-b).Err, ErrDisconnected)
	assert.ErrorIs(t, (<-d).Err, ErrDisconnected)
	assert.Equal(t, 0, c.Len())

	assert.False(t, c.Resolve(&Envelope{ClientMsgID: "b", PayloadType: ExecutionEvent}), "поздний ответ после обрыва игнорируется")
}

func TestCorrelator_Duplicate(t *testing.T) {
	c := NewCorrelator()
	c.Register("a")
	dup := c.Register("a")
	assert.ErrorIs(t, (<-dup).Err, ErrDuplicateID)
	assert.Equal(t, 1, c.Len())
}

func TestAPIError_FatalAuth(t *testing.T) {
	err := &APIError{PayloadType: ErrorRes, ErrorCode: "CH_ACCESS_TOKEN_INVALID"}
	assert.True(t, err.FatalAuth())
	assert.True(t, IsFatalAuth(err))
	assert.True(t, IsFatalAuth(authError("account auth", err)))
	assert.ErrorIs(t, authError("account auth", err), ErrFatalAuth)

	soft := &APIError{PayloadType: ErrorRes, ErrorCode: "INVALID_REQUEST"}
	assert.False(t, IsFatalAuth(authError("app auth", soft)))
	assert.Contains(t, soft.Error(), "INVALID_REQUEST")
}
