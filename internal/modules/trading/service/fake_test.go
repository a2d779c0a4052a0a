package service

import (
	"context"
	"sync"

	"github.com/bytedance/sonic"

	openapi "signal_relay/internal/modules/openapi/service"
)

type sent struct {
	pt      openapi.PayloadType
	payload any
}

// fakeRequester отвечает через handle и запоминает все запросы.
type fakeRequester struct {
	handle func(pt openapi.PayloadType, payload any) (*openapi.Envelope, error)

	mu   sync.Mutex
	sent []sent
}

func (f *fakeRequester) Request(_ context.Context, pt openapi.PayloadType, payload any) (*openapi.Envelope, error) {
	f.mu.Lock()
	f.sent = append(f.sent, sent{pt: pt, payload: payload})
	f.mu.Unlock()
	return f.handle(pt, payload)
}

func (f *fakeRequester) sentOf(pt openapi.PayloadType) []any {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []any
	for _, s := range f.sent {
		if s.pt == pt {
			out = append(out, s.payload)
		}
	}
	return out
}

func envelope(pt openapi.PayloadType, payload any) *openapi.Envelope {
	data, err := sonic.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return &openapi.Envelope{ClientMsgID: "test", PayloadType: pt, Payload: data}
}

func executed(orderID, positionID int64) *openapi.Envelope {
	return envelope(openapi.ExecutionEvent, openapi.ExecutionEventPayload{
		ExecutionType: 2,
		Order:         &openapi.Order{OrderID: orderID, PositionID: positionID},
	})
}

func ptr(v float64) *float64 { return &v }
