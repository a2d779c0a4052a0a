package service

import (
	"encoding/json"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// Envelope — один кадр протокола: {"clientMsgId", "payloadType", "payload"}.
type Envelope struct {
	ClientMsgID string          `json:"clientMsgId,omitempty"`
	PayloadType PayloadType     `json:"payloadType"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

var emptyPayload = json.RawMessage("{}")

// Encode собирает кадр. payload=nil уходит как {}.
func Encode(clientMsgID string, pt PayloadType, payload any) ([]byte, error) {
	raw := emptyPayload
	if payload != nil {
		b, err := sonic.Marshal(payload)
		if err != nil {
			return nil, errors.Wrapf(err, "marshal %s payload", pt)
		}
		raw = b
	}

	data, err := sonic.Marshal(Envelope{
		ClientMsgID: clientMsgID,
		PayloadType: pt,
		Payload:     raw,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s envelope", pt)
	}
	return data, nil
}

func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(err, "unmarshal envelope")
	}
	if env.PayloadType == 0 {
		return nil, errors.New("envelope without payloadType")
	}
	return &env, nil
}

// DecodePayload разбирает payload в v.
func (e *Envelope) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(e.Payload, v); err != nil {
		return errors.Wrapf(err, "unmarshal %s payload", e.PayloadType)
	}
	return nil
}
