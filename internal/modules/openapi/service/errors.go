package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotReady           = errors.New("openapi: connection is not ready")
	ErrDisconnected       = errors.New("openapi: disconnected")
	ErrRequestTimeout     = errors.New("openapi: request timeout")
	ErrFatalAuth          = errors.New("openapi: fatal authentication failure")
	ErrReconnectExhausted = errors.New("openapi: reconnect attempts exhausted")
	ErrSymbolNotFound     = errors.New("openapi: symbol not found")
	ErrUnexpectedResponse = errors.New("openapi: unexpected response")
	ErrDuplicateID        = errors.New("openapi: duplicate correlation id")
)

// Коды, после которых переподключаться бессмысленно: креды/токен отозваны.
var fatalAuthCodes = map[string]struct{}{
	"CH_CLIENT_AUTH_FAILURE":      {},
	"CH_CLIENT_NOT_AUTHENTICATED": {},
	"CH_ACCESS_TOKEN_INVALID":     {},
	"OA_AUTH_TOKEN_EXPIRED":       {},
	"ACCOUNT_NOT_AUTHORIZED":      {},
}

// APIError — ERROR_RES или ORDER_ERROR_EVENT в ответ на наш запрос.
type APIError struct {
	PayloadType PayloadType
	AccountID   int64
	ErrorCode   string
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%s %s (account %d)", e.PayloadType, e.ErrorCode, e.AccountID)
	}
	return fmt.Sprintf("%s %s: %s (account %d)", e.PayloadType, e.ErrorCode, e.Description, e.AccountID)
}

// FatalAuth — код из списка отозванных кредов.
func (e *APIError) FatalAuth() bool {
	_, ok := fatalAuthCodes[e.ErrorCode]
	return ok
}

// apiErrorFrom возвращает *APIError для кадров-ошибок, иначе nil.
func apiErrorFrom(env *Envelope) error {
	switch env.PayloadType {
	case ErrorRes:
		var p ErrorResponse
		if err := env.DecodePayload(&p); err != nil {
			return &APIError{PayloadType: env.PayloadType, ErrorCode: "UNDECODABLE", Description: err.Error()}
		}
		return &APIError{PayloadType: env.PayloadType, AccountID: p.CtidTraderAccountID, ErrorCode: p.ErrorCode, Description: p.Description}
	case OrderErrorEvent:
		var p OrderErrorEventPayload
		if err := env.DecodePayload(&p); err != nil {
			return &APIError{PayloadType: env.PayloadType, ErrorCode: "UNDECODABLE", Description: err.Error()}
		}
		return &APIError{PayloadType: env.PayloadType, AccountID: p.CtidTraderAccountID, ErrorCode: p.ErrorCode, Description: p.Description}
	}
	return nil
}

// IsFatalAuth: ошибка авторизации, при которой реконнект останавливается.
func IsFatalAuth(err error) bool {
	if errors.Is(err, ErrFatalAuth) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.FatalAuth()
}
