package service

import "strconv"

// PayloadType — номер сообщения cTrader Open API. Перечисление открытое:
// незнакомые номера логируем и пропускаем.
type PayloadType int

const (
	HeartbeatEvent PayloadType = 51

	ApplicationAuthReq PayloadType = 2100
	ApplicationAuthRes PayloadType = 2101
	AccountAuthReq     PayloadType = 2102
	AccountAuthRes     PayloadType = 2103

	NewOrderReq              PayloadType = 2106
	AmendPositionSLTPReq     PayloadType = 2110
	ClosePositionReq         PayloadType = 2111
	SymbolsListReq           PayloadType = 2114
	SymbolsListRes           PayloadType = 2115
	TraderReq                PayloadType = 2121
	TraderRes                PayloadType = 2122
	TraderUpdateEvent        PayloadType = 2123
	ReconcileReq             PayloadType = 2124
	ReconcileRes             PayloadType = 2125
	ExecutionEvent           PayloadType = 2126
	SpotEvent                PayloadType = 2131
	OrderErrorEvent          PayloadType = 2132
	ErrorRes                 PayloadType = 2142
	AccountsTokenInvalidated PayloadType = 2147
	ClientDisconnectEvent    PayloadType = 2148
	AccountDisconnectEvent   PayloadType = 2164
)

var payloadTypeNames = map[PayloadType]string{
	HeartbeatEvent:           "HEARTBEAT_EVENT",
	ApplicationAuthReq:       "PROTO_OA_APPLICATION_AUTH_REQ",
	ApplicationAuthRes:       "PROTO_OA_APPLICATION_AUTH_RES",
	AccountAuthReq:           "PROTO_OA_ACCOUNT_AUTH_REQ",
	AccountAuthRes:           "PROTO_OA_ACCOUNT_AUTH_RES",
	NewOrderReq:              "PROTO_OA_NEW_ORDER_REQ",
	AmendPositionSLTPReq:     "PROTO_OA_AMEND_POSITION_SLTP_REQ",
	ClosePositionReq:         "PROTO_OA_CLOSE_POSITION_REQ",
	SymbolsListReq:           "PROTO_OA_SYMBOLS_LIST_REQ",
	SymbolsListRes:           "PROTO_OA_SYMBOLS_LIST_RES",
	TraderReq:                "PROTO_OA_TRADER_REQ",
	TraderRes:                "PROTO_OA_TRADER_RES",
	TraderUpdateEvent:        "PROTO_OA_TRADER_UPDATE_EVENT",
	ReconcileReq:             "PROTO_OA_RECONCILE_REQ",
	ReconcileRes:             "PROTO_OA_RECONCILE_RES",
	ExecutionEvent:           "PROTO_OA_EXECUTION_EVENT",
	SpotEvent:                "PROTO_OA_SPOT_EVENT",
	OrderErrorEvent:          "PROTO_OA_ORDER_ERROR_EVENT",
	ErrorRes:                 "PROTO_OA_ERROR_RES",
	AccountsTokenInvalidated: "PROTO_OA_ACCOUNTS_TOKEN_INVALIDATED_EVENT",
	ClientDisconnectEvent:    "PROTO_OA_CLIENT_DISCONNECT_EVENT",
	AccountDisconnectEvent:   "PROTO_OA_ACCOUNT_DISCONNECT_EVENT",
}

func (t PayloadType) String() string {
	if name, ok := payloadTypeNames[t]; ok {
		return name
	}
	return "PAYLOAD_" + strconv.Itoa(int(t))
}

// Known — есть ли тип в нашей таблице.
func (t PayloadType) Known() bool {
	_, ok := payloadTypeNames[t]
	return ok
}
