package service

// Полезные нагрузки JSON-варианта cTrader Open API (только используемые поля).

type ApplicationAuthRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type AccountAuthRequest struct {
	CtidTraderAccountID int64  `json:"ctidTraderAccountId"`
	AccessToken         string `json:"accessToken"`
}

type AccountAuthResponse struct {
	CtidTraderAccountID int64 `json:"ctidTraderAccountId"`
}

type SymbolsListRequest struct {
	CtidTraderAccountID    int64 `json:"ctidTraderAccountId"`
	IncludeArchivedSymbols bool  `json:"includeArchivedSymbols"`
}

type LightSymbol struct {
	SymbolID   int64  `json:"symbolId"`
	SymbolName string `json:"symbolName"`
	Enabled    *bool  `json:"enabled,omitempty"`
}

type ArchivedSymbol struct {
	SymbolID int64  `json:"symbolId"`
	Name     string `json:"name"`
}

type SymbolsListResponse struct {
	CtidTraderAccountID int64            `json:"ctidTraderAccountId"`
	Symbol              []LightSymbol    `json:"symbol"`
	ArchivedSymbol      []ArchivedSymbol `json:"archivedSymbol,omitempty"`
}

type AccountRequest struct {
	CtidTraderAccountID int64 `json:"ctidTraderAccountId"`
}

type Trader struct {
	CtidTraderAccountID int64 `json:"ctidTraderAccountId"`
	Balance             int64 `json:"balance"`     // реальный баланс = balance / 10^moneyDigits
	MoneyDigits         int   `json:"moneyDigits"` // по умолчанию 2
	DepositAssetID      int64 `json:"depositAssetId,omitempty"`
}

type TraderResponse struct {
	CtidTraderAccountID int64  `json:"ctidTraderAccountId"`
	Trader              Trader `json:"trader"`
}

type TradeData struct {
	SymbolID  int64 `json:"symbolId"`
	Volume    int64 `json:"volume"`
	TradeSide int   `json:"tradeSide"`
}

type PositionData struct {
	PositionID     int64     `json:"positionId"`
	TradeData      TradeData `json:"tradeData"`
	PositionStatus int       `json:"positionStatus,omitempty"`
	Price          float64   `json:"price"`
	StopLoss       *float64  `json:"stopLoss,omitempty"`
	TakeProfit     *float64  `json:"takeProfit,omitempty"`
	MoneyDigits    int       `json:"moneyDigits,omitempty"`
}

type ReconcileResponse struct {
	CtidTraderAccountID int64          `json:"ctidTraderAccountId"`
	Position            []PositionData `json:"position"`
}

type NewOrderRequest struct {
	CtidTraderAccountID int64    `json:"ctidTraderAccountId"`
	SymbolID            int64    `json:"symbolId"`
	OrderType           int      `json:"orderType"`
	TradeSide           int      `json:"tradeSide"`
	Volume              int64    `json:"volume"`
	LimitPrice          *float64 `json:"limitPrice,omitempty"`
	StopPrice           *float64 `json:"stopPrice,omitempty"`
	RelativeStopLoss    *int64   `json:"relativeStopLoss,omitempty"`
	RelativeTakeProfit  *int64   `json:"relativeTakeProfit,omitempty"`
	Label               string   `json:"label,omitempty"`
}

type ClosePositionRequest struct {
	CtidTraderAccountID int64 `json:"ctidTraderAccountId"`
	PositionID          int64 `json:"positionId"`
	Volume              int64 `json:"volume"`
}

// AmendPositionSLTPRequest: незаполненное поле брокер трактует как "снять", поэтому
// при переносе стопа тейк надо отправлять заново.
type AmendPositionSLTPRequest struct {
	CtidTraderAccountID int64    `json:"ctidTraderAccountId"`
	PositionID          int64    `json:"positionId"`
	StopLoss            *float64 `json:"stopLoss,omitempty"`
	TakeProfit          *float64 `json:"takeProfit,omitempty"`
}

type Order struct {
	OrderID    int64 `json:"orderId"`
	PositionID int64 `json:"positionId,omitempty"`
	OrderType  int   `json:"orderType,omitempty"`
}

type ExecutionEventPayload struct {
	CtidTraderAccountID int64         `json:"ctidTraderAccountId"`
	ExecutionType       int           `json:"executionType"`
	Position            *PositionData `json:"position,omitempty"`
	Order               *Order        `json:"order,omitempty"`
	ErrorCode           string        `json:"errorCode,omitempty"`
}

type ErrorResponse struct {
	CtidTraderAccountID int64  `json:"ctidTraderAccountId,omitempty"`
	ErrorCode           string `json:"errorCode"`
	Description         string `json:"description,omitempty"`
}

type OrderErrorEventPayload struct {
	CtidTraderAccountID int64  `json:"ctidTraderAccountId"`
	ErrorCode           string `json:"errorCode"`
	OrderID             int64  `json:"orderId,omitempty"`
	PositionID          int64  `json:"positionId,omitempty"`
	Description         string `json:"description,omitempty"`
}

type AccountsTokenInvalidatedPayload struct {
	CtidTraderAccountIDs []int64 `json:"ctidTraderAccountIds"`
	Reason               string  `json:"reason,omitempty"`
}

type ClientDisconnectPayload struct {
	Reason string `json:"reason,omitempty"`
}
