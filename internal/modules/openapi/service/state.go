package service

// ConnectionState — состояние протокольной сессии.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateAppAuthenticated
	StateAccountAuthenticated
	StateReady
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAppAuthenticated:
		return "app_authenticated"
	case StateAccountAuthenticated:
		return "account_authenticated"
	case StateReady:
		return "ready"
	}
	return "unknown"
}
