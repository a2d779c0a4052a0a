// Package metrics — prometheus-метрики ретранслятора.
//
//   - relay_connection_state          — текущее состояние соединения (0..4)
//   - relay_reconnects_total          — попытки переподключения
//   - relay_requests_total{type,result} — коррелированные запросы
//   - relay_request_duration_seconds{type}
//   - relay_pending_requests          — ожидающие ответа запросы
//   - relay_messages_total{kind}      — входящие сообщения из чата (signal|close|target_hit|ignored)
//   - relay_orders_total{side,result} — ордера по ногам
//
// Все методы безопасны на nil: компоненты в тестах работают без регистра.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	connState       prometheus.Gauge
	reconnects      prometheus.Counter
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	pending         prometheus.Gauge
	messages        *prometheus.CounterVec
	orders          *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_connection_state",
			Help: "Broker connection state: 0 disconnected, 1 connecting, 2 app auth, 3 account auth, 4 ready.",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_reconnects_total",
			Help: "Reconnect attempts to the broker.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_requests_total",
			Help: "Correlated requests by payload type and result.",
		}, []string{"type", "result"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_request_duration_seconds",
			Help:    "Round trip of correlated requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_pending_requests",
			Help: "Requests awaiting a correlated response.",
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_messages_total",
			Help: "Chat messages by classification.",
		}, []string{"kind"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_orders_total",
			Help: "Order legs placed by side and result.",
		}, []string{"side", "result"}),
	}

	if reg != nil {
		reg.MustRegister(m.connState, m.reconnects, m.requests, m.requestDuration)
		reg.MustRegister(m.pending, m.messages, m.orders)
	}
	return m
}

func (m *Metrics) SetConnectionState(v int) {
	if m == nil {
		return
	}
	m.connState.Set(float64(v))
}

func (m *Metrics) IncReconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

func (m *Metrics) ObserveRequest(payloadType, result string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(payloadType, result).Inc()
	m.requestDuration.WithLabelValues(payloadType).Observe(seconds)
}

func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}

func (m *Metrics) IncMessage(kind string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncOrder(side, result string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(side, result).Inc()
}
