package health

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"signal_relay/internal/modules/config"
	"signal_relay/internal/modules/health/service"
	openapi "signal_relay/internal/modules/openapi/service"
	"signal_relay/pkg/metrics"
)

type Config struct {
	Addr string // например ":8080"
}

func NewConfig(cfg *config.Config) Config {
	return Config{Addr: cfg.Service.HealthAddr}
}

// NewMetrics — метрики процесса в DefaultRegisterer, отдаются на /metrics.
func NewMetrics() *metrics.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

func NewState(c *openapi.Client) *service.State {
	s := service.NewState(c)
	c.OnStateChange(s.Observe)
	return s
}

type healthResponse struct {
	State           string `json:"state"`
	Ready           bool   `json:"ready"`
	UptimeSec       int64  `json:"uptimeSec"`
	LastInboundUnix int64  `json:"lastInboundUnix"`
	Pending         int    `json:"pending"`
	Drops           int64  `json:"drops"`
}

func NewRouter(state *service.State, gatherer http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/livez", func(w http.ResponseWriter, r *http.Request) {
		// liveness: процесс жив
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		// readiness: сессия с брокером в Ready
		if !state.Ready() {
			http.Error(w, "not ready: "+state.Connection().String(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			State:     state.Connection().String(),
			Ready:     state.Ready(),
			UptimeSec: int64(state.Uptime().Seconds()),
			Pending:   state.Pending(),
			Drops:     state.Drops(),
		}
		if t := state.LastInbound(); !t.IsZero() {
			resp.LastInboundUnix = t.Unix()
		}

		data, err := sonic.Marshal(resp)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", gatherer)
	}

	return r
}

func RunHTTP(lc fx.Lifecycle, cfg Config, state *service.State, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(state, promhttp.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("health server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			NewConfig,
			NewMetrics,
			NewState,
		),
		fx.Invoke(RunHTTP),
	)
}
