package tracing

import (
	"fmt"

	"github.com/opentracing/opentracing-go"
	jCfg "github.com/uber/jaeger-client-go/config"
	jZap "github.com/uber/jaeger-client-go/log/zap"
	"github.com/uber/jaeger-lib/metrics"
	"go.uber.org/zap"
)

type Config struct {
	Service  string
	Host     string
	Port     int
	LogSpans bool // дублировать спаны в лог
}

func (c Config) agent() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// InitTracer поднимает jaeger-трейсер и делает его глобальным для opentracing.
// Сообщения самого jaeger и ошибки закрытия идут в log.
func InitTracer(conf Config, log *zap.Logger) (opentracing.Tracer, func(), error) {
	if log == nil {
		log = zap.NewNop()
	}
	if conf.Service == "" {
		return nil, nil, fmt.Errorf("tracing: empty service name")
	}

	cfg := &jCfg.Configuration{
		ServiceName: conf.Service,
		Sampler: &jCfg.SamplerConfig{
			Type:  "const",
			Param: 1,
		},
		Reporter: &jCfg.ReporterConfig{
			LogSpans:           conf.LogSpans,
			LocalAgentHostPort: conf.agent(),
		},
	}

	tracer, closer, err := cfg.NewTracer(
		jCfg.Metrics(metrics.NullFactory),
		jCfg.Logger(jZap.NewLogger(log)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("tracing: %w", err)
	}

	opentracing.SetGlobalTracer(tracer)
	return tracer, func() {
		if err := closer.Close(); err != nil {
			log.Error("closing jaeger tracer", zap.Error(err))
		}
	}, nil
}
