package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Service     string
	Level       string // debug | info | warn | error
	Development bool   // консольный вывод вместо json
}

// New собирает процессный логгер; дальше он раздаётся через fx.
func New(conf Config) (*zap.Logger, error) {
	var cfg zap.Config
	if conf.Development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if conf.Level != "" {
		lvl, err := zapcore.ParseLevel(strings.ToLower(conf.Level))
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", conf.Level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	if conf.Service != "" {
		l = l.With(zap.String("service", conf.Service))
	}
	return l, nil
}
