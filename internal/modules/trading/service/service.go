package service

import (
	"context"

	"go.uber.org/zap"

	"signal_relay/internal/models"
	openapi "signal_relay/internal/modules/openapi/service"
	"signal_relay/internal/sizing"
	"signal_relay/pkg/metrics"
)

// Requester — коррелированный запрос к брокеру (openapi.Client).
type Requester interface {
	Request(ctx context.Context, pt openapi.PayloadType, payload any) (*openapi.Envelope, error)
}

type Config struct {
	MetalsID    int64
	Label       string // метка ордеров, видна в терминале
	Instruments models.InstrumentTable
	Sizer       sizing.Sizer
}

// Service — торговые операции поверх одного соединения.
type Service struct {
	req     Requester
	cfg     Config
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewService(req Requester, cfg Config, log *zap.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Instruments.ByID == nil {
		cfg.Instruments = models.DefaultInstruments()
	}
	return &Service{
		req:     req,
		cfg:     cfg,
		log:     log.Named("trading"),
		metrics: m,
	}
}

func (s *Service) Profile(instrumentID int64) models.InstrumentProfile {
	return s.cfg.Instruments.Lookup(instrumentID)
}
