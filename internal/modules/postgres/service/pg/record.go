package pg

import (
	"time"

	"github.com/google/uuid"

	"signal_relay/internal/models"
)

// signalRecord — то, что кладём в колонку payload (jsonb).
type signalRecord struct {
	Direction   string   `json:"direction"`
	OrderKind   string   `json:"order_kind"`
	Symbol      string   `json:"symbol"`
	Entry       *string  `json:"entry,omitempty"`
	StopLoss    string   `json:"stop_loss"`
	TakeProfits []string `json:"take_profits"`
}

type signalRow struct {
	ID         uuid.UUID
	Channel    int64
	Text       string
	Symbol     string
	Payload    signalRecord
	ReceivedAt time.Time
}

func newSignalRow(channel int64, text string, sig models.ParsedSignal, now time.Time) signalRow {
	rec := signalRecord{
		Direction:   string(sig.Direction),
		OrderKind:   string(sig.OrderKind),
		Symbol:      sig.Symbol,
		StopLoss:    sig.StopLoss.String(),
		TakeProfits: make([]string, 0, len(sig.TakeProfits)),
	}
	if sig.Entry.Valid {
		entry := sig.Entry.Decimal.String()
		rec.Entry = &entry
	}
	for _, tp := range sig.TakeProfits {
		rec.TakeProfits = append(rec.TakeProfits, tp.String())
	}

	return signalRow{
		ID:         uuid.New(),
		Channel:    channel,
		Text:       text,
		Symbol:     sig.Symbol,
		Payload:    rec,
		ReceivedAt: now.UTC(),
	}
}
