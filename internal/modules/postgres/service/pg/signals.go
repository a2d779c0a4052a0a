package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"

	"signal_relay/internal/models"
	"signal_relay/pkg/db"
)

const createSignalsTable = `
CREATE TABLE IF NOT EXISTS signals (
	id          uuid PRIMARY KEY,
	channel_id  bigint      NOT NULL,
	raw_text    text        NOT NULL,
	symbol      text        NOT NULL,
	payload     jsonb       NOT NULL,
	received_at timestamptz NOT NULL
)`

const insertSignal = `
INSERT INTO signals (id, channel_id, raw_text, symbol, payload, received_at)
VALUES ($1, $2, $3, $4, $5, $6)`

// Signals — журнал разобранных сигналов.
type Signals struct {
	db  db.TxManager
	now func() time.Time
}

func NewSignals(tx db.TxManager) *Signals {
	return &Signals{db: tx, now: time.Now}
}

// EnsureSchema создаёт таблицу, если её ещё нет.
func (s *Signals) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Conn().Exec(ctx, createSignalsTable); err != nil {
		return fmt.Errorf("pg.EnsureSchema: %w", err)
	}
	return nil
}

// SaveSignal in db
func (s *Signals) SaveSignal(ctx context.Context, channel int64, text string, sig models.ParsedSignal) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.SaveSignal: %w", err)
		}
	}()

	row := newSignalRow(channel, text, sig, s.now())

	var payload []byte
	payload, err = sonic.Marshal(row.Payload)
	if err != nil {
		return err
	}

	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, insertSignal, row.ID, row.Channel, row.Text, row.Symbol, payload, row.ReceivedAt)
		return err
	})
}

// Nop — журнал выключен (нет DSN).
type Nop struct{}

func (Nop) SaveSignal(context.Context, int64, string, models.ParsedSignal) error { return nil }
