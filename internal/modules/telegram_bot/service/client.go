package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"signal_relay/internal/modules/config"
	openapi "signal_relay/internal/modules/openapi/service"
	"signal_relay/internal/runner"
)

// Bot — то, что нужно от tgbot.BotAPI.
type Bot interface {
	GetUpdatesChan(config tgbot.UpdateConfig) tgbot.UpdatesChannel
	Send(c tgbot.Chattable) (tgbot.Message, error)
	StopReceivingUpdates()
}

// TextHandler — runner.Router.
type TextHandler interface {
	HandleText(ctx context.Context, channel int64, text string) runner.Report
}

// Status — состояние соединения с брокером для /status.
type Status interface {
	State() openapi.ConnectionState
	Pending() int
	LastInbound() time.Time
}

// Telegram читает каналы с сигналами и пишет оператору.
type Telegram struct {
	bot      Bot
	handler  TextHandler
	status   Status
	log      *zap.Logger
	operator int64
	channels map[int64]struct{}

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewTelegram(cfg *config.Config, handler TextHandler, status Status, log *zap.Logger) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}
	return New(b, cfg.Telegram, handler, status, log), nil
}

func New(b Bot, cfg config.TelegramConfig, handler TextHandler, status Status, log *zap.Logger) *Telegram {
	if log == nil {
		log = zap.NewNop()
	}
	channels := make(map[int64]struct{}, len(cfg.Channels))
	for _, id := range cfg.Channels {
		channels[id] = struct{}{}
	}
	return &Telegram{
		bot:      b,
		handler:  handler,
		status:   status,
		log:      log.Named("telegram"),
		operator: cfg.OperatorChatID,
		channels: channels,
	}
}

func (t *Telegram) Send(ctx context.Context, chatID int64, msg string) (tgbot.Message, error) {
	return t.bot.Send(tgbot.NewMessage(chatID, msg))
}

func (t *Telegram) SendF(ctx context.Context, chatID int64, format string, args ...any) (tgbot.Message, error) {
	return t.Send(ctx, chatID, fmt.Sprintf(format, args...))
}

// SendService — служебное сообщение оператору; без operator_chat_id только в лог.
func (t *Telegram) SendService(ctx context.Context, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	if t.operator == 0 {
		t.log.Info(text)
		return
	}
	if _, err := t.Send(ctx, t.operator, text); err != nil {
		t.log.Error("operator message failed", zap.Error(err))
	}
}

// Start ...
func (t *Telegram) Start(ctx context.Context) {
	ctx, t.cancel = context.WithCancel(ctx)

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				t.handleUpdate(ctx, update)
			}
		}
	}()
}

// Stop останавливает чтение апдейтов и ждёт обработку уже принятых сообщений.
func (t *Telegram) Stop(ctx context.Context) error {
	t.bot.StopReceivingUpdates()
	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
