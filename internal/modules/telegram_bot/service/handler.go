package service

import (
	"context"
	"fmt"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (t *Telegram) handleUpdate(ctx context.Context, update tgbot.Update) {
	// 1) Посты в каналах — основной источник сигналов
	msg := update.ChannelPost
	// 2) Обычные сообщения: группы, личка, оператор
	if msg == nil {
		msg = update.Message
	}
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID

	if t.operator != 0 && chatID == t.operator && msg.IsCommand() {
		t.handleCommand(ctx, chatID, msg.Command())
		return
	}

	if !t.listens(chatID) {
		t.log.Debug("chat is not subscribed", zap.Int64("channel", chatID))
		return
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption // сигнал картинкой с подписью
	}
	if text == "" {
		return
	}

	// брокер отвечает до 30с, апдейты не держим
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		rep := t.handler.HandleText(context.WithoutCancel(ctx), chatID, text)
		if summary := rep.Summary(); summary != "" {
			t.SendService(ctx, "%s", summary)
		}
	}()
}

// listens: пустой список каналов — слушаем всё, кроме чата оператора.
func (t *Telegram) listens(chatID int64) bool {
	if len(t.channels) == 0 {
		return chatID != t.operator || t.operator == 0
	}
	_, ok := t.channels[chatID]
	return ok
}

func (t *Telegram) handleCommand(ctx context.Context, chatID int64, cmd string) {
	switch cmd {
	case "status":
		if _, err := t.Send(ctx, chatID, t.formatStatus()); err != nil {
			t.log.Error("status reply failed", zap.Error(err))
		}
	case "start", "help":
		_, _ = t.Send(ctx, chatID, "Я пересылаю сигналы из каналов брокеру.\n/status — состояние соединения")
	default:
		// остальное игнорируем
	}
}

func (t *Telegram) formatStatus() string {
	if t.status == nil {
		return "статус недоступен"
	}
	last := "—"
	if ts := t.status.LastInbound(); !ts.IsZero() {
		last = time.Since(ts).Truncate(time.Second).String() + " назад"
	}
	return fmt.Sprintf("🔌 %s\n⏳ запросов в полёте: %d\n📨 последнее сообщение: %s",
		t.status.State(), t.status.Pending(), last)
}
