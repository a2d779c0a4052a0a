package notify

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Notifier — служебные сообщения оператору (итог сигнала, фатальные ошибки).
type Notifier interface {
	SendService(ctx context.Context, format string, args ...any)
}

// Stdout — заглушка, когда оператор не настроен: всё уходит в лог.
type Stdout struct {
	log *zap.Logger
}

func NewStdout(log *zap.Logger) *Stdout {
	if log == nil {
		log = zap.NewNop()
	}
	return &Stdout{log: log.Named("notify")}
}

func (s *Stdout) SendService(_ context.Context, format string, args ...any) {
	s.log.Info(fmt.Sprintf(format, args...))
}

// Recorder копит сообщения в памяти; для тестов и команды parse.
type Recorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *Recorder) SendService(_ context.Context, format string, args ...any) {
	r.mu.Lock()
	r.messages = append(r.messages, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}
