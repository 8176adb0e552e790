package rabbit

import (
	"context"
	"errors"

	"github.com/wb-go/wbf/zlog"
)

var ErrQueueFull = errors.New("local queue is full")

// Local is an in-process stand-in for Client used when the portal runs
// without a broker. Messages are lost on restart.
type Local struct {
	msgs chan []byte
}

func NewLocal(size int) *Local {
	if size <= 0 {
		size = 64
	}
	return &Local{msgs: make(chan []byte, size)}
}

func (l *Local) Publish(ctx context.Context, message []byte) error {
	select {
	case l.msgs <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Consume mirrors Client.Consume without redelivery: failed messages are
// logged and dropped.
func (l *Local) Consume(ctx context.Context, handler func(context.Context, []byte) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case body := <-l.msgs:
			if err := handler(ctx, body); err != nil {
				zlog.Logger.Warn().Err(err).Msg("failed to process local message")
			}
		}
	}
}
