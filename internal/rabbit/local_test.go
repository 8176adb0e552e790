package rabbit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_PublishConsume(t *testing.T) {
	q := NewLocal(2)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, q.Publish(ctx, []byte("one")))
	require.NoError(t, q.Publish(ctx, []byte("two")))
	require.ErrorIs(t, q.Publish(ctx, []byte("three")), ErrQueueFull)

	got := make(chan string, 2)
	done := make(chan error, 1)
	go func() {
		done <- q.Consume(ctx, func(_ context.Context, body []byte) error {
			got <- string(body)
			if string(body) == "one" {
				return errors.New("dropped")
			}
			return nil
		})
	}()

	assert.Equal(t, "one", <-got)
	assert.Equal(t, "two", <-got)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consume did not stop after cancel")
	}
}
