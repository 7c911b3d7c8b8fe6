package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestShutdownClosesInReverseOrder(t *testing.T) {
	sh := NewShutdownHandler(zaptest.NewLogger(t), time.Second)

	var order []string
	for _, name := range []string{"store", "events", "http"} {
		name := name
		sh.AddFunc(name, func() error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, sh.Shutdown(context.Background()))
	assert.Equal(t, []string{"http", "events", "store"}, order)

	// second call is a no-op
	require.NoError(t, sh.Shutdown(context.Background()))
	assert.Len(t, order, 3)
}

func TestShutdownCollectsErrors(t *testing.T) {
	sh := NewShutdownHandler(zaptest.NewLogger(t), time.Second)
	boom := errors.New("boom")
	closed := false

	sh.AddFunc("store", func() error { closed = true; return nil })
	sh.AddFunc("bus", func() error { return boom })

	err := sh.Shutdown(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.True(t, closed, "later services still close after a failure")
}

func TestShutdownTimeout(t *testing.T) {
	sh := NewShutdownHandler(zaptest.NewLogger(t), 20*time.Millisecond)
	release := make(chan struct{})
	defer close(release)

	sh.AddFunc("stuck", func() error { <-release; return nil })

	err := sh.Shutdown(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitForSignalHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sig, err := WaitForSignal(ctx)
	assert.Nil(t, sig)
	assert.ErrorIs(t, err, context.Canceled)
}
