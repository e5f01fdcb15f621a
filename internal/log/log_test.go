package log

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) (*Logger, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	logger := New(&sync.WaitGroup{})
	logger.Start(ctx)
	return logger, cancel
}

func TestLoggerSubscribe(t *testing.T) {
	logger, cancel := newTestLogger(t)
	defer cancel()

	feed, unsub := logger.Subscribe()
	defer unsub()

	go logger.Info().Component("producer").Service("p1").Msg("hello")

	entry := <-feed
	require.Equal(t, LevelInfo, entry.Level)
	require.Equal(t, "producer", entry.Component)
	require.Equal(t, "p1", entry.ServiceID)
	require.Equal(t, "hello", entry.Msg)
}

func TestLoggerMsgf(t *testing.T) {
	logger, cancel := newTestLogger(t)
	defer cancel()

	feed, unsub := logger.Subscribe()
	defer unsub()

	go logger.Error().Msgf("frame %d failed", 7)

	entry := <-feed
	require.Equal(t, "frame 7 failed", entry.Msg)
}

func TestLoggerMultipleSubscribers(t *testing.T) {
	logger, cancel := newTestLogger(t)
	defer cancel()

	feedA, unsubA := logger.Subscribe()
	defer unsubA()
	feedB, unsubB := logger.Subscribe()
	defer unsubB()

	go logger.Warn().Msg("broadcast")

	a := <-feedA
	b := <-feedB
	require.Equal(t, a.Msg, b.Msg)
}

func TestLevelString(t *testing.T) {
	require.Equal(t, "ERROR", LevelError.String())
	require.Equal(t, "WARNING", LevelWarning.String())
	require.Equal(t, "INFO", LevelInfo.String())
	require.Equal(t, "DEBUG", LevelDebug.String())
}
