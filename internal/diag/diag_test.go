package diag

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/mltgo/mlt/internal/log"
)

type fakeSubscriber struct {
	feed chan log.Entry
}

func (f *fakeSubscriber) Subscribe() (<-chan log.Entry, log.Cancel) {
	return f.feed, func() {}
}

func TestLogHandlerStreamsEntriesAsJSON(t *testing.T) {
	sub := &fakeSubscriber{feed: make(chan log.Entry, 1)}
	server := httptest.NewServer(LogHandler(sub))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	sub.feed <- log.Entry{Level: log.LevelInfo, Msg: "hello", Component: "producer"}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var got log.Entry
	require.NoError(t, json.Unmarshal(payload, &got))
	require.Equal(t, "hello", got.Msg)
	require.Equal(t, "producer", got.Component)
	require.Equal(t, log.LevelInfo, got.Level)
}

func TestLogHandlerClosesWhenFeedCloses(t *testing.T) {
	sub := &fakeSubscriber{feed: make(chan log.Entry)}
	server := httptest.NewServer(LogHandler(sub))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	close(sub.feed)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
}
