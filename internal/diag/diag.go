// Package diag bridges a logger's live entry feed onto a websocket, the
// same "subscribe, upgrade, write until the feed or connection closes"
// shape as the teacher's log-tailing endpoint (SPEC_FULL.md domain stack).
package diag

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/mltgo/mlt/internal/log"
)

// Subscriber is the part of *log.Logger this package needs, so tests can
// fake it without a real fan-out goroutine running.
type Subscriber interface {
	Subscribe() (<-chan log.Entry, log.Cancel)
}

var upgrader = websocket.Upgrader{}

// LogHandler returns an http.Handler that upgrades the request to a
// websocket and streams JSON-encoded entries from logger until either
// side closes, grounded on the teacher's `pkg/web/routes.go` Logs
// handler (subscribe, loop, write, bail on the first write error).
func LogHandler(logger Subscriber) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer conn.Close()

		feed, cancel := logger.Subscribe()
		defer cancel()

		for entry := range feed {
			payload, err := json.Marshal(entry)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	})
}
