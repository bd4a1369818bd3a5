package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"MarketTimeMachine/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// handleStream upgrades to a WebSocket and relays the session's output as
// JSON messages. The first message carries the current state.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session", sess.ID).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	// The server read/write timeouts would otherwise cut long streams.
	conn.SetReadDeadline(time.Time{})

	msgs, cancel := sess.Hub.Subscribe()
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(m session.Message) error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(m)
	}
	if err := write(session.Message{Type: session.MsgState, State: sess.Stepper.State()}); err != nil {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	log.Debug().Str("session", sess.ID).Msg("stream subscriber connected")

	for {
		select {
		case <-closed:
			log.Debug().Str("session", sess.ID).Msg("stream subscriber disconnected")
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			if err := write(m); err != nil {
				log.Warn().Err(err).Str("session", sess.ID).Msg("stream write failed")
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
