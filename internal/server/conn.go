package server

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/example/resource-island/internal/game"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Inbound frame budget per connection: sustained rate and burst.
	inboundRate  = rate.Limit(20)
	inboundBurst = 40
)

// conn is one player's live connection: a reader goroutine parsing inbound
// frames and a writer goroutine draining the player's mailbox. The reader is
// the single place that unregisters the player.
type conn struct {
	id      string
	player  string
	ws      *websocket.Conn
	state   *game.State
	mailbox *game.Mailbox
	handler ActionHandler
	limiter *rate.Limiter
	log     *slog.Logger
}

// readLoop consumes inbound frames until the socket dies or a frame is
// malformed. Its deferred cleanup closes the socket and unregisters the
// player, which closes the mailbox and thereby ends the writer.
func (c *conn) readLoop() {
	defer func() {
		c.ws.Close()
		if err := c.state.UnregisterPlayer(c.player); err != nil {
			if errors.Is(err, game.ErrNotFound) {
				c.log.Debug("player already unregistered", "err", err)
			} else {
				c.log.Warn("unregister failed", "err", err)
			}
		}
		c.log.Info("player disconnected", "dropped", c.mailbox.Dropped())
	}()

	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("read failed", "err", err)
			}
			return
		}
		if !c.limiter.Allow() {
			c.log.Warn("inbound frame over rate limit, discarded", "type", msg.Type)
			continue
		}
		if err := dispatch(c.handler, c.player, msg); err != nil {
			c.log.Warn("closing connection on malformed frame", "err", err)
			return
		}
	}
}

// writeLoop drains the mailbox to the socket and keeps the connection alive
// with pings. It ends when the mailbox closes or a write fails; either way it
// closes the socket so the reader observes the teardown.
func (c *conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case delivery, ok := <-c.mailbox.C():
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Mailbox closed: the player was unregistered.
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(delivery.Frame()); err != nil {
				c.log.Warn("write failed", "err", err)
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
