// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/huex/liarbar/internal/models"
	"github.com/huex/liarbar/internal/registry"
)

// WSHandler upgrades the connection, resolves the caller's guest identity,
// registers the connection handle, and runs the read pump. Game logic never
// blocks in here; every inbound envelope is handed to the dispatcher and
// outbound traffic goes through the connection's write pump.
func WSHandler(logger *logrus.Logger, d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"liarbar"},
			OriginPatterns: []string{"*"}, // Adjust in production.
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "liarbar" {
			c.Close(BadSubprotocolError, "client must speak the liarbar subprotocol")
			return
		}

		user, err := EnsureGuestUser(w, r)
		if err != nil {
			logger.Warnf("guest identity failed: %v", err)
			c.Close(websocket.StatusPolicyViolation, "authentication failed")
			return
		}
		userID := user.ID.String()

		ctx, cancel := context.WithCancel(r.Context())
		username := user.Username
		if username == "Guest" {
			username = "" // Let the player model derive its default name.
		}
		conn := registry.NewConn(userID, username, cancel)
		d.Registry.AddConn(conn)
		logger.WithFields(logrus.Fields{
			"user":   userID,
			"remote": r.RemoteAddr,
		}).Info("websocket connected")

		conn.Write(models.NewMessage(models.MsgWelcome, map[string]string{"userId": userID}))

		go writePump(ctx, c, conn, logger)
		readPump(ctx, c, conn, d, logger)

		d.HandleDisconnect(userID)
		cancel()
		logger.WithField("user", userID).Info("websocket disconnected")
	}
}

// readPump decodes inbound envelopes and dispatches them until the
// connection dies or the context is cancelled.
func readPump(ctx context.Context, c *websocket.Conn, conn *registry.Conn, d *Dispatcher, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		typ, data, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				return
			}
			if !strings.Contains(err.Error(), "context canceled") {
				logger.Warnf("read error for user %s: %v", conn.UserID, err)
			}
			return
		}
		if typ != websocket.MessageText {
			logger.Warnf("ignoring non-text message from user %s", conn.UserID)
			continue
		}

		var msg models.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("invalid json from user %s: %v", conn.UserID, err)
			conn.WriteError(models.MsgError, "invalid JSON")
			continue
		}
		d.Handle(conn, &msg)
	}
}

// writePump drains the connection's outbound queue onto the socket and
// pings periodically so dead connections surface as write errors.
func writePump(ctx context.Context, c *websocket.Conn, conn *registry.Conn, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.Out:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("failed to marshal outgoing msg for user %s: %v", conn.UserID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("write failed for user %s: %v", conn.UserID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("ping failed for user %s, assuming disconnect: %v", conn.UserID, err)
				return
			}
		}
	}
}
