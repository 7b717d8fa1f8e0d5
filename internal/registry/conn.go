// internal/registry/conn.go
package registry

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/huex/liarbar/internal/models"
)

// Conn is a single user's live connection handle. The transport layer owns
// the socket; the registry only ever pushes envelopes onto Out, which the
// connection's write pump drains.
type Conn struct {
	UserID   string
	Username string
	Cancel   context.CancelFunc
	Out      chan *models.Message
}

// NewConn builds a handle with a buffered outbound queue.
func NewConn(userID, username string, cancel context.CancelFunc) *Conn {
	return &Conn{
		UserID:   userID,
		Username: username,
		Cancel:   cancel,
		Out:      make(chan *models.Message, 16),
	}
}

// Write queues an envelope without blocking. A full or closed queue drops
// the message; the write pump going away is handled by disconnect detection,
// not here.
func (c *Conn) Write(msg *models.Message) {
	defer func() {
		if recover() != nil {
			logrus.WithField("user", c.UserID).Warnf("write to closed out channel dropped (type %s)", msg.Type)
		}
	}()
	select {
	case c.Out <- msg:
	default:
		logrus.WithField("user", c.UserID).Warnf("out channel full, dropped message type %s", msg.Type)
	}
}

// WriteError queues an error-tagged reply.
func (c *Conn) WriteError(t models.MsgType, text string) {
	c.Write(models.NewMessage(t, models.ErrorPayload{Message: text}))
}
