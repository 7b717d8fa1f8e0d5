// internal/handlers/dispatcher.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/huex/liarbar/internal/cache"
	"github.com/huex/liarbar/internal/database"
	"github.com/huex/liarbar/internal/game"
	"github.com/huex/liarbar/internal/models"
	"github.com/huex/liarbar/internal/registry"
)

// Dispatcher maps inbound command envelopes to registry/engine calls and
// fans the resulting room snapshot out to the room's connected members. Rule
// violations become typed error replies to the sender only; room state is
// untouched on any failure because engine mutations commit only after
// validation.
type Dispatcher struct {
	Registry *registry.Registry
	Logger   *logrus.Logger
}

func NewDispatcher(reg *registry.Registry, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{Registry: reg, Logger: logger}
}

// Handle processes one inbound envelope from conn's user. Panics from the
// command handlers are contained here: the room keeps its last-known-good
// state and the sender gets an internal_error reply.
func (d *Dispatcher) Handle(conn *registry.Conn, msg *models.Message) {
	defer func() {
		if rec := recover(); rec != nil {
			d.Logger.WithFields(logrus.Fields{
				"user":  conn.UserID,
				"msgId": msg.MsgID,
				"type":  msg.Type,
				"panic": rec,
			}).Error("panic while handling message")
			conn.WriteError(models.MsgErrInternal, "internal server error")
		}
	}()

	switch msg.Type {
	case models.MsgCreateRoom:
		d.handleCreateRoom(conn)
	case models.MsgJoinRoom:
		var payload models.JoinRoomPayload
		if !d.decode(conn, msg, &payload) {
			return
		}
		d.handleJoinRoom(conn, payload.RoomID)
	case models.MsgLeaveRoom:
		d.handleLeaveRoom(conn)
	case models.MsgChangeName:
		var payload models.ChangeNamePayload
		if !d.decode(conn, msg, &payload) {
			return
		}
		d.handleChangeName(conn, payload.NewName)
	case models.MsgGetRoomPlayers:
		var payload models.GetRoomPlayersPayload
		if !d.decode(conn, msg, &payload) {
			return
		}
		d.handleGetRoomPlayers(conn, payload.RoomID)
	case models.MsgPrepare:
		var payload models.PreparePayload
		if !d.decode(conn, msg, &payload) {
			return
		}
		d.handlePrepare(conn, payload.IsReady)
	case models.MsgStartGame:
		d.handleStartGame(conn)
	case models.MsgPlayCards:
		var claim models.PlayClaim
		if !d.decode(conn, msg, &claim) {
			return
		}
		d.handleGameOp(conn, models.MsgPlayCards, &claim)
	case models.MsgSkip:
		d.handleGameOp(conn, models.MsgSkip, nil)
	case models.MsgChallenge:
		d.handleGameOp(conn, models.MsgChallenge, nil)
	case models.MsgRestart:
		d.handleRestart(conn)
	default:
		d.Logger.WithFields(logrus.Fields{
			"user": conn.UserID,
			"type": msg.Type,
		}).Warn("unsupported message type")
		conn.WriteError(models.MsgErrUnsupported, "unsupported message type: "+string(msg.Type))
	}
}

// decode unmarshals the envelope data into payload, replying with an error
// on malformed input.
func (d *Dispatcher) decode(conn *registry.Conn, msg *models.Message, payload interface{}) bool {
	if err := json.Unmarshal(msg.Data, payload); err != nil {
		d.Logger.WithFields(logrus.Fields{
			"user": conn.UserID,
			"type": msg.Type,
		}).Warnf("malformed payload: %v", err)
		conn.WriteError(models.MsgError, "malformed payload")
		return false
	}
	return true
}

func (d *Dispatcher) handleCreateRoom(conn *registry.Conn) {
	room, snap, err := d.Registry.CreateRoom(conn.UserID, conn.Username)
	if err != nil {
		d.replyError(conn, err)
		return
	}
	d.Logger.WithFields(logrus.Fields{"user": conn.UserID, "room": room.ID}).Info("room created")
	d.logAction(room.ID, conn.UserID, models.MsgCreateRoom, nil)
	d.broadcastRoom(snap)
}

func (d *Dispatcher) handleJoinRoom(conn *registry.Conn, roomID string) {
	room, snap, err := d.Registry.JoinRoom(conn.UserID, roomID, conn.Username)
	if err != nil {
		d.replyError(conn, err)
		return
	}
	d.Logger.WithFields(logrus.Fields{"user": conn.UserID, "room": room.ID}).Info("player joined room")
	d.logAction(room.ID, conn.UserID, models.MsgJoinRoom, nil)
	d.broadcastRoom(snap)
}

func (d *Dispatcher) handleLeaveRoom(conn *registry.Conn) {
	// Room.Leave decides between unseating and deactivating under the room
	// lock, so a leave can never unseat a player whose hand was dealt by a
	// concurrently committing start.
	room, snap, empty, err := d.Registry.LeaveRoom(conn.UserID)
	if err != nil {
		d.replyError(conn, err)
		return
	}
	conn.Write(models.NewMessage(models.MsgRoomLeft, nil))
	d.logAction(room.ID, conn.UserID, models.MsgLeaveRoom, nil)
	d.finishDeparture(room, snap, empty)
}

func (d *Dispatcher) handleChangeName(conn *registry.Conn, newName string) {
	player, room, err := d.resolveMember(conn)
	if err != nil {
		d.replyError(conn, err)
		return
	}
	snap, err := room.RenamePlayer(player.UserID, newName)
	if err != nil {
		d.replyError(conn, err)
		return
	}
	conn.Username = newName
	d.persistUsername(conn.UserID, newName)
	d.logAction(room.ID, conn.UserID, models.MsgChangeName, newName)
	d.broadcastRoom(snap)
}

func (d *Dispatcher) handleGetRoomPlayers(conn *registry.Conn, roomID string) {
	room, ok := d.Registry.GetRoom(roomID)
	if !ok {
		d.replyError(conn, registry.ErrRoomNotFound)
		return
	}
	conn.Write(models.NewMessage(models.MsgRoomState, room.Snapshot()))
}

func (d *Dispatcher) handlePrepare(conn *registry.Conn, isReady bool) {
	player, room, err := d.resolveMember(conn)
	if err != nil {
		d.replyError(conn, err)
		return
	}
	snap, err := room.SetReady(player.UserID, isReady)
	if err != nil {
		d.replyError(conn, err)
		return
	}
	d.logAction(room.ID, conn.UserID, models.MsgPrepare, isReady)
	d.broadcastRoom(snap)
}

func (d *Dispatcher) handleStartGame(conn *registry.Conn) {
	player, room, err := d.resolveMember(conn)
	if err != nil {
		d.replyError(conn, err)
		return
	}
	if !player.IsHost {
		conn.WriteError(models.MsgErrNotHost, "only the host can start the game")
		return
	}
	snap, err := room.StartGame()
	if err != nil {
		d.replyError(conn, err)
		return
	}
	d.Logger.WithField("room", room.ID).Info("game started")
	d.logAction(room.ID, conn.UserID, models.MsgStartGame, nil)
	d.broadcastRoom(snap)
}

// handleGameOp covers play_cards, skip, and challenge, which share their
// resolution and broadcast path.
func (d *Dispatcher) handleGameOp(conn *registry.Conn, op models.MsgType, claim *models.PlayClaim) {
	player, room, err := d.resolveMember(conn)
	if err != nil {
		d.replyError(conn, err)
		return
	}

	var snap *game.RoomSnapshot
	switch op {
	case models.MsgPlayCards:
		snap, err = room.PlayCards(player.UserID, *claim)
	case models.MsgSkip:
		snap, err = room.Skip(player.UserID)
	case models.MsgChallenge:
		snap, err = room.Challenge(player.UserID)
	}
	if err != nil {
		d.replyError(conn, err)
		return
	}
	d.logAction(room.ID, conn.UserID, op, claim)
	d.broadcastRoom(snap)
}

func (d *Dispatcher) handleRestart(conn *registry.Conn) {
	player, room, err := d.resolveMember(conn)
	if err != nil {
		d.replyError(conn, err)
		return
	}
	if !player.IsHost {
		conn.WriteError(models.MsgErrNotHost, "only the host can restart the game")
		return
	}
	snap, dropped := room.RestartGame()
	d.Registry.ForgetPlayers(dropped)
	if len(snap.Players) == 0 {
		d.Registry.DeleteRoom(room.ID)
		d.Logger.WithField("room", room.ID).Info("room removed after restart, no players left")
		return
	}
	d.Logger.WithField("room", room.ID).Info("game restarted")
	d.logAction(room.ID, conn.UserID, models.MsgRestart, nil)
	d.broadcastRoom(snap)
}

// HandleDisconnect runs when a connection's read pump exits. Pre-game the
// player leaves their room outright; mid-game the seat only goes inactive so
// the engine can skip around it. Either way a room with nobody active left
// in it is torn down.
func (d *Dispatcher) HandleDisconnect(userID string) {
	d.Registry.RemoveConn(userID)
	room, snap, empty, err := d.Registry.LeaveRoom(userID)
	if err != nil {
		return
	}
	d.finishDeparture(room, snap, empty)
}

// finishDeparture cleans up after a seat was released. All state reads come
// from the snapshot the mutation produced under the room lock, never from
// the live room.
func (d *Dispatcher) finishDeparture(room *game.Room, snap *game.RoomSnapshot, empty bool) {
	if empty {
		d.Registry.DeleteRoom(room.ID)
		d.Logger.WithField("room", room.ID).Info("room removed, no players left")
		return
	}

	active := 0
	for _, p := range snap.Players {
		if p.Active {
			active++
		}
	}
	if snap.Started && !snap.Ended && active == 0 {
		ids := make([]string, 0, len(snap.Players))
		for _, p := range snap.Players {
			ids = append(ids, p.UserID)
		}
		d.Registry.ForgetPlayers(ids)
		d.Registry.DeleteRoom(room.ID)
		d.Logger.WithField("room", room.ID).Info("room removed, all players disconnected")
		return
	}
	d.broadcastRoom(snap)
}

// resolveMember fetches the caller's player and room, then runs the
// self-healing membership check so stale references never wedge a room.
func (d *Dispatcher) resolveMember(conn *registry.Conn) (*models.Player, *game.Room, error) {
	player, room, err := d.Registry.Resolve(conn.UserID)
	if err != nil {
		return nil, nil, err
	}
	if err := d.Registry.CheckMembership(player, room); err != nil {
		return nil, nil, err
	}
	return player, room, nil
}

// broadcastRoom delivers the snapshot to every active member with a live
// connection. A member without a connection handle is marked inactive on the
// spot; that is the lazy disconnect detection the engine's auto-skip relies
// on.
func (d *Dispatcher) broadcastRoom(snap *game.RoomSnapshot) {
	if snap == nil {
		return
	}
	msg := models.NewMessage(models.MsgRoomState, snap)
	for _, p := range snap.Players {
		if !p.Active {
			continue
		}
		conn, ok := d.Registry.GetConn(p.UserID)
		if !ok {
			if room, found := d.Registry.GetRoom(snap.ID); found {
				room.MarkInactive(p.UserID)
			}
			d.Logger.WithFields(logrus.Fields{"user": p.UserID, "room": snap.ID}).
				Warn("no live connection during broadcast, marking player inactive")
			continue
		}
		conn.Write(msg)
	}
}

// replyError maps engine and registry errors onto wire error tags.
func (d *Dispatcher) replyError(conn *registry.Conn, err error) {
	tag := models.MsgError
	switch {
	case errors.Is(err, registry.ErrPlayerNotFound),
		errors.Is(err, registry.ErrNotMember),
		errors.Is(err, game.ErrPlayerNotInRoom):
		tag = models.MsgErrPlayerNotFound
	case errors.Is(err, registry.ErrRoomNotFound):
		tag = models.MsgErrRoomNotFound
	case errors.Is(err, registry.ErrAlreadyInRoom):
		tag = models.MsgErrAlreadyInRoom
	case errors.Is(err, game.ErrRoomFull):
		tag = models.MsgErrRoomFull
	case errors.Is(err, game.ErrGameAlreadyStarted):
		tag = models.MsgErrGameAlreadyStarted
	case errors.Is(err, game.ErrGameNotStarted):
		tag = models.MsgErrGameNotStarted
	case errors.Is(err, game.ErrGameEnded):
		tag = models.MsgErrGameFinished
	case errors.Is(err, game.ErrNotPlayerTurn):
		tag = models.MsgErrNotPlayerTurn
	case errors.Is(err, game.ErrInvalidClaim),
		errors.Is(err, game.ErrCannotSkip),
		errors.Is(err, game.ErrNothingToChallenge):
		tag = models.MsgErrInvalidClaim
	}
	conn.WriteError(tag, err.Error())
}

// logAction records a successful mutation to the Redis historian,
// fire-and-forget.
func (d *Dispatcher) logAction(roomID, userID string, action models.MsgType, payload interface{}) {
	record := cache.RoomActionRecord{
		RoomID:      roomID,
		ActorUserID: userID,
		ActionType:  action,
		Payload:     payload,
		Timestamp:   time.Now().UnixMilli(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishRoomAction(ctx, record); err != nil {
			d.Logger.WithField("room", roomID).Debugf("historian publish failed: %v", err)
		}
	}()
}

// persistUsername stores a rename in the database when one is configured.
func (d *Dispatcher) persistUsername(userID, name string) {
	if database.DB == nil {
		return
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.UpdateUsername(ctx, id, name); err != nil {
			d.Logger.WithField("user", userID).Warnf("failed to persist username: %v", err)
		}
	}()
}
