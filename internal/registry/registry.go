// internal/registry/registry.go
package registry

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/huex/liarbar/internal/game"
	"github.com/huex/liarbar/internal/models"
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrRoomNotFound   = errors.New("room not found")
	ErrAlreadyInRoom  = errors.New("already in a room")
	// ErrNotMember is reported after a membership check fails and the stale
	// player record has been repaired away.
	ErrNotMember = errors.New("player is not a member of the room")
)

// Registry holds the three concurrently accessed lookup tables: players by
// user ID, rooms by room ID, and live connection handles by user ID. A
// player exists in the registry only while they are in a room; rooms exist
// from create-room until their player list empties.
type Registry struct {
	mu      sync.Mutex
	players map[string]*models.Player
	rooms   map[string]*game.Room
	conns   map[string]*Conn
}

func New() *Registry {
	return &Registry{
		players: make(map[string]*models.Player),
		rooms:   make(map[string]*game.Room),
		conns:   make(map[string]*Conn),
	}
}

// AddConn registers a live connection handle for the user.
func (r *Registry) AddConn(conn *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.UserID] = conn
}

// RemoveConn drops the user's connection handle and marks their player, if
// any, inactive through the owning room so the mutation is serialized with
// game moves. The turn engine auto-skips inactive players, so this is the
// entire disconnect story.
func (r *Registry) RemoveConn(userID string) {
	r.mu.Lock()
	delete(r.conns, userID)
	p, ok := r.players[userID]
	var room *game.Room
	if ok {
		room = r.rooms[p.RoomID]
	}
	r.mu.Unlock()

	if room != nil {
		room.MarkInactive(userID)
	} else if ok {
		p.Active = false
	}
}

// GetConn returns the user's live connection handle, if present.
func (r *Registry) GetConn(userID string) (*Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[userID]
	return c, ok
}

// GetPlayer looks up a registered player.
func (r *Registry) GetPlayer(userID string) (*models.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[userID]
	return p, ok
}

// GetRoom looks up an active room.
func (r *Registry) GetRoom(roomID string) (*game.Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	return room, ok
}

// CreateRoom makes a new room hosted by userID and seats the host. Fails if
// the user is already registered in some room. A non-empty displayName
// overrides the default generated one.
func (r *Registry) CreateRoom(userID, displayName string) (*game.Room, *game.RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.players[userID]; exists {
		return nil, nil, ErrAlreadyInRoom
	}

	room := game.NewRoom(uuid.NewString())
	host := models.NewPlayer(userID)
	if displayName != "" {
		host.Name = displayName
	}
	host.IsHost = true
	host.RoomID = room.ID
	snap, err := room.AddPlayer(host)
	if err != nil {
		return nil, nil, err
	}

	r.players[userID] = host
	r.rooms[room.ID] = room
	return room, snap, nil
}

// JoinRoom seats userID in an existing room, creating the player record. The
// room's own checks (full, started) apply; nothing is registered on failure.
func (r *Registry) JoinRoom(userID, roomID, displayName string) (*game.Room, *game.RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, nil, ErrRoomNotFound
	}
	if _, exists := r.players[userID]; exists {
		return nil, nil, ErrAlreadyInRoom
	}

	p := models.NewPlayer(userID)
	if displayName != "" {
		p.Name = displayName
	}
	p.RoomID = roomID
	snap, err := room.AddPlayer(p)
	if err != nil {
		return nil, nil, err
	}
	r.players[userID] = p
	return room, snap, nil
}

// LeaveRoom takes userID out of their room through the room's atomic Leave:
// unseated when no game runs, deactivated while one does. The player record
// is deleted exactly when the seat was released, so the record and the seat
// list never disagree. A record whose room vanished is cleaned up too.
func (r *Registry) LeaveRoom(userID string) (*game.Room, *game.RoomSnapshot, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[userID]
	if !ok {
		return nil, nil, false, ErrPlayerNotFound
	}
	room, ok := r.rooms[p.RoomID]
	if !ok {
		delete(r.players, userID)
		return nil, nil, false, ErrRoomNotFound
	}

	snap, removed, empty := room.Leave(userID)
	if removed {
		delete(r.players, userID)
	}
	return room, snap, empty, nil
}

// ForgetPlayers deletes player records, typically the inactive players a
// room restart dropped from its seat list.
func (r *Registry) ForgetPlayers(userIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range userIDs {
		delete(r.players, id)
	}
}

// DeleteRoom drops a room from the table. Called by the dispatcher when the
// registry reports the room emptied; deletion is an explicit signal between
// the two, never a side effect.
func (r *Registry) DeleteRoom(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, roomID)
}

// Resolve returns the player record for userID and the room it references.
func (r *Registry) Resolve(userID string) (*models.Player, *game.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[userID]
	if !ok {
		return nil, nil, ErrPlayerNotFound
	}
	room, ok := r.rooms[p.RoomID]
	if !ok {
		return p, nil, ErrRoomNotFound
	}
	return p, room, nil
}

// CheckMembership verifies that the player's room back-reference and the
// room's seat list agree. Disagreement means a prior partial failure left a
// stale reference; the player is evicted from both sides so the corruption
// cannot wedge the room, and ErrNotMember is reported.
func (r *Registry) CheckMembership(p *models.Player, room *game.Room) error {
	if p.RoomID == room.ID && room.Contains(p.UserID) {
		return nil
	}
	room.RemovePlayer(p.UserID)
	r.mu.Lock()
	delete(r.players, p.UserID)
	r.mu.Unlock()
	return ErrNotMember
}
