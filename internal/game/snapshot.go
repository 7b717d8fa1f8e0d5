// internal/game/snapshot.go
package game

import "github.com/huex/liarbar/internal/models"

// RoomSnapshot is an immutable copy of a room's externally visible state,
// taken under the room lock immediately after a mutation. It is what the
// dispatcher broadcasts; nothing in it aliases live room data.
type RoomSnapshot struct {
	ID         string           `json:"id"`
	Players    []PlayerSnapshot `json:"players"`
	MaxPlayers int              `json:"maxPlayers"`

	Started bool `json:"started"`
	Ended   bool `json:"ended"`

	Deck               []models.Card `json:"deck,omitempty"`
	CurrentPlayerIndex int           `json:"currentPlayerIndex"`
	RoundBeginnerIndex int           `json:"roundBeginnerIndex"`
	CurrentClaimRank   models.Rank   `json:"currentClaimRank"`
	WinnerID           string        `json:"winnerId,omitempty"`
}

// PlayerSnapshot mirrors one seated player.
type PlayerSnapshot struct {
	UserID string        `json:"userId"`
	Name   string        `json:"name"`
	Active bool          `json:"active"`
	Ready  bool          `json:"ready"`
	IsHost bool          `json:"isHost"`
	Hand   []models.Card `json:"hand"`
	Played []models.Card `json:"played"`
}

// Snapshot copies the current room state under the room lock.
func (r *Room) Snapshot() *RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() *RoomSnapshot {
	snap := &RoomSnapshot{
		ID:                 r.ID,
		Players:            make([]PlayerSnapshot, 0, len(r.Players)),
		MaxPlayers:         MaxPlayers,
		Started:            r.Started,
		Ended:              r.Ended,
		Deck:               append([]models.Card(nil), r.Deck...),
		CurrentPlayerIndex: r.CurrentPlayerIndex,
		RoundBeginnerIndex: r.RoundBeginnerIndex,
		CurrentClaimRank:   r.CurrentClaimRank,
	}
	if r.Winner != nil {
		snap.WinnerID = r.Winner.UserID
	}
	for _, p := range r.Players {
		snap.Players = append(snap.Players, PlayerSnapshot{
			UserID: p.UserID,
			Name:   p.Name,
			Active: p.Active,
			Ready:  p.Ready,
			IsHost: p.IsHost,
			Hand:   append([]models.Card(nil), p.Hand...),
			Played: append([]models.Card(nil), p.Played...),
		})
	}
	return snap
}
