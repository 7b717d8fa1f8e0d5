// internal/game/room.go
package game

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/huex/liarbar/internal/models"
)

// MaxPlayers is the seat limit of every room.
const MaxPlayers = 8

// Room owns the full state of one game: the seated players (list order is
// turn order once started), the shared deck, and the round bookkeeping.
//
// Every mutating entry point takes R.mu for its whole validate-then-move
// sequence and computes the returned snapshot before releasing it, so
// concurrent commands against the same room observe a serial history and no
// broadcast ever sees a torn state.
type Room struct {
	mu sync.Mutex

	ID      string
	Players []*models.Player

	Started bool
	Ended   bool

	Deck               []models.Card
	CurrentPlayerIndex int
	RoundBeginnerIndex int
	CurrentClaimRank   models.Rank
	Winner             *models.Player
}

// NewRoom builds an empty, not-started room.
func NewRoom(id string) *Room {
	return &Room{
		ID:               id,
		Players:          []*models.Player{},
		CurrentClaimRank: models.RankNone,
	}
}

// getPlayer returns the seated player with the given user ID. Lock held.
func (r *Room) getPlayer(userID string) *models.Player {
	for _, p := range r.Players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// Contains reports whether the user is seated in this room.
func (r *Room) Contains(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getPlayer(userID) != nil
}

// AddPlayer seats a player. Fails when the room is full or the game already
// started.
func (r *Room) AddPlayer(p *models.Player) (*RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Started {
		return nil, ErrGameAlreadyStarted
	}
	if len(r.Players) >= MaxPlayers {
		return nil, ErrRoomFull
	}
	r.Players = append(r.Players, p)
	return r.snapshotLocked(), nil
}

// RemovePlayer unseats a player. If the departing player hosted the room and
// others remain, the next seated player inherits the host flag. Returns
// whether a player was actually removed and whether the room is now empty.
func (r *Room) RemovePlayer(userID string) (removed, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removePlayerLocked(userID), len(r.Players) == 0
}

func (r *Room) removePlayerLocked(userID string) bool {
	for i, p := range r.Players {
		if p.UserID != userID {
			continue
		}
		r.Players = append(r.Players[:i], r.Players[i+1:]...)
		if p.IsHost && len(r.Players) > 0 {
			r.Players[0].IsHost = true
		}
		return true
	}
	return false
}

// Leave releases a seat. The whole decision runs under one lock acquisition
// so it cannot interleave with the deal: a leave that would have unseated the
// player observes the committed Started flag and deactivates instead. While a
// game runs the seat only goes inactive and play skips around it; before the
// game starts or after it ends the player is unseated outright. The removed
// result tells the caller whether the player record should be discarded.
func (r *Room) Leave(userID string) (snap *RoomSnapshot, removed, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Started && !r.Ended {
		if p := r.getPlayer(userID); p != nil {
			p.Active = false
			r.autoSkipLocked()
		}
		return r.snapshotLocked(), false, len(r.Players) == 0
	}
	r.removePlayerLocked(userID)
	return r.snapshotLocked(), true, len(r.Players) == 0
}

// IsEmpty reports whether no players remain.
func (r *Room) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Players) == 0
}

// IsFull reports whether the seat limit is reached.
func (r *Room) IsFull() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Players) >= MaxPlayers
}

// ActiveCount returns how many seated players are still active.
func (r *Room) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.Players {
		if p.Active {
			n++
		}
	}
	return n
}

// SetReady toggles the player's ready flag.
func (r *Room) SetReady(userID string, ready bool) (*RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.getPlayer(userID)
	if p == nil {
		return nil, ErrPlayerNotInRoom
	}
	p.Ready = ready
	return r.snapshotLocked(), nil
}

// RenamePlayer changes a seated player's display name.
func (r *Room) RenamePlayer(userID, name string) (*RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.getPlayer(userID)
	if p == nil {
		return nil, ErrPlayerNotInRoom
	}
	p.Name = name
	return r.snapshotLocked(), nil
}

// MarkInactive flags a seated player as disconnected. If it was their turn
// the auto-skip rules advance play immediately so the room never waits on a
// player who is gone.
func (r *Room) MarkInactive(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.getPlayer(userID)
	if p == nil {
		return
	}
	p.Active = false
	if r.Started && !r.Ended {
		r.autoSkipLocked()
	}
}

// StartGame deals a fresh shuffled deck and fixes the turn order for the
// whole game by shuffling the seats. Each player receives cardsPerPlayer
// cards; the first seat receives two extra since it opens with no claim to
// defend. The undealt remainder stays in the room deck.
func (r *Room) StartGame() (*RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Started {
		return nil, ErrGameAlreadyStarted
	}
	if len(r.Players) == 0 {
		return nil, ErrPlayerNotInRoom
	}
	for _, p := range r.Players {
		if !p.Ready {
			return nil, ErrNotAllReady
		}
	}

	r.Started = true
	r.Ended = false
	r.Winner = nil

	r.Deck = BuildDeck()
	ShuffleDeck(r.Deck)
	rand.Shuffle(len(r.Players), func(i, j int) {
		r.Players[i], r.Players[j] = r.Players[j], r.Players[i]
	})

	per := cardsPerPlayer(len(r.Players))
	for _, p := range r.Players {
		for j := 0; j < per; j++ {
			p.AddCard(r.Deck[0])
			r.Deck = r.Deck[1:]
		}
	}
	for j := 0; j < 2; j++ {
		r.Players[0].AddCard(r.Deck[0])
		r.Deck = r.Deck[1:]
	}

	r.CurrentPlayerIndex = 0
	r.RoundBeginnerIndex = 0
	r.CurrentClaimRank = models.RankNone
	return r.snapshotLocked(), nil
}

// RestartGame returns the room to the waiting state: players marked inactive
// are dropped (they are treated as having left mid-game), everyone else is
// reset. Seats are not reshuffled. Valid in any state and idempotent; the
// second call in a row drops no one because the first already did. Dropped
// user IDs are returned so the caller can clean up its own records.
func (r *Room) RestartGame() (*RoomSnapshot, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Started = false
	r.Ended = false
	r.Deck = nil
	r.CurrentPlayerIndex = 0
	r.RoundBeginnerIndex = 0
	r.CurrentClaimRank = models.RankNone
	r.Winner = nil

	kept := r.Players[:0]
	var dropped []string
	var promote bool
	for _, p := range r.Players {
		if !p.Active {
			if p.IsHost {
				promote = true
			}
			dropped = append(dropped, p.UserID)
			continue
		}
		p.ResetForNewGame()
		kept = append(kept, p)
	}
	r.Players = kept
	if promote && len(r.Players) > 0 {
		r.Players[0].IsHost = true
	}
	return r.snapshotLocked(), dropped
}

// PlayCards attempts the given play for userID. The first play of a round
// establishes the claim rank and marks the player as the round beginner;
// every later play must repeat the established rank. Emptying the hand ends
// the game immediately with this player as the winner.
func (r *Room) PlayCards(userID string, claim models.PlayClaim) (*RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkTurn(userID); err != nil {
		return nil, err
	}
	if claim.ClaimRank == models.RankNone {
		return nil, fmt.Errorf("%w: no claim rank given", ErrInvalidClaim)
	}
	if r.CurrentClaimRank != models.RankNone && claim.ClaimRank != r.CurrentClaimRank {
		return nil, fmt.Errorf("%w: round claim is %s, got %s",
			ErrInvalidClaim, r.CurrentClaimRank, claim.ClaimRank)
	}

	player := r.Players[r.CurrentPlayerIndex]
	if err := player.PlayCards(claim.Cards); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClaim, err)
	}

	// The claim is only recorded after the cards are verified held, so a
	// rejected play leaves the round untouched.
	if r.CurrentClaimRank == models.RankNone {
		r.CurrentClaimRank = claim.ClaimRank
		r.RoundBeginnerIndex = r.CurrentPlayerIndex
	}

	if len(player.Hand) == 0 {
		r.Ended = true
		r.Winner = player
		return r.snapshotLocked(), nil
	}

	r.CurrentPlayerIndex = (r.CurrentPlayerIndex + 1) % len(r.Players)
	r.autoSkipLocked()
	return r.snapshotLocked(), nil
}

// Skip passes the turn without playing. The round opener cannot skip while
// the round is open. When play has gone all the way around and returns to
// the opener, the round closes: the claim clears and every played pile goes
// back into the shared deck.
func (r *Room) Skip(userID string) (*RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkTurn(userID); err != nil {
		return nil, err
	}
	if r.CurrentClaimRank == models.RankNone {
		return nil, ErrCannotSkip
	}

	if r.CurrentPlayerIndex == r.RoundBeginnerIndex {
		r.closeRoundLocked()
	} else {
		r.CurrentPlayerIndex = (r.CurrentPlayerIndex + 1) % len(r.Players)
	}
	r.autoSkipLocked()
	return r.snapshotLocked(), nil
}

// Challenge accuses the previous player of lying about their last play. The
// accused's played pile is revealed: any card off the claimed rank convicts
// them and they absorb every played pile; otherwise the challenger absorbs
// the pot instead and the turn rolls back to the accused. Either way the
// round reopens without a claim.
func (r *Room) Challenge(userID string) (*RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkTurn(userID); err != nil {
		return nil, err
	}
	if r.CurrentClaimRank == models.RankNone {
		return nil, ErrNothingToChallenge
	}

	n := len(r.Players)
	accused := r.Players[(r.CurrentPlayerIndex-1+n)%n]
	challenger := r.Players[r.CurrentPlayerIndex]

	lied := false
	for _, c := range accused.Played {
		if c.Rank != r.CurrentClaimRank {
			lied = true
			break
		}
	}

	if lied {
		for _, p := range r.Players {
			models.TransferAll(&p.Played, &accused.Hand)
		}
		r.RoundBeginnerIndex = r.CurrentPlayerIndex
	} else {
		for _, p := range r.Players {
			models.TransferAll(&p.Played, &challenger.Hand)
		}
		r.CurrentPlayerIndex = (r.CurrentPlayerIndex - 1 + n) % n
		r.RoundBeginnerIndex = r.CurrentPlayerIndex
	}
	r.CurrentClaimRank = models.RankNone

	r.autoSkipLocked()
	return r.snapshotLocked(), nil
}

// checkTurn validates the game phase and that it is userID's turn. Lock held.
func (r *Room) checkTurn(userID string) error {
	if !r.Started {
		return ErrGameNotStarted
	}
	if r.Ended {
		return ErrGameEnded
	}
	if r.Players[r.CurrentPlayerIndex].UserID != userID {
		return ErrNotPlayerTurn
	}
	return nil
}

// closeRoundLocked resets the claim and returns every played pile to the
// shared deck. Lock held.
func (r *Room) closeRoundLocked() {
	r.CurrentClaimRank = models.RankNone
	for _, p := range r.Players {
		models.TransferAll(&p.Played, &r.Deck)
	}
}

// autoSkipLocked advances play past inactive players so a disconnected
// player never stalls the room. The active flag is re-read on every step.
// While a claim is open an inactive player is skipped exactly as if they had
// sent skip themselves, including closing the round if they are its opener;
// between rounds both indices advance together so the next active player
// opens. Bounded in case every seat is inactive; the round closure step does
// not advance the index, hence the 2n bound.
func (r *Room) autoSkipLocked() {
	if r.Ended {
		return
	}
	n := len(r.Players)
	for steps := 0; steps < 2*n; steps++ {
		if r.Players[r.CurrentPlayerIndex].Active {
			return
		}
		if r.CurrentClaimRank != models.RankNone {
			if r.CurrentPlayerIndex == r.RoundBeginnerIndex {
				r.closeRoundLocked()
				continue
			}
			r.CurrentPlayerIndex = (r.CurrentPlayerIndex + 1) % n
			continue
		}
		// Round is open: whoever is next to act will also open the round.
		r.CurrentPlayerIndex = (r.CurrentPlayerIndex + 1) % n
		r.RoundBeginnerIndex = r.CurrentPlayerIndex
	}
}
