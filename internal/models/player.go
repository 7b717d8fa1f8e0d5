// internal/models/player.go
package models

// Player is a participant in a room. The registry owns the Player; the room's
// player list holds a reference to it. RoomID is the back-reference used by
// the registry's membership check and is empty while the player is roomless.
type Player struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
	Ready  bool   `json:"ready"`
	IsHost bool   `json:"isHost"`
	RoomID string `json:"roomId,omitempty"`

	Hand   []Card `json:"hand"`
	Played []Card `json:"played"`
}

// NewPlayer builds an active, not-ready, non-host player with a default
// display name derived from the user ID.
func NewPlayer(userID string) *Player {
	name := userID
	if len(name) > 5 {
		name = name[:5]
	}
	return &Player{
		UserID: userID,
		Name:   "Player_" + name,
		Active: true,
		Hand:   []Card{},
		Played: []Card{},
	}
}

// HasCard reports whether the player's hand contains the card.
func (p *Player) HasCard(card Card) bool {
	for _, c := range p.Hand {
		if c == card {
			return true
		}
	}
	return false
}

// AddCard appends a card to the player's hand.
func (p *Player) AddCard(card Card) {
	p.Hand = append(p.Hand, card)
}

// PlayCards moves the given cards from the hand to the played pile. Fails
// without mutation if any card is not held.
func (p *Player) PlayCards(cards []Card) error {
	return Transfer(&p.Hand, &p.Played, cards)
}

// ResetForNewGame clears the ready flag and empties both piles. Active and
// host status are untouched; restart handles departures separately.
func (p *Player) ResetForNewGame() {
	p.Ready = false
	p.Hand = p.Hand[:0]
	p.Played = p.Played[:0]
}
