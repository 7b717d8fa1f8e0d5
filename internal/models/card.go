// internal/models/card.go
package models

import (
	"errors"
	"fmt"
)

// Suit enumerates the four card suits. Serialized as a JSON number to stay
// compatible with the numeric enum encoding clients already speak.
type Suit int

const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
)

// Rank enumerates card ranks. RankNone is the zero value and doubles as the
// "no active claim" marker on a room.
type Rank int

const (
	RankNone Rank = iota
	Ace
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

var suitNames = [...]string{"Hearts", "Diamonds", "Clubs", "Spades"}
var rankNames = [...]string{"null", "A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

func (s Suit) String() string {
	if s < Hearts || s > Spades {
		return fmt.Sprintf("Suit(%d)", int(s))
	}
	return suitNames[s]
}

func (r Rank) String() string {
	if r < RankNone || r > King {
		return fmt.Sprintf("Rank(%d)", int(r))
	}
	return rankNames[r]
}

// Card is identified purely by suit and rank; two cards with the same pair
// are indistinguishable.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

func (c Card) String() string {
	return c.Suit.String() + "_" + c.Rank.String()
}

var (
	// ErrNoCards is returned by Transfer when asked to move an empty set.
	ErrNoCards = errors.New("no cards to move")
	// ErrCardNotHeld is returned by Transfer when the source list does not
	// contain every requested card.
	ErrCardNotHeld = errors.New("card not present in source list")
)

// Transfer moves the given cards from one list to another. It validates
// multiset containment before touching either list: if any requested card is
// missing from *from (counting duplicates), neither list changes. On success
// exactly the requested cards are removed from *from, one occurrence per
// request, and appended to *to.
//
// Transfer is not safe for concurrent use; callers serialize per room.
func Transfer(from, to *[]Card, cards []Card) error {
	if len(cards) == 0 {
		return ErrNoCards
	}

	want := make(map[Card]int, len(cards))
	for _, c := range cards {
		want[c]++
	}
	have := make(map[Card]int, len(*from))
	for _, c := range *from {
		have[c]++
	}
	for c, n := range want {
		if have[c] < n {
			return fmt.Errorf("%w: %s", ErrCardNotHeld, c)
		}
	}

	remaining := make([]Card, 0, len(*from)-len(cards))
	for _, c := range *from {
		if want[c] > 0 {
			want[c]--
			continue
		}
		remaining = append(remaining, c)
	}
	*from = remaining
	*to = append(*to, cards...)
	return nil
}

// TransferAll empties *from into *to.
func TransferAll(from, to *[]Card) {
	*to = append(*to, *from...)
	*from = (*from)[:0]
}
