// internal/game/deck.go
package game

import (
	"math/rand"

	"github.com/huex/liarbar/internal/models"
)

// DeckSize is the number of cards in a full deck, one per (suit, rank) pair.
const DeckSize = 52

// minOutCards is the smallest undealt remainder StartGame leaves in the deck.
// The remainder re-forms the shared pile each round, so it must never start
// too thin.
const minOutCards = 8

// BuildDeck returns the 52-card deck in suit-major order, unshuffled.
func BuildDeck() []models.Card {
	deck := make([]models.Card, 0, DeckSize)
	for s := models.Hearts; s <= models.Spades; s++ {
		for r := models.Ace; r <= models.King; r++ {
			deck = append(deck, models.Card{Suit: s, Rank: r})
		}
	}
	return deck
}

// ShuffleDeck permutes the deck uniformly in place.
func ShuffleDeck(deck []models.Card) {
	rand.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
}

// cardsPerPlayer computes how many cards each of n players is dealt: an even
// split, reduced until the undealt remainder reaches minOutCards. For 4
// players this yields 11 (44 dealt, 8 left over).
func cardsPerPlayer(n int) int {
	per := DeckSize / n
	for DeckSize-per*n < minOutCards {
		per--
	}
	return per
}
