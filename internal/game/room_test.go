// internal/game/room_test.go
package game

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huex/liarbar/internal/models"
)

// waitingRoom seats n ready players u0..u(n-1) with u0 hosting.
func waitingRoom(t *testing.T, n int) *Room {
	t.Helper()
	r := NewRoom("room-1")
	for i := 0; i < n; i++ {
		p := models.NewPlayer(fmt.Sprintf("u%d", i))
		p.Ready = true
		p.IsHost = i == 0
		_, err := r.AddPlayer(p)
		require.NoError(t, err)
	}
	return r
}

// startedRoom builds an in-progress game with fixed hands so plays are
// deterministic. Seat order is hand order; u0 is current and round beginner.
func startedRoom(t *testing.T, hands ...[]models.Card) *Room {
	t.Helper()
	r := NewRoom("room-1")
	for i, h := range hands {
		p := models.NewPlayer(fmt.Sprintf("u%d", i))
		p.Hand = append([]models.Card{}, h...)
		p.IsHost = i == 0
		r.Players = append(r.Players, p)
	}
	r.Started = true
	return r
}

// totalCards counts every card in the room: deck, hands, and played piles.
func totalCards(r *Room) int {
	n := len(r.Deck)
	for _, p := range r.Players {
		n += len(p.Hand) + len(p.Played)
	}
	return n
}

func TestAddPlayerLimits(t *testing.T) {
	r := waitingRoom(t, MaxPlayers)
	_, err := r.AddPlayer(models.NewPlayer("late"))
	assert.ErrorIs(t, err, ErrRoomFull)

	r2 := waitingRoom(t, 2)
	_, err = r2.StartGame()
	require.NoError(t, err)
	_, err = r2.AddPlayer(models.NewPlayer("late"))
	assert.ErrorIs(t, err, ErrGameAlreadyStarted)
}

func TestRemovePlayerPromotesHost(t *testing.T) {
	r := waitingRoom(t, 3)
	removed, empty := r.RemovePlayer("u0")
	assert.True(t, removed)
	assert.False(t, empty)
	assert.True(t, r.Players[0].IsHost, "next seat inherits the host flag")

	removed, _ = r.RemovePlayer("nobody")
	assert.False(t, removed)

	r.RemovePlayer(r.Players[0].UserID)
	_, empty = r.RemovePlayer(r.Players[0].UserID)
	assert.True(t, empty)
	assert.True(t, r.IsEmpty())
}

func TestLeaveBeforeStartUnseats(t *testing.T) {
	r := waitingRoom(t, 3)
	snap, removed, empty := r.Leave("u1")
	assert.True(t, removed)
	assert.False(t, empty)
	assert.Len(t, snap.Players, 2)

	r.Leave("u0")
	_, _, empty = r.Leave("u2")
	assert.True(t, empty)
}

func TestLeaveMidGameDeactivates(t *testing.T) {
	r := waitingRoom(t, 3)
	_, err := r.StartGame()
	require.NoError(t, err)

	snap, removed, empty := r.Leave("u1")
	assert.False(t, removed, "a dealt seat is never unseated")
	assert.False(t, empty)
	require.Len(t, snap.Players, 3)
	for _, p := range snap.Players {
		if p.UserID == "u1" {
			assert.False(t, p.Active)
		}
	}
	assert.Equal(t, DeckSize, totalCards(r))
}

func TestLeaveAfterGameEndsUnseats(t *testing.T) {
	r := startedRoom(t,
		[]models.Card{{Suit: models.Hearts, Rank: models.King}},
		[]models.Card{{Suit: models.Spades, Rank: models.Ace}},
	)
	_, err := r.PlayCards("u0", models.PlayClaim{
		Cards:     []models.Card{{Suit: models.Hearts, Rank: models.King}},
		ClaimRank: models.King,
	})
	require.NoError(t, err)
	require.True(t, r.Ended)

	snap, removed, _ := r.Leave("u1")
	assert.True(t, removed, "finished games release seats outright")
	assert.Len(t, snap.Players, 1)
}

func TestLeaveRacingStartKeepsDealtSeats(t *testing.T) {
	// Leave decides between unseating and deactivating under the same lock
	// the deal commits under, so whichever order the two land in, no dealt
	// hand ever drops out of the room.
	for i := 0; i < 200; i++ {
		r := waitingRoom(t, 2)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = r.StartGame()
		}()
		go func() {
			defer wg.Done()
			r.Leave("u1")
		}()
		wg.Wait()

		require.True(t, r.Started)
		require.Equal(t, DeckSize, totalCards(r), "iteration %d", i)
		for _, p := range r.Players {
			require.NotEmpty(t, p.Hand, "iteration %d: seated player missing their deal", i)
		}
	}
}

func TestStartGameRequiresReadyPlayers(t *testing.T) {
	r := NewRoom("room-1")
	_, err := r.StartGame()
	assert.ErrorIs(t, err, ErrPlayerNotInRoom)

	r = waitingRoom(t, 3)
	r.Players[1].Ready = false
	_, err = r.StartGame()
	assert.ErrorIs(t, err, ErrNotAllReady)
	assert.False(t, r.Started)
}

func TestStartGameDeal(t *testing.T) {
	r := waitingRoom(t, 4)
	snap, err := r.StartGame()
	require.NoError(t, err)

	assert.True(t, snap.Started)
	assert.False(t, snap.Ended)
	assert.Equal(t, 0, snap.CurrentPlayerIndex)
	assert.Equal(t, 0, snap.RoundBeginnerIndex)
	assert.Equal(t, models.RankNone, snap.CurrentClaimRank)

	// 4 players: 11 each, first seat two extra, 6 left in the deck.
	assert.Len(t, snap.Players[0].Hand, 13)
	for i := 1; i < 4; i++ {
		assert.Len(t, snap.Players[i].Hand, 11)
	}
	assert.Len(t, snap.Deck, 6)
	assert.Equal(t, DeckSize, totalCards(r))

	_, err = r.StartGame()
	assert.ErrorIs(t, err, ErrGameAlreadyStarted)
}

func TestCheckTurn(t *testing.T) {
	r := waitingRoom(t, 2)
	_, err := r.Skip("u0")
	assert.ErrorIs(t, err, ErrGameNotStarted)

	r = startedRoom(t,
		[]models.Card{{Suit: models.Hearts, Rank: models.King}},
		[]models.Card{{Suit: models.Spades, Rank: models.Ace}},
	)
	before := *r.Snapshot()

	_, err = r.PlayCards("u1", models.PlayClaim{
		Cards:     []models.Card{{Suit: models.Spades, Rank: models.Ace}},
		ClaimRank: models.Ace,
	})
	assert.ErrorIs(t, err, ErrNotPlayerTurn)
	_, err = r.Skip("u1")
	assert.ErrorIs(t, err, ErrNotPlayerTurn)
	_, err = r.Challenge("u1")
	assert.ErrorIs(t, err, ErrNotPlayerTurn)

	assert.Equal(t, before, *r.Snapshot(), "rejected commands leave the room untouched")
}

func TestPlayCardsEstablishesClaim(t *testing.T) {
	r := startedRoom(t,
		[]models.Card{{Suit: models.Hearts, Rank: models.King}, {Suit: models.Clubs, Rank: models.Two}},
		[]models.Card{{Suit: models.Spades, Rank: models.Ace}, {Suit: models.Diamonds, Rank: models.Two}},
	)

	_, err := r.PlayCards("u0", models.PlayClaim{
		Cards: []models.Card{{Suit: models.Hearts, Rank: models.King}},
	})
	assert.ErrorIs(t, err, ErrInvalidClaim, "claim rank is mandatory")

	snap, err := r.PlayCards("u0", models.PlayClaim{
		Cards:     []models.Card{{Suit: models.Hearts, Rank: models.King}},
		ClaimRank: models.King,
	})
	require.NoError(t, err)
	assert.Equal(t, models.King, snap.CurrentClaimRank)
	assert.Equal(t, 0, snap.RoundBeginnerIndex)
	assert.Equal(t, 1, snap.CurrentPlayerIndex)
	assert.Len(t, snap.Players[0].Played, 1)

	// Later plays must repeat the established rank.
	_, err = r.PlayCards("u1", models.PlayClaim{
		Cards:     []models.Card{{Suit: models.Spades, Rank: models.Ace}},
		ClaimRank: models.Ace,
	})
	assert.ErrorIs(t, err, ErrInvalidClaim)

	snap, err = r.PlayCards("u1", models.PlayClaim{
		Cards:     []models.Card{{Suit: models.Spades, Rank: models.Ace}},
		ClaimRank: models.King,
	})
	require.NoError(t, err)
	assert.Equal(t, models.King, snap.CurrentClaimRank)
	assert.Equal(t, 4, totalCards(r))
}

func TestPlayCardsRejectsUnheldCards(t *testing.T) {
	r := startedRoom(t,
		[]models.Card{{Suit: models.Hearts, Rank: models.King}},
		[]models.Card{{Suit: models.Spades, Rank: models.Ace}},
	)
	before := *r.Snapshot()

	_, err := r.PlayCards("u0", models.PlayClaim{
		Cards:     []models.Card{{Suit: models.Clubs, Rank: models.Two}},
		ClaimRank: models.Two,
	})
	assert.ErrorIs(t, err, ErrInvalidClaim)
	assert.Equal(t, before, *r.Snapshot(), "failed play records no claim")
}

func TestSkipAndRoundClosure(t *testing.T) {
	r := startedRoom(t,
		[]models.Card{{Suit: models.Hearts, Rank: models.King}, {Suit: models.Clubs, Rank: models.Two}},
		[]models.Card{{Suit: models.Spades, Rank: models.Ace}},
		[]models.Card{{Suit: models.Diamonds, Rank: models.Five}},
	)

	_, err := r.Skip("u0")
	assert.ErrorIs(t, err, ErrCannotSkip, "a round must be opened with a play")

	_, err = r.PlayCards("u0", models.PlayClaim{
		Cards:     []models.Card{{Suit: models.Hearts, Rank: models.King}},
		ClaimRank: models.King,
	})
	require.NoError(t, err)

	snap, err := r.Skip("u1")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.CurrentPlayerIndex)
	snap, err = r.Skip("u2")
	require.NoError(t, err)
	assert.Equal(t, 0, snap.CurrentPlayerIndex)

	// Back at the opener: the round closes, played cards return to the deck.
	snap, err = r.Skip("u0")
	require.NoError(t, err)
	assert.Equal(t, models.RankNone, snap.CurrentClaimRank)
	assert.Empty(t, snap.Players[0].Played)
	assert.Len(t, snap.Deck, 1)
	assert.Equal(t, 0, snap.CurrentPlayerIndex, "opener opens the next round")
	assert.Equal(t, 4, totalCards(r))
}

func TestChallengeConvictsLiar(t *testing.T) {
	r := startedRoom(t,
		[]models.Card{{Suit: models.Hearts, Rank: models.Ace}, {Suit: models.Clubs, Rank: models.Two}},
		[]models.Card{{Suit: models.Spades, Rank: models.King}},
	)

	_, err := r.Challenge("u0")
	assert.ErrorIs(t, err, ErrNothingToChallenge)

	_, err = r.PlayCards("u0", models.PlayClaim{
		Cards:     []models.Card{{Suit: models.Hearts, Rank: models.Ace}},
		ClaimRank: models.King,
	})
	require.NoError(t, err)

	snap, err := r.Challenge("u1")
	require.NoError(t, err)

	// The ace does not match the King claim: u0 lied and absorbs the pot.
	assert.Len(t, snap.Players[0].Hand, 2)
	assert.Empty(t, snap.Players[0].Played)
	assert.Equal(t, models.RankNone, snap.CurrentClaimRank)
	assert.Equal(t, 1, snap.CurrentPlayerIndex, "challenger keeps the turn")
	assert.Equal(t, 1, snap.RoundBeginnerIndex)
	assert.Equal(t, 3, totalCards(r))
}

func TestChallengePunishesFalseAccusation(t *testing.T) {
	r := startedRoom(t,
		[]models.Card{{Suit: models.Hearts, Rank: models.King}, {Suit: models.Clubs, Rank: models.Two}},
		[]models.Card{{Suit: models.Spades, Rank: models.Ace}},
	)

	_, err := r.PlayCards("u0", models.PlayClaim{
		Cards:     []models.Card{{Suit: models.Hearts, Rank: models.King}},
		ClaimRank: models.King,
	})
	require.NoError(t, err)

	snap, err := r.Challenge("u1")
	require.NoError(t, err)

	// The claim was honest: the challenger absorbs the pot and the turn
	// rolls back to the accused, who opens the next round.
	assert.Len(t, snap.Players[1].Hand, 2)
	assert.Len(t, snap.Players[0].Hand, 1)
	assert.Empty(t, snap.Players[0].Played)
	assert.Equal(t, models.RankNone, snap.CurrentClaimRank)
	assert.Equal(t, 0, snap.CurrentPlayerIndex)
	assert.Equal(t, 0, snap.RoundBeginnerIndex)
	assert.Equal(t, 3, totalCards(r))
}

func TestEmptyHandWinsImmediately(t *testing.T) {
	r := startedRoom(t,
		[]models.Card{{Suit: models.Hearts, Rank: models.King}},
		[]models.Card{{Suit: models.Spades, Rank: models.Ace}},
	)

	snap, err := r.PlayCards("u0", models.PlayClaim{
		Cards:     []models.Card{{Suit: models.Hearts, Rank: models.King}},
		ClaimRank: models.King,
	})
	require.NoError(t, err)
	assert.True(t, snap.Ended)
	assert.Equal(t, "u0", snap.WinnerID)

	// The finished game accepts no further commands.
	_, err = r.Skip("u1")
	assert.ErrorIs(t, err, ErrGameEnded)
	_, err = r.Challenge("u1")
	assert.ErrorIs(t, err, ErrGameEnded)
}

func TestAutoSkipInactivePlayer(t *testing.T) {
	r := startedRoom(t,
		[]models.Card{{Suit: models.Hearts, Rank: models.King}, {Suit: models.Clubs, Rank: models.Two}},
		[]models.Card{{Suit: models.Spades, Rank: models.Ace}},
		[]models.Card{{Suit: models.Diamonds, Rank: models.Five}},
	)
	r.Players[1].Active = false

	snap, err := r.PlayCards("u0", models.PlayClaim{
		Cards:     []models.Card{{Suit: models.Hearts, Rank: models.King}},
		ClaimRank: models.King,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, snap.CurrentPlayerIndex, "play skips past the disconnected seat")
}

func TestAutoSkipClosesRoundForInactiveOpener(t *testing.T) {
	r := startedRoom(t,
		[]models.Card{{Suit: models.Hearts, Rank: models.King}, {Suit: models.Clubs, Rank: models.Two}},
		[]models.Card{{Suit: models.Spades, Rank: models.Ace}},
		[]models.Card{{Suit: models.Diamonds, Rank: models.Five}},
	)

	_, err := r.PlayCards("u0", models.PlayClaim{
		Cards:     []models.Card{{Suit: models.Hearts, Rank: models.King}},
		ClaimRank: models.King,
	})
	require.NoError(t, err)
	r.MarkInactive("u0")

	_, err = r.Skip("u1")
	require.NoError(t, err)
	snap, err := r.Skip("u2")
	require.NoError(t, err)

	// Play returned to the departed opener: the round closes on their
	// behalf and the next active seat opens.
	assert.Equal(t, models.RankNone, snap.CurrentClaimRank)
	assert.Empty(t, snap.Players[0].Played)
	assert.Len(t, snap.Deck, 1)
	assert.Equal(t, 1, snap.CurrentPlayerIndex)
	assert.Equal(t, 1, snap.RoundBeginnerIndex)
	assert.Equal(t, 4, totalCards(r))
}

func TestMarkInactiveCurrentPlayerBetweenRounds(t *testing.T) {
	r := startedRoom(t,
		[]models.Card{{Suit: models.Hearts, Rank: models.King}},
		[]models.Card{{Suit: models.Spades, Rank: models.Ace}},
		[]models.Card{{Suit: models.Diamonds, Rank: models.Five}},
	)

	r.MarkInactive("u0")
	snap := r.Snapshot()
	assert.Equal(t, 1, snap.CurrentPlayerIndex)
	assert.Equal(t, 1, snap.RoundBeginnerIndex, "the next active seat opens the round")
}

func TestMarkInactiveEveryoneTerminates(t *testing.T) {
	r := startedRoom(t,
		[]models.Card{{Suit: models.Hearts, Rank: models.King}},
		[]models.Card{{Suit: models.Spades, Rank: models.Ace}},
	)
	// Must not spin when no active seat remains.
	r.MarkInactive("u0")
	r.MarkInactive("u1")
	assert.Equal(t, 0, r.ActiveCount())
}

func TestRestartGameDropsInactive(t *testing.T) {
	r := waitingRoom(t, 3)
	_, err := r.StartGame()
	require.NoError(t, err)
	r.MarkInactive("u1")

	snap, dropped := r.RestartGame()
	assert.Equal(t, []string{"u1"}, dropped)
	assert.False(t, snap.Started)
	assert.Equal(t, models.RankNone, snap.CurrentClaimRank)
	assert.Empty(t, snap.WinnerID)
	require.Len(t, snap.Players, 2)
	for _, p := range snap.Players {
		assert.False(t, p.Ready)
		assert.Empty(t, p.Hand)
		assert.Empty(t, p.Played)
	}

	// The second restart in a row has nothing left to drop.
	snap, dropped = r.RestartGame()
	assert.Empty(t, dropped)
	assert.Len(t, snap.Players, 2)
}

func TestRestartGamePromotesHostWhenHostDropped(t *testing.T) {
	r := waitingRoom(t, 3)
	_, err := r.StartGame()
	require.NoError(t, err)

	var hostID string
	for _, p := range r.Players {
		if p.IsHost {
			hostID = p.UserID
		}
	}
	r.MarkInactive(hostID)

	snap, dropped := r.RestartGame()
	assert.Equal(t, []string{hostID}, dropped)
	require.NotEmpty(t, snap.Players)
	assert.True(t, snap.Players[0].IsHost)
}

func TestCardConservationThroughFullGame(t *testing.T) {
	r := waitingRoom(t, 4)
	_, err := r.StartGame()
	require.NoError(t, err)
	require.Equal(t, DeckSize, totalCards(r))

	// Drive a few rounds with whatever cards the shuffle dealt: the current
	// player always plays their first card claiming its true rank, the next
	// player challenges. Card totals must hold at every step.
	for i := 0; i < 20 && !r.Ended; i++ {
		cur := r.Players[r.CurrentPlayerIndex]
		card := cur.Hand[0]
		_, err := r.PlayCards(cur.UserID, models.PlayClaim{
			Cards:     []models.Card{card},
			ClaimRank: card.Rank,
		})
		require.NoError(t, err)
		require.Equal(t, DeckSize, totalCards(r))
		if r.Ended {
			break
		}

		challenger := r.Players[r.CurrentPlayerIndex]
		_, err = r.Challenge(challenger.UserID)
		require.NoError(t, err)
		require.Equal(t, DeckSize, totalCards(r))
	}

	// Honest plays get absorbed by the challenger every round, so the first
	// seat steadily empties its hand and must eventually win.
	assert.True(t, r.Ended)
	require.NotNil(t, r.Winner)
	assert.Empty(t, r.Winner.Hand)
}
