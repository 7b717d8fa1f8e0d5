// internal/game/errors.go
package game

import "errors"

// Rule and lifecycle errors. Every violation is recovered locally: the room
// is left unchanged and the dispatcher maps the error to a typed reply for
// the offending client only.
var (
	ErrRoomFull           = errors.New("room is full")
	ErrGameAlreadyStarted = errors.New("game already started")
	ErrGameNotStarted     = errors.New("game not started")
	ErrGameEnded          = errors.New("game already finished")
	ErrNotAllReady        = errors.New("not all players are ready")
	ErrNotPlayerTurn      = errors.New("not this player's turn")
	ErrInvalidClaim       = errors.New("invalid claim")
	ErrCannotSkip         = errors.New("round opener cannot skip")
	ErrNothingToChallenge = errors.New("no claim to challenge")
	ErrPlayerNotInRoom    = errors.New("player not in room")
)
