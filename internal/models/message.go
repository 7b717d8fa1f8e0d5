// internal/models/message.go
package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// MsgType tags every envelope on the wire.
type MsgType string

// Request tags.
const (
	MsgCreateRoom     MsgType = "create_room"
	MsgJoinRoom       MsgType = "join_room"
	MsgLeaveRoom      MsgType = "leave_room"
	MsgChangeName     MsgType = "change_name"
	MsgGetRoomPlayers MsgType = "get_room_players"
	MsgPrepare        MsgType = "prepare"
	MsgStartGame      MsgType = "start_game"
	MsgPlayCards      MsgType = "play_cards"
	MsgSkip           MsgType = "skip"
	MsgChallenge      MsgType = "challenge"
	MsgRestart        MsgType = "restart"
)

// Response tags.
const (
	MsgWelcome   MsgType = "welcome"
	MsgRoomState MsgType = "room_state"
	MsgRoomLeft  MsgType = "room_left"
)

// Error tags.
const (
	MsgErrRoomNotFound       MsgType = "room_not_found"
	MsgErrPlayerNotFound     MsgType = "player_not_found"
	MsgErrRoomFull           MsgType = "room_full"
	MsgErrAlreadyInRoom      MsgType = "already_in_room"
	MsgErrGameAlreadyStarted MsgType = "game_already_started"
	MsgErrGameNotStarted     MsgType = "game_not_started"
	MsgErrGameFinished       MsgType = "game_finished"
	MsgErrNotHost            MsgType = "not_host"
	MsgErrNotPlayerTurn      MsgType = "not_player_turn"
	MsgErrInvalidClaim       MsgType = "invalid_claim"
	MsgErrUnsupported        MsgType = "unsupported"
	MsgErrInternal           MsgType = "internal_error"
	MsgError                 MsgType = "error"
)

// Message is the wire envelope. Data is left raw on the way in so each
// command handler can decode its own payload type.
type Message struct {
	MsgID string          `json:"msgId"`
	Type  MsgType         `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewMessage wraps a payload in an envelope with a fresh message ID. A
// payload that fails to marshal is a programming error; the envelope is sent
// with empty data rather than dropped.
func NewMessage(t MsgType, payload interface{}) *Message {
	m := &Message{MsgID: uuid.NewString(), Type: t}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			m.Data = data
		}
	}
	return m
}

// PlayClaim is the payload of a play_cards command: the cards physically
// placed on the table and the rank the player asserts they all are.
type PlayClaim struct {
	Cards     []Card `json:"cards"`
	ClaimRank Rank   `json:"claimRank"`
}

// JoinRoomPayload names the room to join.
type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
}

// ChangeNamePayload carries the new display name.
type ChangeNamePayload struct {
	NewName string `json:"newName"`
}

// PreparePayload toggles the ready flag.
type PreparePayload struct {
	IsReady bool `json:"isReady"`
}

// GetRoomPlayersPayload names the room to query.
type GetRoomPlayersPayload struct {
	RoomID string `json:"roomId"`
}

// ErrorPayload is the data of every error-tagged reply.
type ErrorPayload struct {
	Message string `json:"message"`
}
