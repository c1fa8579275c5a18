package network

import "github.com/wfunc/rajamantri/models"

// 消息ID. A response carries the request's id, or MsgTypeError.
const (
	MsgTypeHeartbeat   = 1
	MsgTypeError       = 2
	MsgTypeCreateRoom  = 101
	MsgTypeJoinRoom    = 102
	MsgTypeListPlayers = 103
	MsgTypeRoomState   = 104
	MsgTypeAssignRoles = 201
	MsgTypeGetRole     = 202
	MsgTypeGuess       = 203
	MsgTypeResults     = 301
)

// Request bodies, JSON encoded.

type CreateRoomRequest struct {
	PlayerName string `json:"playerName"`
}

type JoinRoomRequest struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

// RoomRequest addresses a room. Empty fields fall back to the session's room.
type RoomRequest struct {
	RoomID string `json:"roomId,omitempty"`
}

type GetRoleRequest struct {
	RoomID   string `json:"roomId,omitempty"`
	PlayerID string `json:"playerId,omitempty"`
}

type GuessRequest struct {
	RoomID      string `json:"roomId,omitempty"`
	GuesserID   string `json:"guesserId,omitempty"`
	SuspectName string `json:"suspectName"`
}

// Response bodies.

type CreateRoomResponse struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

type JoinRoomResponse struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

type PlayersResponse struct {
	Players []string `json:"players"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of MsgTypeError packets and of HTTP error replies.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	MsgID   uint16 `json:"msgId,omitempty"`
}

type ResultsResponse struct {
	Results []models.Standing `json:"results"`
}
