// models/models.go
package models

import (
	"time"
)

// Role 玩家身份
type Role string

const (
	RoleUnset  Role = ""
	RoleRaja   Role = "Raja"
	RoleMantri Role = "Mantri"
	RoleSipahi Role = "Sipahi"
	RoleChor   Role = "Chor"
)

// AllRoles is the fixed deck, in table order.
var AllRoles = [4]Role{RoleRaja, RoleMantri, RoleSipahi, RoleChor}

// Valid reports whether r is one of the four dealt roles.
func (r Role) Valid() bool {
	switch r {
	case RoleRaja, RoleMantri, RoleSipahi, RoleChor:
		return true
	}
	return false
}

// RoomStatus 房间状态
type RoomStatus string

const (
	StatusWaiting   RoomStatus = "WAITING"
	StatusPlaying   RoomStatus = "PLAYING"
	StatusCompleted RoomStatus = "COMPLETED"
)

// Rank orders statuses along the lifecycle. Unknown statuses rank -1.
func (s RoomStatus) Rank() int {
	switch s {
	case StatusWaiting:
		return 0
	case StatusPlaying:
		return 1
	case StatusCompleted:
		return 2
	}
	return -1
}

// Next returns the only status reachable from s, or "" for the terminal state.
func (s RoomStatus) Next() RoomStatus {
	switch s {
	case StatusWaiting:
		return StatusPlaying
	case StatusPlaying:
		return StatusCompleted
	}
	return ""
}

// Room 房间
type Room struct {
	ID            string     `json:"room_id"`
	Status        RoomStatus `json:"status"`
	RolesAssigned bool       `json:"roles_assigned"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Player 玩家. Seat is the join order inside the room and is never reused.
type Player struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"room_id"`
	Seat     int       `json:"seat"`
	Name     string    `json:"name"`
	Role     Role      `json:"role,omitempty"`
	Score    int       `json:"score"`
	JoinedAt time.Time `json:"joined_at"`
}

// RoomView is what polling clients see of a room.
type RoomView struct {
	RoomID        string     `json:"roomId"`
	Status        RoomStatus `json:"status"`
	RolesAssigned bool       `json:"rolesAssigned"`
	Players       []string   `json:"players"`
}

// RoleView is a player's own secret role.
type RoleView struct {
	Role        Role   `json:"role"`
	Instruction string `json:"instruction"`
}

// GuessOutcome is returned to the Mantri after a guess resolves the round.
type GuessOutcome struct {
	Message     string `json:"message"`
	SuspectRole Role   `json:"suspectRole"`
	Correct     bool   `json:"correct"`
}

// Standing is one row of the final results.
type Standing struct {
	Name  string `json:"name"`
	Role  Role   `json:"role"`
	Score int    `json:"score"`
}

// Event types published to the event sink.
const (
	EventRoomCreated   = "room_created"
	EventPlayerJoined  = "player_joined"
	EventRolesAssigned = "roles_assigned"
	EventGameResolved  = "game_resolved"
)

// Event 房间事件记录
type Event struct {
	Type      string                 `json:"type"`
	RoomID    string                 `json:"room_id"`
	PlayerID  string                 `json:"player_id,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}
