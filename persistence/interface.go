// persistence/interface.go
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/wfunc/rajamantri/models"
)

// Store 房间/玩家存储接口
type Store interface {
	// CreateRoom inserts the room and its first player together.
	CreateRoom(ctx context.Context, room models.Room, host models.Player) error
	// LoadRoom returns a committed copy of the room and its players in seat order.
	LoadRoom(ctx context.Context, roomID string) (*RoomSnapshot, error)
	// UpdateRoom runs fn with the room locked against every other UpdateRoom on the
	// same room, then writes the room, all player roles and scores, and any added
	// players in one transaction. Nothing is written if fn returns an error.
	UpdateRoom(ctx context.Context, roomID string, fn func(s *RoomSnapshot) error) error
	// CountRooms returns the number of rooms per status.
	CountRooms(ctx context.Context) (map[models.RoomStatus]int, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateRoom  = errors.New("room id already exists")
)

// RoomSnapshot is one room with its players, in seat order.
type RoomSnapshot struct {
	Room    models.Room
	Players []models.Player

	added int // trailing entries of Players that are not stored yet
}

// AddPlayer seats p after the existing players; the store inserts it on commit.
func (s *RoomSnapshot) AddPlayer(p models.Player) models.Player {
	p.RoomID = s.Room.ID
	p.Seat = len(s.Players)
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now()
	}
	s.Players = append(s.Players, p)
	s.added++
	return p
}

// Existing returns the players that were stored before this update.
func (s *RoomSnapshot) Existing() []models.Player {
	return s.Players[:len(s.Players)-s.added]
}

// Added returns the players seated during this update.
func (s *RoomSnapshot) Added() []models.Player {
	return s.Players[len(s.Players)-s.added:]
}

// PlayerByID returns the index of the player with id, or -1.
func (s *RoomSnapshot) PlayerByID(id string) int {
	for i, p := range s.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *RoomSnapshot) clone() *RoomSnapshot {
	players := make([]models.Player, len(s.Players))
	copy(players, s.Players)
	return &RoomSnapshot{Room: s.Room, Players: players}
}
