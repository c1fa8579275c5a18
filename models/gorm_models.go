// models/gorm_models.go
package models

import (
	"time"
)

// GormRoom 房间表
type GormRoom struct {
	RoomID        string `gorm:"primaryKey;size:16"`
	Status        string `gorm:"size:16;not null;index"`
	RolesAssigned bool   `gorm:"not null;default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Players []GormPlayer `gorm:"foreignKey:RoomID;references:RoomID;constraint:OnDelete:CASCADE"`
}

func (GormRoom) TableName() string { return "rooms" }

// GormPlayer 玩家表. (room_id, seat) is unique so two writers can never take the same seat.
type GormPlayer struct {
	ID       string `gorm:"primaryKey;size:36"`
	RoomID   string `gorm:"size:16;not null;uniqueIndex:idx_players_room_seat,priority:1"`
	Seat     int    `gorm:"not null;uniqueIndex:idx_players_room_seat,priority:2"`
	Name     string `gorm:"size:64;not null"`
	Role     string `gorm:"size:16;not null;default:''"`
	Score    int    `gorm:"not null;default:0"`
	JoinedAt time.Time
}

func (GormPlayer) TableName() string { return "players" }

// ToRoom converts the row into the domain type.
func (r GormRoom) ToRoom() Room {
	return Room{
		ID:            r.RoomID,
		Status:        RoomStatus(r.Status),
		RolesAssigned: r.RolesAssigned,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// ToPlayer converts the row into the domain type.
func (p GormPlayer) ToPlayer() Player {
	return Player{
		ID:       p.ID,
		RoomID:   p.RoomID,
		Seat:     p.Seat,
		Name:     p.Name,
		Role:     Role(p.Role),
		Score:    p.Score,
		JoinedAt: p.JoinedAt,
	}
}

// NewGormPlayer converts a domain player into a row.
func NewGormPlayer(p Player) GormPlayer {
	return GormPlayer{
		ID:       p.ID,
		RoomID:   p.RoomID,
		Seat:     p.Seat,
		Name:     p.Name,
		Role:     string(p.Role),
		Score:    p.Score,
		JoinedAt: p.JoinedAt,
	}
}
