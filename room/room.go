// room/room.go
package room

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/rajamantri/logger"
	"github.com/wfunc/rajamantri/models"
	"github.com/wfunc/rajamantri/persistence"
	"github.com/wfunc/rajamantri/state"
)

// MaxPlayers 每个房间固定四名玩家
const MaxPlayers = 4

const (
	codeLength   = 6
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no 0/O, 1/I
	codeAttempts = 8
	maxNameLen   = 32
)

// Manager 管理所有房间，房间和玩家都存放在 Store 中
type Manager struct {
	store       persistence.Store
	machine     state.StateMachine
	broadcaster Broadcaster
	recorder    Recorder
	newCode     func() (string, error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithBroadcaster publishes room_created and player_joined events to b.
func WithBroadcaster(b Broadcaster) Option {
	return func(m *Manager) { m.broadcaster = b }
}

// WithRecorder counts created rooms and joined players.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// withCodeGenerator replaces the room code generator in tests.
func withCodeGenerator(gen func() (string, error)) Option {
	return func(m *Manager) { m.newCode = gen }
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager(store persistence.Store, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		machine:  state.NewRoomStateMachine(MaxPlayers),
		recorder: nopRecorder{},
		newCode:  newRoomCode,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// newRoomCode returns a random code from codeAlphabet.
func newRoomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate room code: %w", err)
	}
	out := make([]byte, codeLength)
	for i := range out {
		out[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}
	return string(out), nil
}

// normalizeName trims the name and rejects empty or oversized ones.
func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", models.NewError(models.KindValidation, "Player name is required")
	}
	if len([]rune(name)) > maxNameLen {
		return "", models.NewError(models.KindValidation, "Player name must be at most %d characters", maxNameLen)
	}
	return name, nil
}

// notFound converts a storage miss into the caller-facing error.
func notFound(err error, roomID string) error {
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return models.NewError(models.KindNotFound, "Room %s not found", roomID)
	}
	return err
}

// CreateRoom 创建房间，创建者坐在 0 号位
func (m *Manager) CreateRoom(ctx context.Context, playerName string) (roomID, playerID string, err error) {
	name, err := normalizeName(playerName)
	if err != nil {
		return "", "", err
	}

	now := time.Now().UTC()
	host := models.Player{
		ID:       uuid.NewString(),
		Name:     name,
		JoinedAt: now,
	}

	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := m.newCode()
		if err != nil {
			return "", "", err
		}
		room := models.Room{
			ID:        code,
			Status:    models.StatusWaiting,
			CreatedAt: now,
			UpdatedAt: now,
		}
		err = m.store.CreateRoom(ctx, room, host)
		if errors.Is(err, persistence.ErrDuplicateRoom) {
			logger.Log.Debugw("room code collision", "code", code, "attempt", attempt)
			continue
		}
		if err != nil {
			return "", "", fmt.Errorf("create room: %w", err)
		}

		m.recorder.RoomCreated()
		m.recorder.PlayerJoined()
		m.publish(ctx, models.EventRoomCreated, room.ID, host.ID, map[string]interface{}{"name": name})
		logger.Log.Infow("room created", "room", room.ID, "player", host.ID)
		return room.ID, host.ID, nil
	}
	return "", "", fmt.Errorf("create room: no free room code after %d attempts", codeAttempts)
}

// JoinRoom 加入房间。容量检查和插入在同一个事务中完成
func (m *Manager) JoinRoom(ctx context.Context, roomID, playerName string) (string, error) {
	name, err := normalizeName(playerName)
	if err != nil {
		return "", err
	}

	var joined models.Player
	err = m.store.UpdateRoom(ctx, roomID, func(s *persistence.RoomSnapshot) error {
		if err := m.machine.Permit(s.Room.Status, state.OpJoin); err != nil {
			return err
		}
		if len(s.Players) >= MaxPlayers {
			return models.NewError(models.KindCapacity, "Room %s is full", roomID)
		}
		for _, p := range s.Players {
			if strings.EqualFold(p.Name, name) {
				return models.NewError(models.KindValidation, "Name %q is already taken in this room", name)
			}
		}
		joined = s.AddPlayer(models.Player{ID: uuid.NewString(), Name: name})
		return nil
	})
	if err != nil {
		return "", notFound(err, roomID)
	}

	m.recorder.PlayerJoined()
	m.publish(ctx, models.EventPlayerJoined, roomID, joined.ID, map[string]interface{}{
		"name": joined.Name,
		"seat": joined.Seat,
	})
	logger.Log.Infow("player joined", "room", roomID, "player", joined.ID, "seat", joined.Seat)
	return joined.ID, nil
}

// Machine returns the state machine rooms are driven by.
func (m *Manager) Machine() state.StateMachine {
	return m.machine
}

// Load returns the committed room and its players in seat order.
func (m *Manager) Load(ctx context.Context, roomID string) (*persistence.RoomSnapshot, error) {
	snap, err := m.store.LoadRoom(ctx, roomID)
	if err != nil {
		return nil, notFound(err, roomID)
	}
	return snap, nil
}

// Update runs fn inside the room's transaction.
func (m *Manager) Update(ctx context.Context, roomID string, fn func(s *persistence.RoomSnapshot) error) error {
	return notFound(m.store.UpdateRoom(ctx, roomID, fn), roomID)
}

// ListPlayers 按加入顺序返回玩家名字
func (m *Manager) ListPlayers(ctx context.Context, roomID string) ([]string, error) {
	snap, err := m.Load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return names(snap.Players), nil
}

// GetRoom returns the polling view of a room.
func (m *Manager) GetRoom(ctx context.Context, roomID string) (models.RoomView, error) {
	snap, err := m.Load(ctx, roomID)
	if err != nil {
		return models.RoomView{}, err
	}
	return models.RoomView{
		RoomID:        snap.Room.ID,
		Status:        snap.Room.Status,
		RolesAssigned: snap.Room.RolesAssigned,
		Players:       names(snap.Players),
	}, nil
}

// GetPlayer 获取单个玩家
func (m *Manager) GetPlayer(ctx context.Context, playerID, roomID string) (models.Player, error) {
	snap, err := m.Load(ctx, roomID)
	if err != nil {
		return models.Player{}, err
	}
	if i := snap.PlayerByID(playerID); i >= 0 {
		return snap.Players[i], nil
	}
	return models.Player{}, models.NewError(models.KindNotFound, "Player not found")
}

// GetPlayerByName looks a player up by name, ignoring case.
func (m *Manager) GetPlayerByName(ctx context.Context, roomID, name string) (models.Player, error) {
	snap, err := m.Load(ctx, roomID)
	if err != nil {
		return models.Player{}, err
	}
	if i := FindByName(snap.Players, name); i >= 0 {
		return snap.Players[i], nil
	}
	return models.Player{}, models.NewError(models.KindNotFound, "Player %q not found", name)
}

// FindByName returns the index of the player called name (case-insensitive), or -1.
func FindByName(players []models.Player, name string) int {
	name = strings.TrimSpace(name)
	for i, p := range players {
		if strings.EqualFold(p.Name, name) {
			return i
		}
	}
	return -1
}

// Publish forwards an event to the broadcaster. Failures are logged only.
func (m *Manager) Publish(ctx context.Context, event models.Event) {
	if m.broadcaster == nil {
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if err := m.broadcaster.Publish(ctx, event); err != nil {
		logger.Log.Warnw("publish event failed", "type", event.Type, "room", event.RoomID, "error", err)
	}
}

func (m *Manager) publish(ctx context.Context, typ, roomID, playerID string, payload map[string]interface{}) {
	m.Publish(ctx, models.Event{Type: typ, RoomID: roomID, PlayerID: playerID, Payload: payload})
}

// CountRooms returns the number of rooms per status.
func (m *Manager) CountRooms(ctx context.Context) (map[models.RoomStatus]int, error) {
	return m.store.CountRooms(ctx)
}

func names(players []models.Player) []string {
	out := make([]string, len(players))
	for i, p := range players {
		out[i] = p.Name
	}
	return out
}
