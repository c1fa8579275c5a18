// persistence/memory.go
package persistence

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/wfunc/rajamantri/models"
)

// memRoom holds the committed snapshot of one room. mu serialises writers;
// readers load the committed pointer without locking.
type memRoom struct {
	mu        sync.Mutex
	committed atomic.Pointer[RoomSnapshot]
}

// MemoryStore 内存存储实现，每个房间一把锁
type MemoryStore struct {
	rooms   map[string]*memRoom
	players map[string]string // playerID -> roomID
	mutex   sync.RWMutex
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:   make(map[string]*memRoom),
		players: make(map[string]string),
	}
}

func (m *MemoryStore) CreateRoom(ctx context.Context, room models.Room, host models.Player) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.rooms[room.ID]; exists {
		return ErrDuplicateRoom
	}
	if _, exists := m.players[host.ID]; exists {
		return fmt.Errorf("player id %s already exists", host.ID)
	}

	host.RoomID = room.ID
	host.Seat = 0
	r := &memRoom{}
	r.committed.Store(&RoomSnapshot{Room: room, Players: []models.Player{host}})

	m.rooms[room.ID] = r
	m.players[host.ID] = room.ID
	return nil
}

func (m *MemoryStore) room(roomID string) (*memRoom, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	r, ok := m.rooms[roomID]
	return r, ok
}

func (m *MemoryStore) LoadRoom(ctx context.Context, roomID string) (*RoomSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, ok := m.room(roomID)
	if !ok {
		return nil, ErrRecordNotFound
	}
	return r.committed.Load().clone(), nil
}

func (m *MemoryStore) UpdateRoom(ctx context.Context, roomID string, fn func(s *RoomSnapshot) error) error {
	r, ok := m.room(roomID)
	if !ok {
		return ErrRecordNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := r.committed.Load().clone()
	if err := fn(work); err != nil {
		return err
	}

	added := work.Added()
	if len(added) > 0 {
		m.mutex.Lock()
		for _, p := range added {
			if _, exists := m.players[p.ID]; exists {
				m.mutex.Unlock()
				return fmt.Errorf("player id %s already exists", p.ID)
			}
		}
		for _, p := range added {
			m.players[p.ID] = roomID
		}
		m.mutex.Unlock()
	}

	work.added = 0
	r.committed.Store(work)
	return nil
}

func (m *MemoryStore) CountRooms(ctx context.Context) (map[models.RoomStatus]int, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	counts := make(map[models.RoomStatus]int, 3)
	for _, r := range m.rooms {
		counts[r.committed.Load().Room.Status]++
	}
	return counts, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
