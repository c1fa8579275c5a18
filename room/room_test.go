package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/rajamantri/models"
	"github.com/wfunc/rajamantri/persistence"
)

// MockBroadcaster is a test double for the Broadcaster interface.
type MockBroadcaster struct {
	mu     sync.Mutex
	events []models.Event
	err    error
}

func (m *MockBroadcaster) Publish(ctx context.Context, event models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.err
}

func (m *MockBroadcaster) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}

type countingRecorder struct {
	rooms, players atomic.Int32
}

func (c *countingRecorder) RoomCreated()  { c.rooms.Add(1) }
func (c *countingRecorder) PlayerJoined() { c.players.Add(1) }

func newTestManager(opts ...Option) *Manager {
	return NewRoomManager(persistence.NewMemoryStore(), opts...)
}

func TestRoomManager_CreateAndGetRoom(t *testing.T) {
	ctx := context.Background()
	b := &MockBroadcaster{}
	rec := &countingRecorder{}
	manager := newTestManager(WithBroadcaster(b), WithRecorder(rec))

	roomID, playerID, err := manager.CreateRoom(ctx, "  Alice ")
	require.NoError(t, err)
	assert.Len(t, roomID, codeLength)
	assert.NotEmpty(t, playerID)

	view, err := manager.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomView{
		RoomID:        roomID,
		Status:        models.StatusWaiting,
		RolesAssigned: false,
		Players:       []string{"Alice"},
	}, view)

	player, err := manager.GetPlayer(ctx, playerID, roomID)
	require.NoError(t, err)
	assert.Equal(t, 0, player.Seat)
	assert.Zero(t, player.Score)
	assert.Equal(t, models.RoleUnset, player.Role)

	assert.Equal(t, []string{models.EventRoomCreated}, b.types())
	assert.EqualValues(t, 1, rec.rooms.Load())
	assert.EqualValues(t, 1, rec.players.Load())
}

func TestRoomManager_CreateRoomValidation(t *testing.T) {
	manager := newTestManager()
	_, _, err := manager.CreateRoom(context.Background(), "   ")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestRoomManager_CreateRoomRetriesCollision(t *testing.T) {
	ctx := context.Background()
	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	var i int
	manager := newTestManager(withCodeGenerator(func() (string, error) {
		c := codes[i]
		i++
		return c, nil
	}))

	first, _, err := manager.CreateRoom(ctx, "Alice")
	require.NoError(t, err)
	second, _, err := manager.CreateRoom(ctx, "Bob")
	require.NoError(t, err)

	assert.Equal(t, "AAAAAA", first)
	assert.Equal(t, "BBBBBB", second)
}

func TestRoomManager_JoinRoom(t *testing.T) {
	ctx := context.Background()
	b := &MockBroadcaster{err: errors.New("redis down")}
	manager := newTestManager(WithBroadcaster(b))

	roomID, _, err := manager.CreateRoom(ctx, "Alice")
	require.NoError(t, err)

	for _, name := range []string{"Bob", "Carol", "Dave"} {
		_, err := manager.JoinRoom(ctx, roomID, name)
		require.NoError(t, err, "publish failures must not fail the join")
	}

	players, err := manager.ListPlayers(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob", "Carol", "Dave"}, players)

	_, err = manager.JoinRoom(ctx, roomID, "Eve")
	assert.ErrorIs(t, err, models.ErrCapacity)

	players, err = manager.ListPlayers(ctx, roomID)
	require.NoError(t, err)
	assert.Len(t, players, MaxPlayers)

	dave, err := manager.GetPlayerByName(ctx, roomID, "dave")
	require.NoError(t, err)
	assert.Equal(t, 3, dave.Seat)

	assert.Equal(t, []string{
		models.EventRoomCreated,
		models.EventPlayerJoined,
		models.EventPlayerJoined,
		models.EventPlayerJoined,
	}, b.types())
}

func TestRoomManager_JoinRoomErrors(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager()
	roomID, _, err := manager.CreateRoom(ctx, "Alice")
	require.NoError(t, err)

	_, err = manager.JoinRoom(ctx, "NOPE00", "Bob")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = manager.JoinRoom(ctx, roomID, "")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = manager.JoinRoom(ctx, roomID, "ALICE")
	assert.ErrorIs(t, err, models.ErrValidation)

	require.NoError(t, manager.Update(ctx, roomID, func(s *persistence.RoomSnapshot) error {
		s.Room.Status = models.StatusPlaying
		return nil
	}))
	_, err = manager.JoinRoom(ctx, roomID, "Bob")
	assert.ErrorIs(t, err, models.ErrCapacity)
}

func TestRoomManager_ReadErrors(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager()
	roomID, _, err := manager.CreateRoom(ctx, "Alice")
	require.NoError(t, err)

	_, err = manager.ListPlayers(ctx, "NOPE00")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = manager.GetRoom(ctx, "NOPE00")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = manager.GetPlayer(ctx, "ghost", roomID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = manager.GetPlayerByName(ctx, roomID, "Zed")
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = manager.Update(ctx, "NOPE00", func(*persistence.RoomSnapshot) error { return nil })
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRoomManager_ConcurrentJoinsRaceForLastSlot(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager()
	roomID, _, err := manager.CreateRoom(ctx, "Alice")
	require.NoError(t, err)
	for _, name := range []string{"Bob", "Carol"} {
		_, err := manager.JoinRoom(ctx, roomID, name)
		require.NoError(t, err)
	}

	const contenders = 10
	var (
		wg       sync.WaitGroup
		joined   atomic.Int32
		rejected atomic.Int32
	)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := manager.JoinRoom(ctx, roomID, fmt.Sprintf("late-%d", i))
			switch {
			case err == nil:
				joined.Add(1)
			case errors.Is(err, models.ErrCapacity):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, joined.Load())
	assert.EqualValues(t, contenders-1, rejected.Load())

	players, err := manager.ListPlayers(ctx, roomID)
	require.NoError(t, err)
	assert.Len(t, players, MaxPlayers)
}

func TestFindByName(t *testing.T) {
	players := []models.Player{{Name: "Alice"}, {Name: "Bob"}}
	assert.Equal(t, 1, FindByName(players, " bob "))
	assert.Equal(t, -1, FindByName(players, "Carol"))
}

func TestNewRoomCode(t *testing.T) {
	code, err := newRoomCode()
	require.NoError(t, err)
	require.Len(t, code, codeLength)
	for _, c := range code {
		assert.Contains(t, codeAlphabet, string(c))
	}
}
