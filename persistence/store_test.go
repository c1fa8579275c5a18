package persistence

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/rajamantri/models"
)

// stores returns every Store under test. Postgres-backed stores need
// RMCS_TEST_POSTGRES_DSN pointing at a scratch database.
func stores(t *testing.T) map[string]Store {
	out := map[string]Store{"memory": NewMemoryStore()}

	dsn := os.Getenv("RMCS_TEST_POSTGRES_DSN")
	if dsn == "" {
		return out
	}
	g, err := NewGormPostgreSQLFromDSN(dsn)
	require.NoError(t, err)
	p, err := NewPostgreSQLFromDSN(dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		g.Close()
		p.Close()
	})
	out["gorm"] = g
	out["postgres"] = p
	return out
}

func newRoom(t *testing.T, ctx context.Context, s Store) (models.Room, models.Player) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	room := models.Room{
		ID:        uuid.NewString()[:8],
		Status:    models.StatusWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	host := models.Player{ID: uuid.NewString(), Name: "Alice", JoinedAt: now}
	require.NoError(t, s.CreateRoom(ctx, room, host))
	return room, host
}

func TestStore_CreateAndLoad(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			room, host := newRoom(t, ctx, s)

			snap, err := s.LoadRoom(ctx, room.ID)
			require.NoError(t, err)
			assert.Equal(t, room.ID, snap.Room.ID)
			assert.Equal(t, models.StatusWaiting, snap.Room.Status)
			assert.False(t, snap.Room.RolesAssigned)
			require.Len(t, snap.Players, 1)
			assert.Equal(t, host.ID, snap.Players[0].ID)
			assert.Equal(t, room.ID, snap.Players[0].RoomID)
			assert.Equal(t, 0, snap.Players[0].Seat)
			assert.Zero(t, snap.Players[0].Score)

			err = s.CreateRoom(ctx, room, models.Player{ID: uuid.NewString(), Name: "Bob"})
			assert.ErrorIs(t, err, ErrDuplicateRoom)

			_, err = s.LoadRoom(ctx, "missing")
			assert.ErrorIs(t, err, ErrRecordNotFound)
		})
	}
}

func TestStore_UpdateCommitsAndRollsBack(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			room, _ := newRoom(t, ctx, s)

			boom := errors.New("boom")
			err := s.UpdateRoom(ctx, room.ID, func(snap *RoomSnapshot) error {
				snap.AddPlayer(models.Player{ID: uuid.NewString(), Name: "Ghost"})
				snap.Room.Status = models.StatusPlaying
				return boom
			})
			assert.ErrorIs(t, err, boom)

			snap, err := s.LoadRoom(ctx, room.ID)
			require.NoError(t, err)
			assert.Len(t, snap.Players, 1, "failed update must not insert players")
			assert.Equal(t, models.StatusWaiting, snap.Room.Status)

			err = s.UpdateRoom(ctx, room.ID, func(snap *RoomSnapshot) error {
				for _, n := range []string{"Bob", "Carol", "Dave"} {
					snap.AddPlayer(models.Player{ID: uuid.NewString(), Name: n})
				}
				for i := range snap.Players {
					snap.Players[i].Role = models.AllRoles[i]
					snap.Players[i].Score = 10 * i
				}
				snap.Room.Status = models.StatusPlaying
				snap.Room.RolesAssigned = true
				return nil
			})
			require.NoError(t, err)

			snap, err = s.LoadRoom(ctx, room.ID)
			require.NoError(t, err)
			assert.Equal(t, models.StatusPlaying, snap.Room.Status)
			assert.True(t, snap.Room.RolesAssigned)
			require.Len(t, snap.Players, 4)
			for i, p := range snap.Players {
				assert.Equal(t, i, p.Seat)
				assert.Equal(t, models.AllRoles[i], p.Role)
				assert.Equal(t, 10*i, p.Score)
			}
			assert.Equal(t, []string{"Alice", "Bob", "Carol", "Dave"}, []string{
				snap.Players[0].Name, snap.Players[1].Name, snap.Players[2].Name, snap.Players[3].Name,
			})

			err = s.UpdateRoom(ctx, "missing", func(*RoomSnapshot) error { return nil })
			assert.ErrorIs(t, err, ErrRecordNotFound)
		})
	}
}

func TestStore_UpdateIsSerialisedPerRoom(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			room, _ := newRoom(t, ctx, s)

			const workers = 12
			var (
				wg       sync.WaitGroup
				accepted atomic.Int32
			)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					err := s.UpdateRoom(ctx, room.ID, func(snap *RoomSnapshot) error {
						if len(snap.Players) >= 4 {
							return errors.New("full")
						}
						snap.AddPlayer(models.Player{ID: uuid.NewString(), Name: fmt.Sprintf("p%d", i)})
						return nil
					})
					if err == nil {
						accepted.Add(1)
					}
				}(i)
			}
			wg.Wait()

			assert.EqualValues(t, 3, accepted.Load())
			snap, err := s.LoadRoom(ctx, room.ID)
			require.NoError(t, err)
			assert.Len(t, snap.Players, 4)
		})
	}
}

func TestStore_CountRooms(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	a, _ := newRoom(t, ctx, s)
	newRoom(t, ctx, s)

	require.NoError(t, s.UpdateRoom(ctx, a.ID, func(snap *RoomSnapshot) error {
		snap.Room.Status = models.StatusCompleted
		return nil
	}))

	counts, err := s.CountRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.StatusWaiting])
	assert.Equal(t, 1, counts[models.StatusCompleted])
	assert.Zero(t, counts[models.StatusPlaying])
}

func TestSnapshot_AddPlayer(t *testing.T) {
	snap := &RoomSnapshot{
		Room:    models.Room{ID: "r"},
		Players: []models.Player{{ID: "a"}},
	}
	p := snap.AddPlayer(models.Player{ID: "b", RoomID: "other", Seat: 9})

	assert.Equal(t, "r", p.RoomID)
	assert.Equal(t, 1, p.Seat)
	assert.False(t, p.JoinedAt.IsZero())
	assert.Len(t, snap.Existing(), 1)
	assert.Len(t, snap.Added(), 1)
	assert.Equal(t, 1, snap.PlayerByID("b"))
	assert.Equal(t, -1, snap.PlayerByID("zzz"))

	clone := snap.clone()
	clone.Players[0].Score = 99
	assert.Zero(t, snap.Players[0].Score, "clone must not alias players")
	assert.Empty(t, clone.Added())
}

func TestOpen(t *testing.T) {
	s, err := Open(DriverMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open("sqlite", "")
	assert.Error(t, err)
}
