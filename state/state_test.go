package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/rajamantri/models"
)

func fourPlayers() []models.Player {
	return []models.Player{{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"}}
}

func TestStateMachine_FullLifecycle(t *testing.T) {
	sm := NewRoomStateMachine(4)
	room := &models.Room{ID: "r1", Status: models.StatusWaiting}

	require.NoError(t, sm.Transition(room, fourPlayers(), models.StatusPlaying))
	assert.Equal(t, models.StatusPlaying, room.Status)
	assert.True(t, room.RolesAssigned, "roles flag must flip with the status")

	require.NoError(t, sm.Transition(room, fourPlayers(), models.StatusCompleted))
	assert.Equal(t, models.StatusCompleted, room.Status)
	assert.True(t, room.RolesAssigned)
}

func TestStateMachine_NeedsFourPlayers(t *testing.T) {
	sm := NewRoomStateMachine(4)
	room := &models.Room{ID: "r1", Status: models.StatusWaiting}

	err := sm.Transition(room, fourPlayers()[:3], models.StatusPlaying)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrIncompletePlayers)
	assert.Equal(t, "Need 4 players", err.(*models.Error).Message)

	assert.Equal(t, models.StatusWaiting, room.Status, "a blocked transition must not change the room")
	assert.False(t, room.RolesAssigned)
}

func TestStateMachine_NoSkippingOrReversing(t *testing.T) {
	sm := NewRoomStateMachine(4)

	tests := []struct {
		from, to models.RoomStatus
	}{
		{models.StatusWaiting, models.StatusCompleted},
		{models.StatusPlaying, models.StatusWaiting},
		{models.StatusCompleted, models.StatusPlaying},
		{models.StatusCompleted, models.StatusWaiting},
		{models.StatusCompleted, models.StatusCompleted},
	}
	for _, tt := range tests {
		room := &models.Room{Status: tt.from, RolesAssigned: tt.from != models.StatusWaiting}
		err := sm.Transition(room, fourPlayers(), tt.to)
		assert.True(t, errors.Is(err, ErrTransitionNotAllowed), "%s -> %s should be rejected, got %v", tt.from, tt.to, err)
		assert.Equal(t, tt.from, room.Status)
	}
}

func TestStateMachine_Permit(t *testing.T) {
	sm := NewRoomStateMachine(4)

	tests := []struct {
		status models.RoomStatus
		op     Operation
		want   error
	}{
		{models.StatusWaiting, OpJoin, nil},
		{models.StatusWaiting, OpAssignRoles, nil},
		{models.StatusWaiting, OpGetRole, models.ErrNotReady},
		{models.StatusWaiting, OpGuess, models.ErrNotReady},
		{models.StatusWaiting, OpResults, models.ErrGameInProgress},
		{models.StatusPlaying, OpJoin, models.ErrCapacity},
		{models.StatusPlaying, OpAssignRoles, models.ErrInvalidState},
		{models.StatusPlaying, OpGetRole, nil},
		{models.StatusPlaying, OpGuess, nil},
		{models.StatusPlaying, OpResults, models.ErrGameInProgress},
		{models.StatusCompleted, OpGuess, models.ErrInvalidState},
		{models.StatusCompleted, OpGetRole, nil},
		{models.StatusCompleted, OpResults, nil},
	}
	for _, tt := range tests {
		err := sm.Permit(tt.status, tt.op)
		if tt.want == nil {
			assert.NoError(t, err, "%s in %s", tt.op, tt.status)
			continue
		}
		assert.ErrorIs(t, err, tt.want, "%s in %s", tt.op, tt.status)
	}

	err := sm.Permit(models.StatusCompleted, OpGuess)
	assert.Equal(t, "Game already resolved", err.(*models.Error).Message)

	assert.ErrorIs(t, sm.Permit("BOGUS", OpJoin), ErrUnknownState)
}

func TestStateMachine_AddTransition(t *testing.T) {
	sm := NewBaseStateMachine(NewWaitingState(), NewPlayingState())

	blocked := errors.New("blocked")
	require.NoError(t, sm.AddTransition(models.StatusWaiting, models.StatusPlaying, func(*models.Room, []models.Player) error {
		return blocked
	}))
	assert.ErrorIs(t, sm.AddTransition(models.StatusWaiting, models.StatusCompleted, nil), ErrUnknownState)

	room := &models.Room{Status: models.StatusWaiting}
	assert.ErrorIs(t, sm.Transition(room, nil, models.StatusPlaying), blocked)
	assert.Equal(t, models.StatusWaiting, room.Status)

	// A nil condition always allows the transition.
	require.NoError(t, sm.AddTransition(models.StatusWaiting, models.StatusPlaying, nil))
	require.NoError(t, sm.Transition(room, nil, models.StatusPlaying))
	assert.Equal(t, models.StatusPlaying, room.Status)
}
