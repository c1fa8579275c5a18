package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wfunc/rajamantri/models"
)

// Operation is a caller-visible action on a room.
type Operation string

const (
	OpJoin        Operation = "join"
	OpAssignRoles Operation = "assign_roles"
	OpGetRole     Operation = "get_role"
	OpGuess       Operation = "guess"
	OpResults     Operation = "results"
)

// 状态机接口
type StateMachine interface {
	Transition(room *models.Room, players []models.Player, to models.RoomStatus) error
	Permit(status models.RoomStatus, op Operation) error
	AddTransition(from, to models.RoomStatus, condition Condition) error
}

// 状态接口
type State interface {
	GetID() models.RoomStatus
	Permit(op Operation) error
}

// Condition guards a transition. A non-nil error blocks it and is returned to the caller.
type Condition func(room *models.Room, players []models.Player) error

// ErrTransitionNotAllowed is returned when no transition is registered between two states.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// ErrUnknownState is returned for a status the machine has no state for.
var ErrUnknownState = errors.New("unknown room state")

// 基础状态机实现
type BaseStateMachine struct {
	states      map[models.RoomStatus]State
	transitions map[models.RoomStatus]map[models.RoomStatus]Condition // from -> to -> condition
	mutex       sync.RWMutex
}

func NewBaseStateMachine(states ...State) *BaseStateMachine {
	machine := &BaseStateMachine{
		states:      make(map[models.RoomStatus]State, len(states)),
		transitions: make(map[models.RoomStatus]map[models.RoomStatus]Condition),
	}
	for _, s := range states {
		machine.states[s.GetID()] = s
	}
	return machine
}

// Transition moves room to the target status if a transition is registered and its
// condition holds. Status and RolesAssigned change together.
func (sm *BaseStateMachine) Transition(room *models.Room, players []models.Player, to models.RoomStatus) error {
	sm.mutex.RLock()
	conditions, exists := sm.transitions[room.Status]
	var condition Condition
	if exists {
		condition, exists = conditions[to]
	}
	sm.mutex.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, room.Status, to)
	}
	if condition != nil {
		if err := condition(room, players); err != nil {
			return err
		}
	}

	room.Status = to
	room.RolesAssigned = to.Rank() >= models.StatusPlaying.Rank()
	room.UpdatedAt = time.Now()
	return nil
}

// Permit reports whether op is legal in status.
func (sm *BaseStateMachine) Permit(status models.RoomStatus, op Operation) error {
	sm.mutex.RLock()
	s, exists := sm.states[status]
	sm.mutex.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %q", ErrUnknownState, status)
	}
	return s.Permit(op)
}

func (sm *BaseStateMachine) AddTransition(from, to models.RoomStatus, condition Condition) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if _, ok := sm.states[from]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownState, from)
	}
	if _, ok := sm.states[to]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownState, to)
	}

	if _, exists := sm.transitions[from]; !exists {
		sm.transitions[from] = make(map[models.RoomStatus]Condition)
	}

	sm.transitions[from][to] = condition
	return nil
}

// 房间状态基础结构
type RoomStateBase struct {
	ID models.RoomStatus
	// rejected maps an operation to the error it gets in this state. Operations
	// not listed are allowed.
	rejected map[Operation]*models.Error
}

func (s *RoomStateBase) GetID() models.RoomStatus {
	return s.ID
}

func (s *RoomStateBase) Permit(op Operation) error {
	if err, ok := s.rejected[op]; ok {
		return err
	}
	return nil
}

var (
	errNotAssigned     = models.NewError(models.KindNotReady, "Roles not assigned yet")
	errAlreadyAssigned = models.NewError(models.KindInvalidState, "Roles already assigned")
	errInProgress      = models.NewError(models.KindGameInProgress, "Game not completed yet")
	errResolved        = models.NewError(models.KindInvalidState, "Game already resolved")
	errStarted         = models.NewError(models.KindCapacity, "Game already started")
)

// NewWaitingState: players may join and roles may be dealt.
func NewWaitingState() *RoomStateBase {
	return &RoomStateBase{
		ID: models.StatusWaiting,
		rejected: map[Operation]*models.Error{
			OpGetRole: errNotAssigned,
			OpGuess:   errNotAssigned,
			OpResults: errInProgress,
		},
	}
}

// NewPlayingState: roles are dealt, the Mantri may guess once.
func NewPlayingState() *RoomStateBase {
	return &RoomStateBase{
		ID: models.StatusPlaying,
		rejected: map[Operation]*models.Error{
			OpJoin:        errStarted,
			OpAssignRoles: errAlreadyAssigned,
			OpResults:     errInProgress,
		},
	}
}

// NewCompletedState is terminal; only reads are allowed.
func NewCompletedState() *RoomStateBase {
	return &RoomStateBase{
		ID: models.StatusCompleted,
		rejected: map[Operation]*models.Error{
			OpJoin:        errStarted,
			OpAssignRoles: errAlreadyAssigned,
			OpGuess:       errResolved,
		},
	}
}

// NewRoomStateMachine wires WAITING -> PLAYING -> COMPLETED for rooms of size players.
func NewRoomStateMachine(size int) *BaseStateMachine {
	sm := NewBaseStateMachine(NewWaitingState(), NewPlayingState(), NewCompletedState())

	_ = sm.AddTransition(models.StatusWaiting, models.StatusPlaying, func(room *models.Room, players []models.Player) error {
		if len(players) != size {
			return models.NewError(models.KindIncompletePlayers, "Need %d players", size)
		}
		return nil
	})
	_ = sm.AddTransition(models.StatusPlaying, models.StatusCompleted, func(room *models.Room, players []models.Player) error {
		if !room.RolesAssigned {
			return errNotAssigned
		}
		return nil
	})
	return sm
}
