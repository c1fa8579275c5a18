// services/game_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/wfunc/rajamantri/deck"
	"github.com/wfunc/rajamantri/logger"
	"github.com/wfunc/rajamantri/models"
	"github.com/wfunc/rajamantri/persistence"
	"github.com/wfunc/rajamantri/room"
	"github.com/wfunc/rajamantri/scoring"
	"github.com/wfunc/rajamantri/state"
)

const (
	InstructionMantri = "You are the Mantri. Find the Chor and name them."
	InstructionOthers = "Keep your role secret. The Mantri is looking for the Chor."
)

// Recorder counts resolved games. monitor.Metrics satisfies it.
type Recorder interface {
	GameResolved(correct bool)
}

type nopRecorder struct{}

func (nopRecorder) GameResolved(bool) {}

// GameService 游戏流程：发牌、查询身份、猜测、结算
type GameService struct {
	rooms    *room.Manager
	deck     *deck.Deck
	recorder Recorder
}

func NewGameService(rooms *room.Manager, d *deck.Deck, recorder Recorder) *GameService {
	if d == nil {
		d = deck.Default()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &GameService{rooms: rooms, deck: d, recorder: recorder}
}

// AssignRoles 发牌：第 i 个座位拿到排列中的第 i 个身份，同时进入 PLAYING
func (s *GameService) AssignRoles(ctx context.Context, roomID string) error {
	machine := s.rooms.Machine()

	err := s.rooms.Update(ctx, roomID, func(snap *persistence.RoomSnapshot) error {
		if err := machine.Permit(snap.Room.Status, state.OpAssignRoles); err != nil {
			return err
		}
		if err := machine.Transition(&snap.Room, snap.Players, models.StatusPlaying); err != nil {
			return err
		}

		roles := s.deck.Draw()
		for i := range snap.Players {
			snap.Players[i].Role = roles[i]
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.rooms.Publish(ctx, models.Event{
		Type:      models.EventRolesAssigned,
		RoomID:    roomID,
		Timestamp: time.Now().UnixMilli(),
	})
	logger.Log.Infow("roles assigned", "room", roomID)
	return nil
}

// GetRole 查询玩家自己的身份
func (s *GameService) GetRole(ctx context.Context, roomID, playerID string) (models.RoleView, error) {
	snap, err := s.rooms.Load(ctx, roomID)
	if err != nil {
		return models.RoleView{}, err
	}

	i := snap.PlayerByID(playerID)
	if i < 0 {
		return models.RoleView{}, models.NewError(models.KindNotFound, "Player not found")
	}
	if err := s.rooms.Machine().Permit(snap.Room.Status, state.OpGetRole); err != nil {
		return models.RoleView{}, err
	}

	role := snap.Players[i].Role
	view := models.RoleView{Role: role, Instruction: InstructionOthers}
	if role == models.RoleMantri {
		view.Instruction = InstructionMantri
	}
	return view, nil
}

// ResolveGuess 玩家猜测谁是 Chor。校验、计分和状态切换在同一个事务中完成，
// 并发的重复请求只有一个会生效
func (s *GameService) ResolveGuess(ctx context.Context, roomID, guesserID, suspectName string) (models.GuessOutcome, error) {
	machine := s.rooms.Machine()

	var res scoring.Result
	err := s.rooms.Update(ctx, roomID, func(snap *persistence.RoomSnapshot) error {
		if err := machine.Permit(snap.Room.Status, state.OpGuess); err != nil {
			return err
		}

		g := snap.PlayerByID(guesserID)
		if g < 0 {
			return models.NewError(models.KindNotFound, "Player not found")
		}
		if snap.Players[g].Role != models.RoleMantri {
			return models.NewError(models.KindAuthorization, "Not Mantri")
		}

		v := room.FindByName(snap.Players, suspectName)
		if v < 0 {
			return models.NewError(models.KindNotFound, "Suspect %q not found", suspectName)
		}
		suspect := snap.Players[v]

		res = scoring.Resolve(suspect.Name, suspect.Role)
		if err := scoring.Apply(snap.Players, res); err != nil {
			return fmt.Errorf("apply scores in room %s: %w", roomID, err)
		}
		return machine.Transition(&snap.Room, snap.Players, models.StatusCompleted)
	})
	if err != nil {
		return models.GuessOutcome{}, err
	}

	s.recorder.GameResolved(res.Correct)
	s.rooms.Publish(ctx, models.Event{
		Type:      models.EventGameResolved,
		RoomID:    roomID,
		PlayerID:  guesserID,
		Timestamp: time.Now().UnixMilli(),
		Payload: map[string]interface{}{
			"suspect": suspectName,
			"role":    string(res.SuspectRole),
			"correct": res.Correct,
		},
	})
	logger.Log.Infow("game resolved", "room", roomID, "correct", res.Correct)

	return models.GuessOutcome{
		Message:     res.Message,
		SuspectRole: res.SuspectRole,
		Correct:     res.Correct,
	}, nil
}

// GetResults 返回结算结果，按座位顺序
func (s *GameService) GetResults(ctx context.Context, roomID string) ([]models.Standing, error) {
	snap, err := s.rooms.Load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := s.rooms.Machine().Permit(snap.Room.Status, state.OpResults); err != nil {
		return nil, err
	}

	out := make([]models.Standing, len(snap.Players))
	for i, p := range snap.Players {
		out[i] = models.Standing{Name: p.Name, Role: p.Role, Score: p.Score}
	}
	return out, nil
}
