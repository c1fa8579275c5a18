package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"github.com/wfunc/rajamantri/logger"
	"github.com/wfunc/rajamantri/models"
	"github.com/wfunc/rajamantri/network"
	"github.com/wfunc/rajamantri/session"
)

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}

	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.monitor.SessionOpened()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		s.monitor.SessionClosed()
		wsConn.Close()
	}()

	wsConn.SetHeartbeat(heartbeat)
	ctx := r.Context()
	for {
		packet, err := wsConn.ReadPacket()
		if err != nil {
			return
		}
		sess.Touch()
		if err := s.handlePacket(ctx, sess, packet); err != nil {
			return
		}
	}
}

// handlePacket answers one request packet. The returned error is a send failure.
func (s *GameServer) handlePacket(ctx context.Context, sess *session.Session, packet *network.Packet) error {
	resp, err := s.dispatch(ctx, sess, packet)
	if err != nil {
		if models.KindOf(err) == "" {
			logger.Log.Errorw("ws request failed", "msg", packet.MsgID, "session", sess.GetID(), "error", err)
		}
		body := errorBody(err)
		body.MsgID = packet.MsgID
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		return sess.Send(network.MsgTypeError, data)
	}

	var data []byte
	if resp != nil {
		if data, err = json.Marshal(resp); err != nil {
			return err
		}
	}
	return sess.Send(packet.MsgID, data)
}

func unmarshal(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return models.NewError(models.KindValidation, "Invalid request body: %v", err)
	}
	return nil
}

// or returns v, or fallback if v is empty.
func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func (s *GameServer) dispatch(ctx context.Context, sess *session.Session, packet *network.Packet) (interface{}, error) {
	boundRoom, boundPlayer := sess.Identity()

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		return nil, nil

	case network.MsgTypeCreateRoom:
		var req network.CreateRoomRequest
		if err := unmarshal(packet.Data, &req); err != nil {
			return nil, err
		}
		roomID, playerID, err := s.roomManager.CreateRoom(ctx, req.PlayerName)
		if err != nil {
			return nil, err
		}
		sess.Bind(roomID, playerID)
		return network.CreateRoomResponse{RoomID: roomID, PlayerID: playerID}, nil

	case network.MsgTypeJoinRoom:
		var req network.JoinRoomRequest
		if err := unmarshal(packet.Data, &req); err != nil {
			return nil, err
		}
		playerID, err := s.roomManager.JoinRoom(ctx, req.RoomID, req.PlayerName)
		if err != nil {
			return nil, err
		}
		sess.Bind(req.RoomID, playerID)
		return network.JoinRoomResponse{RoomID: req.RoomID, PlayerID: playerID}, nil

	case network.MsgTypeListPlayers:
		var req network.RoomRequest
		if err := unmarshal(packet.Data, &req); err != nil {
			return nil, err
		}
		players, err := s.roomManager.ListPlayers(ctx, or(req.RoomID, boundRoom))
		if err != nil {
			return nil, err
		}
		return network.PlayersResponse{Players: players}, nil

	case network.MsgTypeRoomState:
		var req network.RoomRequest
		if err := unmarshal(packet.Data, &req); err != nil {
			return nil, err
		}
		return s.roomManager.GetRoom(ctx, or(req.RoomID, boundRoom))

	case network.MsgTypeAssignRoles:
		var req network.RoomRequest
		if err := unmarshal(packet.Data, &req); err != nil {
			return nil, err
		}
		if err := s.gameService.AssignRoles(ctx, or(req.RoomID, boundRoom)); err != nil {
			return nil, err
		}
		return network.StatusResponse{Status: string(models.StatusPlaying)}, nil

	case network.MsgTypeGetRole:
		var req network.GetRoleRequest
		if err := unmarshal(packet.Data, &req); err != nil {
			return nil, err
		}
		return s.gameService.GetRole(ctx, or(req.RoomID, boundRoom), or(req.PlayerID, boundPlayer))

	case network.MsgTypeGuess:
		var req network.GuessRequest
		if err := unmarshal(packet.Data, &req); err != nil {
			return nil, err
		}
		return s.gameService.ResolveGuess(ctx, or(req.RoomID, boundRoom), or(req.GuesserID, boundPlayer), req.SuspectName)

	case network.MsgTypeResults:
		var req network.RoomRequest
		if err := unmarshal(packet.Data, &req); err != nil {
			return nil, err
		}
		results, err := s.gameService.GetResults(ctx, or(req.RoomID, boundRoom))
		if err != nil {
			return nil, err
		}
		return network.ResultsResponse{Results: results}, nil
	}

	return nil, models.NewError(models.KindValidation, "Unknown message type %d", packet.MsgID)
}
