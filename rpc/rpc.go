package rpc

import (
	"context"
	"errors"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/wfunc/rajamantri/logger"
	"github.com/wfunc/rajamantri/models"
	"github.com/wfunc/rajamantri/room"
	"github.com/wfunc/rajamantri/services"
)

// Server manages the gRPC listener.
type Server struct {
	grpc     *grpc.Server
	listener net.Listener
	address  string
}

// NewServer listens on addr and registers the Standings service.
func NewServer(addr string, rooms *room.Manager, games *services.GameService) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewServerWithListener(listener, rooms, games), nil
}

// NewServerWithListener serves on an existing listener.
func NewServerWithListener(lis net.Listener, rooms *room.Manager, games *services.GameService) *Server {
	gs := grpc.NewServer(
		grpc.ForceServerCodec(JSONCodec{}),
		grpc.ChainUnaryInterceptor(logUnary),
	)
	RegisterStandingsServer(gs, &StandingsService{rooms: rooms, games: games})
	return &Server{
		grpc:     gs,
		listener: lis,
		address:  lis.Addr().String(),
	}
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	logger.Log.Infof("RPC server listening on %s", s.address)
	if err := s.grpc.Serve(s.listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Stop waits for in-flight calls, then closes the listener.
func (s *Server) Stop() {
	logger.Log.Info("Stopping RPC server.")
	s.grpc.GracefulStop()
}

func logUnary(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		logger.Log.Debugw("rpc failed", "method", info.FullMethod, "error", err)
	}
	return resp, err
}

// StandingsService exposes read-only room state to internal dashboards.
type StandingsService struct {
	rooms *room.Manager
	games *services.GameService
}

func (s *StandingsService) GetRoom(ctx context.Context, req *RoomRequest) (*RoomReply, error) {
	view, err := s.rooms.GetRoom(ctx, req.RoomID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &RoomReply{Room: view}, nil
}

func (s *StandingsService) GetResults(ctx context.Context, req *RoomRequest) (*ResultsReply, error) {
	results, err := s.games.GetResults(ctx, req.RoomID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ResultsReply{RoomID: req.RoomID, Results: results}, nil
}

// toStatus maps game errors onto gRPC status codes.
func toStatus(err error) error {
	var code codes.Code
	switch models.KindOf(err) {
	case models.KindValidation:
		code = codes.InvalidArgument
	case models.KindNotFound:
		code = codes.NotFound
	case models.KindAuthorization:
		code = codes.PermissionDenied
	case models.KindCapacity:
		code = codes.ResourceExhausted
	case models.KindIncompletePlayers, models.KindNotReady, models.KindInvalidState, models.KindGameInProgress:
		code = codes.FailedPrecondition
	default:
		logger.Log.Errorw("rpc internal error", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
	var e *models.Error
	errors.As(err, &e)
	return status.Error(code, string(e.Kind)+": "+e.Message)
}
