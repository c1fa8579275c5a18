package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/wfunc/rajamantri/logger"
	"github.com/wfunc/rajamantri/monitor"
	"github.com/wfunc/rajamantri/room"
	"github.com/wfunc/rajamantri/services"
	"github.com/wfunc/rajamantri/session"
)

const (
	timeout         = 10 * time.Second
	shutdownTimeout = 5 * time.Second
	heartbeat       = 30 * time.Second
	maxBodyBytes    = 1 << 16
)

type GameServer struct {
	addr           string
	publicURL      string
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	gameService    *services.GameService
	sessionManager *session.Manager
	monitor        *monitor.Monitor
	router         *httprouter.Router
}

func NewGameServer(addr, publicURL string, rooms *room.Manager, games *services.GameService, mon *monitor.Monitor) *GameServer {
	s := &GameServer{
		addr:           addr,
		publicURL:      publicURL,
		roomManager:    rooms,
		gameService:    games,
		sessionManager: session.NewManager(),
		monitor:        mon,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
	s.router = s.routes()
	return s
}

func (s *GameServer) routes() *httprouter.Router {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		logger.Log.Errorw("panic in handler", "path", r.URL.Path, "panic", i)
		writeError(w, errors.New("internal error"))
	}

	s.handle(mux, http.MethodPost, "/rooms", s.createRoom)
	s.handle(mux, http.MethodGet, "/rooms/:roomID", s.getRoom)
	s.handle(mux, http.MethodPost, "/rooms/:roomID/players", s.joinRoom)
	s.handle(mux, http.MethodGet, "/rooms/:roomID/players", s.listPlayers)
	s.handle(mux, http.MethodGet, "/rooms/:roomID/players/:playerID/role", s.getRole)
	s.handle(mux, http.MethodPost, "/rooms/:roomID/assign", s.assignRoles)
	s.handle(mux, http.MethodPost, "/rooms/:roomID/guess", s.resolveGuess)
	s.handle(mux, http.MethodGet, "/rooms/:roomID/results", s.getResults)
	s.handle(mux, http.MethodGet, "/rooms/:roomID/qr", s.roomQR)
	s.handle(mux, http.MethodGet, "/healthz", s.healthz)

	mux.Handler(http.MethodGet, "/metrics", s.monitor.Handler())
	mux.GET("/ws", s.handleWebSocket)

	return mux
}

// Handler returns the HTTP handler serving every route.
func (s *GameServer) Handler() http.Handler {
	return s.router
}

// Sessions returns the websocket session registry.
func (s *GameServer) Sessions() *session.Manager {
	return s.sessionManager
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *GameServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		IdleTimeout:       10 * time.Minute,
		ReadHeaderTimeout: timeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errs := make(chan error, 1)
	go func() {
		logger.Log.Infof("Game server listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	logger.Log.Info("Shutting down game server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// hijacked websocket connections are not tracked by Shutdown
	s.sessionManager.CloseAll()
	return srv.Shutdown(shutdownCtx)
}
