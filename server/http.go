package server

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/wfunc/rajamantri/logger"
	"github.com/wfunc/rajamantri/models"
	"github.com/wfunc/rajamantri/network"
)

const qrSize = 320

type handlerFunc func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error

// statusWriter remembers the status code for logging and metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// handle registers h under route, wrapping it with error mapping, logging and metrics.
func (s *GameServer) handle(mux *httprouter.Router, method, route string, h handlerFunc) {
	mux.Handle(method, route, func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		sw.Header().Set("X-Content-Type-Options", "nosniff")

		err := h(sw, r, ps)
		if err != nil {
			writeError(sw, err)
		}

		elapsed := time.Since(start)
		s.monitor.ObserveRequest(route, sw.status, elapsed)

		fields := []interface{}{
			"method", method,
			"route", route,
			"status", sw.status,
			"remote", realIP(r),
			"duration", elapsed.Round(time.Microsecond),
		}
		switch {
		case sw.status >= http.StatusInternalServerError:
			logger.Log.Errorw("request failed", append(fields, "error", err)...)
		case err != nil:
			logger.Log.Infow("request rejected", append(fields, "error", err)...)
		default:
			logger.Log.Debugw("request", fields...)
		}
	})
}

// statusFor maps an error kind to an HTTP status code.
func statusFor(kind models.ErrorKind) int {
	switch kind {
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindAuthorization:
		return http.StatusForbidden
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindCapacity, models.KindIncompletePlayers, models.KindInvalidState,
		models.KindGameInProgress, models.KindNotReady:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// errorBody returns the client-facing error. Unknown errors are not echoed.
func errorBody(err error) network.ErrorResponse {
	var e *models.Error
	if errors.As(err, &e) {
		return network.ErrorResponse{Error: string(e.Kind), Message: e.Message}
	}
	return network.ErrorResponse{Error: "InternalError", Message: "internal error"}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(models.KindOf(err)), errorBody(err))
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Warnw("write response failed", "error", err)
	}
}

// decode reads a JSON body into v. A malformed body is a ValidationError.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return models.NewError(models.KindValidation, "Invalid request body: %v", err)
	}
	return nil
}

func realIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" && net.ParseIP(ip) != nil {
		host = ip
	}
	return host
}

func (s *GameServer) createRoom(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	var req network.CreateRoomRequest
	if err := decode(w, r, &req); err != nil {
		return err
	}
	roomID, playerID, err := s.roomManager.CreateRoom(r.Context(), req.PlayerName)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, network.CreateRoomResponse{RoomID: roomID, PlayerID: playerID})
	return nil
}

func (s *GameServer) joinRoom(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	var req network.JoinRoomRequest
	if err := decode(w, r, &req); err != nil {
		return err
	}
	roomID := ps.ByName("roomID")
	playerID, err := s.roomManager.JoinRoom(r.Context(), roomID, req.PlayerName)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, network.JoinRoomResponse{RoomID: roomID, PlayerID: playerID})
	return nil
}

func (s *GameServer) listPlayers(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	players, err := s.roomManager.ListPlayers(r.Context(), ps.ByName("roomID"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, network.PlayersResponse{Players: players})
	return nil
}

func (s *GameServer) getRoom(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	view, err := s.roomManager.GetRoom(r.Context(), ps.ByName("roomID"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, view)
	return nil
}

func (s *GameServer) assignRoles(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	if err := s.gameService.AssignRoles(r.Context(), ps.ByName("roomID")); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, network.StatusResponse{Status: string(models.StatusPlaying)})
	return nil
}

func (s *GameServer) getRole(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	view, err := s.gameService.GetRole(r.Context(), ps.ByName("roomID"), ps.ByName("playerID"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, view)
	return nil
}

func (s *GameServer) resolveGuess(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	var req network.GuessRequest
	if err := decode(w, r, &req); err != nil {
		return err
	}
	if req.GuesserID == "" || strings.TrimSpace(req.SuspectName) == "" {
		return models.NewError(models.KindValidation, "guesserId and suspectName are required")
	}
	out, err := s.gameService.ResolveGuess(r.Context(), ps.ByName("roomID"), req.GuesserID, req.SuspectName)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

func (s *GameServer) getResults(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	results, err := s.gameService.GetResults(r.Context(), ps.ByName("roomID"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, network.ResultsResponse{Results: results})
	return nil
}

// roomQR serves a PNG QR code of the room's join URL.
func (s *GameServer) roomQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	roomID := ps.ByName("roomID")
	if _, err := s.roomManager.GetRoom(r.Context(), roomID); err != nil {
		return err
	}

	url := strings.TrimSuffix(s.publicURL, "/") + "/rooms/" + roomID
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write(png); err != nil {
		logger.Log.Debugw("write qr failed", "room", roomID, "error", err)
	}
	return nil
}

type healthResponse struct {
	Status   string  `json:"status"`
	Uptime   float64 `json:"uptimeSeconds"`
	Sessions int     `json:"sessions"`
}

func (s *GameServer) healthz(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Uptime:   s.monitor.Uptime().Seconds(),
		Sessions: s.sessionManager.Count(),
	})
	return nil
}
