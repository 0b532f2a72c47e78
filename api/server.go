package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lolney/codesiege/game/match"
	"github.com/lolney/codesiege/game/session"
	"github.com/lolney/codesiege/metrics"
	"github.com/lolney/codesiege/transport/socket"
)

const gameCookieMaxAge = 24 * 60 * 60

// Server is the HTTP surface: matchmaking, the websocket upgrade and
// health/metrics endpoints.
type Server struct {
	manager    *session.Manager
	matchmaker *match.MatchMaker
	router     *mux.Router
	upgrader   websocket.Upgrader
	log        zerolog.Logger
}

// NewServer creates the API server. checkOrigin, if non-nil, gates
// websocket upgrades by request origin.
func NewServer(manager *session.Manager, matchmaker *match.MatchMaker, checkOrigin func(r *http.Request) bool, log zerolog.Logger) *Server {
	s := &Server{
		manager:    manager,
		matchmaker: matchmaker,
		router:     mux.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		log: log,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/match", s.handleMatch).Methods("POST")
	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	metrics.Register(s.router)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Matchmaking

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("mode") {
	case "vs":
		s.handleVersus(w, r)
	case "practice":
		s.respondMatch(w, match.Match{GameID: s.matchmaker.CreatePractice()})
	default:
		respondError(w, http.StatusInternalServerError, "must include mode: 'vs' or 'practice'")
	}
}

// handleVersus rejoins the caller's existing game when their cookie
// still names a joinable one; otherwise it queues them until an
// opponent shows up or the request is aborted.
func (s *Server) handleVersus(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("gameId"); err == nil {
		gameID := cookie.Value
		if s.manager.GameExists(gameID) && !s.manager.GameIsFull(gameID) {
			s.respondMatch(w, match.Match{GameID: gameID})
			return
		}
	}

	ticket := s.matchmaker.Queue()
	select {
	case m := <-ticket.Done():
		s.respondMatch(w, m)
	case <-r.Context().Done():
		s.matchmaker.Cancel(ticket)
	}
}

func (s *Server) respondMatch(w http.ResponseWriter, m match.Match) {
	http.SetCookie(w, &http.Cookie{
		Name:     "gameId",
		Value:    m.GameID,
		Path:     "/",
		MaxAge:   gameCookieMaxAge,
		SameSite: http.SameSiteStrictMode,
	})
	respondJSON(w, http.StatusOK, m)
}

// WebSocket

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("gameId")
	if gameID == "" {
		if cookie, err := r.Cookie("gameId"); err == nil {
			gameID = cookie.Value
		}
	}
	if !s.manager.GameExists(gameID) {
		respondError(w, http.StatusNotFound, "no such game")
		return
	}

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		if cookie, err := r.Cookie("userId"); err == nil {
			userID = cookie.Value
		}
	}
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := socket.NewWSConn(ws, s.log)
	sock, err := socket.New(conn, socket.Handshake{
		UserID:        userID,
		GameID:        gameID,
		Authenticated: true,
	}, s.log)
	if err != nil {
		conn.Close()
		return
	}

	go conn.WritePump()

	inst, seat, err := s.manager.OnPlayerConnected(r.Context(), sock)
	if err != nil {
		s.log.Warn().Err(err).Str("game", gameID).Str("player", userID).Msg("join failed")
		sock.Emit("joinError", socket.Err(err.Error()))
		conn.Close()
		return
	}
	s.log.Info().Str("game", gameID).Str("player", userID).Int("seat", seat).Msg("websocket joined")

	// Blocks until the peer disconnects.
	conn.ReadPump(sock)

	inst.Disconnect(r.Context(), userID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
