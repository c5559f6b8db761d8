// Package wsserver implements the remote access server: the HTTP listener,
// the static SPA file handler, the read-only REST projection, and the
// WebSocket relay between browser clients and the session pool.
//
// Every HTTP response carries the security headers from spec §6, and every
// request — REST, static, or WebSocket upgrade — is authenticated the same
// way: an Authorization: Bearer header or a ?token= query parameter,
// checked in constant time against the process's single startup token.
package wsserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/johan--/parallel-code/internal/authtoken"
	"github.com/johan--/parallel-code/internal/eventbus"
	"github.com/johan--/parallel-code/internal/ptysession"
)

// exitBroadcastDebounce is the delay between an exit's immediate "status"
// broadcast and the follow-up "agents" projection rebroadcast. The value
// is carried over unjustified, per spec §9's open question.
const exitBroadcastDebounce = 100 * time.Millisecond

const maxWSPayloadBytes = 64 * 1024

// Config configures a Server.
type Config struct {
	Pool       *ptysession.Pool
	Bus        *eventbus.Bus
	Token      *authtoken.Token
	StaticDir  string
	MaxClients int
	Logger     *slog.Logger
}

// Server owns the HTTP listener, the WebSocket upgrade path, and the
// lifecycle-event broadcaster that ties them to the session pool.
type Server struct {
	pool       *ptysession.Pool
	bus        *eventbus.Bus
	token      *authtoken.Token
	staticDir  string
	maxClients int
	logger     *slog.Logger

	upgrader websocket.Upgrader
	http     *http.Server

	clientsMu sync.Mutex
	clients   map[*wsClient]struct{}

	unsubSpawn       func()
	unsubExit        func()
	unsubListChanged func()
}

// New builds a Server and registers its lifecycle-event listeners. It does
// not start listening — call Start for that.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxClients := cfg.MaxClients
	if maxClients <= 0 {
		maxClients = 10
	}

	s := &Server{
		pool:       cfg.Pool,
		bus:        cfg.Bus,
		token:      cfg.Token,
		staticDir:  cfg.StaticDir,
		maxClients: maxClients,
		logger:     logger,
		clients:    make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	s.unsubSpawn = s.bus.On(eventbus.Spawn, s.onSpawnOrListChanged)
	s.unsubListChanged = s.bus.On(eventbus.ListChanged, s.onSpawnOrListChanged)
	s.unsubExit = s.bus.On(eventbus.Exit, s.onExit)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/agents", s.handleAgentsList)
	mux.HandleFunc("/api/agents/", s.handleAgentByID)
	mux.HandleFunc("/api/", s.handleAPINotFound)
	mux.HandleFunc("/", s.handleStatic)

	s.http = &http.Server{
		Handler: s.withMiddleware(mux),
	}

	return s
}

// Start begins serving HTTP on addr. It blocks until the listener stops.
func (s *Server) Start(addr string) error {
	s.http.Addr = addr
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown unregisters lifecycle listeners, closes every client connection,
// and closes the HTTP listener, resolving only once it has fully closed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.unsubSpawn()
	s.unsubExit()
	s.unsubListChanged()

	s.clientsMu.Lock()
	clients := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clientsMu.Unlock()

	for _, c := range clients {
		c.close()
	}

	return s.http.Shutdown(ctx)
}

// withMiddleware applies the security headers and authentication contract
// to every request.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")

		if !s.token.CheckRequest(r) {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
