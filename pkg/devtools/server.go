package devtools

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/loomkit/loom"
	"github.com/loomkit/loom/pkg/observe"
)

// DefaultAddr is the listen address used when WithAddr is not given.
const DefaultAddr = ":9990"

// Server streams engine events to inspector clients over WebSocket and
// serves counter snapshots. It implements observe.Observer.
type Server struct {
	addr     string
	registry *observe.Registry
	logger   *slog.Logger

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*websocket.Conn

	// writeMu serializes broadcasts; events arrive from any goroutine
	// that runs an effect, and a websocket conn allows one writer.
	writeMu sync.Mutex

	httpServer *http.Server
	detach     func()
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address for Start.
func WithAddr(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// WithRegistry sets the event registry to observe. Defaults to the
// engine's own loom.Events.
func WithRegistry(r *observe.Registry) Option {
	return func(s *Server) { s.registry = r }
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates an inspector server. It does not listen or observe anything
// until Start is called; Handler can be mounted in an external router
// instead.
func New(opts ...Option) *Server {
	s := &Server{
		addr:     DefaultAddr,
		registry: loom.Events,
		clients:  make(map[string]*websocket.Conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // inspector is a dev tool, any origin may connect
			},
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default().With("component", "devtools")
	}

	return s
}

// Handler returns the inspector routes for mounting in an external router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/ws", s.handleWebSocket)
	r.Get("/stats", s.handleStats)
	r.Get("/healthz", s.handleHealthz)
	return r
}

// Start attaches the server to the event registry and serves until ctx is
// cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.detach = s.registry.Register(s)

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("inspector listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errCh:
		s.detachObserver()
		return err
	}
}

// Shutdown detaches from the registry, closes client connections, and
// stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.detachObserver()

	s.mu.Lock()
	for id, conn := range s.clients {
		conn.Close()
		delete(s.clients, id)
	}
	s.mu.Unlock()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) detachObserver() {
	if s.detach != nil {
		s.detach()
	}
}

// ClientCount returns the number of connected inspector clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// wireEvent is the JSON shape sent to inspector clients.
type wireEvent struct {
	Type      string         `json:"type"`
	Level     string         `json:"level"`
	Timestamp time.Time      `json:"timestamp"`
	Source    string         `json:"source"`
	Data      map[string]any `json:"data,omitempty"`
}

// OnEvent implements observe.Observer by forwarding the event to every
// connected client.
func (s *Server) OnEvent(_ context.Context, event observe.Event) {
	s.mu.RLock()
	empty := len(s.clients) == 0
	s.mu.RUnlock()
	if empty {
		return
	}

	s.broadcast(wireEvent{
		Type:      string(event.Type),
		Level:     event.Level.String(),
		Timestamp: event.Timestamp,
		Source:    event.Source,
		Data:      event.Data,
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.clients[id] = conn
	s.mu.Unlock()
	s.logger.Debug("inspector client connected", "client_id", id)

	// Drain the connection until the client disconnects. The stream is
	// one-directional; inbound messages are discarded.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, id)
	s.mu.Unlock()
	conn.Close()
	s.logger.Debug("inspector client disconnected", "client_id", id)
}

// statsPayload extends the engine snapshot with the derived live count.
type statsPayload struct {
	loom.Stats
	EffectsLive uint64 `json:"effects_live"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	st := loom.CurrentStats()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(statsPayload{
		Stats:       st,
		EffectsLive: st.EffectsCreated - st.EffectsStopped,
	}); err != nil {
		s.logger.Error("stats encode failed", "error", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// broadcast sends a message to all connected clients, dropping any whose
// write fails.
func (s *Server) broadcast(msg wireEvent) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	type entry struct {
		id   string
		conn *websocket.Conn
	}

	s.mu.RLock()
	clients := make([]entry, 0, len(s.clients))
	for id, conn := range s.clients {
		clients = append(clients, entry{id, conn})
	}
	s.mu.RUnlock()

	for _, c := range clients {
		c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.mu.Lock()
			delete(s.clients, c.id)
			s.mu.Unlock()
			c.conn.Close()
		}
	}
}
