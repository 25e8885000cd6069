package transport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jongik-sv/kirosync/internal/auth"
	"github.com/jongik-sv/kirosync/internal/changeset"
	"github.com/jongik-sv/kirosync/internal/config"
	"github.com/jongik-sv/kirosync/internal/presence"
	"github.com/jongik-sv/kirosync/internal/session"
	"github.com/jongik-sv/kirosync/internal/store"
)

// Server hosts the WebSocket hub and REST surface for every active
// collaboration session, grounded on the teacher's QNTXServer hub pattern
// (server/server.go) narrowed to this domain's rooms-per-diagram shape.
type Server struct {
	cfg *config.Config
	log *zap.SugaredLogger

	users    *store.UserStore
	diagrams *store.DiagramStore
	sessions *store.SessionStore
	jwt      *auth.JWTManager

	engines     *engineRegistry
	coordinator *session.Coordinator
	presence    *presence.Cache

	mu              sync.RWMutex
	clients         map[*client]bool
	clientsBySocket map[string]*client // sessionID -> client

	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Server wired to the given stores and auth manager. The
// stores must already have their schema migrated.
func New(cfg *config.Config, log *zap.SugaredLogger, users *store.UserStore, diagrams *store.DiagramStore, sessions *store.SessionStore, jwtManager *auth.JWTManager) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:             cfg,
		log:             log,
		users:           users,
		diagrams:        diagrams,
		sessions:        sessions,
		jwt:             jwtManager,
		coordinator:     session.New(),
		presence:        presence.New(presence.DefaultTTL),
		clients:         make(map[*client]bool),
		clientsBySocket: make(map[string]*client),
		ctx:             ctx,
		cancel:          cancel,
	}
	s.engines = newEngineRegistry(s.broadcastToRoom)
	return s
}

// broadcastToRoom is the mediator.BroadcastFunc wired into every diagram's
// engine: it resolves fan-out recipients via the session coordinator,
// excluding every session belonging to the originating user (spec.md's
// "never delivered to the originator" rule is keyed by user, not socket),
// and writes a diagram_updated frame to each recipient's socket.
func (s *Server) broadcastToRoom(diagramID string, ev changeset.ChangeEvent, excludeSessionID string) {
	originator, _ := s.participantBySession(diagramID, excludeSessionID)
	recipients := s.coordinator.Recipients(diagramID, originator.UserID)
	if len(recipients) == 0 {
		return
	}

	payload := diagramUpdatedPayload{
		Changes:   []changeset.ChangeEvent{ev},
		UserID:    originator.UserID,
		Username:  originator.Username,
		Timestamp: time.Now(),
	}

	msg := outboundMessage{Type: "diagram_updated", Payload: payload}
	s.sendToSessions(recipients, msg)
}

func (s *Server) participantBySession(diagramID, sessionID string) (*session.Participant, bool) {
	for _, p := range s.coordinator.GetParticipants(diagramID) {
		if p.SessionID == sessionID {
			return p, true
		}
	}
	return &session.Participant{}, false
}

func (s *Server) sendToSessions(sessionIDs []string, msg outboundMessage) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range sessionIDs {
		c, ok := s.clientsBySocket[id]
		if !ok {
			continue
		}
		c.sendJSON(msg)
	}
}

// Run starts the background sweep loop (mediator echo/duplicate TTLs,
// inactive-session purge, presence TTL, stale-online user flip) and blocks
// until the server is shut down.
func (s *Server) Run(addr string) error {
	s.wg.Add(1)
	go s.sweepLoop()

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	s.log.Infow("starting server", "addr", addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server and background sweep loop.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	s.wg.Wait()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) sweepLoop() {
	defer s.wg.Done()

	mediatorEvery := parseDurationOr(s.cfg.Mediator.SweepInterval, 5*time.Second)
	presenceEvery := parseDurationOr(s.cfg.Presence.SweepInterval, presence.DefaultSweepInterval)
	sessionEvery := 10 * time.Minute
	inactiveAfter := parseDurationOr(s.cfg.Session.InactiveAfter, 24*time.Hour)
	const staleOnlineAfter = 5 * time.Minute

	mediatorTicker := time.NewTicker(mediatorEvery)
	presenceTicker := time.NewTicker(presenceEvery)
	sessionTicker := time.NewTicker(sessionEvery)
	defer mediatorTicker.Stop()
	defer presenceTicker.Stop()
	defer sessionTicker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-mediatorTicker.C:
			s.engines.sweepAll()
		case <-presenceTicker.C:
			s.presence.Sweep()
			if _, err := s.users.SweepStaleOnline(s.ctx, staleOnlineAfter); err != nil {
				s.log.Warnw("failed to sweep stale online users", "error", err)
			}
		case <-sessionTicker.C:
			s.coordinator.PurgeInactive(inactiveAfter)
			if _, err := s.sessions.PurgeInactive(s.ctx, inactiveAfter); err != nil {
				s.log.Warnw("failed to purge inactive collaboration sessions", "error", err)
			}
		}
	}
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func (s *Server) registerClient(c *client) {
	s.mu.Lock()
	s.clients[c] = true
	s.clientsBySocket[c.sessionID] = c
	s.mu.Unlock()
	s.log.Infow("client connected", "session_id", shortID(c.sessionID))
}

func (s *Server) unregisterClient(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	delete(s.clientsBySocket, c.sessionID)
	s.mu.Unlock()

	removedFrom := s.coordinator.RemoveFromAllSessions(c.sessionID)
	s.presence.Unbind(c.sessionID)
	if c.userID != "" {
		if err := s.users.SetOnline(context.Background(), c.userID, false); err != nil {
			s.log.Warnw("failed to mark user offline", "user_id", c.userID, "error", err)
		}
	}

	for _, diagramID := range removedFrom {
		s.broadcastUserLeft(diagramID, c)
		c.deactivateDurableSession(diagramID)
	}
	s.log.Infow("client disconnected", "session_id", shortID(c.sessionID))
}

func (s *Server) broadcastUserLeft(diagramID string, c *client) {
	recipients := s.coordinator.Recipients(diagramID, c.userID)
	s.sendToSessions(recipients, outboundMessage{
		Type: "user_left",
		Payload: userLeftPayload{
			UserID:    c.userID,
			Username:  c.username,
			Timestamp: time.Now(),
		},
	})
}
