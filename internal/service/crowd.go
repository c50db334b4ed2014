package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/crowd-relay/internal/crowd"
	"github.com/crowd-relay/internal/metrics"
	"github.com/crowd-relay/internal/pubsub"
	"github.com/crowd-relay/internal/storage"
	"github.com/crowd-relay/internal/transport"
	"github.com/crowd-relay/pkg/logger"
)

// Config holds connection timing.
type Config struct {
	// IdleTimeout ends a player that neither sent a frame nor received a
	// command for this long.
	IdleTimeout time.Duration
	// HandshakeTimeout bounds the wait for the first frame of either role.
	HandshakeTimeout time.Duration
	// Now stamps participant commands. Defaults to time.Now.
	Now func() time.Time
}

// CrowdService runs player and participant connections against a session
// directory.
type CrowdService struct {
	sessions storage.SessionDirectory
	log      *logger.Logger
	metrics  *metrics.Metrics
	cfg      Config
}

// NewCrowdService creates a new crowd service
func NewCrowdService(sessions storage.SessionDirectory, log *logger.Logger, m *metrics.Metrics, cfg Config) *CrowdService {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &CrowdService{
		sessions: sessions,
		log:      log,
		metrics:  m,
		cfg:      cfg,
	}
}

// List summarises the live crowds
func (s *CrowdService) List() []crowd.Summary {
	return s.sessions.List()
}

// ServePlayer runs a player connection until it ends. The crowd it creates
// is removed on every exit path. A graceful close by the browser returns nil.
func (s *CrowdService) ServePlayer(ctx context.Context, conn transport.Conn) error {
	log := s.log.With(
		logger.F("role", metrics.RolePlayer),
		logger.F("remote_addr", conn.RemoteAddr()),
	)

	pump := transport.StartPump(conn)
	defer pump.Stop()

	name, err := s.handshake(ctx, pump)
	if err != nil {
		s.metrics.Connection(metrics.RolePlayer, metrics.ResultRejected)
		conn.Close()
		log.Warn("player handshake failed", logger.Err(err))
		return err
	}

	session, ends := s.sessions.Create(strings.TrimSpace(string(name)))
	s.metrics.Connection(metrics.RolePlayer, metrics.ResultAccepted)
	s.metrics.SessionsActive.Inc()

	log = log.With(
		logger.F("crowd_id", session.ID().String()),
		logger.F("name", session.Name()),
	)
	log.Info("crowd started")

	p := &player{
		conn:    conn,
		pump:    pump,
		ends:    ends,
		idle:    s.cfg.IdleTimeout,
		metrics: s.metrics,
		log:     log,
	}
	err = p.run(ctx)

	conn.Close()
	ends.Close()
	s.sessions.Remove(session.ID())
	s.metrics.SessionsActive.Dec()
	s.metrics.SessionDuration.Observe(time.Since(session.Started()).Seconds())

	return s.finish(log, "crowd ended", err)
}

// ServeParticipant runs a participant connection until it ends. It never
// affects the crowd it joined.
func (s *CrowdService) ServeParticipant(ctx context.Context, conn transport.Conn) error {
	log := s.log.With(
		logger.F("role", metrics.RoleParticipant),
		logger.F("remote_addr", conn.RemoteAddr()),
	)

	pump := transport.StartPump(conn)
	defer pump.Stop()

	member, session, err := s.join(ctx, pump)
	if err != nil {
		s.metrics.Connection(metrics.RoleParticipant, metrics.ResultRejected)
		conn.Reject(rejectReason(err))
		log.Warn("participant handshake failed", logger.Err(err))
		return err
	}
	defer member.Leave()

	s.metrics.Connection(metrics.RoleParticipant, metrics.ResultAccepted)
	s.metrics.ParticipantsActive.Inc()
	defer s.metrics.ParticipantsActive.Dec()

	log = log.With(
		logger.F("crowd_id", session.ID().String()),
		logger.F("name", session.Name()),
	)
	log.Info("participant joined")

	p := &participant{
		conn:    conn,
		pump:    pump,
		member:  member,
		now:     s.cfg.Now,
		metrics: s.metrics,
		log:     log,
	}
	err = p.run(ctx)
	conn.Close()

	return s.finish(log, "participant left", err)
}

func (s *CrowdService) join(ctx context.Context, pump *transport.Pump) (*crowd.Membership, *crowd.Session, error) {
	raw, err := s.handshake(ctx, pump)
	if err != nil {
		return nil, nil, err
	}

	id, err := crowd.ParseID(string(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}

	session, err := s.sessions.Lookup(id)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}

	// The player may have left between lookup and join.
	member, err := session.Join()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrHandshake, storage.ErrSessionNotFound)
	}
	return member, session, nil
}

// handshake waits for the first frame, which must be text.
func (s *CrowdService) handshake(ctx context.Context, pump *transport.Pump) ([]byte, error) {
	timer := time.NewTimer(s.cfg.HandshakeTimeout)
	defer timer.Stop()

	select {
	case in, ok := <-pump.C():
		if !ok {
			return nil, fmt.Errorf("%w: %w", ErrHandshake, transport.ErrClosed)
		}
		if in.Err != nil {
			return nil, fmt.Errorf("%w: %w", ErrHandshake, in.Err)
		}
		text, err := in.Frame.Text()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
		}
		return text, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: no message within %s", ErrHandshake, s.cfg.HandshakeTimeout)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrHandshake, ctx.Err())
	}
}

// finish logs the reason a loop ended and decides what the caller sees.
func (s *CrowdService) finish(log *logger.Logger, msg string, err error) error {
	switch {
	case errors.Is(err, transport.ErrClosed):
		log.Info(msg)
		return nil
	case errors.Is(err, pubsub.ErrClosed), errors.Is(err, context.Canceled), errors.Is(err, ErrIdleTimeout):
		log.Info(msg, logger.F("reason", err.Error()))
	default:
		log.Error(msg, logger.Err(err))
	}
	return err
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, crowd.ErrInvalidID):
		return "invalid crowd id"
	case errors.Is(err, storage.ErrSessionNotFound):
		return "unknown crowd"
	}
	return "handshake failed"
}
