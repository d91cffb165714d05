package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/matrimony-api/internal/metrics"
	"github.com/iliyamo/matrimony-api/internal/model"
	"github.com/iliyamo/matrimony-api/internal/repository"
)

// ConnectionService runs the connection-request state machine:
// pending -> accepted | rejected, both terminal.
type ConnectionService struct {
	users   UserStore
	conns   ConnectionStore
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewConnectionService(users UserStore, conns ConnectionStore, log *zap.Logger, m *metrics.Metrics) *ConnectionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ConnectionService{users: users, conns: conns, log: log, metrics: m}
}

// Send creates a pending request from sender to receiver.  At most one row
// may exist per unordered pair, whatever its status.
func (s *ConnectionService) Send(ctx context.Context, senderID, receiverID uint64) (uint64, error) {
	if receiverID == 0 {
		return 0, invalid("receiver_id", "is required")
	}
	if senderID == receiverID {
		return 0, ErrSelfConnection
	}
	receiver, err := s.users.GetByID(ctx, receiverID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, err
	}
	if receiver.Status == model.StatusBlocked {
		return 0, ErrUserNotFound
	}

	exists, err := s.conns.ExistsBetween(ctx, senderID, receiverID)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, ErrDuplicateConnection
	}
	id, err := s.conns.Create(ctx, senderID, receiverID)
	if errors.Is(err, repository.ErrDuplicate) {
		// lost a race with the same or the reverse request
		return 0, ErrDuplicateConnection
	}
	if err != nil {
		return 0, err
	}
	s.metrics.ConnectionEvent("sent")
	s.log.Debug("connection requested", zap.Uint64("id", id), zap.Uint64("sender_id", senderID), zap.Uint64("receiver_id", receiverID))
	return id, nil
}

// Accept moves a pending request addressed to actingUserID to accepted.
func (s *ConnectionService) Accept(ctx context.Context, connectionID, actingUserID uint64) error {
	return s.transition(ctx, connectionID, actingUserID, model.ConnectionAccepted)
}

// Reject moves a pending request addressed to actingUserID to rejected.
func (s *ConnectionService) Reject(ctx context.Context, connectionID, actingUserID uint64) error {
	return s.transition(ctx, connectionID, actingUserID, model.ConnectionRejected)
}

func (s *ConnectionService) transition(ctx context.Context, id, actingUserID uint64, to model.ConnectionStatus) error {
	if id == 0 {
		return ErrConnectionNotFound
	}
	err := s.conns.TransitionFromPending(ctx, id, actingUserID, to)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrConnectionNotFound
	}
	if err != nil {
		return err
	}
	s.metrics.ConnectionEvent(string(to))
	return nil
}

// List returns the user's connections in either direction, newest first.
// An empty status means every status.
func (s *ConnectionService) List(ctx context.Context, userID uint64, status model.ConnectionStatus) ([]model.Connection, error) {
	return s.conns.ListForUser(ctx, userID, status)
}
