// Package chat implements the request-handling contract shared by every
// front-end: validate, get or create the session's conversation, send,
// record the exchange, reply.
package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"career-chat/internal/registry"
)

const MsgEmpty = "Message cannot be empty"

// ValidationError is returned for input rejected before any conversation is touched.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

type Service struct {
	reg *registry.Registry
	log *zap.Logger
}

func NewService(reg *registry.Registry, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{reg: reg, log: log}
}

// Send delivers message to the conversation of sessionID and returns the model's reply.
func (s *Service) Send(ctx context.Context, sessionID, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", &ValidationError{Msg: MsgEmpty}
	}

	rec, err := s.reg.GetOrCreate(ctx, sessionID)
	if err != nil {
		return "", err
	}

	reply, err := rec.Send(ctx, message)
	if err != nil {
		s.log.Warn("send failed", zap.String("session", sessionID), zap.Error(err))
		return "", fmt.Errorf("send message: %w", err)
	}

	if err := s.reg.AppendTo(rec, message, reply); err != nil {
		// the session was cleared, or cleared and re-created, while the reply was in flight
		s.log.Info("exchange not recorded", zap.String("session", sessionID), zap.Error(err))
	}
	return reply, nil
}

// Prime creates and primes the conversation for sessionID without sending a user message.
func (s *Service) Prime(ctx context.Context, sessionID string) error {
	_, err := s.reg.GetOrCreate(ctx, sessionID)
	return err
}

func (s *Service) History(sessionID string) []registry.Exchange {
	return s.reg.Transcript(sessionID)
}

func (s *Service) Clear(sessionID string) {
	s.reg.Clear(sessionID)
}

func (s *Service) Sessions() int {
	return s.reg.Len()
}
