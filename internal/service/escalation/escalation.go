package escalation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/pkg/log"
)

// DefaultReason is recorded when the keyword gate trips.
const DefaultReason = "User requested escalation or triggered escalation keywords"

const defaultNotifyTimeout = 10 * time.Second

// Service records escalations and notifies humans in the background.
type Service struct {
	repo     core.EscalationRepository
	notifier core.Notifier
	timeout  time.Duration
	now      func() time.Time
	wg       sync.WaitGroup
}

func NewService(repo core.EscalationRepository, notifier core.Notifier) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		timeout:  defaultNotifyTimeout,
		now:      time.Now,
	}
}

// Request describes one hand-off decision.
type Request struct {
	Business     *core.Business
	Conversation *core.Conversation
	Contact      core.ContactRef
	Reason       string
	LastMessage  string
}

// Escalate records the escalation and fires a notification. It returns nil
// when the conversation had already left OPEN. Notification failures are
// logged, never returned.
func (s *Service) Escalate(ctx context.Context, req Request) (*core.Escalation, error) {
	reason := req.Reason
	if reason == "" {
		reason = DefaultReason
	}

	e, err := s.repo.Escalate(ctx, req.Conversation.ID, reason)
	if err != nil {
		return nil, fmt.Errorf("failed to record escalation: %w", err)
	}
	if e == nil {
		log.FromCtx(ctx).Debug().Str("conversation_id", req.Conversation.ID).Msg("conversation already escalated")
		return nil, nil
	}

	notice := core.EscalationNotice{
		BusinessID:     req.Business.ID,
		BusinessName:   req.Business.Name,
		ConversationID: req.Conversation.ID,
		EscalationID:   e.ID,
		Channel:        req.Conversation.Channel,
		Contact:        req.Contact,
		Reason:         reason,
		LastMessage:    req.LastMessage,
		Priority:       req.Conversation.Priority,
		Recipients:     req.Business.EscalationContacts,
		At:             s.now(),
	}

	if s.notifier != nil {
		s.wg.Add(1)
		go s.notify(context.WithoutCancel(ctx), notice)
	}
	return e, nil
}

func (s *Service) notify(ctx context.Context, n core.EscalationNotice) {
	defer s.wg.Done()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.notifier.Notify(ctx, n); err != nil {
		log.FromCtx(ctx).Error().Err(err).
			Str("conversation_id", n.ConversationID).
			Msg("failed to notify escalation")
	}
}

// Wait blocks until in-flight notifications finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) Start(ctx context.Context) error {
	return nil
}

// Shutdown waits for in-flight notifications or ctx, whichever ends first.
func (s *Service) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
