package newsletter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nordveil/site-api/internal/metrics"
	"github.com/nordveil/site-api/internal/models"
	"github.com/nordveil/site-api/internal/repository"
	"github.com/nordveil/site-api/internal/services/token"
)

var (
	ErrAlreadySubscribed   = errors.New("email already subscribed")
	ErrPendingConfirmation = errors.New("confirmation already pending")
)

type subscriberRepository interface {
	GetByEmail(ctx context.Context, email string) (models.Subscriber, error)
	Create(ctx context.Context, sub models.Subscriber) error
	Delete(ctx context.Context, id string) error
	ConfirmByID(ctx context.Context, id string) (bool, error)
}

type tokenIssuer interface {
	Issue(subscriberID, email string) (string, error)
	ConfirmationURL(signed string) string
	Verify(signed string) (token.Claims, error)
}

type confirmationEmailer interface {
	SendSubscribeConfirmation(name, toEmail, link string) error
	SendWelcome(name, toEmail string) error
}

// Service implements the double opt-in subscription flow.
type Service struct {
	repo    subscriberRepository
	tokens  tokenIssuer
	emailer confirmationEmailer
	log     *zap.Logger
	m       *metrics.Metrics
}

func NewService(
	repo subscriberRepository,
	tokens tokenIssuer,
	emailer confirmationEmailer,
	log *zap.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		repo:    repo,
		tokens:  tokens,
		emailer: emailer,
		log:     log.With(zap.String("component", "NewsletterService")),
		m:       m,
	}
}

// Subscribe creates a pending subscriber and sends the confirmation email.
// A confirmed subscriber yields ErrAlreadySubscribed; a pending one yields
// ErrPendingConfirmation without re-sending. If the confirmation email cannot
// be sent, the just-created row is deleted so no orphaned pending row remains.
func (s *Service) Subscribe(ctx context.Context, name, email, ip string, consent bool) error {
	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Status == models.StatusConfirmed {
			return ErrAlreadySubscribed
		}
		return ErrPendingConfirmation
	case !errors.Is(err, repository.ErrNotFound):
		return err
	}

	id := uuid.NewString()
	signed, err := s.tokens.Issue(id, email)
	if err != nil {
		return fmt.Errorf("issue confirmation token: %w", err)
	}

	sub := models.Subscriber{
		ID:        id,
		Name:      name,
		Email:     email,
		Status:    models.StatusPending,
		Token:     signed,
		IP:        ip,
		Consent:   consent,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return err
	}

	link := s.tokens.ConfirmationURL(signed)
	if err := s.emailer.SendSubscribeConfirmation(name, email, link); err != nil {
		s.m.RecordEmail("subscribe_confirmation", err)
		// roll back so the row is not stranded in pending without an email
		if delErr := s.repo.Delete(ctx, id); delErr != nil {
			s.log.Error("failed to roll back subscriber after send failure",
				zap.String("id", id), zap.Error(delErr))
		}
		return fmt.Errorf("send confirmation email: %w", err)
	}
	s.m.RecordEmail("subscribe_confirmation", nil)
	s.m.SubscriptionsCreated.Inc()

	s.log.Info("subscriber pending confirmation", zap.String("email", email))
	return nil
}

// Confirm verifies the signed token and flips the subscriber to confirmed.
// Reports false for invalid, expired, or already-used tokens.
func (s *Service) Confirm(ctx context.Context, signed string) (bool, error) {
	claims, err := s.tokens.Verify(signed)
	if err != nil {
		s.log.Info("confirmation token rejected", zap.Error(err))
		return false, nil
	}

	ok, err := s.repo.ConfirmByID(ctx, claims.SubscriberID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	s.m.SubscriptionsConfirmed.Inc()

	sub, err := s.repo.GetByEmail(ctx, claims.Email)
	if err != nil {
		s.log.Warn("confirmed subscriber not found for welcome email",
			zap.String("email", claims.Email), zap.Error(err))
		return true, nil
	}
	sendErr := s.emailer.SendWelcome(sub.Name, sub.Email)
	if sendErr != nil {
		// the subscription is already confirmed; a missing welcome is not fatal
		s.log.Warn("failed to send welcome email",
			zap.String("email", sub.Email), zap.Error(sendErr))
	}
	s.m.RecordEmail("welcome", sendErr)

	return true, nil
}
