package contact

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nordveil/site-api/internal/metrics"
	"github.com/nordveil/site-api/internal/models"
	"github.com/nordveil/site-api/internal/services/newsletter"
)

var ErrChallengeFailed = errors.New("challenge verification failed")

type challengeVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, string)
}

type notificationEmailer interface {
	SendContactConfirmation(firstName, toEmail string) error
	SendLeadAlert(toEmail string, sub models.ContactSubmission) error
}

type newsletterSubscriber interface {
	Subscribe(ctx context.Context, name, email, ip string, consent bool) error
}

// LeadPusher forwards a lead to the CRM. Optional: a nil value disables the
// CRM push step.
type LeadPusher interface {
	Push(ctx context.Context, lead models.Lead) error
}

// Result carries the user-facing outcome of a submission beyond plain success.
type Result struct {
	NewsletterNote string
}

// Service runs the contact-form pipeline for one request: challenge
// verification, the two notification emails, the optional newsletter opt-in,
// and the CRM lead push. Everything is synchronous; every failure is terminal
// for that request and nothing is retried.
type Service struct {
	verifier   challengeVerifier
	emails     notificationEmailer
	newsletter newsletterSubscriber
	crm        LeadPusher
	leadInbox  string
	log        *zap.Logger
	m          *metrics.Metrics
}

func NewService(
	verifier challengeVerifier,
	emails notificationEmailer,
	news newsletterSubscriber,
	crm LeadPusher,
	leadInbox string,
	log *zap.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		verifier:   verifier,
		emails:     emails,
		newsletter: news,
		crm:        crm,
		leadInbox:  leadInbox,
		log:        log.With(zap.String("component", "ContactService")),
		m:          m,
	}
}

func (s *Service) Submit(ctx context.Context, sub models.ContactSubmission, clientIP string) (Result, error) {
	ok, reason := s.verifier.Verify(ctx, sub.TurnstileToken, clientIP)
	if !ok {
		s.m.ChallengeChecks.WithLabelValues("rejected").Inc()
		s.m.ContactSubmissions.WithLabelValues("challenge_rejected").Inc()
		return Result{}, fmt.Errorf("%w: %s", ErrChallengeFailed, reason)
	}
	s.m.ChallengeChecks.WithLabelValues("passed").Inc()

	// A lost customer confirmation is tolerable; the submission still counts.
	if err := s.emails.SendContactConfirmation(sub.FirstName, sub.Email); err != nil {
		s.log.Warn("failed to send customer confirmation email",
			zap.String("email", sub.Email), zap.Error(err))
		s.m.RecordEmail("contact_confirmation", err)
	} else {
		s.m.RecordEmail("contact_confirmation", nil)
	}

	// The lead alert must reach the team; losing it fails the whole request.
	if err := s.emails.SendLeadAlert(s.leadInbox, sub); err != nil {
		s.m.RecordEmail("lead_alert", err)
		s.m.ContactSubmissions.WithLabelValues("lead_alert_failed").Inc()
		return Result{}, fmt.Errorf("send lead alert: %w", err)
	}
	s.m.RecordEmail("lead_alert", nil)

	var result Result
	if sub.JoinNewsletter {
		result.NewsletterNote = s.optIn(ctx, sub, clientIP)
	}

	if s.crm != nil {
		lead := models.Lead{
			FirstName: sub.FirstName,
			LastName:  sub.LastName,
			Email:     sub.Email,
			Phone:     sub.Phone,
			Company:   sub.Company,
			Source:    "contact-form",
			Message:   sub.Comments,
		}
		err := s.crm.Push(ctx, lead)
		if err != nil {
			s.log.Warn("failed to push lead to CRM", zap.Error(err))
		}
		s.m.RecordLeadPush(err)
	}

	s.m.ContactSubmissions.WithLabelValues("ok").Inc()
	return result, nil
}

func (s *Service) optIn(ctx context.Context, sub models.ContactSubmission, clientIP string) string {
	name := sub.FirstName + " " + sub.LastName
	err := s.newsletter.Subscribe(ctx, name, sub.Email, clientIP, true)
	switch {
	case err == nil:
		return "Check your inbox to confirm your newsletter subscription."
	case errors.Is(err, newsletter.ErrAlreadySubscribed):
		return "You are already subscribed to the newsletter."
	case errors.Is(err, newsletter.ErrPendingConfirmation):
		return "A confirmation email is already on its way, check your inbox."
	default:
		// opt-in is a side wish of the submission, not its point
		s.log.Warn("newsletter opt-in failed during contact submission",
			zap.String("email", sub.Email), zap.Error(err))
		return ""
	}
}
