package emailer

import (
	"errors"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/nordveil/site-api/internal/config"
)

// SMTPService sends mail through the configured transactional SMTP relay.
type SMTPService struct {
	user     string
	host     string
	port     string
	password string
	from     string
	log      *zap.Logger
}

func NewSMTPService(cfg config.Email, log *zap.Logger) (*SMTPService, error) {
	if cfg.Host == "" || cfg.Port == "" || cfg.From == "" {
		return nil, errors.New("SMTP credentials are not fully set")
	}
	return &SMTPService{
		user:     cfg.User,
		host:     cfg.Host,
		port:     cfg.Port,
		password: cfg.Password,
		from:     cfg.From,
		log:      log.With(zap.String("component", "SMTPService")),
	}, nil
}

func (e *SMTPService) Send(to, subject, additionalHeaders, body string) error {
	auth := smtp.PlainAuth("", e.user, e.password, e.host)

	msg := "From: " + e.from + "\n" +
		"To: " + to + "\n" +
		"Subject: " + subject + "\n" +
		additionalHeaders + "\n\n" +
		body

	addr := e.host + ":" + e.port
	if err := smtp.SendMail(addr, auth, e.from, []string{to}, []byte(msg)); err != nil {
		e.log.Error("failed to send email",
			zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		return err
	}

	e.log.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
