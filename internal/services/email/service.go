package email

import (
	"bytes"
	"html/template"

	"github.com/nordveil/site-api/internal/models"
)

const htmlHeaders = "MIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\""

type Emailer interface {
	Send(to, subject, additionalHeaders, body string) error
}

// Service renders email templates and dispatches them through the emailer.
type Service struct {
	emailer      Emailer
	templatesDir string
}

func NewService(service Emailer, tempsDir string) *Service {
	return &Service{
		emailer:      service,
		templatesDir: tempsDir,
	}
}

func (e *Service) render(templateName string, data any) (string, error) {
	tmpl, err := template.ParseFiles(e.templatesDir + "/" + templateName)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", err
	}
	return body.String(), nil
}

// SendContactConfirmation tells the customer their message was received.
func (e *Service) SendContactConfirmation(firstName, toEmail string) error {
	body, err := e.render("contact_confirmation.html", map[string]string{
		"FirstName": firstName,
	})
	if err != nil {
		return err
	}
	return e.emailer.Send(toEmail, "We received your message", htmlHeaders, body)
}

// SendLeadAlert notifies the internal lead inbox about a new submission.
func (e *Service) SendLeadAlert(toEmail string, sub models.ContactSubmission) error {
	body, err := e.render("lead_alert.html", sub)
	if err != nil {
		return err
	}
	subject := "New lead: " + sub.FirstName + " " + sub.LastName
	return e.emailer.Send(toEmail, subject, htmlHeaders, body)
}

// SendSubscribeConfirmation sends the double opt-in confirmation link.
func (e *Service) SendSubscribeConfirmation(name, toEmail, link string) error {
	body, err := e.render("confirm_subscription.html", map[string]string{
		"Name": name,
		"Link": link,
	})
	if err != nil {
		return err
	}
	return e.emailer.Send(toEmail, "Confirm your newsletter subscription", htmlHeaders, body)
}

// SendWelcome greets a freshly confirmed subscriber.
func (e *Service) SendWelcome(name, toEmail string) error {
	body, err := e.render("welcome.html", map[string]string{
		"Name": name,
	})
	if err != nil {
		return err
	}
	return e.emailer.Send(toEmail, "Welcome to the newsletter", htmlHeaders, body)
}
