package models

import "time"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
)

// Subscriber is a newsletter subscriber row. A row stays in pending state
// until the emailed confirmation link is followed.
type Subscriber struct {
	ID        string
	Name      string
	Email     string
	Status    string
	Token     string
	IP        string
	Consent   bool
	CreatedAt time.Time
}
