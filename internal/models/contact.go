package models

// ContactSubmission is one contact-form request. It lives only for the
// duration of the request and is never persisted.
type ContactSubmission struct {
	FirstName      string   `json:"firstName" binding:"required,min=2,max=100"`
	LastName       string   `json:"lastName" binding:"required,min=2,max=100"`
	Email          string   `json:"email" binding:"required,email,max=255"`
	Phone          string   `json:"phone" binding:"omitempty,max=30"`
	Website        string   `json:"website" binding:"omitempty,url,max=255"`
	Company        string   `json:"company" binding:"omitempty,max=150"`
	Services       []string `json:"services" binding:"required,min=1,dive,max=64"`
	Comments       string   `json:"comments" binding:"omitempty,max=4000"`
	Budget         string   `json:"budget" binding:"required,oneof=under-10k 10k-25k 25k-50k over-50k"`
	JoinNewsletter bool     `json:"joinNewsletter"`
	AcceptTerms    bool     `json:"acceptTerms" binding:"required"`
	TurnstileToken string   `json:"turnstileToken" binding:"required,min=10"`
}

// NewsletterSignup is the body of a standalone newsletter subscribe request.
type NewsletterSignup struct {
	Name           string `json:"name" binding:"required,min=2,max=100"`
	Email          string `json:"email" binding:"required,email,max=255"`
	TurnstileToken string `json:"turnstileToken" binding:"required,min=10"`
}
