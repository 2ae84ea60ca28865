package models

// Lead is the sales-pipeline record pushed to the CRM webhook. The form tags
// cover the GET variant of /api/crm/add-contact, which is opened from email
// links and carries its fields in the query string.
type Lead struct {
	FirstName string `json:"firstName" form:"firstName" binding:"required,max=100"`
	LastName  string `json:"lastName" form:"lastName" binding:"omitempty,max=100"`
	Email     string `json:"email" form:"email" binding:"required,email,max=255"`
	Phone     string `json:"phone" form:"phone" binding:"omitempty,max=30"`
	Company   string `json:"company" form:"company" binding:"omitempty,max=150"`
	Source    string `json:"source" form:"source" binding:"omitempty,max=100"`
	Message   string `json:"message" form:"message" binding:"omitempty,max=4000"`
}
