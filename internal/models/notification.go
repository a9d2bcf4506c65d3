// internal/models/notification.go
package models

import "fmt"

// NotificationRequest is everything the dispatcher needs to tell a homeowner their report is ready.
type NotificationRequest struct {
	ReportID     string
	Phone        string
	CustomerName string
	CompanyName  string
	CompanyEmail string
	ArtifactURL  string
}

// Message renders the homeowner SMS body.
func (r NotificationRequest) Message() string {
	return fmt.Sprintf("Hi %s, here's your roof inspection report from %s: %s", r.CustomerName, r.CompanyName, r.ArtifactURL)
}

// Notification is the receipt of one dispatched message.
type Notification struct {
	ID        string `json:"id"`
	ReportID  string `json:"reportId"`
	Channel   string `json:"channel"` // "ghl", "sns", "ses"
	ContactID string `json:"contactId,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Status    string `json:"status"` // "sent", "failed"
	SentAt    string `json:"sentAt"`
}
