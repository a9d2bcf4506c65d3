// internal/workers/reports/notify-homeowner/models.go
package notifyhomeowner

import (
	"context"

	"roof-report-service/internal/common/errors"
	"roof-report-service/internal/common/logger"
	"roof-report-service/internal/models"
)

// ContactSystem is the relationship system that owns homeowner contacts and SMS conversations.
type ContactSystem interface {
	UpsertContact(ctx context.Context, phone, name string) (string, error)
	SendSMS(ctx context.Context, contactID, message string) (string, error)
}

// SMSSender delivers an SMS straight to a phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

type EmailSender interface {
	SendTextEmail(ctx context.Context, from, to, subject, body string) (string, error)
}

type ServiceDependencies struct {
	Contacts ContactSystem
	SMS      SMSSender   // required for ProviderSNS
	Email    EmailSender // required for IssuerCopy
	Logger   logger.Logger
}

// Delivery lists what was sent. Err aggregates every channel that failed.
type Delivery struct {
	Receipts []models.Notification
	Err      *errors.StandardError
}

// Sent reports whether the homeowner SMS went out.
func (d Delivery) Sent() bool {
	for _, r := range d.Receipts {
		if r.Channel != channelEmail && r.Status == statusSent {
			return true
		}
	}
	return false
}
