// internal/workers/reports/notify-homeowner/service.go
package notifyhomeowner

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"roof-report-service/internal/common/errors"
	"roof-report-service/internal/common/logger"
	"roof-report-service/internal/common/metrics"
	"roof-report-service/internal/models"
)

const (
	channelEmail = "ses"
	statusSent   = "sent"
	statusFailed = "failed"
)

var ErrNoContactID = stderrors.New("contact upsert returned no contact id")

type Service struct {
	config   *Config
	contacts ContactSystem
	sms      SMSSender
	email    EmailSender
	logger   logger.Logger
	now      func() time.Time
}

func NewService(deps ServiceDependencies, config *Config) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Provider == ProviderGHL && deps.Contacts == nil {
		return nil, fmt.Errorf("ghl provider requires a contact system")
	}
	if config.Provider == ProviderSNS && deps.SMS == nil {
		return nil, fmt.Errorf("sns provider requires an sms sender")
	}
	if config.IssuerCopy && deps.Email == nil {
		return nil, fmt.Errorf("issuer copy requires an email sender")
	}

	return &Service{
		config:   config,
		contacts: deps.Contacts,
		sms:      deps.SMS,
		email:    deps.Email,
		logger:   deps.Logger.WithFields(map[string]interface{}{"component": "notify-homeowner"}),
		now:      time.Now,
	}, nil
}

// Notify texts the homeowner a link to the report and, when enabled, emails the issuer a copy.
// It never returns a Go error: failures are reported in Delivery.Err.
func (s *Service) Notify(ctx context.Context, req models.NotificationRequest) Delivery {
	var (
		delivery Delivery
		merr     *multierror.Error
		failed   []string
	)

	receipt, err := s.sendHomeownerSMS(ctx, req)
	if receipt != nil {
		delivery.Receipts = append(delivery.Receipts, *receipt)
	}
	if err != nil {
		merr = multierror.Append(merr, fmt.Errorf("%s: %w", s.config.Provider, err))
		failed = append(failed, s.config.Provider)
	}

	if s.config.IssuerCopy && req.CompanyEmail != "" {
		receipt, err := s.sendIssuerCopy(ctx, req)
		delivery.Receipts = append(delivery.Receipts, receipt)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", channelEmail, err))
			failed = append(failed, channelEmail)
		}
	}

	if err := merr.ErrorOrNil(); err != nil {
		delivery.Err = errors.NewNotificationFailedError(strings.Join(failed, ","), err).
			WithMetadata("reportId", req.ReportID)
		s.logger.Warn("notification failed", map[string]interface{}{
			"reportId": req.ReportID,
			"channels": failed,
			"error":    err.Error(),
		})
	}
	return delivery
}

func (s *Service) sendHomeownerSMS(ctx context.Context, req models.NotificationRequest) (*models.Notification, error) {
	message := req.Message()

	if s.config.Provider == ProviderSNS {
		messageID, err := s.sms.SendSMS(ctx, req.Phone, message)
		return s.receipt(req, ProviderSNS, "", messageID, err), err
	}

	contactID, err := s.contacts.UpsertContact(ctx, req.Phone, req.CustomerName)
	if err != nil {
		metrics.Notifications.WithLabelValues(ProviderGHL, statusFailed).Inc()
		return nil, fmt.Errorf("upsert contact: %w", err)
	}
	if contactID == "" {
		// no contact, no message
		metrics.Notifications.WithLabelValues(ProviderGHL, statusFailed).Inc()
		return nil, ErrNoContactID
	}

	messageID, err := s.contacts.SendSMS(ctx, contactID, message)
	if err != nil {
		err = fmt.Errorf("send sms: %w", err)
	}
	return s.receipt(req, ProviderGHL, contactID, messageID, err), err
}

func (s *Service) sendIssuerCopy(ctx context.Context, req models.NotificationRequest) (models.Notification, error) {
	subject := fmt.Sprintf("Roof inspection report %s for %s", req.ReportID, req.CustomerName)
	body := fmt.Sprintf("The roof inspection report for %s is ready: %s", req.CustomerName, req.ArtifactURL)

	messageID, err := s.email.SendTextEmail(ctx, s.config.FromEmail, req.CompanyEmail, subject, body)
	return *s.receipt(req, channelEmail, "", messageID, err), err
}

func (s *Service) receipt(req models.NotificationRequest, channel, contactID, messageID string, err error) *models.Notification {
	status := statusSent
	if err != nil {
		status = statusFailed
	}
	metrics.Notifications.WithLabelValues(channel, status).Inc()

	if err == nil {
		s.logger.Info("notification sent", map[string]interface{}{
			"reportId":  req.ReportID,
			"channel":   channel,
			"messageId": messageID,
		})
	}

	return &models.Notification{
		ID:        uuid.NewString(),
		ReportID:  req.ReportID,
		Channel:   channel,
		ContactID: contactID,
		MessageID: messageID,
		Status:    status,
		SentAt:    s.now().UTC().Format(time.RFC3339),
	}
}
