// internal/common/ghl/client.go
package ghl

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	httpclient "roof-report-service/internal/common/http"
)

const (
	DefaultBaseURL    = "https://services.leadconnectorhq.com"
	DefaultAPIVersion = "2021-07-28"
)

// Client talks to the GoHighLevel contacts and conversations APIs.
type Client struct {
	locationID string
	baseURL    string
	http       *httpclient.Client
}

type Contact struct {
	ID         string `json:"id,omitempty"`
	Phone      string `json:"phone"`
	Name       string `json:"name,omitempty"`
	LocationID string `json:"locationId"`
}

type contactResponse struct {
	New     bool    `json:"new"`
	Contact Contact `json:"contact"`
}

type messageRequest struct {
	Type      string `json:"type"`
	ContactID string `json:"contactId"`
	Message   string `json:"message"`
}

type messageResponse struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
}

func NewClient(apiKey, locationID, baseURL, apiVersion string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	return &Client{
		locationID: locationID,
		baseURL:    strings.TrimRight(baseURL, "/"),
		http: httpclient.NewClient(timeout).
			WithHeader("Authorization", "Bearer "+apiKey).
			WithHeader("Version", apiVersion),
	}
}

// UpsertContact creates or updates the contact for phone and returns its id.
func (c *Client) UpsertContact(ctx context.Context, phone, name string) (string, error) {
	contact := Contact{
		Phone:      phone,
		Name:       name,
		LocationID: c.locationID,
	}

	var resp contactResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/contacts/upsert", contact, &resp); err != nil {
		return "", fmt.Errorf("failed to upsert contact: %w", err)
	}
	if resp.Contact.ID == "" {
		return "", fmt.Errorf("upsert contact response missing id")
	}
	return resp.Contact.ID, nil
}

// SendSMS sends message to contactID and returns the message id.
func (c *Client) SendSMS(ctx context.Context, contactID, message string) (string, error) {
	body := messageRequest{
		Type:      "SMS",
		ContactID: contactID,
		Message:   message,
	}

	var resp messageResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/conversations/messages", body, &resp); err != nil {
		return "", fmt.Errorf("failed to send sms: %w", err)
	}
	return resp.MessageID, nil
}
