// internal/common/pdfmonkey/client.go
package pdfmonkey

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	httpclient "roof-report-service/internal/common/http"
)

const DefaultBaseURL = "https://api.pdfmonkey.io"

// Document statuses reported by PDFMonkey.
const (
	StatusDraft      = "draft"
	StatusPending    = "pending"
	StatusGenerating = "generating"
	StatusSuccess    = "success"
	StatusFailure    = "failure"
)

type Client struct {
	baseURL string
	http    *httpclient.Client
}

// Document is the subset of a PDFMonkey document the pipeline reads.
type Document struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	DownloadURL  string `json:"download_url"`
	FailureCause string `json:"failure_cause"`
}

type documentEnvelope struct {
	Document Document `json:"document"`
}

type createRequest struct {
	Document struct {
		DocumentTemplateID string      `json:"document_template_id"`
		Payload            interface{} `json:"payload"`
		Status             string      `json:"status"`
	} `json:"document"`
}

func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpclient.NewClient(timeout).WithHeader("Authorization", "Bearer "+apiKey),
	}
}

// CreateDocument queues a render of templateID with payload and returns the new document.
func (c *Client) CreateDocument(ctx context.Context, templateID string, payload interface{}) (*Document, error) {
	var body createRequest
	body.Document.DocumentTemplateID = templateID
	body.Document.Payload = payload
	body.Document.Status = StatusPending

	var resp documentEnvelope
	if err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/api/v1/documents", body, &resp); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	if resp.Document.ID == "" {
		return nil, fmt.Errorf("create document response missing id")
	}
	return &resp.Document, nil
}

// GetDocument fetches the current state of a document.
func (c *Client) GetDocument(ctx context.Context, id string) (*Document, error) {
	endpoint := fmt.Sprintf("%s/api/v1/documents/%s", c.baseURL, url.PathEscape(id))

	var resp documentEnvelope
	if err := c.http.DoJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return &resp.Document, nil
}
