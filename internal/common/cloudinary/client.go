// internal/common/cloudinary/client.go
package cloudinary

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	httpclient "roof-report-service/internal/common/http"
)

const DefaultBaseURL = "https://api.cloudinary.com"

// Client uploads images to Cloudinary using an unsigned upload preset.
type Client struct {
	cloudName    string
	uploadPreset string
	baseURL      string
	http         *httpclient.Client
}

type uploadResponse struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewClient(cloudName, uploadPreset, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		cloudName:    cloudName,
		uploadPreset: uploadPreset,
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         httpclient.NewClient(timeout),
	}
}

func (c *Client) CloudName() string    { return c.cloudName }
func (c *Client) UploadPreset() string { return c.uploadPreset }

// Configured reports whether both the cloud name and the upload preset are set.
func (c *Client) Configured() bool {
	return c.cloudName != "" && c.uploadPreset != ""
}

// Upload sends file (a data URI or remote URL) and returns the hosted secure URL.
func (c *Client) Upload(ctx context.Context, file string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("cloudinary is not configured")
	}

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/upload", c.baseURL, url.PathEscape(c.cloudName))
	form := url.Values{}
	form.Set("file", file)
	form.Set("upload_preset", c.uploadPreset)

	var resp uploadResponse
	if err := c.http.PostForm(ctx, endpoint, form, &resp); err != nil {
		var statusErr *httpclient.StatusError
		if stderrors.As(err, &statusErr) && resp.Error != nil && resp.Error.Message != "" {
			return "", fmt.Errorf("cloudinary upload rejected (status %d): %s", statusErr.StatusCode, resp.Error.Message)
		}
		return "", fmt.Errorf("cloudinary upload failed: %w", err)
	}
	if resp.SecureURL == "" {
		return "", fmt.Errorf("cloudinary response missing secure_url")
	}
	return resp.SecureURL, nil
}
