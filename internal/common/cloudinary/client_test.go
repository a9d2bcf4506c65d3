package cloudinary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpload_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1_1/demo/image/upload", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "data:image/png;base64,AAAA", r.PostForm.Get("file"))
		assert.Equal(t, "unsigned", r.PostForm.Get("upload_preset"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"public_id":"abc","secure_url":"https://res.cloudinary.com/demo/abc.png"}`))
	}))
	defer server.Close()

	client := NewClient("demo", "unsigned", server.URL, 5*time.Second)
	got, err := client.Upload(context.Background(), "data:image/png;base64,AAAA")

	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/abc.png", got)
}

func TestUpload_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Upload preset not found"}}`))
	}))
	defer server.Close()

	client := NewClient("demo", "missing", server.URL, 5*time.Second)
	_, err := client.Upload(context.Background(), "data:image/png;base64,AAAA")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Upload preset not found")
	assert.Contains(t, err.Error(), "400")
}

func TestUpload_MissingSecureURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"public_id":"abc"}`))
	}))
	defer server.Close()

	client := NewClient("demo", "unsigned", server.URL, 5*time.Second)
	_, err := client.Upload(context.Background(), "data:image/png;base64,AAAA")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "secure_url")
}

func TestUpload_NotConfigured(t *testing.T) {
	client := NewClient("", "", "", time.Second)

	assert.False(t, client.Configured())
	_, err := client.Upload(context.Background(), "data:image/png;base64,AAAA")
	assert.Error(t, err)
}
