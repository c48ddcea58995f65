package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const uploadEndpoint = "https://storage.googleapis.com/upload/storage/v1/b/%s/o?uploadType=media&name=%s"

// Bucket scopes object operations to one bucket. Handles come from
// Client.BucketHandle and share the client's HTTP and token plumbing.
type Bucket struct {
	name   string
	client *Client
}

// Upload writes the payload under key in the bucket and returns the
// public object URL.
func (b *Bucket) Upload(ctx context.Context, key, contentType string, payload []byte) (string, error) {
	if b == nil || b.client == nil {
		return "", errors.New("gcs bucket not initialized")
	}
	if key == "" {
		return "", errors.New("object key is required")
	}

	token, err := b.client.tokenSource.Token(ctx)
	if err != nil {
		return "", err
	}

	u := fmt.Sprintf(uploadEndpoint, url.PathEscape(b.name), url.QueryEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := b.client.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("gcs upload failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	return b.ObjectURL(key), nil
}

// Delete removes the object stored under key. Deleting a missing object
// returns ErrObjectNotFound so callers can treat it as already gone.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	if b == nil || b.client == nil {
		return errors.New("gcs bucket not initialized")
	}
	if key == "" {
		return errors.New("object key is required")
	}

	token, err := b.client.tokenSource.Token(ctx)
	if err != nil {
		return err
	}

	u := fmt.Sprintf(
		"https://storage.googleapis.com/storage/v1/b/%s/o/%s",
		url.PathEscape(b.name),
		url.PathEscape(key),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := b.client.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		return nil
	case http.StatusNotFound:
		return ErrObjectNotFound
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("gcs delete failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
}

// ErrObjectNotFound signals a delete against a nonexistent object.
var ErrObjectNotFound = errors.New("gcs object not found")

// ObjectURL returns the public media URL for key.
func (b *Bucket) ObjectURL(key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", b.name, url.PathEscape(key))
}

// ProbeURL fetches the URL with a bounded timeout and reports whether it
// serves successfully. Used to confirm a fresh upload is reachable
// before the owning record is committed.
func ProbeURL(ctx context.Context, client *http.Client, rawURL string, timeout time.Duration) error {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("object not reachable: %s", resp.Status)
	}
	return nil
}
