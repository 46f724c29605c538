package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/adstash/adstash/internal/scraper"
)

const DefaultBaseURL = "http://localhost:8080"

// Client talks to the extension surface of the API with a personal access
// token.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
}

func New(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is returned for any response with status >= 400.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed with status %d: %s", e.Status, e.Message)
}

// StatusOf reports the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func (c *Client) makeRequest(ctx context.Context, method, endpoint string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var env envelope
	// error bodies from proxies are not always json
	decodeErr := json.Unmarshal(respBody, &env)

	if resp.StatusCode >= 400 {
		msg := env.Error
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(respBody))
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// Verify checks the token and returns its owner.
func (c *Client) Verify(ctx context.Context) (User, error) {
	var u User
	err := c.makeRequest(ctx, http.MethodGet, "/api/extension/verify", nil, &u)
	return u, err
}

func (c *Client) ListTags(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	err := c.makeRequest(ctx, http.MethodGet, "/api/extension/tags", nil, &tags)
	return tags, err
}

// Scan sends captured page HTML to the server-side scanner.
func (c *Client) Scan(ctx context.Context, pageURL, html string) (scraper.Page, error) {
	var page scraper.Page
	err := c.makeRequest(ctx, http.MethodPost, "/api/extension/scan", map[string]string{
		"url":  pageURL,
		"html": html,
	}, &page)
	return page, err
}

func (c *Client) InitUpload(ctx context.Context, in InitUploadRequest) (UploadTicket, error) {
	var t UploadTicket
	err := c.makeRequest(ctx, http.MethodPost, "/api/extension/init-upload", in, &t)
	return t, err
}

func (c *Client) FinalizeUpload(ctx context.Context, in FinalizeUploadRequest) (Asset, error) {
	var a Asset
	err := c.makeRequest(ctx, http.MethodPost, "/api/extension/finalize-upload", in, &a)
	return a, err
}

// Upload PUTs raw bytes to a signed URL. Signed URLs carry their own
// credentials so no Authorization header is sent.
func (c *Client) Upload(ctx context.Context, target *SignedUpload, contentType string, data []byte) error {
	if target == nil || target.URL == "" {
		return errors.New("no signed upload url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.ContentLength = int64(len(data))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(b))}
	}
	return nil
}

// Fetch downloads a remote file, refusing anything larger than maxBytes.
func (c *Client) Fetch(ctx context.Context, url string, maxBytes int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, "", &APIError{Status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > maxBytes {
		return nil, "", fmt.Errorf("%s exceeds %d bytes", url, maxBytes)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
