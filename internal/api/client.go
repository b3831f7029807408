package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"horizon/internal/models"
)

const (
	csrfCookie = "csrftoken"
	csrfHeader = "X-CSRFToken"
)

// Error is a non-2xx API response decoded into its error payload.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: unexpected status %d", e.Status)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

// Client issues authenticated requests against the Horizon backend.
// Authentication is a session cookie held in the jar; every mutating
// request echoes the CSRF cookie back as a header.
type Client struct {
	http    *http.Client
	baseURL string
}

func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &Client{
		http: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// BaseURL returns the backend root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) csrfToken() string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	for _, cookie := range c.http.Jar.Cookies(u) {
		if cookie.Name == csrfCookie {
			return cookie.Value
		}
	}
	return ""
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// do issues a request and decodes the JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request %s %s: %w", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if isMutating(method) {
		if token := c.csrfToken(); token != "" {
			req.Header.Set(csrfHeader, token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response of %s %s: %w", method, path, err)
		}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := encodeJSON(in)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, body, "application/json", out)
}

func encodeJSON(in any) (io.Reader, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return bytes.NewReader(data), nil
}

func decodeError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		// Fall through to payload decode below so the message survives,
		// but 401 without payload still maps to the sentinel.
	case http.StatusNotFound:
		return models.ErrNotFound
	}

	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	msg := ""
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		msg = payload.Error
		if msg == "" {
			msg = payload.Detail
		}
	}

	if resp.StatusCode == http.StatusUnauthorized && msg == "" {
		return models.ErrUnauthorized
	}
	return &Error{Status: resp.StatusCode, Message: msg}
}

// FetchFile downloads a remote file (an attachment body) into memory.
// Relative URLs are resolved against the backend base URL.
func (c *Client) FetchFile(ctx context.Context, fileURL string) ([]byte, error) {
	if strings.HasPrefix(fileURL, "/") {
		fileURL = c.baseURL + fileURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build file request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("file fetch failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Status: resp.StatusCode, Message: "file fetch failed"}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file body: %w", err)
	}
	return data, nil
}

// Upload is one file staged for a multipart message submission.
type Upload struct {
	Name string
	Data []byte
}

// OutgoingMessage is the client-side payload of a message submission.
type OutgoingMessage struct {
	ReceiverID      string
	Content         string
	ReplyToID       string
	ForwardedFromID string
	Files           []Upload
}

func (m OutgoingMessage) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("receiver_id", m.ReceiverID); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("content", m.Content); err != nil {
		return nil, "", err
	}
	if m.ReplyToID != "" {
		if err := w.WriteField("reply_to_id", m.ReplyToID); err != nil {
			return nil, "", err
		}
	}
	if m.ForwardedFromID != "" {
		if err := w.WriteField("forwarded_from_id", m.ForwardedFromID); err != nil {
			return nil, "", err
		}
	}
	for _, f := range m.Files {
		part, err := w.CreateFormFile("uploaded_files", f.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
