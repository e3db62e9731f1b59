package recognition

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultTimeout bounds a whole request/response exchange
	DefaultTimeout = 30 * time.Second

	// maxResponseSize caps how much of a response body is read
	maxResponseSize = 1 << 20
)

// ErrEmptyImage is returned when Recognize is called without image data
var ErrEmptyImage = errors.New("image data is empty")

// Client submits document images to the recognition service over HTTPS
type Client struct {
	endpoint      *url.URL
	client        *http.Client
	allowInsecure bool
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithAllowInsecure permits plain http endpoints. Only meant for local development.
func WithAllowInsecure() Option {
	return func(c *Client) {
		c.allowInsecure = true
	}
}

// uploadRequest is the wire body expected by the document service
type uploadRequest struct {
	EncodedImage string `json:"encodedImage"`
	MimeType     string `json:"mimeType"`
}

// NewClient creates a new Client for the given endpoint
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("recognition endpoint is required")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("endpoint %q has no host", endpoint)
	}

	c := &Client{
		endpoint: u,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}

	switch u.Scheme {
	case "https":
	case "http":
		if !c.allowInsecure {
			return nil, fmt.Errorf("endpoint %q must use https", endpoint)
		}
	default:
		return nil, fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}

	return c, nil
}

// Endpoint returns the configured endpoint URL
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// Recognize sends one image to the service. No retries are attempted.
func (c *Client) Recognize(ctx context.Context, image []byte, mimeType string) (*Result, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}
	if mimeType == "" {
		mimeType = "image/png"
	}

	jsonData, err := json.Marshal(uploadRequest{
		EncodedImage: base64.StdEncoding.EncodeToString(image),
		MimeType:     mimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportError(fmt.Errorf("calling recognition service: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, transportError(fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Kind:       KindServer,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", truncate(string(body), 200)),
		}
	}

	return ParseResult(body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
