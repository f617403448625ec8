// Package api sends complexity results to a collection endpoint.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/unbound-force/krypton/internal/harvest"
	"github.com/unbound-force/krypton/internal/repository"
)

// DefaultTimeout bounds one POST, including reading the response.
const DefaultTimeout = 30 * time.Second

// Payload is the JSON document POSTed to the endpoint.
type Payload struct {
	ServiceJobID string           `json:"service_job_id"`
	ServiceName  string           `json:"service_name"`
	Git          *repository.Info `json:"git"`
	CCData       *harvest.Report  `json:"cc_data"`
	RepoToken    string           `json:"repo_token,omitempty"`
}

// Response is what the endpoint answered.
type Response struct {
	StatusCode int
	Body       string

	// Rejected is set when the body is a JSON object with an "error"
	// key.
	Rejected bool
}

// Client posts payloads.
type Client struct {
	httpClient *http.Client
}

// NewClient returns a Client with DefaultTimeout.
func NewClient() *Client {
	return &Client{httpClient: &http.Client{Timeout: DefaultTimeout}}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Post sends p to url. Any HTTP status is a successful exchange; only
// transport failures are returned as errors.
func (c *Client) Post(ctx context.Context, url string, p Payload) (*Response, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       string(data),
		Rejected:   hasErrorKey(data),
	}, nil
}

// hasErrorKey reports whether data is a JSON object carrying an
// "error" member. Bodies that are not JSON objects never count.
func hasErrorKey(data []byte) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return false
	}
	_, ok := obj["error"]
	return ok
}
