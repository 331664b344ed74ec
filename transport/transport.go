// Package transport is the HTTP collaborator of the reporter.
//
// It issues JSON and multipart requests against a base endpoint with a
// bearer token and returns status, headers and the full body of every
// response. It performs no retries.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/justapithecus/rpreport/iox"
)

// DefaultTimeout is the default per-request timeout.
const DefaultTimeout = 30 * time.Second

// MaxBodySize bounds how much of a response body is read.
const MaxBodySize = 32 << 20

// Config configures the transport.
type Config struct {
	// Endpoint is the base URL requests are resolved against,
	// e.g. "https://rp.example.com/api/" (required).
	Endpoint string
	// Token is sent as "Authorization: bearer <token>".
	Token string
	// Timeout is the per-request timeout (default 30s).
	Timeout time.Duration
	// AllowHTTPErrorStatus returns 4xx/5xx responses as ordinary responses.
	// When false they are returned alongside a *StatusError.
	AllowHTTPErrorStatus bool
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
	// UserAgent overrides the User-Agent header when non-empty.
	UserAgent string
}

// Part is one part of a multipart request.
type Part struct {
	Name             string
	FileName         string
	ContentType      string
	TransferEncoding string
	Data             []byte
}

// Request describes a single call. Exactly one of JSON or Parts is used;
// Parts wins when non-empty.
type Request struct {
	Method string
	// Path is relative to the endpoint, e.g. "v1/project/launch".
	Path  string
	JSON  any
	Parts []Part
}

// Response is the raw result of a call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the body as JSON into v.
func (r *Response) Decode(v any) error {
	if r == nil {
		return errors.New("nil response")
	}
	return json.Unmarshal(r.Body, v)
}

// Field returns a top-level field of a JSON object body as a string.
// Numbers are rendered in their JSON text form. The boolean is false when
// the body is not an object or the field is absent or null.
func (r *Response) Field(name string) (string, bool) {
	if r == nil || len(r.Body) == 0 {
		return "", false
	}
	dec := json.NewDecoder(bytes.NewReader(r.Body))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return "", false
	}
	switch v := obj[name].(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case nil:
		return "", false
	default:
		return fmt.Sprint(v), true
	}
}

// StatusError is returned for non-2xx responses when error statuses are
// not allowed. The response is still available for inspection.
type StatusError struct {
	Response *Response
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Response.StatusCode)
}

// Client issues requests against a configured endpoint.
type Client struct {
	config Config
	client *http.Client
}

// New creates a transport client from the given config.
// Returns an error if the endpoint is empty.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("transport requires an endpoint")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if !strings.HasSuffix(cfg.Endpoint, "/") {
		cfg.Endpoint += "/"
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.InsecureSkipVerify {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via config
		httpClient.Transport = tr
	}

	return &Client{config: cfg, client: httpClient}, nil
}

// Do performs a single request and reads the whole response body.
func (c *Client) Do(ctx context.Context, r *Request) (*Response, error) {
	body, contentType, err := encodeBody(r)
	if err != nil {
		return nil, err
	}

	url := c.config.Endpoint + strings.TrimPrefix(r.Path, "/")
	req, err := http.NewRequestWithContext(ctx, r.Method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "bearer "+c.config.Token)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.Method, r.Path, err)
	}
	defer iox.DrainClose(resp.Body)

	data, err := iox.ReadAllLimit(resp.Body, MaxBodySize)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", r.Method, r.Path, err)
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}

	if !c.config.AllowHTTPErrorStatus && resp.StatusCode >= 400 {
		return out, &StatusError{Response: out}
	}
	return out, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func encodeBody(r *Request) (io.Reader, string, error) {
	if len(r.Parts) > 0 {
		return encodeMultipart(r.Parts)
	}
	if r.JSON == nil {
		return nil, "", nil
	}
	data, err := json.Marshal(r.JSON)
	if err != nil {
		return nil, "", fmt.Errorf("marshal request body: %w", err)
	}
	return bytes.NewReader(data), "application/json", nil
}

func encodeMultipart(parts []Part) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, p := range parts {
		disposition := fmt.Sprintf(`form-data; name=%q`, p.Name)
		if p.FileName != "" {
			disposition += fmt.Sprintf(`; filename=%q`, p.FileName)
		}
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", disposition)
		if p.ContentType != "" {
			h.Set("Content-Type", p.ContentType)
		}
		if p.TransferEncoding != "" {
			h.Set("Content-Transfer-Encoding", p.TransferEncoding)
		}

		w, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create part %s: %w", p.Name, err)
		}
		if _, err := w.Write(p.Data); err != nil {
			return nil, "", fmt.Errorf("write part %s: %w", p.Name, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}
