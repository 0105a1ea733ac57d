// Package transport is the console's only network component. Every call
// resolves to a Result; failures never surface as Go errors.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"evacconsole/internal/credentials"
	"evacconsole/internal/logger"

	"github.com/google/uuid"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultTokenHeader = "x-admin-token"

	headerRequestID   = "X-Request-ID"
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"

	// maxBodyBytes bounds how much of a response body is read.
	maxBodyBytes = 32 << 20
)

// Options configures a Client. Credentials is called on every request.
type Options struct {
	Credentials func() credentials.Credentials
	// OnForbidden runs whenever the backend answers 403.
	OnForbidden func()
	Timeout     time.Duration
	TokenHeader string
	HTTPClient  *http.Client
	Logger      *logger.Logger
	Metrics     *Metrics
}

// RequestOptions describes a single call. When Multipart is set Body is ignored.
type RequestOptions struct {
	Query     map[string]any
	Body      any
	Multipart *Multipart
}

type Client struct {
	credentials func() credentials.Credentials
	onForbidden func()
	timeout     time.Duration
	tokenHeader string
	http        *http.Client
	log         *logger.Logger
	metrics     *Metrics
}

func New(opts Options) *Client {
	c := &Client{
		credentials: opts.Credentials,
		onForbidden: opts.OnForbidden,
		timeout:     opts.Timeout,
		tokenHeader: opts.TokenHeader,
		http:        opts.HTTPClient,
		log:         logger.OrNop(opts.Logger).Named("transport"),
		metrics:     opts.Metrics,
	}
	if c.credentials == nil {
		c.credentials = func() credentials.Credentials { return credentials.Credentials{} }
	}
	if c.onForbidden == nil {
		c.onForbidden = func() {}
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.tokenHeader == "" {
		c.tokenHeader = DefaultTokenHeader
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	return c
}

func (c *Client) Get(ctx context.Context, path string, query map[string]any) Result {
	return c.Request(ctx, http.MethodGet, path, RequestOptions{Query: query})
}

func (c *Client) Post(ctx context.Context, path string, body any) Result {
	return c.Request(ctx, http.MethodPost, path, RequestOptions{Body: body})
}

func (c *Client) Put(ctx context.Context, path string, body any) Result {
	return c.Request(ctx, http.MethodPut, path, RequestOptions{Body: body})
}

func (c *Client) Patch(ctx context.Context, path string, body any) Result {
	return c.Request(ctx, http.MethodPatch, path, RequestOptions{Body: body})
}

func (c *Client) Delete(ctx context.Context, path string) Result {
	return c.Request(ctx, http.MethodDelete, path, RequestOptions{})
}

// Request performs one call against the current base URL.
func (c *Client) Request(ctx context.Context, method, path string, opts RequestOptions) Result {
	start := time.Now()
	requestID := uuid.NewString()

	res := c.do(ctx, requestID, method, path, opts)

	c.metrics.observe(method, res, time.Since(start))
	if res.Success {
		c.log.Debugw("transport_request", "request_id", requestID, "method", method, "path", path, "status", res.Status)
	} else {
		c.log.Warnw("transport_request_failed", "request_id", requestID, "method", method, "path", path,
			"status", res.Status, "kind", res.Kind(), "err", res.Error)
	}
	return res
}

func (c *Client) do(ctx context.Context, requestID, method, path string, opts RequestOptions) Result {
	creds := c.credentials()

	target, err := buildURL(creds.BaseURL, path, opts.Query)
	if err != nil {
		return failure(0, err.Error())
	}

	body, contentType, err := encodeBody(opts)
	if err != nil {
		return failure(0, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return failure(0, err.Error())
	}
	req.Header.Set(headerContentType, contentType)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set(headerRequestID, requestID)
	if creds.HasToken() {
		req.Header.Set(c.tokenHeader, creds.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return networkFailure(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if isTimeout(ctx, err) {
			return failure(0, TimeoutMessage)
		}
		return failure(resp.StatusCode, "read response body: "+err.Error())
	}

	if resp.StatusCode == http.StatusForbidden {
		c.onForbidden()
		return failure(http.StatusForbidden, AuthFailureMessage)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failure(resp.StatusCode, errorMessage(raw, resp.StatusCode))
	}

	kind, data, msg, err := normalize(raw)
	if err != nil {
		return failure(resp.StatusCode, err.Error())
	}
	c.log.Debugw("transport_envelope", "request_id", requestID, "kind", kind.String())

	return Result{
		Success: true,
		Data:    data,
		Status:  resp.StatusCode,
		Message: msg,
	}
}

// encodeBody returns the request body and the Content-Type to send. Multipart
// bodies carry their own boundary-bearing content type.
func encodeBody(opts RequestOptions) (io.Reader, string, error) {
	if opts.Multipart != nil {
		return opts.Multipart.encode()
	}
	if opts.Body == nil {
		return nil, contentTypeJSON, nil
	}
	b, err := json.Marshal(opts.Body)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(b), contentTypeJSON, nil
}

func networkFailure(ctx context.Context, err error) Result {
	if isTimeout(ctx, err) {
		return failure(0, TimeoutMessage)
	}
	return failure(0, err.Error())
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
