package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/richardiffusion/mrga/domain/chat"
	"github.com/richardiffusion/mrga/infrastructure/observability"

	"github.com/sirupsen/logrus"
)

// maxErrorBody caps how much of a failed response body is kept.
const maxErrorBody = 512

// Transport performs provider calls over a pooled HTTP client.
type Transport struct {
	httpClient *http.Client
}

var _ chat.UpstreamPort = (*Transport)(nil)

// NewTransport builds the shared client. timeout bounds the whole call,
// including reading a streamed body.
func NewTransport(timeout time.Duration) *Transport {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeout,
	}

	return &Transport{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// NewTransportWithClient is used by tests to point at an httptest server.
func NewTransportWithClient(client *http.Client) *Transport {
	return &Transport{httpClient: client}
}

// Do sends req and returns the open response on a 2xx status. The caller
// owns the body. Any other status is read up to maxErrorBody bytes and
// turned into an upstream http error.
func (t *Transport) Do(ctx context.Context, provider string, req *chat.UpstreamRequest) (*http.Response, error) {
	payload, err := json.Marshal(req.Body)
	if err != nil {
		return nil, chat.NewError(chat.ErrUpstreamTransport, provider, fmt.Errorf("marshal: %w", err))
	}

	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, chat.NewError(chat.ErrUpstreamTransport, provider, fmt.Errorf("new request: %w", err))
	}
	for key, values := range req.Header {
		for _, v := range values {
			hreq.Header.Add(key, v)
		}
	}

	start := time.Now()
	resp, err := t.httpClient.Do(hreq)
	if err != nil {
		classified := Classify(provider, err)
		observability.RecordUpstream(provider, chat.Kind(classified), time.Since(start))
		logrus.WithFields(logrus.Fields{
			"provider": provider,
			"url":      req.URL,
		}).WithError(err).Warn("Upstream request failed")
		return nil, classified
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		observability.RecordUpstream(provider, fmt.Sprintf("%d", resp.StatusCode), time.Since(start))
		logrus.WithFields(logrus.Fields{
			"provider": provider,
			"status":   resp.StatusCode,
			"body":     string(excerpt),
		}).Error("Upstream API error")
		return nil, chat.NewHTTPError(provider, resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}

	observability.RecordUpstream(provider, fmt.Sprintf("%d", resp.StatusCode), time.Since(start))
	return resp, nil
}

// Classify maps a transport failure onto the upstream error kinds.
// Errors that are already classified pass through unchanged.
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	var chatErr *chat.Error
	if errors.As(err, &chatErr) {
		return err
	}
	if IsTimeout(err) {
		return chat.NewError(chat.ErrUpstreamTimeout, provider, err)
	}
	return chat.NewError(chat.ErrUpstreamTransport, provider, err)
}

// IsTimeout reports deadline expiry from the context or the network layer.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
