package chat

import (
	"context"
	"io"
	"net/http"
)

// StreamHandler is a generic callback for streaming items
type StreamHandler[T any] func(item T) error

// Adapter knows one provider's request shape and wire format.
type Adapter interface {
	// BuildRequest turns the final prompt into a provider call.
	BuildRequest(prompt string, cfg ProviderConfig, stream bool) (*UpstreamRequest, error)
	// ParseFrame decodes one prefix-stripped stream payload. ok is false for
	// frames that carry nothing to forward, including malformed ones.
	ParseFrame(payload string) (event StreamEvent, ok bool)
	// ParseCompletion extracts the text of a non-streaming response.
	ParseCompletion(body []byte) (string, error)
}

// UpstreamPort opens provider calls. Implementations return a *Error for
// every failure, including non-success statuses.
type UpstreamPort interface {
	Do(ctx context.Context, provider string, req *UpstreamRequest) (*http.Response, error)
}

// FrameParser is the adapter half used by the stream decoder.
type FrameParser func(payload string) (StreamEvent, bool)

// Provider pairs a provider's static config with its wire adapter.
type Provider struct {
	Config  ProviderConfig
	Adapter Adapter
}

// ProviderResolver maps a provider id to its adapter and config.
type ProviderResolver interface {
	Resolve(id string) (Provider, error)
}

// StreamDecoder turns an upstream event-stream body into events.
type StreamDecoder interface {
	Decode(body io.Reader, parse FrameParser, emit StreamHandler[StreamEvent]) error
}
