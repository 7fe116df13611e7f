package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/richardiffusion/mrga/domain/chat"
	"github.com/richardiffusion/mrga/domain/persistence"
	"github.com/richardiffusion/mrga/domain/station"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTimeout         = 60 * time.Second
	DefaultMaxPromptLength = 2000
)

// Config tunes the orchestrator.
type Config struct {
	Timeout         time.Duration
	MaxPromptLength int
}

// Service orchestrates chat use cases
type Service struct {
	providers chat.ProviderResolver
	upstream  chat.UpstreamPort
	decoder   chat.StreamDecoder
	prompts   *PromptBuilder
	tracker   persistence.RequestTracker
	config    Config
}

func NewService(
	providers chat.ProviderResolver,
	upstream chat.UpstreamPort,
	decoder chat.StreamDecoder,
	stations station.Lister,
	tracker persistence.RequestTracker,
	config Config,
) *Service {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxPromptLength <= 0 {
		config.MaxPromptLength = DefaultMaxPromptLength
	}
	return &Service{
		providers: providers,
		upstream:  upstream,
		decoder:   decoder,
		prompts:   NewPromptBuilder(stations),
		tracker:   tracker,
		config:    config,
	}
}

// NewServiceWithoutTracking creates a service that records nothing
func NewServiceWithoutTracking(providers chat.ProviderResolver, upstream chat.UpstreamPort, decoder chat.StreamDecoder, stations station.Lister, config Config) *Service {
	return NewService(providers, upstream, decoder, stations, nil, config)
}

type requestIDKey struct{}

// WithRequestID attaches the request id used for tracking.
func WithRequestID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the id set by WithRequestID, or a fresh one.
func RequestIDFrom(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(requestIDKey{}).(uuid.UUID); ok && id != uuid.Nil {
		return id
	}
	return uuid.New()
}

// Validate checks the prompt before any provider work.
func (s *Service) Validate(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return chat.ErrPromptEmpty
	}
	if n := utf8.RuneCountInString(prompt); n > s.config.MaxPromptLength {
		return fmt.Errorf("%w: %d characters (max %d)", chat.ErrPromptTooLong, n, s.config.MaxPromptLength)
	}
	return nil
}

// ChatOnce answers prompt with a single buffered upstream call. Once the
// prompt and provider are accepted it never fails: every upstream problem
// is answered with the fallback text instead.
func (s *Service) ChatOnce(ctx context.Context, prompt, providerID string) (*chat.Result, error) {
	if err := s.Validate(prompt); err != nil {
		return nil, err
	}
	provider, err := s.providers.Resolve(providerID)
	if err != nil {
		return nil, err
	}

	requestID := RequestIDFrom(ctx)
	start := time.Now()
	s.startTracking(ctx, requestID, provider.Config, prompt, false)

	text, err := s.complete(ctx, provider, prompt)
	if err != nil {
		text = Fallback(prompt)
		logrus.WithFields(logrus.Fields{
			"request_id": requestID,
			"provider":   providerID,
			"error_kind": chat.Kind(err),
		}).WithError(err).Warn("Chat call failed, serving fallback")

		s.finishTracking(ctx, requestID, persistence.Outcome{Response: text, Err: err, Latency: time.Since(start)}, true)
		return &chat.Result{Response: text, Provider: providerID, Fallback: true, Reason: chat.Kind(err)}, nil
	}

	logrus.WithFields(logrus.Fields{
		"request_id": requestID,
		"provider":   providerID,
		"latency_ms": time.Since(start).Milliseconds(),
	}).Info("Chat call completed")

	s.finishTracking(ctx, requestID, persistence.Outcome{Response: text, Latency: time.Since(start)}, false)
	return &chat.Result{Response: text, Provider: providerID}, nil
}

func (s *Service) complete(ctx context.Context, provider chat.Provider, prompt string) (string, error) {
	id := provider.Config.ID
	if !provider.Config.HasCredential() {
		return "", chat.NewError(chat.ErrMissingCredential, id, nil)
	}

	req, err := provider.Adapter.BuildRequest(s.prompts.Build(ctx, prompt), provider.Config, false)
	if err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	resp, err := s.upstream.Do(callCtx, id, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyReadError(id, err)
	}
	return provider.Adapter.ParseCompletion(body)
}

// ChatStream relays the provider's answer to onEvent as it arrives. The
// sequence is zero or more content events followed by exactly one done or
// error event; failures before the first byte produce a lone error event.
// The returned error is non-nil only when onEvent fails or ctx ends, both
// meaning the client is gone.
func (s *Service) ChatStream(ctx context.Context, prompt, providerID string, onEvent chat.StreamHandler[chat.StreamEvent]) error {
	requestID := RequestIDFrom(ctx)
	start := time.Now()

	var (
		clientErr error
		events    int
		text      strings.Builder
	)
	emit := func(event chat.StreamEvent) error {
		if err := onEvent(event); err != nil {
			clientErr = err
			return err
		}
		events++
		if event.Type == chat.EventContent {
			text.WriteString(event.Content)
		}
		return nil
	}

	tracked := false
	finish := func(err error) {
		if !tracked {
			return
		}
		s.finishTracking(ctx, requestID, persistence.Outcome{
			Response:   text.String(),
			Err:        err,
			Latency:    time.Since(start),
			EventCount: events,
		}, false)
	}

	fail := func(err error) error {
		logrus.WithFields(logrus.Fields{
			"request_id": requestID,
			"provider":   providerID,
			"error_kind": chat.Kind(err),
			"events":     events,
		}).WithError(err).Warn("Chat stream failed")
		finish(err)
		if emitErr := emit(chat.ErrorEvent(err.Error())); emitErr != nil {
			return emitErr
		}
		return nil
	}

	if err := s.Validate(prompt); err != nil {
		return fail(err)
	}
	provider, err := s.providers.Resolve(providerID)
	if err != nil {
		return fail(err)
	}

	s.startTracking(ctx, requestID, provider.Config, prompt, true)
	tracked = true

	if !provider.Config.HasCredential() {
		return fail(chat.NewError(chat.ErrMissingCredential, providerID, nil))
	}

	req, err := provider.Adapter.BuildRequest(s.prompts.Build(ctx, prompt), provider.Config, true)
	if err != nil {
		return fail(err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	resp, err := s.upstream.Do(callCtx, providerID, req)
	if err != nil {
		if ctx.Err() != nil {
			finish(ctx.Err())
			return ctx.Err()
		}
		return fail(err)
	}
	defer resp.Body.Close()

	err = s.decoder.Decode(resp.Body, provider.Adapter.ParseFrame, emit)
	switch {
	case clientErr != nil:
		finish(clientErr)
		return clientErr
	case ctx.Err() != nil:
		finish(ctx.Err())
		return ctx.Err()
	case err != nil:
		return fail(classifyReadError(providerID, err))
	}

	logrus.WithFields(logrus.Fields{
		"request_id": requestID,
		"provider":   providerID,
		"events":     events,
		"latency_ms": time.Since(start).Milliseconds(),
	}).Info("Chat stream completed")
	finish(nil)
	return nil
}

// classifyReadError maps a failure while reading an accepted response.
func classifyReadError(provider string, err error) error {
	var chatErr *chat.Error
	if errors.As(err, &chatErr) {
		return err
	}
	var timeout interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &timeout) && timeout.Timeout()) {
		return chat.NewError(chat.ErrUpstreamTimeout, provider, err)
	}
	return chat.NewError(chat.ErrUpstreamTransport, provider, err)
}

func (s *Service) startTracking(ctx context.Context, requestID uuid.UUID, cfg chat.ProviderConfig, prompt string, streaming bool) {
	if s.tracker == nil {
		return
	}
	if err := s.tracker.StartTracking(context.WithoutCancel(ctx), requestID, cfg.ID, cfg.Model, prompt, streaming); err != nil {
		logrus.WithError(err).WithField("request_id", requestID).Warn("Failed to start tracking chat request")
	}
}

func (s *Service) finishTracking(ctx context.Context, requestID uuid.UUID, outcome persistence.Outcome, fallback bool) {
	if s.tracker == nil {
		return
	}
	if err := s.tracker.FinishTracking(context.WithoutCancel(ctx), requestID, outcome, fallback); err != nil {
		logrus.WithError(err).WithField("request_id", requestID).Warn("Failed to finish tracking chat request")
	}
}
