package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/richardiffusion/mrga/domain/chat"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// CircuitBreakerConfig holds configuration for circuit breaker behavior
type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled" json:"enabled"`
	FailureThreshold uint32        `yaml:"failure_threshold" json:"failure_threshold"`
	Timeout          time.Duration `yaml:"timeout" json:"timeout"`
	MaxRequests      uint32        `yaml:"max_requests" json:"max_requests"`
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 5,
		Timeout:          60 * time.Second,
		MaxRequests:      3,
	}
}

// CircuitBreakerTransport guards an UpstreamPort with one breaker per
// provider, so a failing provider does not slow calls to the other.
type CircuitBreakerTransport struct {
	next     chat.UpstreamPort
	config   CircuitBreakerConfig
	breakers map[string]*gobreaker.CircuitBreaker
	mutex    sync.RWMutex
}

var _ chat.UpstreamPort = (*CircuitBreakerTransport)(nil)

func NewCircuitBreakerTransport(next chat.UpstreamPort, config CircuitBreakerConfig) *CircuitBreakerTransport {
	return &CircuitBreakerTransport{
		next:     next,
		config:   config,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Do only guards opening the call. Body reads of a stream happen after the
// breaker has recorded the result.
func (c *CircuitBreakerTransport) Do(ctx context.Context, provider string, req *chat.UpstreamRequest) (*http.Response, error) {
	if !c.config.Enabled {
		return c.next.Do(ctx, provider, req)
	}

	breaker := c.getOrCreateBreaker(provider)
	result, err := breaker.Execute(func() (interface{}, error) {
		return c.next.Do(ctx, provider, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logrus.WithFields(logrus.Fields{
				"provider": provider,
				"state":    breaker.State().String(),
			}).Warn("Circuit breaker is open, failing fast")
			return nil, chat.NewError(chat.ErrCircuitOpen, provider, err)
		}
		return nil, err
	}
	return result.(*http.Response), nil
}

// GetCircuitStates returns the state of every breaker created so far.
func (c *CircuitBreakerTransport) GetCircuitStates() map[string]string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	states := make(map[string]string, len(c.breakers))
	for provider, breaker := range c.breakers {
		states[provider] = breaker.State().String()
	}
	return states
}

func (c *CircuitBreakerTransport) getOrCreateBreaker(provider string) *gobreaker.CircuitBreaker {
	c.mutex.RLock()
	if breaker, exists := c.breakers[provider]; exists {
		c.mutex.RUnlock()
		return breaker
	}
	c.mutex.RUnlock()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	// Double-check: another goroutine may have created it while we waited
	if breaker, exists := c.breakers[provider]; exists {
		return breaker
	}

	settings := gobreaker.Settings{
		Name:        fmt.Sprintf("llm-provider-%s", provider),
		MaxRequests: c.config.MaxRequests,
		Timeout:     c.config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.config.FailureThreshold
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{
				"provider":   provider,
				"from_state": from.String(),
				"to_state":   to.String(),
			}).Info("Circuit breaker state changed")
		},
	}

	breaker := gobreaker.NewCircuitBreaker(settings)
	c.breakers[provider] = breaker

	logrus.WithField("provider", provider).Info("Created new circuit breaker for provider")
	return breaker
}

// countsAsSuccess keeps client-side problems from tripping the breaker:
// a caller that went away, or a 4xx other than rate limiting, says nothing
// about the provider's health.
func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var chatErr *chat.Error
	if errors.As(err, &chatErr) && errors.Is(err, chat.ErrUpstreamHTTP) {
		return chatErr.Status >= 400 && chatErr.Status < 500 && chatErr.Status != http.StatusTooManyRequests
	}
	return false
}
