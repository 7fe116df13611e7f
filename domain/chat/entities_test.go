package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamEvent_Frame(t *testing.T) {
	tests := []struct {
		name     string
		event    StreamEvent
		expected string
	}{
		{
			name:     "content",
			event:    ContentEvent("Hi"),
			expected: `{"content":"Hi","done":false}`,
		},
		{
			name:     "empty content is still sent",
			event:    ContentEvent(""),
			expected: `{"content":"","done":false}`,
		},
		{
			name:     "done",
			event:    DoneEvent(),
			expected: `{"done":true}`,
		},
		{
			name:     "error",
			event:    ErrorEvent("deepseek api key not configured"),
			expected: `{"error":"deepseek api key not configured"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event.Frame())
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(data))
		})
	}
}

func TestStreamEvent_IsTerminal(t *testing.T) {
	assert.False(t, ContentEvent("x").IsTerminal())
	assert.True(t, DoneEvent().IsTerminal())
	assert.True(t, ErrorEvent("boom").IsTerminal())
}

func TestProviderConfig_HasCredential(t *testing.T) {
	assert.False(t, ProviderConfig{ID: "openai"}.HasCredential())
	assert.True(t, ProviderConfig{ID: "openai", APIKey: "sk-test"}.HasCredential())
}

func TestError_Matching(t *testing.T) {
	httpErr := NewHTTPError("openai", 500, "Internal Server Error")
	assert.True(t, errors.Is(httpErr, ErrUpstreamHTTP))
	assert.Equal(t, "openai api error: 500 - Internal Server Error", httpErr.Error())

	timeout := NewError(ErrUpstreamTimeout, "deepseek", context.DeadlineExceeded)
	assert.True(t, errors.Is(timeout, ErrUpstreamTimeout))
	assert.True(t, errors.Is(timeout, context.DeadlineExceeded))
	assert.False(t, errors.Is(timeout, ErrUpstreamTransport))

	var chatErr *Error
	require.True(t, errors.As(timeout, &chatErr))
	assert.Equal(t, "deepseek", chatErr.Provider)

	missing := NewError(ErrMissingCredential, "deepseek", nil)
	assert.Equal(t, "deepseek api key not configured", missing.Error())
}

func TestKind(t *testing.T) {
	assert.Equal(t, "ok", Kind(nil))
	assert.Equal(t, "missing_credential", Kind(NewError(ErrMissingCredential, "openai", nil)))
	assert.Equal(t, "invalid_provider", Kind(NewError(ErrInvalidProvider, "claude", nil)))
	assert.Equal(t, "http_error", Kind(NewHTTPError("openai", 429, "slow down")))
	assert.Equal(t, "timeout", Kind(NewError(ErrUpstreamTimeout, "openai", nil)))
	assert.Equal(t, "transport_error", Kind(NewError(ErrUpstreamTransport, "openai", errors.New("reset"))))
	assert.Equal(t, "circuit_open", Kind(NewError(ErrCircuitOpen, "openai", nil)))
	assert.Equal(t, "error", Kind(errors.New("other")))
}
