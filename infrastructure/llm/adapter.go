package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/richardiffusion/mrga/domain/chat"

	"github.com/sirupsen/logrus"
)

const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"

	// EventPrefix marks data frames in the upstream event stream.
	EventPrefix = "data: "
	// DoneSentinel is the payload of the final upstream frame.
	DoneSentinel = "[DONE]"
)

// DefaultSystemPrompt is the persona sent as the system message.
const DefaultSystemPrompt = "You are a friendly radio DJ helping people discover radio stations. " +
	"Based on the user's request, recommend relevant stations and explain why each one fits their needs. " +
	"At the end of your response, add a line 'RECOMMENDED_STATIONS:' followed by the exact names of the stations you recommended (comma-separated)."

// CompatAdapter speaks the Chat Completions dialect shared by OpenAI and
// DeepSeek. One instance exists per provider.
type CompatAdapter struct {
	provider     string
	systemPrompt string
}

var _ chat.Adapter = (*CompatAdapter)(nil)

func NewOpenAIAdapter() *CompatAdapter {
	return &CompatAdapter{provider: ProviderOpenAI, systemPrompt: DefaultSystemPrompt}
}

// NewDeepSeekAdapter returns the DeepSeek adapter. Reasoner models stream
// reasoning_content alongside content; only content is forwarded.
func NewDeepSeekAdapter() *CompatAdapter {
	return &CompatAdapter{provider: ProviderDeepSeek, systemPrompt: DefaultSystemPrompt}
}

// WithSystemPrompt replaces the persona, mainly for tests and config.
func (a *CompatAdapter) WithSystemPrompt(prompt string) *CompatAdapter {
	if prompt != "" {
		a.systemPrompt = prompt
	}
	return a
}

func (a *CompatAdapter) Provider() string {
	return a.provider
}

func (a *CompatAdapter) BuildRequest(prompt string, cfg chat.ProviderConfig, stream bool) (*chat.UpstreamRequest, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, chat.ErrPromptEmpty
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%s: base url not configured", a.provider)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.APIKey)
	header.Set("Content-Type", "application/json")
	if stream {
		header.Set("Accept", "text/event-stream")
	} else {
		header.Set("Accept", "application/json")
	}

	return &chat.UpstreamRequest{
		Method: http.MethodPost,
		URL:    baseURL + "/chat/completions",
		Header: header,
		Body: chat.CompletionRequest{
			Model: cfg.Model,
			Messages: []chat.Message{
				{Role: chat.RoleSystem, Content: a.systemPrompt},
				{Role: chat.RoleUser, Content: prompt},
			},
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Stream:      stream,
		},
	}, nil
}

func (a *CompatAdapter) ParseFrame(payload string) (chat.StreamEvent, bool) {
	payload = strings.TrimSpace(payload)
	if payload == DoneSentinel {
		return chat.DoneEvent(), true
	}

	var chunk chat.StreamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		logrus.WithFields(logrus.Fields{
			"provider": a.provider,
			"payload":  Truncate(payload, 200),
		}).WithError(err).Warn("Skipping malformed stream frame")
		return chat.StreamEvent{}, false
	}
	if len(chunk.Choices) == 0 {
		return chat.StreamEvent{}, false
	}
	delta := chunk.Choices[0].Delta
	if delta.Content == nil || *delta.Content == "" {
		return chat.StreamEvent{}, false
	}
	return chat.ContentEvent(*delta.Content), true
}

func (a *CompatAdapter) ParseCompletion(body []byte) (string, error) {
	var out chat.Response
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode %s completion: %w", a.provider, err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", chat.NewError(chat.ErrEmptyCompletion, a.provider, nil)
	}
	return out.Choices[0].Message.Content, nil
}

// Truncate shortens s to at most n bytes for logs and error excerpts.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Registry is the static provider table, built once at start.
type Registry struct {
	providers map[string]chat.Provider
	order     []string
}

var _ chat.ProviderResolver = (*Registry)(nil)

func NewRegistry(providers ...chat.Provider) *Registry {
	r := &Registry{providers: make(map[string]chat.Provider, len(providers))}
	for _, p := range providers {
		if _, exists := r.providers[p.Config.ID]; !exists {
			r.order = append(r.order, p.Config.ID)
		}
		r.providers[p.Config.ID] = p
	}
	return r
}

func (r *Registry) Resolve(id string) (chat.Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return chat.Provider{}, chat.NewError(chat.ErrInvalidProvider, id, nil)
	}
	return p, nil
}

// IDs returns the provider ids in registration order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Credentials reports which providers have an API key configured.
func (r *Registry) Credentials() map[string]bool {
	out := make(map[string]bool, len(r.providers))
	for id, p := range r.providers {
		out[id] = p.Config.HasCredential()
	}
	return out
}

// IsInvalidProvider is a small helper for handlers.
func IsInvalidProvider(err error) bool {
	return errors.Is(err, chat.ErrInvalidProvider)
}
