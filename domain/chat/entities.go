package chat

import "net/http"

// Core chat entities independent of frameworks and vendors

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ProviderConfig holds the static settings of one upstream provider.
// An empty APIKey is a valid state; it only fails once a call is attempted.
type ProviderConfig struct {
	ID          string  `yaml:"-" json:"id"`
	BaseURL     string  `yaml:"base_url" json:"base_url"`
	APIKey      string  `yaml:"api_key" json:"-"`
	Model       string  `yaml:"model" json:"model"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
}

func (c ProviderConfig) HasCredential() bool {
	return c.APIKey != ""
}

// CompletionRequest is the Chat Completions body sent upstream.
type CompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

// UpstreamRequest is a fully built provider call, ready for the transport.
type UpstreamRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   CompletionRequest
}

// Non-streaming completion response (OpenAI-compatible)
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Response struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Streaming chunk types (OpenAI-compatible)
type StreamDelta struct {
	Role             string  `json:"role,omitempty"`
	Content          *string `json:"content,omitempty"`
	ReasoningContent *string `json:"reasoning_content,omitempty"`
}

type StreamChoice struct {
	Index        int         `json:"index"`
	Delta        StreamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason,omitempty"`
}

type StreamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
	Usage   *Usage         `json:"usage,omitempty"`
}

// EventType tags a StreamEvent.
type EventType int

const (
	EventContent EventType = iota
	EventDone
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventContent:
		return "content"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// StreamEvent is the normalized unit of a chat stream. A stream carries any
// number of content events and ends with exactly one done or error event.
type StreamEvent struct {
	Type    EventType
	Content string
	Err     string
}

func ContentEvent(text string) StreamEvent {
	return StreamEvent{Type: EventContent, Content: text}
}

func DoneEvent() StreamEvent {
	return StreamEvent{Type: EventDone}
}

func ErrorEvent(msg string) StreamEvent {
	return StreamEvent{Type: EventError, Err: msg}
}

func (e StreamEvent) IsTerminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// Frame is the client-facing JSON payload of one event.
type Frame struct {
	Content *string `json:"content,omitempty"`
	Done    *bool   `json:"done,omitempty"`
	Error   *string `json:"error,omitempty"`
}

func (e StreamEvent) Frame() Frame {
	switch e.Type {
	case EventContent:
		done := false
		content := e.Content
		return Frame{Content: &content, Done: &done}
	case EventDone:
		done := true
		return Frame{Done: &done}
	default:
		msg := e.Err
		return Frame{Error: &msg}
	}
}

// ChatRequest is the inbound request of both chat operations.
type ChatRequest struct {
	Prompt   string `json:"prompt"`
	Provider string `json:"provider"`
}

// Result is the outcome of a non-streaming chat call.
type Result struct {
	Response string `json:"response"`
	Provider string `json:"provider"`
	Fallback bool   `json:"-"`

	// Reason is the error kind that caused a fallback answer.
	Reason string `json:"-"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
