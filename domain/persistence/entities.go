package persistence

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatRecord stores one chat interaction and how it ended
type ChatRecord struct {
	ID         uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Provider   string        `gorm:"type:varchar(64);not null;index" json:"provider"`
	Model      string        `gorm:"type:varchar(255)" json:"model"`
	Prompt     string        `gorm:"type:text;not null" json:"prompt"`
	Response   string        `gorm:"type:text" json:"response,omitempty"`
	Streaming  bool          `gorm:"default:false;index" json:"streaming"`
	Status     RequestStatus `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"`
	Error      string        `gorm:"type:text" json:"error,omitempty"`
	ErrorKind  string        `gorm:"type:varchar(64)" json:"error_kind,omitempty"`
	LatencyMs  int64         `gorm:"default:0" json:"latency_ms"`
	EventCount int           `gorm:"default:0" json:"event_count"`
	CreatedAt  time.Time     `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

// RequestStatus represents the status of a chat request
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusFailed    RequestStatus = "failed"

	// RequestStatusFallback marks a non-streaming call answered locally.
	RequestStatusFallback RequestStatus = "fallback"
)

// BeforeCreate hook for ChatRecord
func (r *ChatRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = RequestStatusPending
	}
	return nil
}

// TableName returns the table name for ChatRecord
func (ChatRecord) TableName() string {
	return "chat_requests"
}

// EventType represents the type of persistence event
type EventType string

const (
	EventTypeCreateRequest EventType = "create_request"
	EventTypeFinishRequest EventType = "finish_request"
)

// PersistenceEvent represents events that can be processed asynchronously
type PersistenceEvent[T any] struct {
	Type EventType `json:"type"`
	Data T         `json:"data"`
}

// CreateRequestEvent data for creating a new chat record
type CreateRequestEvent struct {
	RequestID uuid.UUID `json:"request_id"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Prompt    string    `json:"prompt"`
	Streaming bool      `json:"streaming"`
}

// FinishRequestEvent data for closing a chat record
type FinishRequestEvent struct {
	RequestID  uuid.UUID     `json:"request_id"`
	Status     RequestStatus `json:"status"`
	Response   string        `json:"response"`
	Error      string        `json:"error"`
	ErrorKind  string        `json:"error_kind"`
	LatencyMs  int64         `json:"latency_ms"`
	EventCount int           `json:"event_count"`
}

// Outcome is what a finished chat call reports to the tracker
type Outcome struct {
	Response   string
	Err        error
	Latency    time.Duration
	EventCount int
}
