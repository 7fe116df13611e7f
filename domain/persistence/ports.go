package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrRecordNotFound is returned by FindByID for unknown ids.
var ErrRecordNotFound = errors.New("chat record not found")

// Repository defines the generic repository interface using Go generics
type Repository[T any] interface {
	Create(ctx context.Context, entity *T) error
	Update(ctx context.Context, entity *T) error
	FindByID(ctx context.Context, id uuid.UUID) (*T, error)
}

// ChatRepository defines operations specific to chat records
type ChatRepository interface {
	Repository[ChatRecord]

	FindRecent(ctx context.Context, limit int) ([]*ChatRecord, error)
	Stats(ctx context.Context) ([]ProviderStats, error)
}

// ProviderStats aggregates chat records per provider
type ProviderStats struct {
	Provider         string  `json:"provider"`
	TotalRequests    int64   `json:"total_requests"`
	StreamingCount   int64   `json:"streaming_count"`
	CompletedCount   int64   `json:"completed_count"`
	FailedCount      int64   `json:"failed_count"`
	FallbackCount    int64   `json:"fallback_count"`
	AverageLatencyMs float64 `json:"average_latency_ms"`
}

// EventProcessor defines the interface for processing persistence events asynchronously
type EventProcessor interface {
	// Start begins processing events from the channel
	Start(ctx context.Context) error

	// Stop gracefully shuts down the event processor
	Stop() error

	// ProcessEvent sends an event to be processed asynchronously
	ProcessEvent(event any) error

	// Health returns the health status of the processor
	Health() ProcessorHealth
}

// ProcessorHealth represents the health status of the event processor
type ProcessorHealth struct {
	IsRunning      bool  `json:"is_running"`
	QueueSize      int   `json:"queue_size"`
	ProcessedCount int64 `json:"processed_count"`
	ErrorCount     int64 `json:"error_count"`
}

// DatabaseManager defines the interface for database management operations
type DatabaseManager interface {
	// Connect establishes database connection
	Connect(ctx context.Context, driver, dsn string) error

	// Close closes the database connection
	Close() error

	// Migrate runs database migrations
	Migrate() error

	// Health checks database connectivity
	Health(ctx context.Context) error
}

// RequestTracker defines the interface for tracking chat calls through their lifecycle
type RequestTracker interface {
	// StartTracking begins tracking a new chat call
	StartTracking(ctx context.Context, requestID uuid.UUID, provider, model, prompt string, streaming bool) error

	// FinishTracking closes the record; the status follows from the outcome
	FinishTracking(ctx context.Context, requestID uuid.UUID, outcome Outcome, fallback bool) error
}
