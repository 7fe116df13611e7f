package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/richardiffusion/mrga/domain/chat"
	"github.com/richardiffusion/mrga/domain/persistence"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultWorkerCount = 5
	defaultBufferSize  = 1000
	finishAttempts     = 3
)

// EventProcessor implements persistence.EventProcessor
type EventProcessor struct {
	chatRepo    persistence.ChatRepository
	eventChan   chan any
	workerCount int
	bufferSize  int

	// retryDelay is the base wait before looking a record up again
	retryDelay time.Duration

	// State management
	mu             sync.RWMutex
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	isRunning      atomic.Bool
	processedCount atomic.Int64
	errorCount     atomic.Int64

	// Health monitoring
	lastProcessedTime atomic.Value
}

var _ persistence.EventProcessor = (*EventProcessor)(nil)

// NewEventProcessor creates a new event processor
func NewEventProcessor(chatRepo persistence.ChatRepository, workerCount int, bufferSize int) *EventProcessor {
	if workerCount <= 0 {
		workerCount = defaultWorkerCount
	}
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	return &EventProcessor{
		chatRepo:    chatRepo,
		eventChan:   make(chan any, bufferSize),
		workerCount: workerCount,
		bufferSize:  bufferSize,
		retryDelay:  200 * time.Millisecond,
	}
}

// Start begins processing events from the channel
func (ep *EventProcessor) Start(ctx context.Context) error {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	if ep.isRunning.Load() {
		return fmt.Errorf("event processor is already running")
	}

	ep.ctx, ep.cancel = context.WithCancel(ctx)
	ep.eventChan = make(chan any, ep.bufferSize)
	ep.isRunning.Store(true)
	ep.lastProcessedTime.Store(time.Now())

	for i := 0; i < ep.workerCount; i++ {
		ep.wg.Add(1)
		go ep.worker(i, ep.eventChan)
	}

	logrus.WithFields(logrus.Fields{
		"worker_count": ep.workerCount,
		"buffer_size":  ep.bufferSize,
	}).Info("Event processor started")

	return nil
}

// Stop closes the queue and lets the workers drain what is already in it
func (ep *EventProcessor) Stop() error {
	ep.mu.Lock()
	if !ep.isRunning.Load() {
		ep.mu.Unlock()
		return nil
	}
	ep.isRunning.Store(false)
	close(ep.eventChan)
	ep.mu.Unlock()

	logrus.Info("Stopping event processor...")

	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logrus.Info("Event processor stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Event processor stop timed out")
	}

	ep.cancel()
	return nil
}

// ProcessEvent queues an event without blocking; a full queue drops it
func (ep *EventProcessor) ProcessEvent(event any) error {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	if !ep.isRunning.Load() {
		return fmt.Errorf("event processor is not running")
	}

	select {
	case ep.eventChan <- event:
		return nil
	case <-ep.ctx.Done():
		return fmt.Errorf("event processor is shutting down")
	default:
		ep.errorCount.Add(1)
		logrus.Warn("Event processor queue is full, dropping event")
		return fmt.Errorf("event processor queue is full")
	}
}

// Health returns the health status of the processor
func (ep *EventProcessor) Health() persistence.ProcessorHealth {
	ep.mu.RLock()
	queueSize := len(ep.eventChan)
	ep.mu.RUnlock()

	return persistence.ProcessorHealth{
		IsRunning:      ep.isRunning.Load(),
		QueueSize:      queueSize,
		ProcessedCount: ep.processedCount.Load(),
		ErrorCount:     ep.errorCount.Load(),
	}
}

func (ep *EventProcessor) worker(workerID int, events <-chan any) {
	defer ep.wg.Done()

	logger := logrus.WithField("worker_id", workerID)
	logger.Debug("Event processor worker started")

	for {
		select {
		case event, ok := <-events:
			if !ok {
				logger.Debug("Event channel closed, worker stopping")
				return
			}

			opCtx, cancel := context.WithTimeout(ep.ctx, 10*time.Second)
			if err := ep.processEvent(opCtx, event); err != nil {
				ep.errorCount.Add(1)
				logger.WithError(err).Error("Failed to process event")
			} else {
				ep.processedCount.Add(1)
				ep.lastProcessedTime.Store(time.Now())
			}
			cancel()

		case <-ep.ctx.Done():
			logger.Debug("Context cancelled, worker stopping")
			return
		}
	}
}

func (ep *EventProcessor) processEvent(ctx context.Context, event any) error {
	switch e := event.(type) {
	case persistence.PersistenceEvent[persistence.CreateRequestEvent]:
		return ep.handleCreateRequest(ctx, e.Data)

	case persistence.PersistenceEvent[persistence.FinishRequestEvent]:
		return ep.handleFinishRequest(ctx, e.Data)

	case persistence.CreateRequestEvent:
		return ep.handleCreateRequest(ctx, e)

	case persistence.FinishRequestEvent:
		return ep.handleFinishRequest(ctx, e)

	default:
		return fmt.Errorf("unknown event type: %T", event)
	}
}

func (ep *EventProcessor) handleCreateRequest(ctx context.Context, event persistence.CreateRequestEvent) error {
	record := &persistence.ChatRecord{
		ID:        event.RequestID,
		Provider:  event.Provider,
		Model:     event.Model,
		Prompt:    event.Prompt,
		Streaming: event.Streaming,
		Status:    persistence.RequestStatusPending,
	}

	if err := ep.chatRepo.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to create chat record: %w", err)
	}
	return nil
}

// handleFinishRequest closes a record. Workers run concurrently, so the
// create event for the same id may still be in flight; the lookup retries.
func (ep *EventProcessor) handleFinishRequest(ctx context.Context, event persistence.FinishRequestEvent) error {
	var (
		record *persistence.ChatRecord
		err    error
	)

	for attempt := 0; attempt < finishAttempts; attempt++ {
		record, err = ep.chatRepo.FindByID(ctx, event.RequestID)
		if err == nil {
			break
		}
		if !errors.Is(err, persistence.ErrRecordNotFound) {
			return fmt.Errorf("failed to find chat record for finish: %w", err)
		}

		logrus.WithFields(logrus.Fields{
			"request_id": event.RequestID,
			"attempt":    attempt + 1,
		}).Debug("Chat record not found yet, retrying...")

		select {
		case <-time.After(time.Duration(attempt+1) * ep.retryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		logrus.WithError(err).WithField("request_id", event.RequestID).Warn("Cannot finish chat record: not found after retries")
		return fmt.Errorf("cannot finish non-existent chat record: %w", err)
	}

	record.Status = event.Status
	record.Response = event.Response
	record.Error = event.Error
	record.ErrorKind = event.ErrorKind
	record.LatencyMs = event.LatencyMs
	record.EventCount = event.EventCount

	return ep.chatRepo.Update(ctx, record)
}

// RequestTracker implements persistence.RequestTracker using the event processor
type RequestTracker struct {
	processor persistence.EventProcessor
}

// NewRequestTracker creates a new request tracker
func NewRequestTracker(processor persistence.EventProcessor) persistence.RequestTracker {
	return &RequestTracker{
		processor: processor,
	}
}

// StartTracking queues the pending record for a chat call
func (rt *RequestTracker) StartTracking(ctx context.Context, requestID uuid.UUID, provider, model, prompt string, streaming bool) error {
	event := persistence.CreateRequestEvent{
		RequestID: requestID,
		Provider:  provider,
		Model:     model,
		Prompt:    prompt,
		Streaming: streaming,
	}

	return rt.processor.ProcessEvent(event)
}

// FinishTracking queues the final state of a chat call
func (rt *RequestTracker) FinishTracking(ctx context.Context, requestID uuid.UUID, outcome persistence.Outcome, fallback bool) error {
	event := FinishEvent(requestID, outcome, fallback)
	if err := rt.processor.ProcessEvent(event); err != nil {
		return fmt.Errorf("failed to process finish request event: %w", err)
	}
	return nil
}

// FinishEvent maps an outcome to the record update it produces.
func FinishEvent(requestID uuid.UUID, outcome persistence.Outcome, fallback bool) persistence.FinishRequestEvent {
	event := persistence.FinishRequestEvent{
		RequestID:  requestID,
		Status:     persistence.RequestStatusCompleted,
		Response:   outcome.Response,
		LatencyMs:  outcome.Latency.Milliseconds(),
		EventCount: outcome.EventCount,
	}

	if outcome.Err != nil {
		event.Status = persistence.RequestStatusFailed
		event.Error = outcome.Err.Error()
		event.ErrorKind = chat.Kind(outcome.Err)
	}
	if fallback {
		event.Status = persistence.RequestStatusFallback
	}

	return event
}
