package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/megacloud/megacloud-cli/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventLog          EventType = "log"
	EventNotification EventType = "notification"
	EventLoading      EventType = "loading"

	// Transfer lifecycle
	EventTransferState    EventType = "transfer_state"
	EventTransferProgress EventType = "transfer_progress"

	// Directory and stats refreshes
	EventDirectoryRefreshed EventType = "directory_refreshed"
	EventStatsRefreshed     EventType = "stats_refreshed"
	EventRefreshFailed      EventType = "refresh_failed"

	// Preview session lifecycle
	EventPreviewOpened EventType = "preview_opened"
	EventPreviewClosed EventType = "preview_closed"
)

// LogLevel defines log severity levels
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

func base(t EventType) BaseEvent {
	return BaseEvent{EventType: t, Time: time.Now()}
}

// LogEvent represents log messages
type LogEvent struct {
	BaseEvent
	Level   LogLevel
	Message string
	Source  string
	Error   error
}

// NotificationEvent is a user-visible message, one per user-initiated operation.
type NotificationEvent struct {
	BaseEvent
	Success bool
	Title   string
	Message string
}

// LoadingEvent reports the loading indicator turning on or off.
type LoadingEvent struct {
	BaseEvent
	Active bool
	Depth  int // number of operations currently holding the indicator
}

// TransferStateEvent represents a transfer state transition.
type TransferStateEvent struct {
	BaseEvent
	TaskID   string
	Kind     string // "upload", "download" or "delete"
	FileID   string
	OldState string
	NewState string
	Error    error
}

// TransferProgressEvent carries coarse progress (0-100) for a transfer.
type TransferProgressEvent struct {
	BaseEvent
	TaskID  string
	Kind    string
	Name    string
	Percent int
}

// DirectoryRefreshedEvent is published after a listing replaced the directory view.
type DirectoryRefreshedEvent struct {
	BaseEvent
	Filter string
	Query  string
	Count  int
}

// StatsRefreshedEvent is published after a stats fetch succeeded.
type StatsRefreshedEvent struct {
	BaseEvent
	StorageUsedMB   float64
	TotalFiles      int
	TotalCapacityMB float64
}

// RefreshFailedEvent reports a failed post-mutation refresh.
type RefreshFailedEvent struct {
	BaseEvent
	Target string // "directory" or "stats"
	Error  error
}

// PreviewEvent represents a preview session opening or closing.
type PreviewEvent struct {
	BaseEvent
	FileID   string
	Filename string
	MIMEType string
	Kind     string
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event // Subscribers to all events
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64 // Count of dropped events due to full buffers
}

// NewEventBus creates a new event bus with specified buffer size
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers without blocking.
// A nil bus is a valid no-op publisher.
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}

	for _, ch := range eb.all {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}
}

// Close shuts down the event bus and closes all channels
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}

	for _, ch := range eb.all {
		close(ch)
	}
}

// PublishLog is a convenience method for publishing log events
func (eb *EventBus) PublishLog(level LogLevel, message, source string, err error) {
	eb.Publish(&LogEvent{
		BaseEvent: base(EventLog),
		Level:     level,
		Message:   message,
		Source:    source,
		Error:     err,
	})
}

// PublishNotification publishes a user-visible notification.
func (eb *EventBus) PublishNotification(success bool, title, message string) {
	eb.Publish(&NotificationEvent{
		BaseEvent: base(EventNotification),
		Success:   success,
		Title:     title,
		Message:   message,
	})
}

// PublishLoading publishes a loading indicator change.
func (eb *EventBus) PublishLoading(active bool, depth int) {
	eb.Publish(&LoadingEvent{
		BaseEvent: base(EventLoading),
		Active:    active,
		Depth:     depth,
	})
}

// PublishTransferState publishes a transfer state transition.
func (eb *EventBus) PublishTransferState(taskID, kind, fileID, oldState, newState string, err error) {
	eb.Publish(&TransferStateEvent{
		BaseEvent: base(EventTransferState),
		TaskID:    taskID,
		Kind:      kind,
		FileID:    fileID,
		OldState:  oldState,
		NewState:  newState,
		Error:     err,
	})
}

// PublishTransferProgress publishes coarse transfer progress.
func (eb *EventBus) PublishTransferProgress(taskID, kind, name string, percent int) {
	eb.Publish(&TransferProgressEvent{
		BaseEvent: base(EventTransferProgress),
		TaskID:    taskID,
		Kind:      kind,
		Name:      name,
		Percent:   percent,
	})
}

// PublishDirectoryRefreshed publishes a replaced directory view.
func (eb *EventBus) PublishDirectoryRefreshed(filter, query string, count int) {
	eb.Publish(&DirectoryRefreshedEvent{
		BaseEvent: base(EventDirectoryRefreshed),
		Filter:    filter,
		Query:     query,
		Count:     count,
	})
}

// PublishStatsRefreshed publishes a successful stats fetch.
func (eb *EventBus) PublishStatsRefreshed(usedMB float64, totalFiles int, capacityMB float64) {
	eb.Publish(&StatsRefreshedEvent{
		BaseEvent:       base(EventStatsRefreshed),
		StorageUsedMB:   usedMB,
		TotalFiles:      totalFiles,
		TotalCapacityMB: capacityMB,
	})
}

// PublishRefreshFailed reports a failed directory or stats refresh.
func (eb *EventBus) PublishRefreshFailed(target string, err error) {
	eb.Publish(&RefreshFailedEvent{
		BaseEvent: base(EventRefreshFailed),
		Target:    target,
		Error:     err,
	})
}

// PublishPreview publishes a preview opened or closed event.
func (eb *EventBus) PublishPreview(t EventType, fileID, filename, mimeType, kind string) {
	eb.Publish(&PreviewEvent{
		BaseEvent: base(t),
		FileID:    fileID,
		Filename:  filename,
		MIMEType:  mimeType,
		Kind:      kind,
	})
}

// UnsubscribeAll removes a subscription channel from all event types.
// A channel obtained from SubscribeAll is closed.
func (eb *EventBus) UnsubscribeAll(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	for eventType, subscribers := range eb.subscribers {
		for i, subCh := range subscribers {
			if subCh == ch {
				subscribers[i] = subscribers[len(subscribers)-1]
				eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
				break
			}
		}
	}

	for i, subCh := range eb.all {
		if subCh == ch {
			eb.all[i] = eb.all[len(eb.all)-1]
			eb.all = eb.all[:len(eb.all)-1]
			close(subCh)
			break
		}
	}
}

// GetDroppedEventCount returns the total number of events dropped due to full buffers
func (eb *EventBus) GetDroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}
