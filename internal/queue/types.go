package queue

import "time"

// QueueType represents the type of queue
type QueueType string

const (
	// Active queue for messages ready to be delivered
	Active QueueType = "active"
	// Deferred queue for messages that will be retried later
	Deferred QueueType = "deferred"
	// Hold queue for messages that are manually held
	Hold QueueType = "hold"
	// Failed queue for messages that failed delivery
	Failed QueueType = "failed"
)

// QueueTypes lists every queue in reporting order.
var QueueTypes = []QueueType{Active, Deferred, Hold, Failed}

// Priority represents message priority
type Priority int

const (
	PriorityLow      Priority = 1
	PriorityNormal   Priority = 2
	PriorityHigh     Priority = 3
	PriorityCritical Priority = 4
)

// String returns the display name of a priority
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityHigh:
		return "High"
	case PriorityCritical:
		return "Critical"
	default:
		return "Normal"
	}
}

// Message is the metadata of one queued outbound message
type Message struct {
	ID          string            `json:"id"`
	QueueType   QueueType         `json:"queue_type"`
	FilePath    string            `json:"file_path,omitempty"`
	From        string            `json:"from"`
	To          []string          `json:"to"`
	Domain      string            `json:"domain,omitempty"`
	Subject     string            `json:"subject"`
	Size        int64             `json:"size"`
	Priority    Priority          `json:"priority"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	NextRetry   time.Time         `json:"next_retry,omitempty"`
	RetryCount  int               `json:"retry_count"`
	LastError   string            `json:"last_error,omitempty"`
	HoldReason  string            `json:"hold_reason,omitempty"`
	Attempts    []Attempt         `json:"attempts,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

// Attempt represents a delivery attempt
type Attempt struct {
	Time   time.Time `json:"time"`
	Result string    `json:"result"`
	Error  string    `json:"error,omitempty"`
}

// QueueStats represents statistics about the queue
type QueueStats struct {
	ActiveCount   int       `json:"active_count"`
	DeferredCount int       `json:"deferred_count"`
	HoldCount     int       `json:"hold_count"`
	FailedCount   int       `json:"failed_count"`
	TotalSize     int64     `json:"total_size"`
	LastUpdated   time.Time `json:"last_updated"`
}

// Total returns the number of messages across all queues
func (s QueueStats) Total() int {
	return s.ActiveCount + s.DeferredCount + s.HoldCount + s.FailedCount
}

// Count returns the number of messages in one queue
func (s QueueStats) Count(queueType QueueType) int {
	switch queueType {
	case Active:
		return s.ActiveCount
	case Deferred:
		return s.DeferredCount
	case Hold:
		return s.HoldCount
	case Failed:
		return s.FailedCount
	default:
		return 0
	}
}

func (s *QueueStats) add(queueType QueueType, count int, size int64) {
	switch queueType {
	case Active:
		s.ActiveCount += count
	case Deferred:
		s.DeferredCount += count
	case Hold:
		s.HoldCount += count
	case Failed:
		s.FailedCount += count
	default:
		return
	}
	s.TotalSize += size
}
