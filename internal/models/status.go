package models

// Status is the processing lifecycle shared by queries and documents.
type Status string

const (
	StatusReceived   Status = "received"
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether an entity in s may move to next.
// pending is the conversation fast path's name for received.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusReceived, StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

type Source string

const (
	SourceWeb      Source = "web"
	SourceWhatsApp Source = "whatsapp"
)
