package capture

import (
	"fmt"
	"time"

	"github.com/zombor/ndc-scanner/internal/recognition"
)

// Status is the lifecycle state of a capture session
type Status string

const (
	StatusIdle      Status = "idle"
	StatusCapturing Status = "capturing"
	StatusUploading Status = "uploading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status ends an attempt
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// InFlight reports whether an attempt is running
func (s Status) InFlight() bool {
	return s == StatusCapturing || s == StatusUploading
}

// CanTransition reports whether from -> to is an edge of the session state machine
func CanTransition(from, to Status) bool {
	switch from {
	case StatusIdle:
		return to == StatusCapturing
	case StatusCapturing:
		return to == StatusUploading || to == StatusFailed
	case StatusUploading:
		return to == StatusSucceeded || to == StatusFailed
	case StatusSucceeded, StatusFailed:
		return to == StatusIdle
	default:
		return false
	}
}

// Snapshot is a read-only view of a session at one point in time
type Snapshot struct {
	SessionID    string              `json:"session_id"`
	Status       Status              `json:"status"`
	Result       *recognition.Result `json:"result,omitempty"`
	ErrorMessage string              `json:"error_message,omitempty"`
	ImageSize    int                 `json:"image_size,omitempty"` // bytes held by the session
	UpdatedAt    time.Time           `json:"updated_at"`
}

// session is owned by the Controller and only touched with its lock held
type session struct {
	id           string
	status       Status
	image        []byte
	result       *recognition.Result
	errorMessage string
	updatedAt    time.Time
}

func (s *session) transition(to Status, now time.Time) error {
	if !CanTransition(s.status, to) {
		return fmt.Errorf("invalid transition: %s -> %s", s.status, to)
	}
	s.status = to
	s.updatedAt = now
	return nil
}

func (s *session) snapshot() Snapshot {
	return Snapshot{
		SessionID:    s.id,
		Status:       s.status,
		Result:       s.result.Clone(),
		ErrorMessage: s.errorMessage,
		ImageSize:    len(s.image),
		UpdatedAt:    s.updatedAt,
	}
}
