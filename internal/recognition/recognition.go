package recognition

import (
	"context"
	"fmt"
	"maps"
)

// Result is the structured output of the recognition service for one document
type Result struct {
	Name   string            `json:"name"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"` // any additional fields returned by the service
}

// Clone returns a deep copy so callers never share the Fields map
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	return &Result{
		Name:   r.Name,
		Code:   r.Code,
		Fields: maps.Clone(r.Fields),
	}
}

// Recognizer defines the interface for turning a document image into a Result
type Recognizer interface {
	// Recognize submits an encoded image and returns the recognized document
	Recognize(ctx context.Context, image []byte, mimeType string) (*Result, error)
}

// Kind classifies a recognition failure
type Kind int

const (
	// KindTransport means the service could not be reached or timed out
	KindTransport Kind = iota + 1
	// KindServer means the service answered with a non-success status
	KindServer
	// KindParse means the response body was malformed or incomplete
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Error is returned by every Recognizer for failures of the remote call
type Error struct {
	Kind       Kind
	StatusCode int    // set for KindServer
	Field      string // set for KindParse when a required field is missing
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindServer:
		return fmt.Sprintf("recognition %s error (status %d): %v", e.Kind, e.StatusCode, e.Err)
	case e.Field != "":
		return fmt.Sprintf("recognition %s error: missing required field %q", e.Kind, e.Field)
	default:
		return fmt.Sprintf("recognition %s error: %v", e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func transportError(err error) *Error {
	return &Error{Kind: KindTransport, Err: err}
}

func parseError(err error) *Error {
	return &Error{Kind: KindParse, Err: err}
}
