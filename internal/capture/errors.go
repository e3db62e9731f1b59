package capture

import (
	"errors"
	"fmt"

	"github.com/zombor/ndc-scanner/internal/recognition"
)

// ErrAlreadySubscribed is returned by Subscribe while another subscriber is attached
var ErrAlreadySubscribed = errors.New("session already has a subscriber")

// AcquisitionError wraps a failure of the image source
type AcquisitionError struct {
	Err error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquiring image: %v", e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// User-facing failure messages
const (
	MessageAcquisition = "Could not capture an image of the document. Check the camera and try again."
	MessageTransport   = "Could not reach the recognition service. Check your connection and try again."
	MessageParse       = "The recognition service returned a response that could not be read."
	MessageUnknown     = "Something went wrong while scanning the document. Please try again."
)

// describe maps a failure to the message shown to the user. Raw causes are logged, never shown.
func describe(err error) string {
	var acqErr *AcquisitionError
	if errors.As(err, &acqErr) {
		return MessageAcquisition
	}

	var recErr *recognition.Error
	if errors.As(err, &recErr) {
		switch recErr.Kind {
		case recognition.KindTransport:
			return MessageTransport
		case recognition.KindServer:
			return fmt.Sprintf("The recognition service returned an error (HTTP %d). Please try again later.", recErr.StatusCode)
		case recognition.KindParse:
			if recErr.Field != "" {
				return fmt.Sprintf("The recognition service returned an incomplete result: the %s field is missing.", recErr.Field)
			}
			return MessageParse
		}
	}

	return MessageUnknown
}
