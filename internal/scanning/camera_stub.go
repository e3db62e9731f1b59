//go:build !gocv

package scanning

import (
	"context"
	"errors"
)

// ErrCameraUnsupported is returned when the binary was built without the gocv tag
var ErrCameraUnsupported = errors.New("camera support not built in (rebuild with -tags gocv)")

// CameraSource is unavailable in this build
type CameraSource struct{}

// NewCameraSource always fails without OpenCV support
func NewCameraSource(device int) (*CameraSource, error) {
	return nil, ErrCameraUnsupported
}

// Capture always fails without OpenCV support
func (c *CameraSource) Capture(ctx context.Context) (*Image, error) {
	return nil, ErrCameraUnsupported
}
