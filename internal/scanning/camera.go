//go:build gocv

package scanning

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// CameraSource grabs a single frame from a local video device via OpenCV
type CameraSource struct {
	device int
	mu     sync.Mutex // one open handle per device
}

// NewCameraSource creates a new CameraSource for the given device index
func NewCameraSource(device int) (*CameraSource, error) {
	if device < 0 {
		return nil, fmt.Errorf("invalid camera device %d", device)
	}
	return &CameraSource{device: device}, nil
}

// Capture opens the device, reads one frame and encodes it as PNG
func (c *CameraSource) Capture(ctx context.Context) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	webcam, err := gocv.OpenVideoCapture(c.device)
	if err != nil {
		return nil, fmt.Errorf("opening camera %d: %w", c.device, err)
	}
	defer webcam.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	if ok := webcam.Read(&frame); !ok || frame.Empty() {
		return nil, fmt.Errorf("reading frame from camera %d", c.device)
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, frame)
	if err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}
	defer buf.Close()

	return &Image{Data: bytes.Clone(buf.GetBytes()), MimeType: "image/png"}, nil
}
