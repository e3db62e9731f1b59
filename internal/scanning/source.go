package scanning

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrEmptyImage is returned when a source produces no image data
var ErrEmptyImage = errors.New("captured image is empty")

// Image is an encoded still image produced by a Source
type Image struct {
	Data     []byte
	MimeType string
}

// Source defines the interface for acquiring document images
type Source interface {
	// Capture produces one encoded image of the document
	Capture(ctx context.Context) (*Image, error)
}

// FileSource reads the document image from a file on every capture
type FileSource struct {
	path string
}

// NewFileSource creates a new FileSource for path
func NewFileSource(path string) (*FileSource, error) {
	if path == "" {
		return nil, fmt.Errorf("image path is required")
	}
	return &FileSource{path: path}, nil
}

// Capture reads and normalizes the image file
func (f *FileSource) Capture(ctx context.Context) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading image file: %w", err)
	}

	return Normalize(data, contentTypeForPath(f.path))
}

// contentTypeForPath maps common camera and scanner file extensions to MIME types
func contentTypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return ""
	}
}

// CommandSource runs an external capture program and reads the image from its stdout,
// e.g. "libcamera-still -n -e png -o -" or "fswebcam --png -1 -"
type CommandSource struct {
	name string
	args []string
}

// NewCommandSource creates a new CommandSource from a command line
func NewCommandSource(commandLine string) (*CommandSource, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, fmt.Errorf("capture command is required")
	}
	return &CommandSource{name: fields[0], args: fields[1:]}, nil
}

// Capture runs the command once and normalizes its output
func (c *CommandSource) Capture(ctx context.Context) (*Image, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.name, c.args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("running capture command: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("running capture command: %w", err)
	}

	return Normalize(stdout.Bytes(), "")
}
