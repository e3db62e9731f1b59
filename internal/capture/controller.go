package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/ndc-scanner/internal/recognition"
	"github.com/zombor/ndc-scanner/internal/scanning"
)

// DefaultDrainTimeout bounds how long a closed controller keeps undelivered updates for
// its subscriber
const DefaultDrainTimeout = 5 * time.Second

// IDGenerator generates session IDs
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Controller drives one capture session through acquire, upload and result. It is the
// only writer of the session; observers read snapshots.
type Controller struct {
	source       scanning.Source
	recognizer   recognition.Recognizer
	idGenerator  IDGenerator
	timeSource   TimeSource
	drainTimeout time.Duration

	mu       sync.Mutex
	session  session
	inFlight chan struct{} // closed when the running attempt reaches a terminal state
	sub      *subscription
	closed   bool
}

// NewController creates a new Controller with a default ID generator and time source
func NewController(source scanning.Source, recognizer recognition.Recognizer) *Controller {
	return NewControllerWithDeps(source, recognizer, &uuidGenerator{}, &defaultTimeSource{})
}

// NewControllerWithDeps creates a new Controller with custom dependencies for testing
func NewControllerWithDeps(source scanning.Source, recognizer recognition.Recognizer, idGen IDGenerator, timeSrc TimeSource) *Controller {
	c := &Controller{
		source:       source,
		recognizer:   recognizer,
		idGenerator:  idGen,
		timeSource:   timeSrc,
		drainTimeout: DefaultDrainTimeout,
	}
	c.session = session{
		id:        idGen.Generate(),
		status:    StatusIdle,
		updatedAt: timeSrc.Now(),
	}
	return c
}

// Snapshot returns the current state of the session
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.snapshot()
}

// Subscribe attaches the single observer. The channel first yields the current snapshot
// and then every state change in order. Call cancel to detach; the channel is closed.
func (c *Controller) Subscribe() (<-chan Snapshot, func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, nil, errors.New("controller is closed")
	}
	if c.sub != nil {
		return nil, nil, ErrAlreadySubscribed
	}

	sub := newSubscription(c.session.snapshot())
	c.sub = sub

	cancel := func() {
		c.mu.Lock()
		if c.sub == sub {
			c.sub = nil
		}
		c.mu.Unlock()
		sub.cancel()
	}
	return sub.out, cancel, nil
}

// StartCapture begins a new attempt and returns immediately. It reports false, and does
// nothing, while an attempt is already in flight. Starting from a terminal state resets the
// session first.
func (c *Controller) StartCapture() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.session.status.InFlight() {
		return false
	}
	if c.session.status.Terminal() {
		c.resetLocked()
	}

	c.session.result = nil
	c.session.errorMessage = ""
	c.session.image = nil
	c.setStatusLocked(StatusCapturing)

	done := make(chan struct{})
	c.inFlight = done
	go c.run(c.session.id, done)

	return true
}

// Reset returns the session to Idle, discarding the image, result and error. An attempt in
// flight is not cancelled: Reset waits for it to finish first.
func (c *Controller) Reset() {
	for {
		c.mu.Lock()
		done := c.inFlight
		if done == nil {
			if c.session.status != StatusIdle {
				c.resetLocked()
			}
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
		<-done
	}
}

// Close waits for any attempt in flight, then closes the subscriber channel after the
// remaining updates are delivered. Updates still unread after the drain timeout are
// dropped. StartCapture is refused afterwards.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.closed = true
	done := c.inFlight
	c.mu.Unlock()

	if done != nil {
		<-done
	}

	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()

	if sub != nil {
		sub.finish(c.drainTimeout)
	}
	return nil
}

func (c *Controller) run(sessionID string, done chan struct{}) {
	defer close(done)

	// Cancellation is not supported; the recognizer's transport timeout bounds the attempt
	ctx := context.Background()
	logger := slog.With("session", sessionID)

	img, err := c.source.Capture(ctx)
	if err == nil && (img == nil || len(img.Data) == 0) {
		err = scanning.ErrEmptyImage
	}
	if err != nil {
		logger.Error("Failed to acquire image", "error", err)
		c.fail(&AcquisitionError{Err: err})
		return
	}

	c.mu.Lock()
	c.session.image = img.Data
	c.setStatusLocked(StatusUploading)
	c.mu.Unlock()

	logger.Info("Submitting image", "mime_type", img.MimeType, "size", len(img.Data))
	result, err := c.recognizer.Recognize(ctx, img.Data, img.MimeType)
	if err == nil && result == nil {
		err = &recognition.Error{Kind: recognition.KindParse, Err: errors.New("empty result")}
	}
	if err != nil {
		logger.Error("Failed to recognize document", "error", err)
		c.fail(err)
		return
	}

	c.mu.Lock()
	c.session.result = result.Clone()
	c.setStatusLocked(StatusSucceeded)
	c.inFlight = nil
	c.mu.Unlock()

	logger.Info("Document recognized", "name", result.Name, "code", result.Code)
}

func (c *Controller) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session.result = nil
	c.session.errorMessage = describe(err)
	c.setStatusLocked(StatusFailed)
	c.inFlight = nil
}

func (c *Controller) resetLocked() {
	c.session.id = c.idGenerator.Generate()
	c.session.image = nil
	c.session.result = nil
	c.session.errorMessage = ""
	c.setStatusLocked(StatusIdle)
}

// setStatusLocked applies a transition and publishes it; c.mu must be held
func (c *Controller) setStatusLocked(to Status) {
	from := c.session.status
	if err := c.session.transition(to, c.timeSource.Now()); err != nil {
		// unreachable through the exported methods
		slog.Error("Rejected session transition", "session", c.session.id, "error", err)
		return
	}
	slog.Debug("Session transition", "session", c.session.id, "from", from, "to", to)

	if c.sub != nil {
		c.sub.push(c.session.snapshot())
	}
}
