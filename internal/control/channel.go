package control

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/cowby123/scrcpy-go/internal/protoerr"
)

// State is the Channel's own lifecycle, independent of the broader
// session state machine in §4.F: Ready while idle, SendingFrame while the
// writer goroutine has a message in flight, Broken once an inbound decode
// has failed or the channel has been shut down.
type State int

const (
	Ready State = iota
	SendingFrame
	Broken
)

func (s State) String() string {
	switch s {
	case SendingFrame:
		return "sending"
	case Broken:
		return "broken"
	default:
		return "ready"
	}
}

// Config controls one Channel instance.
type Config struct {
	QueueSize int // outbound FIFO bound; blocks (never drops) on overflow. default 128
	BlobCap   uint32
	Logger    *slog.Logger
}

func (c Config) normalized() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = 128
	}
	if c.BlobCap == 0 {
		c.BlobCap = 0xFFFF
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

type ackWaiter struct{ done chan error }
type getWaiter struct{ done chan getResult }
type getResult struct {
	text string
	err  error
}

// Channel is the bidirectional control socket wrapper (§4.E): a single
// writer goroutine serializes outbound messages in submission order, and
// a single reader goroutine decodes inbound device messages, correlating
// SET_CLIPBOARD acks and GET_CLIPBOARD replies against a pending-waiter
// table and completing them out of band from the caller that issued them.
type Channel struct {
	cfg Config
	log *slog.Logger

	w io.Writer
	r io.Reader

	outq chan []byte
	done chan struct{}

	events chan DeviceMessage

	mu         sync.Mutex
	state      State
	terminal   error
	closingErr error // set by CloseForNewCalls (§4.F step 1); rejects new calls without touching existing waiters
	ackWaiters map[uint64]*ackWaiter
	getWaiters []*getWaiter
}

// New builds a Channel over an already-connected control socket.
// Run must be called to start the writer/reader goroutines.
func New(rw io.ReadWriter, cfg Config) *Channel {
	cfg = cfg.normalized()
	return &Channel{
		cfg:        cfg,
		log:        cfg.Logger.With("component", "control"),
		w:          rw,
		r:          rw,
		outq:       make(chan []byte, cfg.QueueSize),
		done:       make(chan struct{}),
		events:     make(chan DeviceMessage, 32),
		ackWaiters: make(map[uint64]*ackWaiter),
	}
}

// Events exposes unsolicited device messages: unsolicited clipboard
// changes, UHID output reports, app list replies, and display power state
// changes. It is closed once the channel reaches Broken.
func (c *Channel) Events() <-chan DeviceMessage { return c.events }

// State reports the channel's current lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run drives the writer and reader loops until ctx is cancelled or the
// socket fails. It returns the first fatal error encountered, suitable
// for an errgroup.Group (§4.F).
func (c *Channel) Run(ctx context.Context) error {
	errCh := make(chan error, 2)
	go func() { errCh <- c.writeLoop(ctx) }()
	go func() { errCh <- c.readLoop() }()

	// The first loop to finish triggers Shutdown, which closes done and so
	// unblocks writeLoop if it is still waiting; readLoop returns only once
	// its socket read fails or hits EOF. Waiting for both before shutting
	// down would deadlock since writeLoop only exits via done/ctx.
	first := <-errCh
	terminal := firstNonNil(first, protoerr.ErrSessionClosed)
	if ctx.Err() != nil {
		// Cancellation means the session is shutting down: pending waiters
		// complete with ErrSessionClosed (§4.F step 4).
		terminal = protoerr.ErrSessionClosed
	}
	c.Shutdown(terminal)
	if second := <-errCh; first == nil {
		first = second
	}
	return first
}

func firstNonNil(a, b error) error {
	if a != nil {
		return a
	}
	return b
}

func (c *Channel) writeLoop(ctx context.Context) error {
	for {
		select {
		case buf := <-c.outq:
			c.setState(SendingFrame)
			if _, err := c.w.Write(buf); err != nil {
				return fmt.Errorf("%w: control write: %v", protoerr.ErrTransport, err)
			}
			c.setState(Ready)
		case <-c.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Channel) setState(s State) {
	c.mu.Lock()
	if c.state != Broken {
		c.state = s
	}
	c.mu.Unlock()
}

func (c *Channel) readLoop() error {
	for {
		msg, err := decodeDeviceMessage(c.r, c.cfg.BlobCap)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("%w: %v", protoerr.ErrMalformedFrame, err)
		}
		c.dispatch(msg)
	}
}

func (c *Channel) dispatch(msg DeviceMessage) {
	switch m := msg.(type) {
	case AckClipboard:
		c.mu.Lock()
		w, ok := c.ackWaiters[m.Sequence]
		if ok {
			delete(c.ackWaiters, m.Sequence)
		}
		c.mu.Unlock()
		if ok {
			w.done <- nil
		}

	case ClipboardText:
		c.mu.Lock()
		var w *getWaiter
		if len(c.getWaiters) > 0 {
			w = c.getWaiters[0]
			c.getWaiters = c.getWaiters[1:]
		}
		c.mu.Unlock()
		if w != nil {
			w.done <- getResult{text: m.Text}
		} else {
			c.events <- m
		}

	default:
		c.events <- msg
	}
}

// Shutdown marks the channel Broken, completing every outstanding waiter
// with terminal and rejecting further calls with it. Safe to call more
// than once; only the first call's error sticks.
func (c *Channel) Shutdown(terminal error) {
	c.mu.Lock()
	if c.state == Broken {
		c.mu.Unlock()
		return
	}
	c.state = Broken
	c.terminal = terminal
	acks := c.ackWaiters
	c.ackWaiters = nil
	gets := c.getWaiters
	c.getWaiters = nil
	c.mu.Unlock()

	close(c.done)
	close(c.events)
	for _, w := range acks {
		w.done <- terminal
	}
	for _, w := range gets {
		w.done <- getResult{err: terminal}
	}
}

// Send enqueues msg for the writer goroutine, blocking if the outbound
// queue is full rather than dropping it (§5: the control queue has a
// larger bound than media channels and never drops).
func (c *Channel) Send(ctx context.Context, msg Message) error {
	if err := c.rejectIfTerminal(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := msg.Encode(&buf); err != nil {
		return err
	}
	select {
	case c.outq <- buf.Bytes():
		return nil
	case <-c.done:
		return c.rejectIfTerminal()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Channel) rejectIfTerminal() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Broken {
		return c.terminal
	}
	if c.closingErr != nil {
		return c.closingErr
	}
	return nil
}

// CloseForNewCalls makes every new Send/SetClipboard/GetClipboard call
// fail immediately with err, without disturbing calls already in flight
// (§4.F step 1: "further outbound control calls fail with SessionClosing"
// while pending waiters are left to complete or to be drained later by
// Shutdown). Safe to call before Shutdown; a no-op once already Broken.
func (c *Channel) CloseForNewCalls(err error) {
	c.mu.Lock()
	if c.state != Broken {
		c.closingErr = err
	}
	c.mu.Unlock()
}

// SetClipboard sends SET_CLIPBOARD and waits for the matching
// ACK_CLIPBOARD reply (invariant #6).
func (c *Channel) SetClipboard(ctx context.Context, sequence uint64, paste bool, text string) error {
	if err := c.rejectIfTerminal(); err != nil {
		return err
	}
	w := &ackWaiter{done: make(chan error, 1)}
	c.mu.Lock()
	if c.state == Broken {
		err := c.terminal
		c.mu.Unlock()
		return err
	}
	c.ackWaiters[sequence] = w
	c.mu.Unlock()

	if err := c.Send(ctx, SetClipboardMsg{Sequence: sequence, Paste: paste, Text: text}); err != nil {
		c.mu.Lock()
		delete(c.ackWaiters, sequence)
		c.mu.Unlock()
		return err
	}

	select {
	case err := <-w.done:
		return err
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.ackWaiters, sequence)
		c.mu.Unlock()
		return ctx.Err()
	}
}

// GetClipboard sends GET_CLIPBOARD and waits for the next inbound
// CLIPBOARD message, correlated FIFO against concurrent GetClipboard calls
// (§4.E: the reply carries no sequence number).
func (c *Channel) GetClipboard(ctx context.Context, copyKey uint8) (string, error) {
	if err := c.rejectIfTerminal(); err != nil {
		return "", err
	}
	w := &getWaiter{done: make(chan getResult, 1)}
	c.mu.Lock()
	if c.state == Broken {
		err := c.terminal
		c.mu.Unlock()
		return "", err
	}
	c.getWaiters = append(c.getWaiters, w)
	c.mu.Unlock()

	if err := c.Send(ctx, GetClipboardMsg{CopyKey: copyKey}); err != nil {
		c.removeGetWaiter(w)
		return "", err
	}

	select {
	case res := <-w.done:
		return res.text, res.err
	case <-ctx.Done():
		c.removeGetWaiter(w)
		return "", ctx.Err()
	}
}

func (c *Channel) removeGetWaiter(target *getWaiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, w := range c.getWaiters {
		if w == target {
			c.getWaiters = append(c.getWaiters[:i], c.getWaiters[i+1:]...)
			return
		}
	}
}
