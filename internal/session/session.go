// Package session implements the scrcpy session coordinator (§4.F): it
// owns the transport-provided sockets and server process, drives the
// handshake, spawns the per-stream workers, fans their output out to a
// caller-supplied Sink, and drives orderly shutdown on any failure.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cowby123/scrcpy-go/internal/control"
	"github.com/cowby123/scrcpy-go/internal/demux"
	"github.com/cowby123/scrcpy-go/internal/handshake"
	"github.com/cowby123/scrcpy-go/internal/protoerr"
	"github.com/cowby123/scrcpy-go/internal/transport"
)

// State is the session lifecycle (§3): monotonically advancing, no
// backward transitions, terminal at Closed.
type State int

const (
	Configured State = iota
	Deployed
	Handshaking
	Running
	Stopping
	Closed
)

func (s State) String() string {
	switch s {
	case Deployed:
		return "deployed"
	case Handshaking:
		return "handshaking"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Closed:
		return "closed"
	default:
		return "configured"
	}
}

// Config controls one Session (SessionConfig in spec.md §3, flattened
// across the transport argv and the per-component defaults).
type Config struct {
	SCID          uint32
	LogLevel      string
	VideoEnabled  bool
	AudioEnabled  bool
	ControlEnabled bool
	VideoCodec    string
	AudioCodec    string
	MaxSize       uint32
	VideoBitRate  uint32
	MaxFPS        uint32
	TunnelForward bool
	ServerVersion string

	Port             int
	RemoteServerPath string
	LocalServerPath  string
	Classpath        string

	ControlQueueSize int
	MediaChannelSize int
	PayloadCap       uint32
	ShutdownGrace    time.Duration

	Sink   Sink
	Logger *slog.Logger
}

func (c Config) normalized() Config {
	if c.Port == 0 {
		c.Port = 27183
	}
	if c.RemoteServerPath == "" {
		c.RemoteServerPath = "/data/local/tmp/scrcpy-server.jar"
	}
	if c.ControlQueueSize <= 0 {
		c.ControlQueueSize = 128
	}
	if c.MediaChannelSize <= 0 {
		c.MediaChannelSize = 3
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = 2 * time.Second
	}
	if c.Sink == nil {
		c.Sink = NopSink{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.ServerVersion == "" {
		c.ServerVersion = "3.3.4"
	}
	return c
}

// Session is one scrcpy protocol-core instance: one transport, one
// server process, at most three sockets, bound together for the life of
// a single mirroring session (§1: "one core instance = one session").
type Session struct {
	id   string
	cfg  Config
	tr   transport.Transport
	log  *slog.Logger

	mu                sync.Mutex
	state             State
	terminatedBecause error
	terminatedSet     bool

	stopRequested atomic.Bool
	cancel        context.CancelFunc
	doneCh        chan struct{}

	controlCh *control.Channel
	meta      handshake.DeviceMeta
	server    transport.ServerHandle

	videoDemux *demux.Demuxer
	audioDemux *demux.Demuxer
}

// New constructs a Session bound to tr. Call Start to begin it.
func New(tr transport.Transport, cfg Config) *Session {
	cfg = cfg.normalized()
	id := uuid.NewString()
	return &Session{
		id:     id,
		cfg:    cfg,
		tr:     tr,
		log:    cfg.Logger.With("component", "session", "session_id", id),
		doneCh: make(chan struct{}),
	}
}

// State reports the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TerminatedBecause reports the terminal error once the session has
// closed; it is the zero value (nil) before that (invariant #5: set
// exactly once).
func (s *Session) TerminatedBecause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminatedBecause
}

// Control exposes the control channel for typed per-kind helper methods
// built on top of it (wired by the root package). Valid only once Start
// has reached Running; nil before that and for a session without a
// control socket. After Closed it still returns the shut-down channel,
// whose calls fail with its terminal error.
func (s *Session) Control() *control.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controlCh
}

// PauseStream stops frame delivery for one media stream without tearing
// down the session (supplemented feature, grounded on
// scrcpy_py_ddlx/core/demuxer/base.py's BaseDemuxer.pause()); the demuxer
// keeps draining its socket so the device-side encoder never blocks. A nil
// error means the stream was enabled and is now paused; ErrSessionClosed
// means that stream was never opened for this session.
func (s *Session) PauseStream(kind demux.StreamKind) error {
	d := s.demuxerFor(kind)
	if d == nil {
		return fmt.Errorf("%w: %s stream not enabled", protoerr.ErrSessionClosed, kind)
	}
	d.Pause()
	return nil
}

// ResumeStream re-enables frame delivery for one media stream previously
// paused with PauseStream.
func (s *Session) ResumeStream(kind demux.StreamKind) error {
	d := s.demuxerFor(kind)
	if d == nil {
		return fmt.Errorf("%w: %s stream not enabled", protoerr.ErrSessionClosed, kind)
	}
	d.Resume()
	return nil
}

func (s *Session) demuxerFor(kind demux.StreamKind) *demux.Demuxer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kind == demux.Audio {
		return s.audioDemux
	}
	return s.videoDemux
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.log.Debug("state transition", "state", st.String())
}

// Start runs deploy → spawn → open sockets → handshake → spawn workers,
// returning once the session is Running or a startup step has failed.
// Workers continue in the background; call Wait to block for Closed.
func (s *Session) Start(ctx context.Context) error {
	argv, err := transport.BuildServerArgv(transport.ArgvSpec{
		ServerVersion: s.cfg.ServerVersion,
		SCID:          s.cfg.SCID,
		LogLevel:      s.cfg.LogLevel,
		Video:         s.cfg.VideoEnabled,
		Audio:         s.cfg.AudioEnabled,
		Control:       s.cfg.ControlEnabled,
		VideoCodec:    s.cfg.VideoCodec,
		AudioCodec:    s.cfg.AudioCodec,
		MaxSize:       int(s.cfg.MaxSize),
		VideoBitRate:  int(s.cfg.VideoBitRate),
		MaxFPS:        int(s.cfg.MaxFPS),
		TunnelForward: s.cfg.TunnelForward,
	})
	if err != nil {
		return s.failStartup(err)
	}

	if s.cfg.LocalServerPath != "" {
		if err := s.tr.Push(ctx, s.cfg.LocalServerPath, s.cfg.RemoteServerPath); err != nil {
			return s.failStartup(fmt.Errorf("%w: push server: %v", protoerr.ErrTransport, err))
		}
	}

	streamCount := 0
	if s.cfg.VideoEnabled {
		streamCount++
	}
	if s.cfg.AudioEnabled {
		streamCount++
	}
	if s.cfg.ControlEnabled {
		streamCount++
	}

	factory, err := s.tr.OpenTunnel(ctx, s.cfg.Port, streamCount)
	if err != nil {
		return s.failStartup(fmt.Errorf("%w: open tunnel: %v", protoerr.ErrTransport, err))
	}

	server, err := s.tr.SpawnServer(ctx, s.cfg.RemoteServerPath, argv, s.cfg.Classpath)
	if err != nil {
		return s.failStartup(fmt.Errorf("%w: spawn server: %v", protoerr.ErrTransport, err))
	}
	s.server = server
	s.setState(Deployed)

	var videoConn, audioConn, controlConn io.ReadWriteCloser
	if s.cfg.VideoEnabled {
		if videoConn, err = factory.Next(ctx); err != nil {
			return s.failStartup(fmt.Errorf("%w: open video stream: %v", protoerr.ErrTransport, err))
		}
	}
	if s.cfg.AudioEnabled {
		if audioConn, err = factory.Next(ctx); err != nil {
			return s.failStartup(fmt.Errorf("%w: open audio stream: %v", protoerr.ErrTransport, err))
		}
	}
	if s.cfg.ControlEnabled {
		if controlConn, err = factory.Next(ctx); err != nil {
			return s.failStartup(fmt.Errorf("%w: open control stream: %v", protoerr.ErrTransport, err))
		}
	}

	s.setState(Handshaking)
	var videoR, audioR io.Reader
	if videoConn != nil {
		videoR = videoConn
	}
	if audioConn != nil {
		audioR = audioConn
	}
	meta, err := handshake.Run(videoR, audioR, handshake.Config{
		VideoEnabled: s.cfg.VideoEnabled,
		AudioEnabled: s.cfg.AudioEnabled,
		Logger:       s.cfg.Logger,
	})
	if err != nil {
		return s.failStartup(err)
	}
	s.meta = meta

	if s.cfg.AudioEnabled && !meta.AudioEnabled {
		audioConn.Close()
		audioConn = nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	var vd, ad *demux.Demuxer
	if videoConn != nil {
		vd = demux.New(demux.Config{
			Stream: demux.Video, CodecID: meta.VideoCodecID,
			ChannelSize: s.cfg.MediaChannelSize, PayloadCap: s.cfg.PayloadCap, Logger: s.cfg.Logger,
		})
	}
	if audioConn != nil {
		ad = demux.New(demux.Config{
			Stream: demux.Audio, CodecID: meta.AudioCodecID,
			ChannelSize: s.cfg.MediaChannelSize, PayloadCap: s.cfg.PayloadCap, Logger: s.cfg.Logger,
		})
	}
	var cc *control.Channel
	if controlConn != nil {
		cc = control.New(controlConn, control.Config{
			QueueSize: s.cfg.ControlQueueSize, Logger: s.cfg.Logger,
		})
	}
	s.controlCh = cc
	s.videoDemux = vd
	s.audioDemux = ad

	s.setState(Running)
	s.log.Info("session running", "device", meta.DeviceName)

	go s.run(runCtx, videoConn, audioConn, controlConn, vd, ad, cc)
	return nil
}

func (s *Session) failStartup(err error) error {
	s.markTerminated(err)
	s.setState(Closed)
	close(s.doneCh)
	return err
}

// run orchestrates the worker tasks with an errgroup (§4.F, §5): the
// first fatal error cancels gctx, which the watcher goroutine below turns
// into the §4.F steps 1–3 socket teardown, unblocking every other
// worker's pending read/write at its next suspension point.
func (s *Session) run(ctx context.Context, videoConn, audioConn, controlConn io.ReadWriteCloser, vd, ad *demux.Demuxer, cc *control.Channel) {
	g, gctx := errgroup.WithContext(ctx)

	if vd != nil {
		g.Go(func() error { return vd.Run(gctx, videoConn) })
		g.Go(func() error { return s.pumpFrames(gctx, vd, demux.Video) })
	}
	if ad != nil {
		g.Go(func() error { return ad.Run(gctx, audioConn) })
		g.Go(func() error { return s.pumpFrames(gctx, ad, demux.Audio) })
	}
	if cc != nil {
		g.Go(func() error { return cc.Run(gctx) })
		g.Go(func() error { return s.pumpEvents(gctx, cc) })
	}

	go func() {
		<-gctx.Done()
		// §4.F steps 1–3: reject new control calls, then tear down the
		// sockets so any worker blocked on a read/write unblocks with an
		// error at its next suspension point (§5 cancellation model).
		if cc != nil {
			cc.CloseForNewCalls(protoerr.ErrSessionClosing)
			controlConn.Close()
		}
		if videoConn != nil {
			videoConn.Close()
		}
		if audioConn != nil {
			audioConn.Close()
		}
	}()

	err := g.Wait()
	if s.stopRequested.Load() {
		// A caller-requested Stop races every worker's read/write against
		// a socket close of our own making; the resulting errors are an
		// artifact of that close, not a fatal cause.
		err = nil
	}
	s.shutdown(err, cc)
}

func (s *Session) pumpFrames(ctx context.Context, d *demux.Demuxer, kind demux.StreamKind) error {
	r := d.Frames()
	for {
		f, err := r.Next(ctx)
		if err == io.EOF {
			s.cfg.Sink.OnStreamEnd(kind)
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				s.cfg.Sink.OnStreamEnd(kind)
				return nil
			}
			return err
		}
		s.cfg.Sink.OnFrame(f)
	}
}

func (s *Session) pumpEvents(ctx context.Context, cc *control.Channel) error {
	for {
		select {
		case ev, ok := <-cc.Events():
			if !ok {
				return nil
			}
			s.cfg.Sink.OnDeviceEvent(ev)
		case <-ctx.Done():
			return nil
		}
	}
}

// shutdown runs the remainder of the §4.F teardown sequence (steps 1–3,
// rejecting new control calls and tearing down sockets, already happened
// in the watcher goroutine in run so every worker could unblock and reach
// g.Wait()). cause is the first genuine fatal error from any worker, or
// nil on a caller-requested Stop.
func (s *Session) shutdown(cause error, cc *control.Channel) {
	s.setState(Stopping)

	// Step 4: pending control waiters complete with SessionClosed.
	done := make(chan struct{})
	go func() {
		if cc != nil {
			cc.Shutdown(protoerr.ErrSessionClosed)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownGrace):
		s.log.Warn("shutdown grace period exceeded, forcing close")
	}

	// Step 5: terminate the server process if still alive.
	if s.server != nil {
		s.server.Terminate()
	}

	s.markTerminated(cause)
	s.setState(Closed)
	s.cfg.Sink.OnTerminated(s.terminatedBecause)
	close(s.doneCh)
}

func (s *Session) markTerminated(err error) {
	s.mu.Lock()
	if !s.terminatedSet {
		s.terminatedBecause = err
		s.terminatedSet = true
	}
	s.mu.Unlock()
}

// Stop requests a graceful shutdown. It is idempotent and returns
// immediately; call Wait to block until the session reaches Closed.
func (s *Session) Stop() {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	if st == Closed || st == Stopping {
		return
	}
	s.stopRequested.Store(true)
	if s.cancel != nil {
		s.cancel()
	} else {
		// Stop called before Start reached Running: nothing to cancel,
		// close immediately.
		s.failStartup(protoerr.ErrSessionClosing)
	}
}

// Wait blocks until the session reaches Closed, returning the terminal
// error (nil on a clean caller-requested stop).
func (s *Session) Wait() error {
	<-s.doneCh
	return s.TerminatedBecause()
}

// DeviceMeta returns the metadata published by the handshake. Valid once
// Start has returned without error.
func (s *Session) DeviceMeta() handshake.DeviceMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

// ID is this session's opaque identifier, useful for correlating log
// lines across a process hosting more than one Session sequentially.
func (s *Session) ID() string { return s.id }
