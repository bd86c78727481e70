// Package scrcpy is the public entry point to the scrcpy protocol core: a
// Go client for the device-side mirroring server's wire protocol (video and
// audio demuxing, control injection, clipboard sync). It wires together
// internal/transport, internal/handshake, internal/demux, internal/control
// and internal/session into the single type callers need, the way
// cowby123-scrcpy's main.go wires adb+session+streaming into one process —
// minus the HTTP/WebRTC signaling layer, which is out of scope here.
package scrcpy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cowby123/scrcpy-go/internal/control"
	"github.com/cowby123/scrcpy-go/internal/demux"
	"github.com/cowby123/scrcpy-go/internal/handshake"
	"github.com/cowby123/scrcpy-go/internal/protoerr"
	"github.com/cowby123/scrcpy-go/internal/session"
	"github.com/cowby123/scrcpy-go/internal/transport"
)

// Re-exported sentinel errors (§7), so callers never need to import
// internal/protoerr directly.
var (
	ErrTransport      = protoerr.ErrTransport
	ErrHandshake      = protoerr.ErrHandshake
	ErrMalformedFrame = protoerr.ErrMalformedFrame
	ErrTruncatedFrame = protoerr.ErrTruncatedFrame
	ErrChannelBroken  = protoerr.ErrChannelBroken
	ErrSessionClosing = protoerr.ErrSessionClosing
	ErrSessionClosed  = protoerr.ErrSessionClosed
	ErrTimeout        = protoerr.ErrTimeout
)

// Re-exported types that make up the public data model (§3).
type (
	// StreamKind tags a media stream as Video or Audio.
	StreamKind = demux.StreamKind
	// CodecFrame is one decoded, timestamped compressed media packet.
	CodecFrame = demux.Frame
	// DeviceMeta is published by the handshake (§4.C).
	DeviceMeta = handshake.DeviceMeta
	// DeviceMessage is an inbound message from the device (§4.E).
	DeviceMessage = control.DeviceMessage
	// Sink is the capability interface a caller implements to consume a
	// session's decoded frames, device events, stream-end signals and
	// final termination cause.
	Sink = session.Sink
	// Transport is the host-side contract a caller implements to push the
	// server binary, open the tunnel sockets and spawn the server process
	// (§4.A). The concrete adb-backed implementation is outside this
	// package's scope; only the contract is specified here.
	Transport = transport.Transport
)

const (
	Video = demux.Video
	Audio = demux.Audio
)

// NopSink implements Sink with no-op callbacks.
type NopSink = session.NopSink

// FormatSCID and ParseSCID convert between a 31-bit session id and its
// 8-lowercase-hex-digit wire form (invariant #3).
var (
	FormatSCID = transport.FormatSCID
	ParseSCID  = transport.ParseSCID
)

// SessionConfig configures one Session (spec.md §3 SessionConfig, §6
// argv line). Construct it with its zero value plus Option functions, or
// set fields directly; both styles are supported, matching the mix of
// plain structs and functional options already present in the example
// corpus.
type SessionConfig struct {
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

// Option mutates a SessionConfig at construction time.
type Option func(*SessionConfig)

// WithSCID sets the 31-bit session identifier (invariant #3). Values
// outside [0, 2^31) are rejected later, at NewSession time.
func WithSCID(scid uint32) Option { return func(c *SessionConfig) { c.SCID = scid } }

// WithVideo enables the video stream and, optionally, a forced codec name.
func WithVideo(codec string) Option {
	return func(c *SessionConfig) { c.VideoEnabled = true; c.VideoCodec = codec }
}

// WithAudio enables the audio stream and, optionally, a forced codec name.
func WithAudio(codec string) Option {
	return func(c *SessionConfig) { c.AudioEnabled = true; c.AudioCodec = codec }
}

// WithControl enables the control socket.
func WithControl() Option { return func(c *SessionConfig) { c.ControlEnabled = true } }

// WithSink installs the callback sink for decoded frames, device events,
// stream-end signals and the terminal error.
func WithSink(s Sink) Option { return func(c *SessionConfig) { c.Sink = s } }

// WithLogger installs a structured logger; components tag their own log
// lines with "component".
func WithLogger(l *slog.Logger) Option { return func(c *SessionConfig) { c.Logger = l } }

// WithServerVersion pins the server_version argv field; it must match the
// version baked into the deployed server binary (§6).
func WithServerVersion(v string) Option { return func(c *SessionConfig) { c.ServerVersion = v } }

// WithMaxSize, WithVideoBitRate and WithMaxFPS set the corresponding argv
// fields (§6); zero means "let the server pick its default".
func WithMaxSize(n uint32) Option       { return func(c *SessionConfig) { c.MaxSize = n } }
func WithVideoBitRate(n uint32) Option  { return func(c *SessionConfig) { c.VideoBitRate = n } }
func WithMaxFPS(n uint32) Option        { return func(c *SessionConfig) { c.MaxFPS = n } }
func WithTunnelForward(b bool) Option   { return func(c *SessionConfig) { c.TunnelForward = b } }
func WithPort(port int) Option          { return func(c *SessionConfig) { c.Port = port } }
func WithShutdownGrace(d time.Duration) Option {
	return func(c *SessionConfig) { c.ShutdownGrace = d }
}

// NewSessionConfig builds a SessionConfig from a sequence of Options
// applied over the zero value.
func NewSessionConfig(opts ...Option) SessionConfig {
	var c SessionConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c SessionConfig) toInternal() session.Config {
	return session.Config{
		SCID:             c.SCID,
		LogLevel:         c.LogLevel,
		VideoEnabled:     c.VideoEnabled,
		AudioEnabled:     c.AudioEnabled,
		ControlEnabled:   c.ControlEnabled,
		VideoCodec:       c.VideoCodec,
		AudioCodec:       c.AudioCodec,
		MaxSize:          c.MaxSize,
		VideoBitRate:     c.VideoBitRate,
		MaxFPS:           c.MaxFPS,
		TunnelForward:    c.TunnelForward,
		ServerVersion:    c.ServerVersion,
		Port:             c.Port,
		RemoteServerPath: c.RemoteServerPath,
		LocalServerPath:  c.LocalServerPath,
		Classpath:        c.Classpath,
		ControlQueueSize: c.ControlQueueSize,
		MediaChannelSize: c.MediaChannelSize,
		PayloadCap:       c.PayloadCap,
		ShutdownGrace:    c.ShutdownGrace,
		Sink:             c.Sink,
		Logger:           c.Logger,
	}
}

// Session is one scrcpy protocol-core instance bound to a Transport: at
// most one video, one audio and one control socket, for the life of one
// mirroring session (§1).
type Session struct {
	inner *session.Session
}

// NewSession constructs a Session over tr. Call Start to deploy the server
// and begin the handshake.
func NewSession(tr Transport, cfg SessionConfig) (*Session, error) {
	if cfg.SCID >= 1<<31 {
		return nil, fmt.Errorf("%w: scid %d out of 31-bit range", ErrTransport, cfg.SCID)
	}
	return &Session{inner: session.New(tr, cfg.toInternal())}, nil
}

// Start deploys the server, opens the tunnel sockets, runs the handshake
// and launches the session's workers. It returns once the session reaches
// Running or a startup step fails; workers continue in the background.
func (s *Session) Start(ctx context.Context) error { return s.inner.Start(ctx) }

// Stop requests a graceful shutdown (§4.F); idempotent, returns
// immediately. Call Wait to block until the session has fully closed.
func (s *Session) Stop() { s.inner.Stop() }

// Wait blocks until the session reaches Closed, returning the terminal
// error (nil on a clean, caller-requested Stop).
func (s *Session) Wait() error { return s.inner.Wait() }

// DeviceMeta returns the metadata published by the handshake. Valid once
// Start has returned without error.
func (s *Session) DeviceMeta() DeviceMeta { return s.inner.DeviceMeta() }

// ID is this session's opaque identifier.
func (s *Session) ID() string { return s.inner.ID() }

// PauseVideo stops video frame delivery without tearing down the session;
// the demuxer keeps draining its socket so the device-side encoder never
// blocks. Returns ErrSessionClosed if video was not enabled.
func (s *Session) PauseVideo() error { return s.inner.PauseStream(Video) }

// ResumeVideo re-enables video frame delivery after PauseVideo.
func (s *Session) ResumeVideo() error { return s.inner.ResumeStream(Video) }

// PauseAudio stops audio frame delivery without tearing down the session.
// Returns ErrSessionClosed if audio was not enabled.
func (s *Session) PauseAudio() error { return s.inner.PauseStream(Audio) }

// ResumeAudio re-enables audio frame delivery after PauseAudio.
func (s *Session) ResumeAudio() error { return s.inner.ResumeStream(Audio) }

func (s *Session) control() (*control.Channel, error) {
	cc := s.inner.Control()
	if cc == nil {
		return nil, fmt.Errorf("%w: control channel not enabled or session not running", ErrSessionClosed)
	}
	return cc, nil
}
