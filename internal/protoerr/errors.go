// Package protoerr defines the error taxonomy shared by every layer of the
// scrcpy protocol core, so callers can use errors.Is against one closed set
// of sentinels regardless of which component produced the failure.
package protoerr

import (
	"errors"
	"fmt"
)

// Sentinel errors. These enable callers to distinguish failure modes
// programmatically with errors.Is, the same convention used for the
// scrcpy-adjacent moq protocol errors in the reference corpus.
var (
	ErrTransport      = errors.New("transport error")
	ErrHandshake      = errors.New("handshake error")
	ErrShortRead      = errors.New("short read")
	ErrMalformedFrame = errors.New("malformed frame")
	ErrTruncatedFrame = errors.New("truncated frame")
	ErrChannelBroken  = errors.New("control channel broken")
	ErrSessionClosing = errors.New("session closing")
	ErrSessionClosed  = errors.New("session closed")
	ErrTimeout        = errors.New("timeout")
)

// ParseError records which field of a wire structure failed to decode and
// wraps the underlying I/O or validation error. errors.Is still matches
// against whatever sentinel Err itself wraps.
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ProtocolError tags a failure with the protocol phase or message kind that
// produced it (handshake negotiation, a specific device message type, ...),
// wrapping the underlying sentinel. Used where ParseError's field-oriented
// framing doesn't fit — whole-message and phase-level failures rather than
// a single wire field.
type ProtocolError struct {
	Kind string
	Err  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Wrap pairs a sentinel with a contextual message, preserving errors.Is
// against sentinel while adding caller-specific detail.
func Wrap(sentinel error, msg string) error {
	return fmt.Errorf("%s: %w", msg, sentinel)
}

// Wrapf is Wrap with Printf-style formatting of the message.
func Wrapf(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, sentinel)...)
}
