// Package transport specifies the minimal device-tunnel contract the
// protocol core depends on (§4.A): push a server binary, spawn it, and
// open the ordered TCP streams it connects back on. The concrete
// adb-backed implementation is an external collaborator (spec.md §1) —
// this package only defines the contract plus a FakeTransport for tests.
package transport

import (
	"context"
	"fmt"
	"io"

	"github.com/cowby123/scrcpy-go/internal/protoerr"
)

// ServerHandle is a running server process: its combined stdout/stderr can
// be read, and it can be asked to terminate.
type ServerHandle interface {
	io.Reader
	// Wait blocks until the process exits and returns its error, if any.
	Wait() error
	// Terminate asks the process to exit; it does not block for exit.
	Terminate() error
}

// Transport abstracts the device tunnel used to bootstrap the scrcpy
// server: pushing the server binary, spawning it over a shell, and
// opening the TCP streams it connects back on.
type Transport interface {
	// Push uploads the local server binary to the device at remotePath.
	// Implementations should make repeated calls with the same arguments
	// idempotent; the core invokes it at most once per session, and only
	// when SessionConfig.LocalServerPath is set.
	Push(ctx context.Context, localPath, remotePath string) error

	// SpawnServer launches the server process with the given argv tail
	// (everything after the class name) and classpath, returning a handle
	// to observe and terminate it.
	SpawnServer(ctx context.Context, remotePath string, argvTail []string, classpath string) (ServerHandle, error)

	// OpenTunnel returns a factory that produces up to n ordered TCP
	// streams to the device's forwarded port. It receives no tunnel-mode
	// argument: SessionConfig.TunnelForward reaches only the server argv
	// (tunnel_forward=true), so reverse vs. forward mode is left to the
	// implementation.
	OpenTunnel(ctx context.Context, port int, n int) (StreamFactory, error)
}

// StreamFactory yields the tunnel's streams one at a time, in the fixed
// video → audio → control order (§4.A), skipping whichever are disabled.
type StreamFactory interface {
	// Next blocks until the next stream connects, or ctx is cancelled.
	Next(ctx context.Context) (io.ReadWriteCloser, error)
	// Close releases any listener/connection resources not yet consumed.
	Close() error
}

// ArgvSpec is the set of session parameters that feed into the server
// argv line (§6 External Interfaces). BuildServerArgv does not know about
// SessionConfig directly to keep this package dependency-free of the root
// package; the session coordinator adapts SessionConfig into an ArgvSpec.
type ArgvSpec struct {
	ServerVersion string
	SCID          uint32
	LogLevel      string
	Video         bool
	Audio         bool
	Control       bool
	VideoCodec    string
	AudioCodec    string
	MaxSize       int
	VideoBitRate  int
	MaxFPS        int
	TunnelForward bool
}

// BuildServerArgv renders the argv tail the coordinator passes to
// SpawnServer, in the exact order and ASCII form §6 specifies:
//
//	<server_version> scid=<8hex> log_level=<name> video=<bool> audio=<bool> control=<bool> [video_codec=...] [audio_codec=...] [max_size=<dec>] [video_bit_rate=<dec>] [max_fps=<dec>] [tunnel_forward=<bool>]
func BuildServerArgv(spec ArgvSpec) ([]string, error) {
	scidHex, err := FormatSCID(spec.SCID)
	if err != nil {
		return nil, err
	}
	argv := []string{
		spec.ServerVersion,
		fmt.Sprintf("scid=%s", scidHex),
		fmt.Sprintf("log_level=%s", spec.LogLevel),
		fmt.Sprintf("video=%s", boolWord(spec.Video)),
		fmt.Sprintf("audio=%s", boolWord(spec.Audio)),
		fmt.Sprintf("control=%s", boolWord(spec.Control)),
	}
	if spec.VideoCodec != "" {
		argv = append(argv, fmt.Sprintf("video_codec=%s", spec.VideoCodec))
	}
	if spec.AudioCodec != "" {
		argv = append(argv, fmt.Sprintf("audio_codec=%s", spec.AudioCodec))
	}
	if spec.MaxSize != 0 {
		argv = append(argv, fmt.Sprintf("max_size=%d", spec.MaxSize))
	}
	if spec.VideoBitRate != 0 {
		argv = append(argv, fmt.Sprintf("video_bit_rate=%d", spec.VideoBitRate))
	}
	if spec.MaxFPS != 0 {
		argv = append(argv, fmt.Sprintf("max_fps=%d", spec.MaxFPS))
	}
	if spec.TunnelForward {
		argv = append(argv, "tunnel_forward=true")
	}
	return argv, nil
}

func boolWord(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// FormatSCID renders scid as the wire's 8 lowercase hex digits (invariant
// #3). scid must be in [0, 2^31).
func FormatSCID(scid uint32) (string, error) {
	if scid >= 1<<31 {
		return "", fmt.Errorf("%w: scid %d out of 31-bit range", protoerr.ErrTransport, scid)
	}
	return fmt.Sprintf("%08x", scid), nil
}

// ParseSCID is FormatSCID's inverse: it accepts exactly 8 lowercase hex
// digits and rejects anything else, including uppercase hex or a value
// that would round-trip outside the 31-bit range.
func ParseSCID(s string) (uint32, error) {
	if len(s) != 8 {
		return 0, fmt.Errorf("%w: scid %q is not 8 hex digits", protoerr.ErrMalformedFrame, s)
	}
	var v uint32
	for _, r := range s {
		v <<= 4
		switch {
		case r >= '0' && r <= '9':
			v |= uint32(r - '0')
		case r >= 'a' && r <= 'f':
			v |= uint32(r-'a') + 10
		default:
			return 0, fmt.Errorf("%w: scid %q is not lowercase hex", protoerr.ErrMalformedFrame, s)
		}
	}
	if v >= 1<<31 {
		return 0, fmt.Errorf("%w: scid %q out of 31-bit range", protoerr.ErrMalformedFrame, s)
	}
	return v, nil
}
