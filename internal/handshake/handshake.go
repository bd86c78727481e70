// Package handshake performs the scrcpy multi-socket handshake (§4.C): the
// dummy-byte + device metadata preamble carried by whichever socket opens
// first (video if enabled, otherwise audio), and the codec-id-only header
// any other enabled media socket reads afterward.
package handshake

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/cowby123/scrcpy-go/internal/protoerr"
	"github.com/cowby123/scrcpy-go/internal/wire"
)

const deviceNameFieldLen = 64

// DeviceMeta is published once by the handshaker (§3).
type DeviceMeta struct {
	DeviceName   string
	VideoWidth   uint32
	VideoHeight  uint32
	VideoCodecID uint32

	AudioEnabled bool
	AudioCodecID uint32
}

// Config describes which sockets are present and must be handshaked.
type Config struct {
	VideoEnabled bool
	AudioEnabled bool
	Logger       *slog.Logger
}

func (c Config) normalized() Config {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Run performs the handshake across whichever of video/audio are enabled
// in cfg, in the server-mandated order: video first if present (it always
// carries the full device-meta preamble), then audio — carrying the full
// preamble itself only if video is absent, otherwise just its codec id.
// The control socket takes no handshake bytes and is not touched here.
//
// audio may be nil when cfg.AudioEnabled is false. If audio's codec id
// reads back 0, audio is reported unavailable without failing the
// handshake (§4.C step 2); the caller is expected to close the audio
// socket in that case.
func Run(video, audio io.Reader, cfg Config) (DeviceMeta, error) {
	cfg = cfg.normalized()
	log := cfg.Logger.With("component", "handshake")

	var meta DeviceMeta

	switch {
	case cfg.VideoEnabled:
		m, err := readMediaHeader(video, true)
		if err != nil {
			return DeviceMeta{}, fmt.Errorf("video handshake: %w", err)
		}
		meta.DeviceName = m.name
		meta.VideoWidth = m.width
		meta.VideoHeight = m.height
		meta.VideoCodecID = m.codecID
		log.Debug("video handshake complete", "device", meta.DeviceName, "codec_id", meta.VideoCodecID)

		if cfg.AudioEnabled {
			codecID, err := wire.ReadU32(audio)
			if err != nil {
				return DeviceMeta{}, fmt.Errorf("audio handshake: %w", err)
			}
			meta.AudioCodecID = codecID
			meta.AudioEnabled = codecID != 0
		}

	case cfg.AudioEnabled:
		m, err := readMediaHeader(audio, false)
		if err != nil {
			return DeviceMeta{}, fmt.Errorf("audio handshake: %w", err)
		}
		meta.DeviceName = m.name
		meta.AudioCodecID = m.codecID
		meta.AudioEnabled = m.codecID != 0

	default:
		// Neither media socket enabled: control-only session, no preamble
		// to read anywhere.
	}

	if cfg.AudioEnabled && !meta.AudioEnabled {
		log.Info("device reported audio unavailable (codec_id=0)")
	}

	return meta, nil
}

type mediaHeader struct {
	name    string
	width   uint32
	height  uint32
	codecID uint32
}

// readMediaHeader reads the dummy byte, device name, and (for video)
// width/height, followed by the codec id. withDims is true only for the
// video socket; the audio-carries-the-preamble case has no width/height.
func readMediaHeader(r io.Reader, withDims bool) (mediaHeader, error) {
	dummy, err := wire.ReadU8(r)
	if err != nil {
		return mediaHeader{}, err
	}
	if dummy != 0 {
		return mediaHeader{}, fmt.Errorf("%w: dummy byte = %d, want 0", protoerr.ErrHandshake, dummy)
	}

	name, err := wire.ReadFixedString(r, deviceNameFieldLen)
	if err != nil {
		return mediaHeader{}, err
	}

	var h mediaHeader
	h.name = name

	if withDims {
		w, err := wire.ReadU32(r)
		if err != nil {
			return mediaHeader{}, err
		}
		ht, err := wire.ReadU32(r)
		if err != nil {
			return mediaHeader{}, err
		}
		h.width, h.height = w, ht
	}

	codecID, err := wire.ReadU32(r)
	if err != nil {
		return mediaHeader{}, err
	}
	h.codecID = codecID
	return h, nil
}
