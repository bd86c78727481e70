package handshake

import (
	"bytes"
	"errors"
	"testing"

	"github.com/cowby123/scrcpy-go/internal/protoerr"
	"github.com/cowby123/scrcpy-go/internal/wire"
	"github.com/stretchr/testify/require"
)

func packMediaHeader(t *testing.T, name string, width, height, codecID uint32, withDims bool) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, wire.WriteU8(&buf, 0))
	require.NoError(t, wire.WriteFixedString(&buf, name, deviceNameFieldLen))
	if withDims {
		require.NoError(t, wire.WriteU32(&buf, width))
		require.NoError(t, wire.WriteU32(&buf, height))
	}
	require.NoError(t, wire.WriteU32(&buf, codecID))
	return buf.Bytes()
}

// TestVideoAndAudioHandshake covers scenario S1 (handshake happy path):
// video carries the full preamble, and a second enabled media socket
// (audio) only carries its codec id.
func TestVideoAndAudioHandshake(t *testing.T) {
	video := bytes.NewReader(packMediaHeader(t, "Pixel 7", 1080, 2400, 0x68323634, true))

	var audioBuf bytes.Buffer
	require.NoError(t, wire.WriteU32(&audioBuf, 0x6F707573)) // "opus" tag, arbitrary
	audio := bytes.NewReader(audioBuf.Bytes())

	meta, err := Run(video, audio, Config{VideoEnabled: true, AudioEnabled: true})
	require.NoError(t, err)
	require.Equal(t, "Pixel 7", meta.DeviceName)
	require.EqualValues(t, 1080, meta.VideoWidth)
	require.EqualValues(t, 2400, meta.VideoHeight)
	require.EqualValues(t, 0x68323634, meta.VideoCodecID)
	require.True(t, meta.AudioEnabled)
	require.EqualValues(t, 0x6F707573, meta.AudioCodecID)
}

func TestAudioOnlyHandshakeCarriesPreamble(t *testing.T) {
	audio := bytes.NewReader(packMediaHeader(t, "Pixel 7", 0, 0, 0x6F707573, false))

	meta, err := Run(nil, audio, Config{VideoEnabled: false, AudioEnabled: true})
	require.NoError(t, err)
	require.Equal(t, "Pixel 7", meta.DeviceName)
	require.True(t, meta.AudioEnabled)
}

// TestAudioCodecIDZeroMeansUnavailable covers §4.C step 2: codec id 0
// marks audio unavailable without failing the handshake.
func TestAudioCodecIDZeroMeansUnavailable(t *testing.T) {
	video := bytes.NewReader(packMediaHeader(t, "Pixel 7", 1080, 2400, 0x68323634, true))

	var audioBuf bytes.Buffer
	require.NoError(t, wire.WriteU32(&audioBuf, 0))
	audio := bytes.NewReader(audioBuf.Bytes())

	meta, err := Run(video, audio, Config{VideoEnabled: true, AudioEnabled: true})
	require.NoError(t, err)
	require.False(t, meta.AudioEnabled)
	require.EqualValues(t, 0, meta.AudioCodecID)
}

func TestNonzeroDummyByteIsHandshakeError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, wire.WriteU8(&buf, 1))
	video := bytes.NewReader(buf.Bytes())

	_, err := Run(video, nil, Config{VideoEnabled: true})
	require.True(t, errors.Is(err, protoerr.ErrHandshake))
}

func TestControlOnlySessionSkipsMediaPreamble(t *testing.T) {
	meta, err := Run(nil, nil, Config{})
	require.NoError(t, err)
	require.Equal(t, DeviceMeta{}, meta)
}

func TestVideoWithZeroDimsBeforeFirstFrame(t *testing.T) {
	video := bytes.NewReader(packMediaHeader(t, "Pixel 7", 0, 0, 0x68323634, true))
	meta, err := Run(video, nil, Config{VideoEnabled: true})
	require.NoError(t, err)
	require.EqualValues(t, 0, meta.VideoWidth)
	require.EqualValues(t, 0, meta.VideoHeight)
}
