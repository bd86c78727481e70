package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildServerArgvOrderAndFormat(t *testing.T) {
	argv, err := BuildServerArgv(ArgvSpec{
		ServerVersion: "3.3.4",
		SCID:          0xBEEF,
		LogLevel:      "info",
		Video:         true,
		Audio:         false,
		Control:       true,
		VideoCodec:    "h264",
		MaxSize:       1920,
		VideoBitRate:  8_000_000,
		MaxFPS:        60,
	})
	require.NoError(t, err)
	require.Equal(t, []string{
		"3.3.4",
		"scid=0000beef",
		"log_level=info",
		"video=true",
		"audio=false",
		"control=true",
		"video_codec=h264",
		"max_size=1920",
		"video_bit_rate=8000000",
		"max_fps=60",
	}, argv)
}

func TestBuildServerArgvRejectsOutOfRangeSCID(t *testing.T) {
	_, err := BuildServerArgv(ArgvSpec{SCID: 1 << 31})
	require.Error(t, err)
}

func TestFakeTransportOpenTunnelOrdersStreams(t *testing.T) {
	ft := NewFakeTransport()
	ctx := context.Background()

	factory, err := ft.OpenTunnel(ctx, 27183, 3)
	require.NoError(t, err)
	defer factory.Close()

	video, err := factory.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, video)

	audio, err := factory.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, audio)

	control, err := factory.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, control)

	_, err = factory.Next(ctx)
	require.Error(t, err)

	require.Len(t, ft.Peers(), 3)
}

func TestFakeTransportSpawnRecordsArgv(t *testing.T) {
	ft := NewFakeTransport()
	handle, err := ft.SpawnServer(context.Background(), "/data/local/tmp/scrcpy-server.jar", []string{"3.3.4", "scid=00000001"}, "x")
	require.NoError(t, err)
	require.NoError(t, handle.Terminate())
	require.NoError(t, handle.Wait())

	calls := ft.SpawnCalls()
	require.Len(t, calls, 1)
	require.Equal(t, []string{"3.3.4", "scid=00000001"}, calls[0].ArgvTail)
}
