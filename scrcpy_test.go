package scrcpy_test

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cowby123/scrcpy-go/internal/transport"
	"github.com/cowby123/scrcpy-go/internal/wire"
	scrcpy "github.com/cowby123/scrcpy-go"
)

// TestSCIDRoundTrip covers invariant #3: for all scid in [0, 2^31), the
// serialized form matches ^[0-9a-f]{8}$ and parsing it back returns scid.
func TestSCIDRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	samples := []uint32{0, 1, 0x7FFFFFFF, 0x68323634}
	for i := 0; i < 1000; i++ {
		samples = append(samples, r.Uint32()&0x7FFFFFFF)
	}
	for _, scid := range samples {
		hex, err := scrcpy.FormatSCID(scid)
		require.NoError(t, err)
		require.Regexp(t, "^[0-9a-f]{8}$", hex)
		got, err := scrcpy.ParseSCID(hex)
		require.NoError(t, err)
		require.Equal(t, scid, got)
	}
}

func TestSCIDOutOfRangeRejected(t *testing.T) {
	_, err := scrcpy.FormatSCID(1 << 31)
	require.Error(t, err)

	_, err = scrcpy.ParseSCID("80000000")
	require.Error(t, err)

	_, err = scrcpy.ParseSCID("ABCDEF01") // uppercase hex is not accepted
	require.Error(t, err)

	_, err = scrcpy.ParseSCID("1234")
	require.Error(t, err)
}

func TestNewSessionRejectsOutOfRangeSCID(t *testing.T) {
	tr := transport.NewFakeTransport()
	_, err := scrcpy.NewSession(tr, scrcpy.NewSessionConfig(scrcpy.WithSCID(1<<31)))
	require.True(t, errors.Is(err, scrcpy.ErrTransport))
}

type testSink struct{ scrcpy.NopSink }

func waitForPeers(t *testing.T, tr *transport.FakeTransport, n int) []net.Conn {
	t.Helper()
	var peers []net.Conn
	require.Eventually(t, func() bool {
		peers = tr.Peers()
		return len(peers) == n
	}, time.Second, 5*time.Millisecond)
	return peers
}

func writeVideoHandshake(t *testing.T, conn net.Conn, name string, w, h, codecID uint32) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, wire.WriteU8(&buf, 0))
	require.NoError(t, wire.WriteFixedString(&buf, name, 64))
	require.NoError(t, wire.WriteU32(&buf, w))
	require.NoError(t, wire.WriteU32(&buf, h))
	require.NoError(t, wire.WriteU32(&buf, codecID))
	go conn.Write(buf.Bytes())
}

// TestSessionPublicAPIClipboardRoundTrip drives the public Session type
// through a handshake and a SetClipboard call acknowledged by a fake
// device, exercising the option constructors, NewSession, Start and the
// typed control helper together.
func TestSessionPublicAPIClipboardRoundTrip(t *testing.T) {
	tr := transport.NewFakeTransport()
	sess, err := scrcpy.NewSession(tr, scrcpy.NewSessionConfig(
		scrcpy.WithVideo(""),
		scrcpy.WithControl(),
		scrcpy.WithServerVersion("3.3.4"),
		scrcpy.WithSink(&testSink{}),
	))
	require.NoError(t, err)

	startErr := make(chan error, 1)
	go func() { startErr <- sess.Start(context.Background()) }()

	peers := waitForPeers(t, tr, 2)
	videoPeer, controlPeer := peers[0], peers[1]
	defer controlPeer.Close()

	writeVideoHandshake(t, videoPeer, "Pixel 7", 1080, 2400, 0x68323634)
	require.NoError(t, <-startErr)
	require.Equal(t, "Pixel 7", sess.DeviceMeta().DeviceName)

	// Read the SET_CLIPBOARD request the device side would see, then ack it.
	ackDone := make(chan struct{})
	go func() {
		defer close(ackDone)
		typ, err := wire.ReadU8(controlPeer)
		if err != nil || typ != 9 {
			return
		}
		seq, err := wire.ReadU64(controlPeer)
		if err != nil {
			return
		}
		if _, err := wire.ReadBool(controlPeer); err != nil {
			return
		}
		if _, err := wire.ReadLenString32(controlPeer, 0xFFFF); err != nil {
			return
		}
		var ack bytes.Buffer
		wire.WriteU8(&ack, 1) // AckClipboardType
		wire.WriteU64(&ack, seq)
		controlPeer.Write(ack.Bytes())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, sess.SetClipboard(ctx, 42, false, "hello"))
	<-ackDone

	sess.Stop()
	require.NoError(t, sess.Wait())
}

// TestControlUnavailableBeforeRunning covers the typed helpers' guard
// against calling into a control channel that was never enabled.
func TestControlUnavailableBeforeRunning(t *testing.T) {
	tr := transport.NewFakeTransport()
	sess, err := scrcpy.NewSession(tr, scrcpy.NewSessionConfig(scrcpy.WithVideo("")))
	require.NoError(t, err)
	err = sess.InjectText(context.Background(), "hi")
	require.Error(t, err)
}
