package control

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/cowby123/scrcpy-go/internal/wire"
	"github.com/stretchr/testify/require"
)

// pipePair returns two connected in-memory control sockets, device-side
// first.
func pipePair(t *testing.T) (device net.Conn, host net.Conn) {
	t.Helper()
	device, host = net.Pipe()
	t.Cleanup(func() { device.Close(); host.Close() })
	return
}

// TestOutboundMessageEncoding covers invariant #4 for one representative
// message: an encoded InjectKeycodeMsg reads back with its type byte,
// action and keycode intact.
func TestOutboundMessageEncoding(t *testing.T) {
	var buf bytes.Buffer
	msg := InjectKeycodeMsg{Action: 1, Keycode: 42, Repeat: 0, MetaState: 0x10}
	require.NoError(t, msg.Encode(&buf))

	r := bytes.NewReader(buf.Bytes())
	typ, err := wire.ReadU8(r)
	require.NoError(t, err)
	require.Equal(t, uint8(InjectKeycode), typ)
	action, _ := wire.ReadU8(r)
	require.Equal(t, uint8(1), action)
	keycode, _ := wire.ReadI32(r)
	require.EqualValues(t, 42, keycode)
}

// TestSetClipboardCompletesOnAck covers scenario S4: SetClipboard blocks
// until the matching ACK_CLIPBOARD sequence arrives.
func TestSetClipboardCompletesOnAck(t *testing.T) {
	device, host := pipePair(t)

	ch := New(host, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ch.Run(ctx)

	resultCh := make(chan error, 1)
	go func() { resultCh <- ch.SetClipboard(ctx, 7, true, "hello") }()

	// Drain the SET_CLIPBOARD request off the device side, then reply.
	typ, err := wire.ReadU8(device)
	require.NoError(t, err)
	require.Equal(t, uint8(SetClipboardType), typ)
	seq, err := wire.ReadU64(device)
	require.NoError(t, err)
	require.EqualValues(t, 7, seq)
	paste, err := wire.ReadBool(device)
	require.NoError(t, err)
	require.True(t, paste)
	text, err := wire.ReadLenString32(device, 0xFFFF)
	require.NoError(t, err)
	require.Equal(t, "hello", text)

	require.NoError(t, wire.WriteU8(device, uint8(AckClipboardType)))
	require.NoError(t, wire.WriteU64(device, 7))

	select {
	case err := <-resultCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("SetClipboard did not complete after matching ack")
	}
}

// TestUnsolicitedClipboardGoesToEvents covers scenario S5: a CLIPBOARD
// message with no outstanding GetClipboard call is delivered as an event,
// not mistaken for a reply.
func TestUnsolicitedClipboardGoesToEvents(t *testing.T) {
	device, host := pipePair(t)
	ch := New(host, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ch.Run(ctx)

	require.NoError(t, wire.WriteU8(device, uint8(ClipboardType)))
	require.NoError(t, wire.WriteLenString32(device, "copied on device"))

	select {
	case ev := <-ch.Events():
		ct, ok := ev.(ClipboardText)
		require.True(t, ok)
		require.Equal(t, "copied on device", ct.Text)
	case <-time.After(time.Second):
		t.Fatal("unsolicited clipboard message was not delivered as an event")
	}
}

// TestGetClipboardCompletesWithNextClipboard covers §4.E's get/reply
// correlation: the CLIPBOARD message that arrives while a GetClipboard
// call is outstanding completes that call with its text.
func TestGetClipboardCompletesWithNextClipboard(t *testing.T) {
	device, host := pipePair(t)
	ch := New(host, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ch.Run(ctx)

	resultCh := make(chan string, 1)
	go func() {
		text, err := ch.GetClipboard(ctx, CopyKeyCopy)
		require.NoError(t, err)
		resultCh <- text
	}()

	typ, err := wire.ReadU8(device)
	require.NoError(t, err)
	require.Equal(t, uint8(GetClipboardType), typ)
	_, err = wire.ReadU8(device)
	require.NoError(t, err)

	require.NoError(t, wire.WriteU8(device, uint8(ClipboardType)))
	require.NoError(t, wire.WriteLenString32(device, "requested text"))

	select {
	case text := <-resultCh:
		require.Equal(t, "requested text", text)
	case <-time.After(time.Second):
		t.Fatal("GetClipboard did not complete")
	}
}

// TestShutdownCompletesOutstandingWaiters covers invariant #5's control
// analogue: once the channel is broken, blocked SetClipboard/GetClipboard
// callers are unblocked with the terminal error rather than hanging.
func TestShutdownCompletesOutstandingWaiters(t *testing.T) {
	_, host := pipePair(t)
	ch := New(host, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultCh := make(chan error, 1)
	go func() { resultCh <- ch.SetClipboard(ctx, 1, false, "x") }()

	time.Sleep(20 * time.Millisecond)
	ch.Shutdown(context.Canceled)

	select {
	case err := <-resultCh:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("SetClipboard did not unblock on Shutdown")
	}

	_, err := ch.GetClipboard(ctx, CopyKeyCopy)
	require.Error(t, err)
}
