package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
)

// FakeTransport is an in-process Transport used by tests: Push and
// SpawnServer are no-ops, and OpenTunnel hands out the host ends of
// net.Pipe()s whose peer ends are exposed to the test via Peers.
type FakeTransport struct {
	mu        sync.Mutex
	pushed    []pushCall
	spawned   []spawnCall
	peerConns []net.Conn
}

type pushCall struct{ Local, Remote string }
type spawnCall struct {
	RemotePath string
	ArgvTail   []string
	Classpath  string
}

// NewFakeTransport returns a ready-to-use FakeTransport.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{}
}

func (f *FakeTransport) Push(_ context.Context, local, remote string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, pushCall{local, remote})
	return nil
}

func (f *FakeTransport) PushCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushed)
}

// fakeHandle is a ServerHandle that never exits until Terminate is called.
type fakeHandle struct {
	r    io.Reader
	done chan struct{}
	once sync.Once
}

func (h *fakeHandle) Read(p []byte) (int, error) { return h.r.Read(p) }

func (h *fakeHandle) Wait() error {
	<-h.done
	return nil
}

func (h *fakeHandle) Terminate() error {
	h.once.Do(func() { close(h.done) })
	return nil
}

func (f *FakeTransport) SpawnServer(_ context.Context, remotePath string, argvTail []string, classpath string) (ServerHandle, error) {
	f.mu.Lock()
	f.spawned = append(f.spawned, spawnCall{remotePath, argvTail, classpath})
	f.mu.Unlock()
	return &fakeHandle{r: emptyReader{}, done: make(chan struct{})}, nil
}

func (f *FakeTransport) SpawnCalls() []spawnCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]spawnCall, len(f.spawned))
	copy(out, f.spawned)
	return out
}

type emptyReader struct{}

func (emptyReader) Read([]byte) (int, error) { return 0, io.EOF }

// fakeStreamFactory serves a fixed, ordered list of pre-connected streams.
type fakeStreamFactory struct {
	mu      sync.Mutex
	streams []io.ReadWriteCloser
	idx     int
}

func (s *fakeStreamFactory) Next(ctx context.Context) (io.ReadWriteCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx >= len(s.streams) {
		return nil, fmt.Errorf("fake transport: no more streams configured")
	}
	st := s.streams[s.idx]
	s.idx++
	return st, nil
}

func (s *fakeStreamFactory) Close() error { return nil }

// OpenTunnel returns n host-side net.Conn streams backed by net.Pipe; the
// device-side peers are returned via the accompanying Peers slice so a
// test can drive a mock server on the other end.
func (f *FakeTransport) OpenTunnel(_ context.Context, _ int, n int) (StreamFactory, error) {
	hostSide := make([]io.ReadWriteCloser, 0, n)
	f.mu.Lock()
	for i := 0; i < n; i++ {
		host, peer := net.Pipe()
		hostSide = append(hostSide, host)
		f.peerConns = append(f.peerConns, peer)
	}
	f.mu.Unlock()
	return &fakeStreamFactory{streams: hostSide}, nil
}

// Peers returns the device-side ends of every stream opened so far, in
// open order, for a mock server to drive.
func (f *FakeTransport) Peers() []net.Conn {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]net.Conn, len(f.peerConns))
	copy(out, f.peerConns)
	return out
}
