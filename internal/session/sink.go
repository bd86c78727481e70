package session

import (
	"github.com/cowby123/scrcpy-go/internal/control"
	"github.com/cowby123/scrcpy-go/internal/demux"
)

// Sink is the capability interface a caller implements to consume a
// session's output (§9 design note). Callbacks run on the worker's own
// task; long work must be offloaded by the sink itself.
type Sink interface {
	OnFrame(demux.Frame)
	OnDeviceEvent(control.DeviceMessage)
	OnStreamEnd(demux.StreamKind)
	OnTerminated(err error)
}

// NopSink implements Sink with no-op callbacks, useful as an embeddable
// default for callers that only care about a subset of events.
type NopSink struct{}

func (NopSink) OnFrame(demux.Frame)                 {}
func (NopSink) OnDeviceEvent(control.DeviceMessage) {}
func (NopSink) OnStreamEnd(demux.StreamKind)        {}
func (NopSink) OnTerminated(error)                  {}
