package control

import (
	"fmt"
	"io"

	"github.com/cowby123/scrcpy-go/internal/protoerr"
	"github.com/cowby123/scrcpy-go/internal/wire"
)

// InboundType is the wire type byte of a device (inbound) message.
type InboundType uint8

const (
	ClipboardType InboundType = iota
	AckClipboardType
	UhidOutputType
	AppListType
	DisplayPowerStateType
)

// DeviceMessage is any decoded inbound message. AckClipboard is consumed
// internally by Channel for SET_CLIPBOARD correlation and never delivered
// through Events(); the other four are.
type DeviceMessage interface{ deviceMessage() }

// ClipboardText is device message 0. When it arrives with no outstanding
// GetClipboard call, it is an unsolicited clipboard change and is
// delivered through Events(); otherwise it completes the oldest
// outstanding GetClipboard call (§4.E).
type ClipboardText struct{ Text string }

// AckClipboard is device message 1, correlated by Sequence against the
// pending SetClipboard call that requested it.
type AckClipboard struct{ Sequence uint64 }

// UhidOutput is device message 2.
type UhidOutput struct {
	ID   uint16
	Data []byte
}

// AppEntry is one entry of an AppList reply.
type AppEntry struct {
	Name    string
	Package string
	System  bool
}

// AppList is device message 3.
type AppList struct{ Entries []AppEntry }

// DisplayPowerState is device message 4.
type DisplayPowerState struct{ On bool }

func (ClipboardText) deviceMessage()     {}
func (AckClipboard) deviceMessage()      {}
func (UhidOutput) deviceMessage()        {}
func (AppList) deviceMessage()           {}
func (DisplayPowerState) deviceMessage() {}

// decodeDeviceMessage reads one inbound message: a type byte followed by
// its type-specific body (§4.E).
func decodeDeviceMessage(r io.Reader, blobCap uint32) (DeviceMessage, error) {
	typ, err := wire.ReadU8(r)
	if err != nil {
		return nil, err
	}

	switch InboundType(typ) {
	case ClipboardType:
		text, err := wire.ReadLenString32(r, blobCap)
		if err != nil {
			return nil, &protoerr.ParseError{Field: "clipboard text", Err: err}
		}
		return ClipboardText{Text: text}, nil

	case AckClipboardType:
		seq, err := wire.ReadU64(r)
		if err != nil {
			return nil, &protoerr.ParseError{Field: "ack_clipboard sequence", Err: err}
		}
		return AckClipboard{Sequence: seq}, nil

	case UhidOutputType:
		id, err := wire.ReadU16(r)
		if err != nil {
			return nil, &protoerr.ParseError{Field: "uhid_output id", Err: err}
		}
		data, err := wire.ReadLenBlob16(r, 0xFFFF)
		if err != nil {
			return nil, &protoerr.ParseError{Field: "uhid_output data", Err: err}
		}
		return UhidOutput{ID: id, Data: data}, nil

	case AppListType:
		count, err := wire.ReadU32(r)
		if err != nil {
			return nil, &protoerr.ParseError{Field: "app_list count", Err: err}
		}
		if count > 4096 {
			return nil, &protoerr.ProtocolError{
				Kind: "app_list",
				Err:  fmt.Errorf("%w: count %d implausibly large", protoerr.ErrMalformedFrame, count),
			}
		}
		entries := make([]AppEntry, 0, count)
		for i := uint32(0); i < count; i++ {
			name, err := wire.ReadLenString16(r, 0xFFFF)
			if err != nil {
				return nil, &protoerr.ParseError{Field: "app_list entry name", Err: err}
			}
			pkg, err := wire.ReadLenString16(r, 0xFFFF)
			if err != nil {
				return nil, &protoerr.ParseError{Field: "app_list entry package", Err: err}
			}
			system, err := wire.ReadBool(r)
			if err != nil {
				return nil, &protoerr.ParseError{Field: "app_list entry system flag", Err: err}
			}
			entries = append(entries, AppEntry{Name: name, Package: pkg, System: system})
		}
		return AppList{Entries: entries}, nil

	case DisplayPowerStateType:
		on, err := wire.ReadBool(r)
		if err != nil {
			return nil, &protoerr.ParseError{Field: "display_power_state flag", Err: err}
		}
		return DisplayPowerState{On: on}, nil

	default:
		return nil, &protoerr.ProtocolError{
			Kind: "device message",
			Err:  fmt.Errorf("%w: unknown type %d", protoerr.ErrMalformedFrame, typ),
		}
	}
}
