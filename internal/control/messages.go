// Package control implements the scrcpy bidirectional control channel
// (§4.E): the 18 outbound message encoders, the 5 inbound device message
// decoders, and the Ready/SendingFrame/Broken channel state machine with
// clipboard request/reply correlation.
package control

import (
	"io"

	"github.com/cowby123/scrcpy-go/internal/wire"
)

// OutboundType is the wire type byte of an outbound control message. The
// values match the 18-entry table in §4.E exactly so the constant and the
// wire byte never drift apart — per §9's design note, the type-id→codec
// mapping lives in this one file, not scattered across call sites.
type OutboundType uint8

const (
	InjectKeycode OutboundType = iota
	InjectText
	InjectTouchEvent
	InjectScrollEvent
	BackOrScreenOn
	ExpandNotification
	ExpandSettings
	CollapsePanels
	GetClipboardType
	SetClipboardType
	SetDisplayPowerType
	RotateDeviceType
	UhidCreateType
	UhidInputType
	UhidDestroyType
	OpenHardKeyboardSettingsType
	StartAppType
	ResetVideoType
)

// copy-key values for GET_CLIPBOARD.
const (
	CopyKeyNone uint8 = iota
	CopyKeyCopy
	CopyKeyCut
)

// Message is any outbound control message; Encode writes its type byte
// followed by its type-specific body.
type Message interface {
	Encode(w io.Writer) error
}

// InjectKeycodeMsg is control message 0.
type InjectKeycodeMsg struct {
	Action    uint8
	Keycode   int32
	Repeat    uint32
	MetaState uint32
}

func (m InjectKeycodeMsg) Encode(w io.Writer) error {
	return encodeSeq(w, InjectKeycode,
		func(w io.Writer) error { return wire.WriteU8(w, m.Action) },
		func(w io.Writer) error { return wire.WriteI32(w, m.Keycode) },
		func(w io.Writer) error { return wire.WriteU32(w, m.Repeat) },
		func(w io.Writer) error { return wire.WriteU32(w, m.MetaState) },
	)
}

// InjectTextMsg is control message 1.
type InjectTextMsg struct{ Text string }

func (m InjectTextMsg) Encode(w io.Writer) error {
	return encodeSeq(w, InjectText,
		func(w io.Writer) error { return wire.WriteLenString32(w, m.Text) },
	)
}

// InjectTouchEventMsg is control message 2. The wire layout is the
// official 32-byte message (type byte plus a 31-byte body): action,
// pointerId(i64), x, y, screen w/h, pressure (u16 fixed point),
// action_button, buttons.
type InjectTouchEventMsg struct {
	Action       uint8
	PointerID    int64
	X, Y         int32
	ScreenW      uint16
	ScreenH      uint16
	Pressure     uint16
	ActionButton uint32
	Buttons      uint32
}

func (m InjectTouchEventMsg) Encode(w io.Writer) error {
	return encodeSeq(w, InjectTouchEvent,
		func(w io.Writer) error { return wire.WriteU8(w, m.Action) },
		func(w io.Writer) error { return wire.WriteI64(w, m.PointerID) },
		func(w io.Writer) error { return wire.WriteI32(w, m.X) },
		func(w io.Writer) error { return wire.WriteI32(w, m.Y) },
		func(w io.Writer) error { return wire.WriteU16(w, m.ScreenW) },
		func(w io.Writer) error { return wire.WriteU16(w, m.ScreenH) },
		func(w io.Writer) error { return wire.WriteU16(w, m.Pressure) },
		func(w io.Writer) error { return wire.WriteU32(w, m.ActionButton) },
		func(w io.Writer) error { return wire.WriteU32(w, m.Buttons) },
	)
}

// InjectScrollEventMsg is control message 3.
type InjectScrollEventMsg struct {
	X, Y           int32
	ScreenW        uint16
	ScreenH        uint16
	HScroll        int16
	VScroll        int16
	Buttons        uint32
}

func (m InjectScrollEventMsg) Encode(w io.Writer) error {
	return encodeSeq(w, InjectScrollEvent,
		func(w io.Writer) error { return wire.WriteI32(w, m.X) },
		func(w io.Writer) error { return wire.WriteI32(w, m.Y) },
		func(w io.Writer) error { return wire.WriteU16(w, m.ScreenW) },
		func(w io.Writer) error { return wire.WriteU16(w, m.ScreenH) },
		func(w io.Writer) error { return wire.WriteI16(w, m.HScroll) },
		func(w io.Writer) error { return wire.WriteI16(w, m.VScroll) },
		func(w io.Writer) error { return wire.WriteU32(w, m.Buttons) },
	)
}

// BackOrScreenOnMsg is control message 4.
type BackOrScreenOnMsg struct{ Action uint8 }

func (m BackOrScreenOnMsg) Encode(w io.Writer) error {
	return encodeSeq(w, BackOrScreenOn,
		func(w io.Writer) error { return wire.WriteU8(w, m.Action) },
	)
}

// ExpandNotificationMsg is control message 5 (empty body).
type ExpandNotificationMsg struct{}

func (ExpandNotificationMsg) Encode(w io.Writer) error { return encodeSeq(w, ExpandNotification) }

// ExpandSettingsMsg is control message 6 (empty body).
type ExpandSettingsMsg struct{}

func (ExpandSettingsMsg) Encode(w io.Writer) error { return encodeSeq(w, ExpandSettings) }

// CollapsePanelsMsg is control message 7 (empty body).
type CollapsePanelsMsg struct{}

func (CollapsePanelsMsg) Encode(w io.Writer) error { return encodeSeq(w, CollapsePanels) }

// GetClipboardMsg is control message 8. It carries no sequence number; the
// Channel correlates its reply with the next inbound CLIPBOARD message
// FIFO-style (§4.E).
type GetClipboardMsg struct{ CopyKey uint8 }

func (m GetClipboardMsg) Encode(w io.Writer) error {
	return encodeSeq(w, GetClipboardType,
		func(w io.Writer) error { return wire.WriteU8(w, m.CopyKey) },
	)
}

// SetClipboardMsg is control message 9. Sequence is caller-chosen and is
// echoed back in the matching ACK_CLIPBOARD reply.
type SetClipboardMsg struct {
	Sequence uint64
	Paste    bool
	Text     string
}

func (m SetClipboardMsg) Encode(w io.Writer) error {
	return encodeSeq(w, SetClipboardType,
		func(w io.Writer) error { return wire.WriteU64(w, m.Sequence) },
		func(w io.Writer) error { return wire.WriteBool(w, m.Paste) },
		func(w io.Writer) error { return wire.WriteLenString32(w, m.Text) },
	)
}

// SetDisplayPowerMsg is control message 10.
type SetDisplayPowerMsg struct{ On bool }

func (m SetDisplayPowerMsg) Encode(w io.Writer) error {
	return encodeSeq(w, SetDisplayPowerType,
		func(w io.Writer) error { return wire.WriteBool(w, m.On) },
	)
}

// RotateDeviceMsg is control message 11 (empty body).
//
// Per §9's open question, some devices silently ignore this on some
// firmware builds; the channel only reports a send failure, never infers
// success or failure from device behavior.
type RotateDeviceMsg struct{}

func (RotateDeviceMsg) Encode(w io.Writer) error { return encodeSeq(w, RotateDeviceType) }

// UhidCreateMsg is control message 12.
type UhidCreateMsg struct {
	ID         uint16
	Vendor     uint16
	Product    uint16
	Name       string
	Descriptor []byte
}

func (m UhidCreateMsg) Encode(w io.Writer) error {
	return encodeSeq(w, UhidCreateType,
		func(w io.Writer) error { return wire.WriteU16(w, m.ID) },
		func(w io.Writer) error { return wire.WriteU16(w, m.Vendor) },
		func(w io.Writer) error { return wire.WriteU16(w, m.Product) },
		func(w io.Writer) error { return wire.WriteLenString16(w, m.Name) },
		func(w io.Writer) error { return wire.WriteLenBlob16(w, m.Descriptor) },
	)
}

// UhidInputMsg is control message 13.
type UhidInputMsg struct {
	ID   uint16
	Data []byte
}

func (m UhidInputMsg) Encode(w io.Writer) error {
	return encodeSeq(w, UhidInputType,
		func(w io.Writer) error { return wire.WriteU16(w, m.ID) },
		func(w io.Writer) error { return wire.WriteLenBlob16(w, m.Data) },
	)
}

// UhidDestroyMsg is control message 14.
type UhidDestroyMsg struct{ ID uint16 }

func (m UhidDestroyMsg) Encode(w io.Writer) error {
	return encodeSeq(w, UhidDestroyType,
		func(w io.Writer) error { return wire.WriteU16(w, m.ID) },
	)
}

// OpenHardKeyboardSettingsMsg is control message 15 (empty body). Subject
// to the same §9 silent-no-op caveat as RotateDeviceMsg.
type OpenHardKeyboardSettingsMsg struct{}

func (OpenHardKeyboardSettingsMsg) Encode(w io.Writer) error {
	return encodeSeq(w, OpenHardKeyboardSettingsType)
}

// StartAppMsg is control message 16. Subject to the same §9 silent-no-op
// caveat as RotateDeviceMsg.
type StartAppMsg struct{ NameOrPackage string }

func (m StartAppMsg) Encode(w io.Writer) error {
	return encodeSeq(w, StartAppType,
		func(w io.Writer) error { return wire.WriteLenString32(w, m.NameOrPackage) },
	)
}

// ResetVideoMsg is control message 17 (empty body).
type ResetVideoMsg struct{}

func (ResetVideoMsg) Encode(w io.Writer) error { return encodeSeq(w, ResetVideoType) }

// encodeSeq writes the type byte followed by each field writer in order,
// stopping at the first error.
func encodeSeq(w io.Writer, typ OutboundType, fields ...func(io.Writer) error) error {
	if err := wire.WriteU8(w, uint8(typ)); err != nil {
		return err
	}
	for _, f := range fields {
		if err := f(w); err != nil {
			return err
		}
	}
	return nil
}
