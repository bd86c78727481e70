package scrcpy

import (
	"context"

	"github.com/cowby123/scrcpy-go/internal/control"
)

// copy-key values for GetClipboard, re-exported so callers never import
// internal/control directly.
const (
	CopyKeyNone uint8 = control.CopyKeyNone
	CopyKeyCopy uint8 = control.CopyKeyCopy
	CopyKeyCut  uint8 = control.CopyKeyCut
)

// InjectKeycode sends key event 0 (§4.E, §9 dynamic-union table entry 0).
func (s *Session) InjectKeycode(ctx context.Context, action uint8, keycode int32, repeat, metaState uint32) error {
	cc, err := s.control()
	if err != nil {
		return err
	}
	return cc.Send(ctx, control.InjectKeycodeMsg{Action: action, Keycode: keycode, Repeat: repeat, MetaState: metaState})
}

// InjectText sends control message 1.
func (s *Session) InjectText(ctx context.Context, text string) error {
	cc, err := s.control()
	if err != nil {
		return err
	}
	return cc.Send(ctx, control.InjectTextMsg{Text: text})
}

// InjectTouchEvent sends control message 2.
func (s *Session) InjectTouchEvent(ctx context.Context, action uint8, pointerID int64, x, y int32, screenW, screenH, pressure uint16, actionButton, buttons uint32) error {
	cc, err := s.control()
	if err != nil {
		return err
	}
	return cc.Send(ctx, control.InjectTouchEventMsg{
		Action: action, PointerID: pointerID, X: x, Y: y,
		ScreenW: screenW, ScreenH: screenH, Pressure: pressure,
		ActionButton: actionButton, Buttons: buttons,
	})
}

// InjectScrollEvent sends control message 3.
func (s *Session) InjectScrollEvent(ctx context.Context, x, y int32, screenW, screenH uint16, hScroll, vScroll int16, buttons uint32) error {
	cc, err := s.control()
	if err != nil {
		return err
	}
	return cc.Send(ctx, control.InjectScrollEventMsg{
		X: x, Y: y, ScreenW: screenW, ScreenH: screenH,
		HScroll: hScroll, VScroll: vScroll, Buttons: buttons,
	})
}

// BackOrScreenOn sends control message 4.
func (s *Session) BackOrScreenOn(ctx context.Context, action uint8) error {
	cc, err := s.control()
	if err != nil {
		return err
	}
	return cc.Send(ctx, control.BackOrScreenOnMsg{Action: action})
}

// ExpandNotificationPanel sends control message 5.
func (s *Session) ExpandNotificationPanel(ctx context.Context) error {
	cc, err := s.control()
	if err != nil {
		return err
	}
	return cc.Send(ctx, control.ExpandNotificationMsg{})
}

// ExpandSettingsPanel sends control message 6.
func (s *Session) ExpandSettingsPanel(ctx context.Context) error {
	cc, err := s.control()
	if err != nil {
		return err
	}
	return cc.Send(ctx, control.ExpandSettingsMsg{})
}

// CollapsePanels sends control message 7.
func (s *Session) CollapsePanels(ctx context.Context) error {
	cc, err := s.control()
	if err != nil {
		return err
	}
	return cc.Send(ctx, control.CollapsePanelsMsg{})
}

// GetClipboard sends control message 8 and waits for the device's reply,
// correlated FIFO against other concurrent GetClipboard calls (§4.E).
func (s *Session) GetClipboard(ctx context.Context, copyKey uint8) (string, error) {
	cc, err := s.control()
	if err != nil {
		return "", err
	}
	return cc.GetClipboard(ctx, copyKey)
}

// SetClipboard sends control message 9 and waits for the matching
// ACK_CLIPBOARD reply (invariant #6).
func (s *Session) SetClipboard(ctx context.Context, sequence uint64, paste bool, text string) error {
	cc, err := s.control()
	if err != nil {
		return err
	}
	return cc.SetClipboard(ctx, sequence, paste, text)
}

// SetDisplayPower sends control message 10.
func (s *Session) SetDisplayPower(ctx context.Context, on bool) error {
	cc, err := s.control()
	if err != nil {
		return err
	}
	return cc.Send(ctx, control.SetDisplayPowerMsg{On: on})
}

// RotateDevice sends control message 11.
func (s *Session) RotateDevice(ctx context.Context) error {
	cc, err := s.control()
	if err != nil {
		return err
	}
	return cc.Send(ctx, control.RotateDeviceMsg{})
}

// UhidCreate sends control message 12.
func (s *Session) UhidCreate(ctx context.Context, id, vendor, product uint16, name string, descriptor []byte) error {
	cc, err := s.control()
	if err != nil {
		return err
	}
	return cc.Send(ctx, control.UhidCreateMsg{ID: id, Vendor: vendor, Product: product, Name: name, Descriptor: descriptor})
}

// UhidInput sends control message 13.
func (s *Session) UhidInput(ctx context.Context, id uint16, data []byte) error {
	cc, err := s.control()
	if err != nil {
		return err
	}
	return cc.Send(ctx, control.UhidInputMsg{ID: id, Data: data})
}

// UhidDestroy sends control message 14.
func (s *Session) UhidDestroy(ctx context.Context, id uint16) error {
	cc, err := s.control()
	if err != nil {
		return err
	}
	return cc.Send(ctx, control.UhidDestroyMsg{ID: id})
}

// OpenHardKeyboardSettings sends control message 15.
func (s *Session) OpenHardKeyboardSettings(ctx context.Context) error {
	cc, err := s.control()
	if err != nil {
		return err
	}
	return cc.Send(ctx, control.OpenHardKeyboardSettingsMsg{})
}

// StartApp sends control message 16.
func (s *Session) StartApp(ctx context.Context, nameOrPackage string) error {
	cc, err := s.control()
	if err != nil {
		return err
	}
	return cc.Send(ctx, control.StartAppMsg{NameOrPackage: nameOrPackage})
}

// ResetVideo sends control message 17.
func (s *Session) ResetVideo(ctx context.Context) error {
	cc, err := s.control()
	if err != nil {
		return err
	}
	return cc.Send(ctx, control.ResetVideoMsg{})
}
