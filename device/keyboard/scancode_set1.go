package keyboard

import "bos/kernel"

const (
	set1ExtendedPrefix = 0xe0
	set1PausePrefix    = 0xe1
	set1ReleaseBit     = 0x80

	// set1FakeShift is sent by some controllers in front of extended
	// navigation keys and around PrintScreen (as E0 2A / E0 AA).
	set1FakeShift = 0x2a
)

var (
	// ErrUnknownKeyCode is returned when a scancode does not correspond
	// to a known key.
	ErrUnknownKeyCode = &kernel.Error{Module: "keyboard", Message: "unknown scancode"}

	// ErrInvalidSequence is returned when a multi-byte scancode sequence
	// is malformed.
	ErrInvalidSequence = &kernel.Error{Module: "keyboard", Message: "invalid scancode sequence"}
)

// ScancodeSet converts raw bytes received from the keyboard controller into
// key events.
type ScancodeSet interface {
	// Advance feeds the next byte to the decoder. It returns true when b
	// completes a key event; partial multi-byte sequences return false
	// and no error.
	Advance(b uint8) (KeyEvent, bool, *kernel.Error)
}

// set1Base maps single-byte IBM XT (scancode set 1) make codes to keys.
var set1Base = [set1ReleaseBit]KeyCode{
	0x01: KeyEscape,
	0x02: Key1,
	0x03: Key2,
	0x04: Key3,
	0x05: Key4,
	0x06: Key5,
	0x07: Key6,
	0x08: Key7,
	0x09: Key8,
	0x0a: Key9,
	0x0b: Key0,
	0x0c: KeyMinus,
	0x0d: KeyEquals,
	0x0e: KeyBackspace,
	0x0f: KeyTab,
	0x10: KeyQ,
	0x11: KeyW,
	0x12: KeyE,
	0x13: KeyR,
	0x14: KeyT,
	0x15: KeyY,
	0x16: KeyU,
	0x17: KeyI,
	0x18: KeyO,
	0x19: KeyP,
	0x1a: KeyBracketSquareLeft,
	0x1b: KeyBracketSquareRight,
	0x1c: KeyEnter,
	0x1d: KeyControlLeft,
	0x1e: KeyA,
	0x1f: KeyS,
	0x20: KeyD,
	0x21: KeyF,
	0x22: KeyG,
	0x23: KeyH,
	0x24: KeyJ,
	0x25: KeyK,
	0x26: KeyL,
	0x27: KeySemiColon,
	0x28: KeyQuote,
	0x29: KeyBackTick,
	0x2a: KeyShiftLeft,
	0x2b: KeyBackSlash,
	0x2c: KeyZ,
	0x2d: KeyX,
	0x2e: KeyC,
	0x2f: KeyV,
	0x30: KeyB,
	0x31: KeyN,
	0x32: KeyM,
	0x33: KeyComma,
	0x34: KeyFullStop,
	0x35: KeySlash,
	0x36: KeyShiftRight,
	0x37: KeyNumpadStar,
	0x38: KeyAltLeft,
	0x39: KeySpacebar,
	0x3a: KeyCapsLock,
	0x3b: KeyF1,
	0x3c: KeyF2,
	0x3d: KeyF3,
	0x3e: KeyF4,
	0x3f: KeyF5,
	0x40: KeyF6,
	0x41: KeyF7,
	0x42: KeyF8,
	0x43: KeyF9,
	0x44: KeyF10,
	0x45: KeyNumpadLock,
	0x46: KeyScrollLock,
	0x47: KeyNumpad7,
	0x48: KeyNumpad8,
	0x49: KeyNumpad9,
	0x4a: KeyNumpadMinus,
	0x4b: KeyNumpad4,
	0x4c: KeyNumpad5,
	0x4d: KeyNumpad6,
	0x4e: KeyNumpadPlus,
	0x4f: KeyNumpad1,
	0x50: KeyNumpad2,
	0x51: KeyNumpad3,
	0x52: KeyNumpad0,
	0x53: KeyNumpadPeriod,
	0x57: KeyF11,
	0x58: KeyF12,
}

// set1Extended maps the make codes that follow the 0xE0 prefix to keys.
var set1Extended = [set1ReleaseBit]KeyCode{
	0x1c: KeyNumpadEnter,
	0x1d: KeyControlRight,
	0x35: KeyNumpadSlash,
	0x37: KeyPrintScreen,
	0x38: KeyAltRight,
	0x47: KeyHome,
	0x48: KeyArrowUp,
	0x49: KeyPageUp,
	0x4b: KeyArrowLeft,
	0x4d: KeyArrowRight,
	0x4f: KeyEnd,
	0x50: KeyArrowDown,
	0x51: KeyPageDown,
	0x52: KeyInsert,
	0x53: KeyDelete,
	0x5b: KeyWindowsLeft,
	0x5c: KeyWindowsRight,
	0x5d: KeyApps,
}

type set1State uint8

const (
	set1Start set1State = iota
	set1StateExtended
	set1Pause1
	set1Pause2
)

// ScancodeSet1 decodes IBM XT scancodes (set 1), the set that the PS/2
// controller delivers by default with translation enabled. Bit 7 of a code
// marks a key release and 0xE0 introduces an extended key. The Pause key is
// reported as E1 1D 45 (press) and E1 9D C5 (release).
type ScancodeSet1 struct {
	state set1State
}

// Advance implements ScancodeSet.
func (s *ScancodeSet1) Advance(b uint8) (KeyEvent, bool, *kernel.Error) {
	switch s.state {
	case set1StateExtended:
		s.state = set1Start

		// Fake shifts carry no information
		if b&^set1ReleaseBit == set1FakeShift {
			return KeyEvent{}, false, nil
		}
		return decodeSet1(&set1Extended, b)
	case set1Pause1:
		if b&^set1ReleaseBit != 0x1d {
			s.state = set1Start
			return KeyEvent{}, false, ErrInvalidSequence
		}
		s.state = set1Pause2
		return KeyEvent{}, false, nil
	case set1Pause2:
		s.state = set1Start
		if b&^set1ReleaseBit != 0x45 {
			return KeyEvent{}, false, ErrInvalidSequence
		}
		return KeyEvent{Code: KeyPause, State: keyStateFor(b)}, true, nil
	}

	switch b {
	case set1ExtendedPrefix:
		s.state = set1StateExtended
		return KeyEvent{}, false, nil
	case set1PausePrefix:
		s.state = set1Pause1
		return KeyEvent{}, false, nil
	}

	return decodeSet1(&set1Base, b)
}

func decodeSet1(table *[set1ReleaseBit]KeyCode, b uint8) (KeyEvent, bool, *kernel.Error) {
	code := table[b&^set1ReleaseBit]
	if code == KeyNone {
		return KeyEvent{}, false, ErrUnknownKeyCode
	}

	return KeyEvent{Code: code, State: keyStateFor(b)}, true, nil
}

func keyStateFor(b uint8) KeyState {
	if b&set1ReleaseBit != 0 {
		return KeyUp
	}
	return KeyDown
}

// encodeSet1 returns the make code for key and whether it is an extended key.
func encodeSet1(key KeyCode) (uint8, bool, bool) {
	for code, k := range set1Base {
		if k == key && k != KeyNone {
			return uint8(code), false, true
		}
	}

	for code, k := range set1Extended {
		if k == key && k != KeyNone {
			return uint8(code), true, true
		}
	}

	return 0, false, false
}
