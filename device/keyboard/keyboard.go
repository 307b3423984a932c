package keyboard

import "bos/kernel"

// Keyboard combines a scancode decoder with a layout and keeps track of the
// modifier keys.
type Keyboard struct {
	decoder    ScancodeSet
	layout     Layout
	handleCtrl HandleControl
	modifiers  Modifiers
}

// New returns a Keyboard that decodes bytes using decoder and maps keys with
// layout. Num lock is initially active.
func New(layout Layout, decoder ScancodeSet, handleCtrl HandleControl) *Keyboard {
	return &Keyboard{
		decoder:    decoder,
		layout:     layout,
		handleCtrl: handleCtrl,
		modifiers:  Modifiers{NumLock: true},
	}
}

// Modifiers returns the current state of the modifier keys.
func (k *Keyboard) Modifiers() Modifiers {
	return k.modifiers
}

// AddByte feeds a byte received from the keyboard controller to the decoder.
// It returns true once a complete key event has been received.
func (k *Keyboard) AddByte(b uint8) (KeyEvent, bool, *kernel.Error) {
	return k.decoder.Advance(b)
}

// ProcessKeyEvent updates the modifier state and translates key presses into
// characters or raw keys. It returns false for key releases and for events
// that only change the modifier state.
func (k *Keyboard) ProcessKeyEvent(ev KeyEvent) (DecodedKey, bool) {
	down := ev.State == KeyDown

	switch ev.Code {
	case KeyShiftLeft:
		k.modifiers.LShift = down
	case KeyShiftRight:
		k.modifiers.RShift = down
	case KeyControlLeft:
		k.modifiers.LCtrl = down
	case KeyControlRight:
		k.modifiers.RCtrl = down
	case KeyAltLeft:
		k.modifiers.LAlt = down
	case KeyAltRight:
		k.modifiers.AltGr = down
	case KeyCapsLock:
		if down {
			k.modifiers.CapsLock = !k.modifiers.CapsLock
		}
	case KeyNumpadLock:
		if down {
			k.modifiers.NumLock = !k.modifiers.NumLock
		}
	default:
		if !down {
			return DecodedKey{}, false
		}
		return k.layout.MapKeyCode(ev.Code, k.modifiers, k.handleCtrl), true
	}

	return DecodedKey{}, false
}

// EncodeRune returns the scancode set 1 byte sequence that types r on a US
// 104-key keyboard with caps lock off, wrapping the key press in shift
// press/release codes when needed. It returns 0 if r cannot be typed. The
// sequence is written to buf which must be able to hold at least 8 bytes.
func EncodeRune(r rune, buf []uint8) int {
	key, shifted, ok := encodeUs104(r)
	if !ok {
		return 0
	}

	code, extended, ok := encodeSet1(key)
	if !ok {
		return 0
	}

	n := 0
	if shifted {
		buf[n] = 0x2a
		n++
	}

	if extended {
		buf[n] = set1ExtendedPrefix
		n++
	}
	buf[n] = code
	n++

	if extended {
		buf[n] = set1ExtendedPrefix
		n++
	}
	buf[n] = code | set1ReleaseBit
	n++

	if shifted {
		buf[n] = 0x2a | set1ReleaseBit
		n++
	}

	return n
}
