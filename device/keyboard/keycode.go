// Package keyboard decodes the byte stream produced by a PS/2 keyboard
// controller into key events and characters.
//
// None of the types in this package allocate memory after initialization so
// they can be used by kernel tasks before or after the heap is available.
package keyboard

// KeyCode identifies a physical key independently of the active layout.
type KeyCode uint8

// The list of supported keys, named after their position on a US 104-key
// keyboard.
const (
	KeyNone KeyCode = iota
	KeyEscape
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeyPrintScreen
	KeyScrollLock
	KeyPause
	KeyBackTick
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	Key0
	KeyMinus
	KeyEquals
	KeyBackspace
	KeyTab
	KeyQ
	KeyW
	KeyE
	KeyR
	KeyT
	KeyY
	KeyU
	KeyI
	KeyO
	KeyP
	KeyBracketSquareLeft
	KeyBracketSquareRight
	KeyBackSlash
	KeyCapsLock
	KeyA
	KeyS
	KeyD
	KeyF
	KeyG
	KeyH
	KeyJ
	KeyK
	KeyL
	KeySemiColon
	KeyQuote
	KeyEnter
	KeyShiftLeft
	KeyZ
	KeyX
	KeyC
	KeyV
	KeyB
	KeyN
	KeyM
	KeyComma
	KeyFullStop
	KeySlash
	KeyShiftRight
	KeyControlLeft
	KeyWindowsLeft
	KeyAltLeft
	KeySpacebar
	KeyAltRight
	KeyWindowsRight
	KeyApps
	KeyControlRight
	KeyInsert
	KeyHome
	KeyPageUp
	KeyDelete
	KeyEnd
	KeyPageDown
	KeyArrowUp
	KeyArrowLeft
	KeyArrowDown
	KeyArrowRight
	KeyNumpadLock
	KeyNumpadSlash
	KeyNumpadStar
	KeyNumpadMinus
	KeyNumpad7
	KeyNumpad8
	KeyNumpad9
	KeyNumpadPlus
	KeyNumpad4
	KeyNumpad5
	KeyNumpad6
	KeyNumpad1
	KeyNumpad2
	KeyNumpad3
	KeyNumpadEnter
	KeyNumpad0
	KeyNumpadPeriod

	numKeyCodes
)

var keyCodeNames = [numKeyCodes]string{
	KeyNone:               "None",
	KeyEscape:             "Escape",
	KeyF1:                 "F1",
	KeyF2:                 "F2",
	KeyF3:                 "F3",
	KeyF4:                 "F4",
	KeyF5:                 "F5",
	KeyF6:                 "F6",
	KeyF7:                 "F7",
	KeyF8:                 "F8",
	KeyF9:                 "F9",
	KeyF10:                "F10",
	KeyF11:                "F11",
	KeyF12:                "F12",
	KeyPrintScreen:        "PrintScreen",
	KeyScrollLock:         "ScrollLock",
	KeyPause:              "Pause",
	KeyBackTick:           "BackTick",
	Key1:                  "Key1",
	Key2:                  "Key2",
	Key3:                  "Key3",
	Key4:                  "Key4",
	Key5:                  "Key5",
	Key6:                  "Key6",
	Key7:                  "Key7",
	Key8:                  "Key8",
	Key9:                  "Key9",
	Key0:                  "Key0",
	KeyMinus:              "Minus",
	KeyEquals:             "Equals",
	KeyBackspace:          "Backspace",
	KeyTab:                "Tab",
	KeyQ:                  "Q",
	KeyW:                  "W",
	KeyE:                  "E",
	KeyR:                  "R",
	KeyT:                  "T",
	KeyY:                  "Y",
	KeyU:                  "U",
	KeyI:                  "I",
	KeyO:                  "O",
	KeyP:                  "P",
	KeyBracketSquareLeft:  "BracketSquareLeft",
	KeyBracketSquareRight: "BracketSquareRight",
	KeyBackSlash:          "BackSlash",
	KeyCapsLock:           "CapsLock",
	KeyA:                  "A",
	KeyS:                  "S",
	KeyD:                  "D",
	KeyF:                  "F",
	KeyG:                  "G",
	KeyH:                  "H",
	KeyJ:                  "J",
	KeyK:                  "K",
	KeyL:                  "L",
	KeySemiColon:          "SemiColon",
	KeyQuote:              "Quote",
	KeyEnter:              "Enter",
	KeyShiftLeft:          "ShiftLeft",
	KeyZ:                  "Z",
	KeyX:                  "X",
	KeyC:                  "C",
	KeyV:                  "V",
	KeyB:                  "B",
	KeyN:                  "N",
	KeyM:                  "M",
	KeyComma:              "Comma",
	KeyFullStop:           "FullStop",
	KeySlash:              "Slash",
	KeyShiftRight:         "ShiftRight",
	KeyControlLeft:        "ControlLeft",
	KeyWindowsLeft:        "WindowsLeft",
	KeyAltLeft:            "AltLeft",
	KeySpacebar:           "Spacebar",
	KeyAltRight:           "AltRight",
	KeyWindowsRight:       "WindowsRight",
	KeyApps:               "Apps",
	KeyControlRight:       "ControlRight",
	KeyInsert:             "Insert",
	KeyHome:               "Home",
	KeyPageUp:             "PageUp",
	KeyDelete:             "Delete",
	KeyEnd:                "End",
	KeyPageDown:           "PageDown",
	KeyArrowUp:            "ArrowUp",
	KeyArrowLeft:          "ArrowLeft",
	KeyArrowDown:          "ArrowDown",
	KeyArrowRight:         "ArrowRight",
	KeyNumpadLock:         "NumpadLock",
	KeyNumpadSlash:        "NumpadSlash",
	KeyNumpadStar:         "NumpadStar",
	KeyNumpadMinus:        "NumpadMinus",
	KeyNumpad7:            "Numpad7",
	KeyNumpad8:            "Numpad8",
	KeyNumpad9:            "Numpad9",
	KeyNumpadPlus:         "NumpadPlus",
	KeyNumpad4:            "Numpad4",
	KeyNumpad5:            "Numpad5",
	KeyNumpad6:            "Numpad6",
	KeyNumpad1:            "Numpad1",
	KeyNumpad2:            "Numpad2",
	KeyNumpad3:            "Numpad3",
	KeyNumpadEnter:        "NumpadEnter",
	KeyNumpad0:            "Numpad0",
	KeyNumpadPeriod:       "NumpadPeriod",
}

// String returns the name of the key.
func (k KeyCode) String() string {
	if k >= numKeyCodes {
		return "Unknown"
	}
	return keyCodeNames[k]
}

// KeyState describes whether a key was pressed or released.
type KeyState uint8

const (
	// KeyUp indicates that a key was released.
	KeyUp KeyState = iota

	// KeyDown indicates that a key was pressed or is auto-repeating.
	KeyDown
)

// KeyEvent describes a change in the state of a physical key.
type KeyEvent struct {
	Code  KeyCode
	State KeyState
}

// DecodedKind indicates which field of a DecodedKey is valid.
type DecodedKind uint8

const (
	// DecodedRawKey indicates a key that has no character representation.
	DecodedRawKey DecodedKind = iota

	// DecodedUnicode indicates a key that produced a character.
	DecodedUnicode
)

// DecodedKey is the result of passing a key press through a layout.
type DecodedKey struct {
	Kind DecodedKind

	// Rune is set when Kind is DecodedUnicode.
	Rune rune

	// Key is set when Kind is DecodedRawKey.
	Key KeyCode
}

func unicodeKey(r rune) DecodedKey {
	return DecodedKey{Kind: DecodedUnicode, Rune: r}
}

func rawKey(k KeyCode) DecodedKey {
	return DecodedKey{Kind: DecodedRawKey, Key: k}
}
