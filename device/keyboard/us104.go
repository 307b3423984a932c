package keyboard

// Modifiers tracks the state of the modifier and lock keys.
type Modifiers struct {
	LShift   bool
	RShift   bool
	LCtrl    bool
	RCtrl    bool
	LAlt     bool
	AltGr    bool
	NumLock  bool
	CapsLock bool
}

// IsShifted returns true if either shift key is held down.
func (m Modifiers) IsShifted() bool {
	return m.LShift || m.RShift
}

// IsCtrl returns true if either control key is held down.
func (m Modifiers) IsCtrl() bool {
	return m.LCtrl || m.RCtrl
}

// IsCaps returns true if letters should be upper-case, i.e. if exactly one
// of shift and caps lock is active.
func (m Modifiers) IsCaps() bool {
	return m.IsShifted() != m.CapsLock
}

// HandleControl selects how key presses are reported while a control key is
// held down.
type HandleControl uint8

const (
	// Ignore reports letters as if no control key was pressed.
	Ignore HandleControl = iota

	// MapLettersToUnicode reports Ctrl+A to Ctrl+Z as the control
	// characters U+0001 to U+001A.
	MapLettersToUnicode
)

// Layout maps key presses to characters.
type Layout interface {
	MapKeyCode(code KeyCode, modifiers Modifiers, handleCtrl HandleControl) DecodedKey
}

// us104Runes holds the unshifted and shifted character for every key that
// produces one on the main block of a US keyboard.
var us104Runes = [numKeyCodes][2]rune{
	KeyBackTick:           {'`', '~'},
	Key1:                  {'1', '!'},
	Key2:                  {'2', '@'},
	Key3:                  {'3', '#'},
	Key4:                  {'4', '$'},
	Key5:                  {'5', '%'},
	Key6:                  {'6', '^'},
	Key7:                  {'7', '&'},
	Key8:                  {'8', '*'},
	Key9:                  {'9', '('},
	Key0:                  {'0', ')'},
	KeyMinus:              {'-', '_'},
	KeyEquals:             {'=', '+'},
	KeyBackspace:          {0x08, 0x08},
	KeyTab:                {'\t', '\t'},
	KeyQ:                  {'q', 'Q'},
	KeyW:                  {'w', 'W'},
	KeyE:                  {'e', 'E'},
	KeyR:                  {'r', 'R'},
	KeyT:                  {'t', 'T'},
	KeyY:                  {'y', 'Y'},
	KeyU:                  {'u', 'U'},
	KeyI:                  {'i', 'I'},
	KeyO:                  {'o', 'O'},
	KeyP:                  {'p', 'P'},
	KeyBracketSquareLeft:  {'[', '{'},
	KeyBracketSquareRight: {']', '}'},
	KeyBackSlash:          {'\\', '|'},
	KeyA:                  {'a', 'A'},
	KeyS:                  {'s', 'S'},
	KeyD:                  {'d', 'D'},
	KeyF:                  {'f', 'F'},
	KeyG:                  {'g', 'G'},
	KeyH:                  {'h', 'H'},
	KeyJ:                  {'j', 'J'},
	KeyK:                  {'k', 'K'},
	KeyL:                  {'l', 'L'},
	KeySemiColon:          {';', ':'},
	KeyQuote:              {'\'', '"'},
	KeyEnter:              {'\n', '\n'},
	KeyZ:                  {'z', 'Z'},
	KeyX:                  {'x', 'X'},
	KeyC:                  {'c', 'C'},
	KeyV:                  {'v', 'V'},
	KeyB:                  {'b', 'B'},
	KeyN:                  {'n', 'N'},
	KeyM:                  {'m', 'M'},
	KeyComma:              {',', '<'},
	KeyFullStop:           {'.', '>'},
	KeySlash:              {'/', '?'},
	KeySpacebar:           {' ', ' '},
	KeyEscape:             {0x1b, 0x1b},
	KeyDelete:             {0x7f, 0x7f},
	KeyNumpadSlash:        {'/', '/'},
	KeyNumpadStar:         {'*', '*'},
	KeyNumpadMinus:        {'-', '-'},
	KeyNumpadPlus:         {'+', '+'},
	KeyNumpadEnter:        {'\n', '\n'},
}

// us104Numpad holds the character that each numpad key produces while num
// lock is active and the navigation key it acts as otherwise.
var us104Numpad = [numKeyCodes]struct {
	r   rune
	alt KeyCode
}{
	KeyNumpad0:      {'0', KeyInsert},
	KeyNumpad1:      {'1', KeyEnd},
	KeyNumpad2:      {'2', KeyArrowDown},
	KeyNumpad3:      {'3', KeyPageDown},
	KeyNumpad4:      {'4', KeyArrowLeft},
	KeyNumpad5:      {'5', KeyNumpad5},
	KeyNumpad6:      {'6', KeyArrowRight},
	KeyNumpad7:      {'7', KeyHome},
	KeyNumpad8:      {'8', KeyArrowUp},
	KeyNumpad9:      {'9', KeyPageUp},
	KeyNumpadPeriod: {'.', KeyDelete},
}

// Us104Key is the standard US 104-key layout.
type Us104Key struct{}

// MapKeyCode implements Layout.
func (Us104Key) MapKeyCode(code KeyCode, modifiers Modifiers, handleCtrl HandleControl) DecodedKey {
	if code >= numKeyCodes {
		return rawKey(code)
	}

	if numpad := us104Numpad[code]; numpad.r != 0 {
		if !modifiers.NumLock {
			if numpad.alt == KeyDelete {
				return unicodeKey(0x7f)
			}
			return rawKey(numpad.alt)
		}
		return unicodeKey(numpad.r)
	}

	runes := us104Runes[code]
	switch {
	case runes[0] == 0:
		return rawKey(code)
	case runes[0] >= 'a' && runes[0] <= 'z':
		if handleCtrl == MapLettersToUnicode && modifiers.IsCtrl() {
			return unicodeKey(runes[0] - 'a' + 1)
		}

		if modifiers.IsCaps() {
			return unicodeKey(runes[1])
		}
		return unicodeKey(runes[0])
	case modifiers.IsShifted():
		return unicodeKey(runes[1])
	default:
		return unicodeKey(runes[0])
	}
}

// encodeUs104 returns the key and shift state that produce r on a US 104-key
// layout with caps lock off.
func encodeUs104(r rune) (KeyCode, bool, bool) {
	for code, runes := range us104Runes {
		// Prefer keys from the main block over their numpad twins
		switch KeyCode(code) {
		case KeyNumpadSlash, KeyNumpadStar, KeyNumpadMinus, KeyNumpadPlus, KeyNumpadEnter, KeyDelete:
			continue
		}

		switch r {
		case runes[0]:
			return KeyCode(code), false, true
		case runes[1]:
			if runes[1] != 0 {
				return KeyCode(code), true, true
			}
		}
	}

	if r == 0x7f {
		return KeyDelete, false, true
	}

	return KeyNone, false, false
}
