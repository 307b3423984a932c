package keyboard

import (
	"strings"
	"testing"

	"bos/kernel"
)

// typeBytes feeds seq to kb and returns the decoded characters. Raw keys are
// rendered as <Name>.
func typeBytes(t *testing.T, kb *Keyboard, seq ...uint8) string {
	t.Helper()

	var out strings.Builder
	for _, b := range seq {
		ev, ok, err := kb.AddByte(b)
		if err != nil {
			t.Fatalf("unexpected error decoding byte 0x%x: %v", b, err)
		}

		if !ok {
			continue
		}

		key, ok := kb.ProcessKeyEvent(ev)
		if !ok {
			continue
		}

		switch key.Kind {
		case DecodedUnicode:
			out.WriteRune(key.Rune)
		default:
			out.WriteString("<" + key.Key.String() + ">")
		}
	}

	return out.String()
}

func newUs104(handleCtrl HandleControl) *Keyboard {
	return New(Us104Key{}, &ScancodeSet1{}, handleCtrl)
}

func TestScancodeSet1(t *testing.T) {
	specs := []struct {
		descr    string
		seq      []uint8
		expEvent KeyEvent
		expOK    bool
		expErr   *kernel.Error
	}{
		{"make code", []uint8{0x1e}, KeyEvent{KeyA, KeyDown}, true, nil},
		{"break code", []uint8{0x9e}, KeyEvent{KeyA, KeyUp}, true, nil},
		{"extended make code", []uint8{0xe0, 0x48}, KeyEvent{KeyArrowUp, KeyDown}, true, nil},
		{"extended break code", []uint8{0xe0, 0xc8}, KeyEvent{KeyArrowUp, KeyUp}, true, nil},
		{"right control", []uint8{0xe0, 0x1d}, KeyEvent{KeyControlRight, KeyDown}, true, nil},
		{"fake shift", []uint8{0xe0, 0x2a}, KeyEvent{}, false, nil},
		{"fake shift release", []uint8{0xe0, 0xaa}, KeyEvent{}, false, nil},
		{"pause press", []uint8{0xe1, 0x1d, 0x45}, KeyEvent{KeyPause, KeyDown}, true, nil},
		{"pause release", []uint8{0xe1, 0x9d, 0xc5}, KeyEvent{KeyPause, KeyUp}, true, nil},
		{"unknown code", []uint8{0x54}, KeyEvent{}, false, ErrUnknownKeyCode},
		{"unknown extended code", []uint8{0xe0, 0x10}, KeyEvent{}, false, ErrUnknownKeyCode},
		{"invalid pause sequence", []uint8{0xe1, 0x20}, KeyEvent{}, false, ErrInvalidSequence},
		{"invalid pause sequence end", []uint8{0xe1, 0x1d, 0x20}, KeyEvent{}, false, ErrInvalidSequence},
	}

	for specIndex, spec := range specs {
		var (
			set1  ScancodeSet1
			ev    KeyEvent
			ok    bool
			err   *kernel.Error
			count int
		)

		for _, b := range spec.seq {
			ev, ok, err = set1.Advance(b)
			if ok {
				count++
			}
		}

		if err != spec.expErr {
			t.Errorf("[spec %d: %s] expected error %v; got %v", specIndex, spec.descr, spec.expErr, err)
		}

		if ok != spec.expOK || ev != spec.expEvent {
			t.Errorf("[spec %d: %s] expected (%v, %t); got (%v, %t)", specIndex, spec.descr, spec.expEvent, spec.expOK, ev, ok)
		}

		if spec.expOK && count != 1 {
			t.Errorf("[spec %d: %s] expected a single event; got %d", specIndex, spec.descr, count)
		}

		// The decoder must be back in its initial state
		if ev, ok, err := set1.Advance(0x10); !ok || err != nil || ev.Code != KeyQ {
			t.Errorf("[spec %d: %s] expected decoder to reset after the sequence; got (%v, %t, %v)", specIndex, spec.descr, ev, ok, err)
		}
	}
}

func TestScancodeSet1PartialSequence(t *testing.T) {
	var set1 ScancodeSet1

	if _, ok, err := set1.Advance(0xe0); ok || err != nil {
		t.Fatalf("expected extended prefix not to produce an event; got (%t, %v)", ok, err)
	}

	// 0x48 is Numpad8 on its own but ArrowUp after the prefix
	if ev, ok, err := set1.Advance(0x48); !ok || err != nil || ev.Code != KeyArrowUp {
		t.Fatalf("expected ArrowUp; got (%v, %t, %v)", ev, ok, err)
	}

	if ev, ok, err := set1.Advance(0x48); !ok || err != nil || ev.Code != KeyNumpad8 {
		t.Fatalf("expected Numpad8; got (%v, %t, %v)", ev, ok, err)
	}
}

func TestKeyboardLetters(t *testing.T) {
	kb := newUs104(Ignore)

	specs := []struct {
		descr string
		seq   []uint8
		exp   string
	}{
		{"lower case", []uint8{0x1e, 0x9e}, "a"},
		{"left shift", []uint8{0x2a, 0x1e, 0x9e, 0xaa}, "A"},
		{"right shift", []uint8{0x36, 0x1e, 0x9e, 0xb6}, "A"},
		{"caps lock on", []uint8{0x3a, 0xba, 0x1e, 0x9e}, "A"},
		{"caps lock and shift", []uint8{0x2a, 0x1e, 0x9e, 0xaa}, "a"},
		{"caps lock does not affect digits", []uint8{0x02, 0x82}, "1"},
		{"caps lock off", []uint8{0x3a, 0xba, 0x1e, 0x9e}, "a"},
		{"auto repeat", []uint8{0x1e, 0x1e, 0x1e, 0x9e}, "aaa"},
		{"ignored control", []uint8{0x1d, 0x2e, 0xae, 0x9d}, "c"},
	}

	for specIndex, spec := range specs {
		if got := typeBytes(t, kb, spec.seq...); got != spec.exp {
			t.Errorf("[spec %d: %s] expected %q; got %q", specIndex, spec.descr, spec.exp, got)
		}
	}
}

func TestKeyboardMapLettersToUnicode(t *testing.T) {
	kb := newUs104(MapLettersToUnicode)

	if exp, got := "\x03", typeBytes(t, kb, 0x1d, 0x2e, 0xae, 0x9d); got != exp {
		t.Errorf("expected Ctrl+C to produce %q; got %q", exp, got)
	}

	if exp, got := "\x1a", typeBytes(t, kb, 0xe0, 0x1d, 0x2c, 0xac, 0xe0, 0x9d); got != exp {
		t.Errorf("expected RightCtrl+Z to produce %q; got %q", exp, got)
	}

	// Non-letters are not affected
	if exp, got := "1", typeBytes(t, kb, 0x1d, 0x02, 0x82, 0x9d); got != exp {
		t.Errorf("expected Ctrl+1 to produce %q; got %q", exp, got)
	}

	if kb.Modifiers().IsCtrl() {
		t.Error("expected control keys to be released")
	}
}

func TestKeyboardNumpad(t *testing.T) {
	kb := newUs104(Ignore)

	if !kb.Modifiers().NumLock {
		t.Fatal("expected num lock to be initially active")
	}

	if exp, got := "7.+\n", typeBytes(t, kb, 0x47, 0xc7, 0x53, 0xd3, 0x4e, 0xce, 0xe0, 0x1c, 0xe0, 0x9c); got != exp {
		t.Errorf("expected %q; got %q", exp, got)
	}

	// Toggle num lock off
	typeBytes(t, kb, 0x45, 0xc5)

	if exp, got := "<Home><Numpad5>\x7f", typeBytes(t, kb, 0x47, 0xc7, 0x4c, 0xcc, 0x53, 0xd3); got != exp {
		t.Errorf("expected %q; got %q", exp, got)
	}
}

func TestKeyboardRawKeys(t *testing.T) {
	kb := newUs104(Ignore)

	exp := "<F1><ArrowUp><PageDown><ScrollLock><Pause>"
	got := typeBytes(t, kb,
		0x3b, 0xbb,
		0xe0, 0x48, 0xe0, 0xc8,
		0xe0, 0x51, 0xe0, 0xd1,
		0x46, 0xc6,
		0xe1, 0x1d, 0x45, 0xe1, 0x9d, 0xc5,
	)

	if got != exp {
		t.Errorf("expected %q; got %q", exp, got)
	}
}

func TestEncodeRuneRoundTrip(t *testing.T) {
	var input []rune
	for r := rune(0x20); r < 0x7f; r++ {
		input = append(input, r)
	}
	input = append(input, '\n', '\t', 0x08, 0x1b, 0x7f)

	kb := newUs104(Ignore)
	buf := make([]uint8, 8)

	for _, r := range input {
		n := EncodeRune(r, buf)
		if n == 0 {
			t.Errorf("expected rune %q to be encodable", r)
			continue
		}

		if got := typeBytes(t, kb, buf[:n]...); got != string(r) {
			t.Errorf("expected encoded sequence % x to decode to %q; got %q", buf[:n], string(r), got)
		}
	}
}

func TestEncodeRuneUnsupported(t *testing.T) {
	buf := make([]uint8, 8)

	for _, r := range []rune{0, 'é', '€', 0x01} {
		if n := EncodeRune(r, buf); n != 0 {
			t.Errorf("expected rune %q not to be encodable; got % x", r, buf[:n])
		}
	}
}

func TestEncodeRuneSequence(t *testing.T) {
	specs := []struct {
		r   rune
		exp []uint8
	}{
		{'a', []uint8{0x1e, 0x9e}},
		{'A', []uint8{0x2a, 0x1e, 0x9e, 0xaa}},
		{'\n', []uint8{0x1c, 0x9c}},
		{0x7f, []uint8{0xe0, 0x53, 0xe0, 0xd3}},
	}

	buf := make([]uint8, 8)
	for specIndex, spec := range specs {
		n := EncodeRune(spec.r, buf)
		if string(buf[:n]) != string(spec.exp) {
			t.Errorf("[spec %d] expected EncodeRune(%q) to return % x; got % x", specIndex, spec.r, spec.exp, buf[:n])
		}
	}
}

func TestKeyCodeString(t *testing.T) {
	for code := KeyCode(0); code < numKeyCodes; code++ {
		if code.String() == "" {
			t.Errorf("missing name for key code %d", code)
		}
	}

	specs := []struct {
		code KeyCode
		exp  string
	}{
		{KeyArrowUp, "ArrowUp"},
		{KeyA, "A"},
		{KeyNumpadEnter, "NumpadEnter"},
		{KeyCode(250), "Unknown"},
	}

	for specIndex, spec := range specs {
		if got := spec.code.String(); got != spec.exp {
			t.Errorf("[spec %d] expected %q; got %q", specIndex, spec.exp, got)
		}
	}
}
