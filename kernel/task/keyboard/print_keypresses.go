package keyboard

import (
	"io"

	ps2 "bos/device/keyboard"
	"bos/kernel/kfmt"
	"bos/kernel/task"
)

// PrintKeypresses returns a task that decodes scancodes using the US 104-key
// layout and prints each typed character to w. Keys without a character
// representation are printed by name. Malformed scancode sequences are
// skipped. If w is nil, output goes to the active kfmt output sink.
//
// PrintKeypresses creates the scancode queue and must only be called once.
// The returned task never completes.
func PrintKeypresses(capacity int, w io.Writer) task.Task {
	stream := NewScancodeStream(capacity)
	kb := ps2.New(ps2.Us104Key{}, &ps2.ScancodeSet1{}, ps2.Ignore)

	return task.TaskFunc(func(cx *task.Context) task.PollState {
		for {
			scancode, state := stream.PollNext(cx)
			switch state {
			case task.Pending:
				return task.Pending
			case task.Exhausted:
				return task.Ready
			}

			ev, ok, err := kb.AddByte(scancode)
			if err != nil || !ok {
				continue
			}

			if key, ok := kb.ProcessKeyEvent(ev); ok {
				printKey(w, key)
			}
		}
	})
}

func printKey(w io.Writer, key ps2.DecodedKey) {
	if w == nil {
		w = kfmt.GetOutputSink()
	}

	switch key.Kind {
	case ps2.DecodedUnicode:
		kfmt.Fprintf(w, "%c", key.Rune)
	default:
		kfmt.Fprintf(w, "%s", key.Key.String())
	}
}
