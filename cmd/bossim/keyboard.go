package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"

	ps2 "bos/device/keyboard"
	"bos/kernel/task"
	"bos/kernel/task/keyboard"
)

// maxScancodesPerRune is the longest sequence EncodeRune produces.
const maxScancodesPerRune = 8

// keyboardDevice simulates a PS/2 keyboard. Each scancode is delivered by
// raising an interrupt on the executor goroutine.
type keyboardDevice struct {
	halter   *task.ChanHalter
	keyDelay time.Duration
}

// typeString types every rune of s. Runes that cannot be typed on a US
// keyboard are skipped. It returns nil when ctx is done.
func (k *keyboardDevice) typeString(ctx context.Context, s string) error {
	for _, r := range s {
		if k.typeRune(ctx, r) != nil {
			return nil
		}
	}
	return nil
}

func (k *keyboardDevice) typeRune(ctx context.Context, r rune) error {
	var seq [maxScancodesPerRune]uint8
	n := ps2.EncodeRune(r, seq[:])
	if n == 0 {
		// kfmt is reserved for the executor goroutine
		fmt.Fprintf(os.Stderr, "bossim: cannot type %q\n", r)
		return nil
	}

	for _, scancode := range seq[:n] {
		scancode := scancode
		if err := k.halter.Raise(ctx, func() { keyboard.AddScancode(scancode) }); err != nil {
			return err
		}
	}

	select {
	case <-time.After(k.keyDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// watchKbdFile types the text that gets appended to path until ctx is done.
// Content present before the call is ignored.
func watchKbdFile(ctx context.Context, path string, k *keyboardDevice) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err = f.Seek(0, io.SeekEnd); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err = w.Add(path); err != nil {
		return err
	}

	var (
		buf     = make([]byte, 256)
		pending []byte
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) {
				continue
			}

			for {
				n, err := f.Read(buf)
				pending = append(pending, buf[:n]...)
				if err == io.EOF {
					break
				} else if err != nil {
					return err
				}
			}

			// A write may end in the middle of a multi-byte rune
			for utf8.FullRune(pending) {
				r, size := utf8.DecodeRune(pending)
				pending = pending[size:]
				if k.typeRune(ctx, r) != nil {
					return nil
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
