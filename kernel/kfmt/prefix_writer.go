package kfmt

import (
	"bytes"
	"io"
)

// PrefixWriter is an io.Writer that starts every line it forwards with a
// fixed prefix. It is used to tag the output of a kernel component, e.g.
// "[pmm] ".
type PrefixWriter struct {
	// Sink receives the prefixed output. A nil Sink forwards to the active
	// kfmt output sink.
	Sink io.Writer

	// Prefix is written before the first byte of each line.
	Prefix []byte

	// midLine is set while the last forwarded byte was not a line feed.
	midLine bool
}

// NewPrefixWriter returns a PrefixWriter that forwards to sink.
func NewPrefixWriter(sink io.Writer, prefix string) *PrefixWriter {
	return &PrefixWriter{Sink: sink, Prefix: []byte(prefix)}
}

// Write forwards p to the sink one line at a time, emitting the prefix before
// each new line. The prefix is emitted lazily so a trailing line feed does
// not leave a dangling prefix behind. The returned byte count excludes the
// injected prefixes.
func (w *PrefixWriter) Write(p []byte) (int, error) {
	var (
		sink    = w.sink()
		written int
	)

	for len(p) != 0 {
		if !w.midLine {
			if _, err := sink.Write(w.Prefix); err != nil {
				return written, err
			}
			w.midLine = true
		}

		lineLen := len(p)
		if index := bytes.IndexByte(p, '\n'); index != -1 {
			lineLen = index + 1
			w.midLine = false
		}

		n, err := sink.Write(p[:lineLen])
		written += n
		if err != nil {
			return written, err
		}
		p = p[lineLen:]
	}

	return written, nil
}

func (w *PrefixWriter) sink() io.Writer {
	switch {
	case w.Sink != nil:
		return w.Sink
	case outputSink != nil:
		return outputSink
	default:
		return &earlyPrintBuffer
	}
}
