// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"errors"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// The framer buffer grows in multiples of this size.
const frameBufferBase = 256

// FrameHandler receives each frame. The slice is owned by the handler.
type FrameHandler func(frame []byte) error

// Framer re-segments a byte stream into frames that each start with a fixed
// sync pattern. A frame spans from one occurrence of the pattern to the next;
// bytes after the last occurrence stay buffered until more data arrives or
// Flush is called. A Framer is not safe for concurrent use.
type Framer struct {
	pattern []byte
	failure []int
	handler FrameHandler

	strip    bool
	maxFrame int
	logger   log.Logger
	metrics  *Metrics

	buf []byte
	n   int
}

func NewFramer(pattern []byte, handler FrameHandler, opts ...Option) (*Framer, error) {
	if len(pattern) == 0 {
		return nil, fmt.Errorf("sync pattern is empty")
	}
	if handler == nil {
		return nil, fmt.Errorf("frame handler is nil")
	}
	o := newOptions(opts)
	p := append([]byte(nil), pattern...)
	return &Framer{
		pattern:  p,
		failure:  computeFailure(p),
		handler:  handler,
		strip:    o.strip,
		maxFrame: o.maxFrame,
		logger:   log.With(o.logger, "component", "framer"),
		metrics:  o.metrics,
		buf:      make([]byte, frameBufferBase),
	}, nil
}

// computeFailure builds the KMP failure table: failure[j] is the length of
// the longest proper prefix of pattern[:j+1] that is also its suffix.
func computeFailure(pattern []byte) []int {
	failure := make([]int, len(pattern))
	j := 0
	for i := 1; i < len(pattern); i++ {
		for j > 0 && pattern[j] != pattern[i] {
			j = failure[j-1]
		}
		if pattern[j] == pattern[i] {
			j++
		}
		failure[i] = j
	}
	return failure
}

// indexOf returns the offset of the first occurrence of the pattern in the
// buffered bytes at or after from, or -1.
func (f *Framer) indexOf(from int) int {
	j := 0
	for i := from; i < f.n; i++ {
		for j > 0 && f.pattern[j] != f.buf[i] {
			j = f.failure[j-1]
		}
		if f.pattern[j] == f.buf[i] {
			j++
		}
		if j == len(f.pattern) {
			return i - len(f.pattern) + 1
		}
	}
	return -1
}

// Buffered returns the number of bytes waiting for the next sync pattern.
func (f *Framer) Buffered() int {
	return f.n
}

func (f *Framer) grow(extra int) {
	need := f.n + extra
	if need <= len(f.buf) {
		return
	}
	size := (need + frameBufferBase - 1) / frameBufferBase * frameBufferBase
	nb := make([]byte, size)
	copy(nb, f.buf[:f.n])
	f.buf = nb
}

// take removes and returns the first k buffered bytes.
func (f *Framer) take(k int) []byte {
	out := make([]byte, k)
	copy(out, f.buf[:k])
	copy(f.buf, f.buf[k:f.n])
	f.n -= k
	return out
}

func (f *Framer) reset() {
	f.n = 0
}

func (f *Framer) junk(k int) error {
	junk := f.take(k)
	f.metrics.junkBytes.Add(float64(len(junk)))
	f.metrics.recordErrors.WithLabelValues(stageFrame).Inc()
	level.Warn(f.logger).Log("msg", "discarding bytes before sync pattern", "bytes", len(junk))
	return &OutOfSyncError{Junk: junk}
}

func (f *Framer) emit(frame []byte) error {
	if f.strip {
		frame = frame[len(f.pattern):]
	}
	f.metrics.frames.Inc()
	return f.handler(frame)
}

// Process appends data to the buffer and emits every frame that is now
// terminated by a following sync pattern. Bytes before the first pattern are
// dropped and reported as an *OutOfSyncError. A handler error does not stop
// framing: all errors of the call are joined and returned once the buffer
// holds no more complete frames.
func (f *Framer) Process(data []byte) error {
	f.grow(len(data))
	copy(f.buf[f.n:], data)
	f.n += len(data)

	start := f.indexOf(0)
	if start < 0 {
		return f.checkSize()
	}

	var errs []error
	if start > 0 {
		errs = append(errs, f.junk(start))
	}

	for {
		next := f.indexOf(len(f.pattern))
		if next < 0 {
			break
		}
		if err := f.emit(f.take(next)); err != nil {
			errs = append(errs, err)
		}
	}

	if err := f.checkSize(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (f *Framer) checkSize() error {
	if f.maxFrame <= 0 || f.n <= f.maxFrame {
		return nil
	}
	n := f.n
	f.reset()
	f.metrics.recordErrors.WithLabelValues(stageFrame).Inc()
	level.Warn(f.logger).Log("msg", "discarding oversized frame", "bytes", n, "max", f.maxFrame)
	return fmt.Errorf("%w: %d bytes buffered without a sync pattern (max %d)", ErrFrameTooLarge, n, f.maxFrame)
}

// Flush emits the buffered bytes as the final frame and empties the buffer.
// If the buffer holds no sync pattern at all, it is discarded and
// ErrPatternNotFound is returned.
func (f *Framer) Flush() error {
	if f.n == 0 {
		return nil
	}
	defer f.reset()

	start := f.indexOf(0)
	if start < 0 {
		f.metrics.recordErrors.WithLabelValues(stageFrame).Inc()
		return &RecordError{Err: ErrPatternNotFound, Msg: hexString(f.buf[:f.n])}
	}
	var syncErr error
	if start > 0 {
		syncErr = f.junk(start)
	}
	if err := f.emit(f.take(f.n)); err != nil {
		return errors.Join(syncErr, err)
	}
	return syncErr
}
