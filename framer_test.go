// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"bytes"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

type FramerSuite struct {
	suite.Suite
	frames  [][]byte
	metrics *Metrics
}

func TestFramerSuite(t *testing.T) {
	suite.Run(t, &FramerSuite{})
}

func (s *FramerSuite) SetupTest() {
	s.frames = nil
	s.metrics = NewMetrics(prometheus.NewRegistry())
}

func (s *FramerSuite) framer(pattern string, opts ...Option) *Framer {
	opts = append(opts, WithMetrics(s.metrics))
	f, err := NewFramer([]byte(pattern), func(frame []byte) error {
		s.frames = append(s.frames, frame)
		return nil
	}, opts...)
	s.Require().Nil(err)
	return f
}

func (s *FramerSuite) strings() []string {
	out := make([]string, len(s.frames))
	for i, f := range s.frames {
		out[i] = string(f)
	}
	return out
}

func (s *FramerSuite) TestFailureTable() {
	s.Assert().Equal([]int{0}, computeFailure([]byte("A")))
	s.Assert().Equal([]int{0, 0, 1, 2}, computeFailure([]byte("ABAB")))
	s.Assert().Equal([]int{0, 1, 2, 3}, computeFailure([]byte("AAAA")))
	s.Assert().Equal([]int{0, 0, 1, 0}, computeFailure([]byte("ABAC")))
	s.Assert().Equal([]int{0, 0, 0, 1, 2, 3, 0}, computeFailure([]byte("ABCABCD")))
}

func (s *FramerSuite) TestInvalidFramer() {
	_, err := NewFramer(nil, func([]byte) error { return nil })
	s.Assert().ErrorContains(err, "sync pattern is empty")

	_, err = NewFramer([]byte("@@"), nil)
	s.Assert().ErrorContains(err, "frame handler is nil")
}

func (s *FramerSuite) TestFrames() {
	f := s.framer("@@")
	s.Require().Nil(f.Process([]byte("@@one@@two@@three")))
	s.Assert().Equal([]string{"@@one", "@@two"}, s.strings())
	s.Assert().Equal(len("@@three"), f.Buffered())

	s.Require().Nil(f.Flush())
	s.Assert().Equal([]string{"@@one", "@@two", "@@three"}, s.strings())
	s.Assert().Equal(0, f.Buffered())
	s.Assert().Equal(float64(3), testutil.ToFloat64(s.metrics.frames))

	// Flushing an empty framer is a no-op.
	s.Assert().Nil(f.Flush())
	s.Assert().Len(s.frames, 3)
}

func (s *FramerSuite) TestBackToBackPatterns() {
	f := s.framer("@@")
	s.Require().Nil(f.Process([]byte("@@@@@@")))
	s.Require().Nil(f.Flush())
	s.Assert().Equal([]string{"@@", "@@", "@@"}, s.strings())
}

func (s *FramerSuite) TestSplitBoundaries() {
	stream := []byte("ABAC-x-ABABAC-yy-ABACABAC-zzz")
	f := s.framer("ABAC")
	s.Require().Nil(f.Process(stream))
	s.Require().Nil(f.Flush())
	want := s.strings()
	s.Require().Equal([]string{"ABAC-x-AB", "ABAC-yy-", "ABAC", "ABAC-zzz"}, want)

	for cut := 1; cut < len(stream); cut++ {
		s.frames = nil
		f := s.framer("ABAC")
		s.Require().Nil(f.Process(stream[:cut]))
		s.Require().Nil(f.Process(stream[cut:]))
		s.Require().Nil(f.Flush())
		s.Assert().Equal(want, s.strings(), "cut at %d", cut)
	}

	s.frames = nil
	f = s.framer("ABAC")
	for i := range stream {
		s.Require().Nil(f.Process(stream[i : i+1]))
	}
	s.Require().Nil(f.Flush())
	s.Assert().Equal(want, s.strings())
}

func (s *FramerSuite) TestJunk() {
	f := s.framer("@@")
	err := f.Process([]byte("JUNK@@AAA@@BBB"))
	var oos *OutOfSyncError
	s.Require().True(errors.As(err, &oos))
	s.Assert().Equal([]byte("JUNK"), oos.Junk)
	s.Assert().True(errors.Is(err, ErrOutOfSync))
	s.Assert().Contains(err.Error(), "ASCII: 'JUNK'")
	s.Assert().Equal([]string{"@@AAA"}, s.strings())

	s.Require().Nil(f.Flush())
	s.Assert().Equal([]string{"@@AAA", "@@BBB"}, s.strings())
	s.Assert().Equal(float64(4), testutil.ToFloat64(s.metrics.junkBytes))
}

func (s *FramerSuite) TestJunkAcrossCalls() {
	f := s.framer("@@")
	// Junk stays buffered until a pattern shows up.
	s.Require().Nil(f.Process([]byte("xy")))
	err := f.Process([]byte("z@@A"))
	var oos *OutOfSyncError
	s.Require().True(errors.As(err, &oos))
	s.Assert().Equal([]byte("xyz"), oos.Junk)
	s.Assert().Equal(3, f.Buffered())
}

func (s *FramerSuite) TestFlushWithoutPattern() {
	f := s.framer("@@")
	s.Require().Nil(f.Process([]byte("nothing here")))
	err := f.Flush()
	s.Assert().True(errors.Is(err, ErrPatternNotFound))
	s.Assert().Equal(0, f.Buffered())
	s.Assert().Empty(s.frames)
}

func (s *FramerSuite) TestFlushWithJunk() {
	f := s.framer("@@")
	s.Require().Nil(f.Process([]byte("ju")))
	s.Require().Nil(f.Process([]byte("nk@")))
	err := f.Flush()
	// No complete pattern: the remainder is reported, not emitted.
	s.Assert().True(errors.Is(err, ErrPatternNotFound))

	s.Require().Nil(f.Process([]byte("ju")))
	err = f.Process([]byte("nk@@end"))
	s.Assert().True(errors.Is(err, ErrOutOfSync))
	s.Require().Nil(f.Flush())
	s.Assert().Equal([]string{"@@end"}, s.strings())
}

func (s *FramerSuite) TestStripPattern() {
	f := s.framer("\xaa\x55", WithStripPattern())
	s.Require().Nil(f.Process([]byte("\xaa\x55one\xaa\x55\xaa\x55two")))
	s.Require().Nil(f.Flush())
	s.Assert().Equal([]string{"one", "", "two"}, s.strings())
}

func (s *FramerSuite) TestHandlerErrors() {
	boom := errors.New("boom")
	var got []string
	f, err := NewFramer([]byte("@@"), func(frame []byte) error {
		got = append(got, string(frame))
		if bytes.Contains(frame, []byte("bad")) {
			return boom
		}
		return nil
	})
	s.Require().Nil(err)

	// Framing goes on after a failed frame.
	err = f.Process([]byte("@@bad@@good@@tail"))
	s.Assert().True(errors.Is(err, boom))
	s.Assert().Equal([]string{"@@bad", "@@good"}, got)
	s.Assert().Equal(len("@@tail"), f.Buffered())
}

func (s *FramerSuite) TestGrowth() {
	f := s.framer("@@")
	s.Assert().Len(f.buf, frameBufferBase)

	s.Require().Nil(f.Process(append([]byte("@@"), bytes.Repeat([]byte("x"), 298)...)))
	s.Assert().Equal(300, f.Buffered())
	s.Assert().Len(f.buf, 2*frameBufferBase)

	s.Require().Nil(f.Process(bytes.Repeat([]byte("y"), 300)))
	s.Assert().Len(f.buf, 3*frameBufferBase)
	s.Assert().Zero(len(f.buf) % frameBufferBase)

	s.Require().Nil(f.Flush())
	s.Require().Len(s.frames, 1)
	s.Assert().Len(s.frames[0], 600)
}

func (s *FramerSuite) TestMaxFrameSize() {
	f := s.framer("@@", WithMaxFrameSize(10))
	s.Require().Nil(f.Process([]byte("@@12345678")))

	err := f.Process([]byte("9"))
	s.Assert().True(errors.Is(err, ErrFrameTooLarge))
	s.Assert().Equal(0, f.Buffered())
	s.Assert().Equal(float64(1), testutil.ToFloat64(s.metrics.recordErrors.WithLabelValues(stageFrame)))

	// The framer resynchronizes on the next pattern.
	s.Require().Nil(f.Process([]byte("@@ok@@")))
	s.Assert().Equal([]string{"@@ok"}, s.strings())
}
