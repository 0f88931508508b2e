package pose

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	frames  []Frame
	openErr error
	opened  bool
	closed  int
	hold    bool // keep the channel open after sending frames
}

func (s *fakeSource) Open(ctx context.Context) (<-chan Frame, error) {
	s.opened = true
	if s.openErr != nil {
		return nil, s.openErr
	}
	ch := make(chan Frame, len(s.frames))
	for _, f := range s.frames {
		ch <- f
	}
	if !s.hold {
		close(ch)
	}
	return ch, nil
}

func (s *fakeSource) Close() error {
	s.closed++
	return nil
}

func pushups(t *testing.T, angles ...float64) []Frame {
	out := make([]Frame, 0, len(angles))
	for _, a := range angles {
		out = append(out, frameAt(t, Pushup, a))
	}
	return out
}

func TestSessionStartStop(t *testing.T) {
	s := NewSession(Left)
	require.NoError(t, s.Start(Pushup))
	assert.True(t, s.Active())

	for _, f := range pushups(t, 170, 80, 170, 80, 170) {
		s.Feed(f)
	}
	s.Feed(Frame{})

	res := s.Stop()
	assert.False(t, s.Active())
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, 5, res.Frames)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, Pushup, res.Exercise)
	assert.False(t, res.StoppedAt.IsZero())

	// count survives stop and later frames are ignored
	assert.Equal(t, 2, s.Count())
	assert.False(t, s.Feed(frameAt(t, Pushup, 80)))
	assert.Equal(t, res, s.Stop())
}

func TestSessionStartResets(t *testing.T) {
	s := NewSession(Left)
	require.NoError(t, s.Start(Pushup))
	for _, f := range pushups(t, 170, 80, 170) {
		s.Feed(f)
	}
	s.Stop()

	require.NoError(t, s.Start(Pushup))
	assert.Equal(t, 0, s.Count())

	// a contracted state from the previous run must not leak either
	s.Feed(frameAt(t, Pushup, 170))
	assert.Equal(t, 0, s.Count())
}

func TestSessionStartStopsActiveRun(t *testing.T) {
	var stopped []Result
	s := NewSession(Left)
	s.OnStop = func(r Result) { stopped = append(stopped, r) }

	require.NoError(t, s.Start(Pushup))
	for _, f := range pushups(t, 170, 80, 170) {
		s.Feed(f)
	}
	require.NoError(t, s.Start(Squat))

	require.Len(t, stopped, 1)
	assert.Equal(t, 1, stopped[0].Count)
	assert.Equal(t, Pushup, stopped[0].Exercise)
	assert.True(t, s.Active())
	assert.Equal(t, 0, s.Count())

	s.Stop()
	assert.Len(t, stopped, 2)
}

func TestSessionStartUnknownExerciseKeepsRun(t *testing.T) {
	s := NewSession(Left)
	require.NoError(t, s.Start(Pushup))
	assert.Error(t, s.Start(Exercise("burpee")))
	assert.True(t, s.Active())
}

func TestSessionDropsOverlappingFrames(t *testing.T) {
	s := NewSession(Left)
	require.NoError(t, s.Start(Pushup))

	s.feed.Lock() // simulate a frame still being processed
	assert.False(t, s.Feed(frameAt(t, Pushup, 80)))
	s.feed.Unlock()

	res := s.Stop()
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, 0, res.Frames)
}

func TestSessionRunClosesSource(t *testing.T) {
	src := &fakeSource{frames: pushups(t, 170, 80, 170, 80, 170, 80, 170)}
	s := NewSession(Left)

	res, err := s.Run(context.Background(), Pushup, src)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, 1, src.closed)
	assert.False(t, s.Active())
}

func TestSessionRunClosesSourceWhenOpenFails(t *testing.T) {
	src := &fakeSource{openErr: errors.New("camera busy")}
	s := NewSession(Left)

	_, err := s.Run(context.Background(), Pushup, src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "camera busy")
	assert.Equal(t, 1, src.closed)
	assert.False(t, s.Active())
}

func TestSessionRunClosesSourceOnBadExercise(t *testing.T) {
	src := &fakeSource{}
	s := NewSession(Left)

	_, err := s.Run(context.Background(), Exercise("burpee"), src)
	require.Error(t, err)
	assert.Equal(t, 1, src.closed)
}

func TestSessionRunStopsOnCancel(t *testing.T) {
	src := &fakeSource{frames: pushups(t, 170, 80, 170), hold: true}
	s := NewSession(Left)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan Result, 1)
	go func() {
		res, err := s.Run(ctx, Pushup, src)
		assert.NoError(t, err)
		done <- res
	}()

	require.Eventually(t, func() bool { return s.Count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case res := <-done:
		assert.Equal(t, 1, res.Count)
		assert.Equal(t, 1, src.closed)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSessionRunStopsOnExplicitStop(t *testing.T) {
	src := &fakeSource{frames: pushups(t, 170, 80, 170), hold: true}
	s := NewSession(Left)

	done := make(chan Result, 1)
	go func() {
		res, _ := s.Run(context.Background(), Pushup, src)
		done <- res
	}()

	require.Eventually(t, func() bool { return s.Count() == 1 }, time.Second, 5*time.Millisecond)
	stopped := s.Stop()

	select {
	case res := <-done:
		assert.Equal(t, stopped.Count, res.Count)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestReaderSourceReplay(t *testing.T) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, f := range pushups(t, 170, 80, 170) {
		lms := make([]Landmark, 33)
		for j, l := range f {
			lms[j] = l
		}
		require.NoError(t, enc.Encode(RecordedFrame{Landmarks: lms}))
	}
	buf.WriteString("\n")

	r := &closeTracker{Reader: &buf}
	res, err := NewSession(Left).Run(context.Background(), Pushup, NewReaderSource(r))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, 3, res.Frames)
	// the 30 zero-valued landmarks carry no visibility, the tracked ones do
	assert.Equal(t, 0, res.Skipped)
	assert.True(t, r.closed)
}

func TestReaderSourceBadLine(t *testing.T) {
	r := bytes.NewBufferString("{not json}\n")
	_, err := NewSession(Left).Run(context.Background(), Pushup, NewReaderSource(r))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}
