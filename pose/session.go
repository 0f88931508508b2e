package pose

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Result describes a finished (or running) tracking run.
type Result struct {
	Exercise  Exercise  `json:"exercise"`
	Count     int       `json:"count"`
	Frames    int       `json:"frames"`  // frames that produced an angle
	Skipped   int       `json:"skipped"` // frames without usable landmarks
	Dropped   int       `json:"dropped"` // frames that arrived while another was being processed
	StartedAt time.Time `json:"started_at"`
	StoppedAt time.Time `json:"stopped_at,omitempty"`
}

// FrameSource is the camera + estimator pipeline. Close must release
// everything Open acquired, and is called even when Open fails.
type FrameSource interface {
	Open(ctx context.Context) (<-chan Frame, error)
	Close() error
}

// Session owns the lifecycle of one tracking context. At most one run is
// active at a time.
type Session struct {
	// OnStop, if set, receives the result every time a run stops, whether
	// through Stop, a Start that replaces the run, or the end of Run.
	OnStop func(Result)

	side Side
	now  func() time.Time

	feed sync.Mutex // held for the duration of one Feed

	mu     sync.Mutex
	det    *Detector
	active bool
	cur    Result
	last   Result
	done   chan struct{}
}

func NewSession(side Side) *Session {
	return &Session{side: side, now: time.Now}
}

// Start resets the count and begins accepting frames. An active run is
// stopped first.
func (s *Session) Start(e Exercise) error {
	det, err := NewDetector(e, s.side)
	if err != nil {
		return err
	}

	s.mu.Lock()
	var prev *Result
	if s.active {
		r := s.stopLocked()
		prev = &r
	}
	s.det = det
	s.active = true
	s.cur = Result{Exercise: e, StartedAt: s.now()}
	s.done = make(chan struct{})
	onStop := s.OnStop
	s.mu.Unlock()

	if prev != nil && onStop != nil {
		onStop(*prev)
	}
	return nil
}

// Stop halts frame consumption and returns the final result. The count is
// kept, so Stop on an inactive session returns the last result again.
func (s *Session) Stop() Result {
	s.mu.Lock()
	if !s.active {
		r := s.last
		s.mu.Unlock()
		return r
	}
	r := s.stopLocked()
	onStop := s.OnStop
	s.mu.Unlock()

	if onStop != nil {
		onStop(r)
	}
	return r
}

func (s *Session) stopLocked() Result {
	s.active = false
	s.cur.Count = s.det.Count()
	s.cur.StoppedAt = s.now()
	close(s.done)
	s.last = s.cur
	return s.cur
}

// Feed processes one frame synchronously. It returns true if the frame
// completed a rep. A frame that arrives while another Feed is running is
// dropped rather than queued.
func (s *Session) Feed(f Frame) bool {
	if !s.feed.TryLock() {
		s.mu.Lock()
		if s.active {
			s.cur.Dropped++
		}
		s.mu.Unlock()
		return false
	}
	defer s.feed.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return false
	}
	counted, ok := s.det.Observe(f)
	if !ok {
		s.cur.Skipped++
		return false
	}
	s.cur.Frames++
	s.cur.Count = s.det.Count()
	return counted
}

func (s *Session) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.det == nil {
		return 0
	}
	return s.det.Count()
}

func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Run acquires src, tracks e until ctx is cancelled, the source is drained,
// or Stop is called, then releases src. The source is closed on every path.
func (s *Session) Run(ctx context.Context, e Exercise, src FrameSource) (res Result, err error) {
	defer func() {
		if cerr := src.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close frame source: %w", cerr))
		}
	}()

	frames, err := src.Open(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("open frame source: %w", err)
	}
	if err := s.Start(e); err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return s.Stop(), nil
		case <-done:
			// stopped elsewhere; report this run, not a newer one
			s.mu.Lock()
			r := s.last
			s.mu.Unlock()
			return r, nil
		case f, ok := <-frames:
			if !ok {
				return s.Stop(), nil
			}
			s.Feed(f)
		}
	}
}
