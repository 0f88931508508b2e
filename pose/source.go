package pose

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// RecordedFrame is one line of a landmark recording: the estimator's ordered
// landmark list for a single video frame.
type RecordedFrame struct {
	Landmarks []Landmark `json:"landmarks"`
}

// ReaderSource replays a JSON-lines landmark recording as a FrameSource.
type ReaderSource struct {
	r io.Reader

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	err    error
}

func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: r}
}

func (s *ReaderSource) Open(ctx context.Context) (<-chan Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil, fmt.Errorf("source already open")
	}
	ctx, s.cancel = context.WithCancel(ctx)

	out := make(chan Frame)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(out)

		sc := bufio.NewScanner(s.r)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		line := 0
		for sc.Scan() {
			line++
			if len(sc.Bytes()) == 0 {
				continue
			}
			var rec RecordedFrame
			if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
				s.setErr(fmt.Errorf("line %d: %w", line, err))
				return
			}
			select {
			case out <- FrameFromSlice(rec.Landmarks):
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil && ctx.Err() == nil {
			s.setErr(err)
		}
	}()
	return out, nil
}

func (s *ReaderSource) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Close stops the reader goroutine and closes the underlying reader when it
// is an io.Closer. It reports any decode error hit during replay.
func (s *ReaderSource) Close() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	// closing first unblocks a Scan waiting on the reader
	var closeErr error
	if c, ok := s.r.(io.Closer); ok {
		closeErr = c.Close()
	}
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	return closeErr
}
