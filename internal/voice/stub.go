package voice

import (
	"context"
	"sync"
)

// StubStream is a scripted in-memory transcription channel for tests
// and offline development.
type StubStream struct {
	mu        sync.Mutex
	sent      [][]byte
	fragments chan string
	errs      chan error
	closed    bool
	closes    int
}

// NewStubStream returns an open stub channel.
func NewStubStream() *StubStream {
	return &StubStream{
		fragments: make(chan string, 32),
		errs:      make(chan error, 1),
	}
}

// EmitFragment scripts one incremental transcript fragment.
func (s *StubStream) EmitFragment(text string) {
	s.fragments <- text
}

// EmitError scripts a fatal channel error.
func (s *StubStream) EmitError(err error) {
	s.errs <- err
}

func (s *StubStream) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, frame)
	return nil
}

// SentFrames returns the frames transmitted so far.
func (s *StubStream) SentFrames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.sent...)
}

func (s *StubStream) Fragments() <-chan string { return s.fragments }

func (s *StubStream) Errs() <-chan error { return s.errs }

func (s *StubStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	if !s.closed {
		s.closed = true
		close(s.fragments)
	}
	return nil
}

// CloseCount reports how many times Close was invoked.
func (s *StubStream) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// StubDialer hands out a prepared StubStream.
type StubDialer struct {
	Stream *StubStream
	Err    error
}

func (d *StubDialer) Dial(ctx context.Context) (TranscriptStream, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Stream, nil
}

// StubDevice is a capture device whose frames are fed manually.
type StubDevice struct {
	mu       sync.Mutex
	emit     func(samples []int16)
	started  int
	stops    int
	StartErr error
}

func (d *StubDevice) Start(_ context.Context, emit func(samples []int16)) error {
	if d.StartErr != nil {
		return d.StartErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.emit = emit
	d.started++
	return nil
}

func (d *StubDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stops = d.stops + 1
	d.emit = nil
	return nil
}

// Feed delivers one block of samples as if the audio subsystem fired.
func (d *StubDevice) Feed(samples []int16) {
	d.mu.Lock()
	emit := d.emit
	d.mu.Unlock()
	if emit != nil {
		emit(samples)
	}
}

// StopCount reports how many times Stop was invoked.
func (d *StubDevice) StopCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stops
}
