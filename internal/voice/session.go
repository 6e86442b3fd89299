package voice

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	apperrors "github.com/healthvoice/healthlog/internal/errors"
	"github.com/healthvoice/healthlog/internal/logger"
)

// State is the session lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateListening
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateDraining:
		return "draining"
	default:
		return "idle"
	}
}

// Config tunes one capture session.
type Config struct {
	SampleRate int
	FrameSize  int
	// QueueDepth bounds the internal frame queue between the capture
	// callback and the channel sender.
	QueueDepth int
}

// DefaultConfig matches the capture surface: 4096-sample frames at
// 16 kHz mono.
func DefaultConfig() Config {
	return Config{SampleRate: 16000, FrameSize: 4096, QueueDepth: 64}
}

// Session is a single voice capture session: idle -> listening ->
// draining -> idle, with any fatal fault forcing a drain. The
// microphone handle, the framing pipeline and the transcription
// channel are owned exclusively by the session and released together
// on every exit path.
type Session struct {
	cfg    Config
	device CaptureDevice
	dialer StreamDialer

	// OnFragment, when set, observes each transcript fragment as it
	// arrives. Invoked from the receive goroutine.
	OnFragment func(text string)
	// OnFault, when set, receives the human-readable description of a
	// fatal channel error that forced a drain.
	OnFault func(msg string)

	state atomic.Int32

	mu         sync.Mutex
	stream     TranscriptStream
	framer     *framer
	frames     chan []byte
	done       chan struct{}
	stopped    chan struct{}
	stopOnce   *sync.Once
	wg         sync.WaitGroup
	transcript strings.Builder
	dropped    atomic.Uint64
}

// NewSession creates an idle session bound to a capture device and a
// transcription channel dialer.
func NewSession(cfg Config, device CaptureDevice, dialer StreamDialer) *Session {
	if cfg.FrameSize <= 0 {
		cfg = DefaultConfig()
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultConfig().QueueDepth
	}
	return &Session{cfg: cfg, device: device, dialer: dialer}
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

/// Start moves the session from idle to listening: it opens the
// transcription channel, acquires the microphone and begins framing
// and forwarding audio. Device acquisition failure is surfaced as a
// blocking device-access error and leaves the session idle.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if State(s.state.Load()) != StateIdle {
		return apperrors.NewValidationError("voice session already active")
	}

	// Entry into a fresh capture resets the accumulated transcript.
	s.transcript.Reset()
	s.dropped.Store(0)

	stream, err := s.dialer.Dial(ctx)
	if err != nil {
		return apperrors.NewExternalAPIError(err, "transcription")
	}

	s.stream = stream

	// The sample callback is inert until the state flips to listening,
	// so the device may start before the pipeline exists. Arming the
	// drain machinery only after acquisition succeeds keeps a later
	// Stop from releasing a device that was never started.
	if err := s.device.Start(ctx, s.handleSamples); err != nil {
		_ = stream.Close()
		s.stream = nil
		return apperrors.NewDeviceAccessError(err)
	}

	s.framer = newFramer(s.cfg.FrameSize)
	s.frames = make(chan []byte, s.cfg.QueueDepth)
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})
	s.stopOnce = &sync.Once{}

	s.state.Store(int32(StateListening))

	s.wg.Add(2)
	go s.sendLoop(s.frames, s.done, stream)
	go s.receiveLoop(s.done, stream)

	logger.Info("Voice session listening",
		"sample_rate", s.cfg.SampleRate, "frame_size", s.cfg.FrameSize)
	return nil
}

// handleSamples runs on the audio subsystem callback. A straggler
// callback after the listening state ended is discarded rather than
// sent into a closed channel.
func (s *Session) handleSamples(samples []int16) {
	if State(s.state.Load()) != StateListening {
		return
	}
	for _, frame := range s.framer.push(samples) {
		select {
		case s.frames <- frame:
		default:
			// The sender is not keeping up and the queue is full.
			// Dropping here is the lesser evil over blocking the
			// audio callback.
			if n := s.dropped.Add(1); n == 1 || n%100 == 0 {
				logger.Warn("Voice frame queue full, dropping frame", "dropped_total", n)
			}
		}
	}
}

func (s *Session) sendLoop(frames <-chan []byte, done <-chan struct{}, stream TranscriptStream) {
	defer s.wg.Done()
	for {
		select {
		case <-done:
			return
		case frame := <-frames:
			if err := stream.Send(frame); err != nil {
				s.fault(err)
				return
			}
		}
	}
}

func (s *Session) receiveLoop(done <-chan struct{}, stream TranscriptStream) {
	defer s.wg.Done()
	for {
		select {
		case <-done:
			return
		case frag, ok := <-stream.Fragments():
			if !ok {
				return
			}
			s.appendFragment(frag)
		case err, ok := <-stream.Errs():
			if ok && err != nil {
				s.fault(err)
			}
			return
		}
	}
}

// appendFragment accumulates incremental transcript text in arrival
// order. Fragments append, never replace.
func (s *Session) appendFragment(frag string) {
	if State(s.state.Load()) != StateListening {
		return
	}
	s.mu.Lock()
	s.transcript.WriteString(frag)
	s.mu.Unlock()

	if s.OnFragment != nil {
		s.OnFragment(frag)
	}
}

// fault reports a fatal channel error and forces a drain. Runs on the
// pipeline goroutines, so the drain happens on a separate goroutine to
// avoid waiting on ourselves.
func (s *Session) fault(err error) {
	if State(s.state.Load()) != StateListening {
		return
	}
	logger.Error("Voice session fault", "error", err.Error())
	if s.OnFault != nil {
		s.OnFault("voice capture failed: " + err.Error())
	}
	go s.drain()
}

// Stop ends the capture and returns the accumulated transcript. It is
// idempotent: stopping an idle session is a no-op returning an empty
// transcript, and no resource is released twice.
func (s *Session) Stop() string {
	s.drain()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.String()
}

// Teardown releases everything without caring about the transcript.
// Hosts call it when the capture surface goes away mid-session.
func (s *Session) Teardown() {
	s.drain()
}

// drain stops the audio device, disconnects the framing pipeline and
// closes the channel, in that order, exactly once per capture. Safe to
// invoke concurrently and when some resources were never acquired.
func (s *Session) drain() {
	s.mu.Lock()
	once, stopped := s.stopOnce, s.stopped
	s.mu.Unlock()

	if once == nil {
		// Never started.
		return
	}

	once.Do(func() {
		s.state.Store(int32(StateDraining))

		if err := s.device.Stop(); err != nil {
			logger.Warn("Failed to stop capture device", "error", err.Error())
		}

		close(s.done)

		s.mu.Lock()
		stream := s.stream
		s.stream = nil
		s.mu.Unlock()

		if stream != nil {
			if err := stream.Close(); err != nil {
				logger.Warn("Failed to close transcription channel", "error", err.Error())
			}
		}

		s.wg.Wait()

		if n := s.dropped.Load(); n > 0 {
			logger.Warn("Voice session dropped frames", "dropped_total", n)
		}

		s.state.Store(int32(StateIdle))
		close(stopped)
		logger.Info("Voice session drained")
	})

	<-stopped
}
