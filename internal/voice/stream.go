// Package voice manages live microphone capture sessions: a state
// machine that frames PCM audio into fixed-size chunks, pushes them
// over a bidirectional transcription channel and accumulates the
// incremental transcript until the session is stopped.
package voice

import (
	"context"
)

// TranscriptStream is the persistent bidirectional channel to a speech
// backend. The client pushes binary audio frames; the backend emits
// incremental transcript fragments. Either side may close.
type TranscriptStream interface {
	// Send forwards one encoded audio frame. There is no backpressure
	// signal; frames queue in the transport when the backend lags.
	Send(frame []byte) error

	// Fragments delivers incremental transcript text in arrival order.
	// The channel is closed when the stream ends.
	Fragments() <-chan string

	// Errs delivers fatal channel errors.
	Errs() <-chan error

	// Close tears the channel down. Safe to call more than once.
	Close() error
}

// StreamDialer opens a transcription channel for one session.
type StreamDialer interface {
	Dial(ctx context.Context) (TranscriptStream, error)
}

// CaptureDevice is the exclusive microphone handle. Start begins
// delivering PCM sample blocks to emit on the audio subsystem's
// cadence; Stop releases the device and must be idempotent.
type CaptureDevice interface {
	Start(ctx context.Context, emit func(samples []int16)) error
	Stop() error
}
