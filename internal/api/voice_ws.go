package api

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"sync"

	fiberws "github.com/gofiber/websocket/v2"

	"github.com/healthvoice/healthlog/internal/logger"
	"github.com/healthvoice/healthlog/internal/services"
	"github.com/healthvoice/healthlog/internal/voice"
)

// voiceClientMessage is one message from the browser: start a capture,
// push a block of audio, or stop and resolve.
type voiceClientMessage struct {
	Type string `json:"type"`
	// Kind selects the extraction for "start" messages.
	Kind string `json:"kind,omitempty"`
	// Data carries base64 16-bit little-endian PCM for "audio"
	// messages.
	Data string `json:"data,omitempty"`
}

type voiceServerMessage struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	Message    string `json:"message,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Reading    any    `json:"reading,omitempty"`
}

// wsCaptureDevice adapts the websocket audio feed to the capture
// device contract. The microphone itself lives in the browser; Start
// only arms the emit callback and Feed delivers the decoded samples.
type wsCaptureDevice struct {
	mu   sync.Mutex
	emit func(samples []int16)
}

func (d *wsCaptureDevice) Start(_ context.Context, emit func(samples []int16)) error {
	d.mu.Lock()
	d.emit = emit
	d.mu.Unlock()
	return nil
}

func (d *wsCaptureDevice) Stop() error {
	d.mu.Lock()
	d.emit = nil
	d.mu.Unlock()
	return nil
}

func (d *wsCaptureDevice) Feed(samples []int16) {
	d.mu.Lock()
	emit := d.emit
	d.mu.Unlock()
	if emit != nil {
		emit(samples)
	}
}

// handleVoice runs one websocket connection. The connection may carry
// several captures in sequence, but at most one is active at a time;
// the session state machine enforces that.
func (s *Server) handleVoice(c *fiberws.Conn) {
	var (
		writeMu sync.Mutex
		device  = &wsCaptureDevice{}
		session *voice.Session
		kind    services.CaptureKind
	)

	send := func(msg voiceServerMessage) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := c.WriteJSON(msg); err != nil {
			logger.Warn("Failed to write voice message", "error", err.Error())
		}
	}

	defer func() {
		// The surface went away; release the capture without
		// resolving whatever was said.
		if session != nil {
			session.Teardown()
		}
	}()

	for {
		var msg voiceClientMessage
		if err := c.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "start":
			// One capture at a time per connection; a second start
			// would orphan the first session's stream and goroutines.
			if session != nil && session.State() != voice.StateIdle {
				send(voiceServerMessage{Type: "error", Message: "a capture is already in progress"})
				continue
			}
			k, err := services.ParseCaptureKind(msg.Kind)
			if err != nil {
				send(voiceServerMessage{Type: "error", Message: "unknown capture kind"})
				continue
			}
			next := voice.NewSession(s.voiceCfg, device, s.dialer)
			next.OnFragment = func(text string) {
				send(voiceServerMessage{Type: "transcript", Text: text})
			}
			next.OnFault = func(m string) {
				send(voiceServerMessage{Type: "fault", Message: m})
			}
			if err := next.Start(context.Background()); err != nil {
				send(voiceServerMessage{Type: "error", Message: err.Error()})
				continue
			}
			session = next
			kind = k
			send(voiceServerMessage{Type: "listening"})

		case "audio":
			if session == nil || session.State() != voice.StateListening {
				continue
			}
			samples, err := decodePCM(msg.Data)
			if err != nil {
				send(voiceServerMessage{Type: "error", Message: "malformed audio payload"})
				continue
			}
			device.Feed(samples)

		case "stop":
			if session == nil {
				send(voiceServerMessage{Type: "stopped"})
				continue
			}
			transcript := session.Stop()
			session = nil

			reading, err := s.voicelog.Resolve(context.Background(), kind, transcript)
			if err != nil {
				send(voiceServerMessage{Type: "error", Message: err.Error(), Transcript: transcript})
				continue
			}
			if reading == nil {
				send(voiceServerMessage{Type: "stopped", Transcript: transcript})
				continue
			}
			send(voiceServerMessage{Type: "reading", Transcript: transcript, Reading: reading})

		default:
			send(voiceServerMessage{Type: "error", Message: "unknown message type"})
		}
	}
}

// decodePCM turns base64 16-bit little-endian PCM into samples.
func decodePCM(data string) ([]int16, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("odd payload length %d", len(raw))
	}
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return samples, nil
}
