package voice

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/healthvoice/healthlog/internal/logger"
)

const liveEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1alpha.GenerativeService.BidiGenerateContent"

// pcmMimeType tags every outgoing audio chunk.
const pcmMimeType = "audio/pcm;rate=16000"

// GeminiLiveDialer opens realtime transcription channels against the
// Gemini Live API.
type GeminiLiveDialer struct {
	APIKey string
	Model  string

	// endpoint overrides the production endpoint in tests.
	endpoint string
}

// Dial opens the websocket, sends the session setup requesting
// incremental input transcription, and waits for the setup ack.
func (d *GeminiLiveDialer) Dial(ctx context.Context) (TranscriptStream, error) {
	endpoint := d.endpoint
	if endpoint == "" {
		endpoint = liveEndpoint
	}
	url := fmt.Sprintf("%s?key=%s", endpoint, d.APIKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial Gemini Live: %w", err)
	}

	setup := liveClientMessage{
		Setup: &liveSetup{
			Model: d.Model,
			GenerationConfig: &liveGenerationConfig{
				ResponseModalities: []string{"TEXT"},
			},
			InputAudioTranscription: &struct{}{},
		},
	}
	if err := conn.WriteJSON(setup); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to send session setup: %w", err)
	}

	// The first server message acknowledges the setup.
	var ack liveServerMessage
	if err := conn.ReadJSON(&ack); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to read setup ack: %w", err)
	}
	if ack.SetupComplete == nil {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected first server message, setup not acknowledged")
	}

	s := &geminiLiveStream{
		conn:      conn,
		fragments: make(chan string, 16),
		errs:      make(chan error, 1),
		done:      make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

type geminiLiveStream struct {
	conn      *websocket.Conn
	fragments chan string
	errs      chan error
	done      chan struct{}

	closeOnce sync.Once
}

func (s *geminiLiveStream) Send(frame []byte) error {
	msg := liveClientMessage{
		RealtimeInput: &liveRealtimeInput{
			MediaChunks: []liveMediaChunk{{
				MimeType: pcmMimeType,
				Data:     base64.StdEncoding.EncodeToString(frame),
			}},
		},
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to send audio chunk: %w", err)
	}
	return nil
}

func (s *geminiLiveStream) Fragments() <-chan string { return s.fragments }

func (s *geminiLiveStream) Errs() <-chan error { return s.errs }

func (s *geminiLiveStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline())
		err = s.conn.Close()
	})
	return err
}

func deadline() time.Time {
	return time.Now().Add(time.Second)
}

func (s *geminiLiveStream) readLoop() {
	defer close(s.fragments)
	for {
		var msg liveServerMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			select {
			case s.errs <- err:
			default:
			}
			return
		}

		if msg.ServerContent == nil {
			continue
		}
		if t := msg.ServerContent.InputTranscription; t != nil && t.Text != "" {
			// The consumer may have drained away; a blocked send here
			// would outlive the session.
			select {
			case s.fragments <- t.Text:
			case <-s.done:
				return
			}
		}
		if msg.ServerContent.TurnComplete {
			logger.Debug("Gemini Live turn complete")
		}
	}
}

// Wire types for the BidiGenerateContent protocol. Only the fields
// this client uses are modeled.

type liveClientMessage struct {
	Setup         *liveSetup         `json:"setup,omitempty"`
	RealtimeInput *liveRealtimeInput `json:"realtimeInput,omitempty"`
}

type liveSetup struct {
	Model                   string                `json:"model"`
	GenerationConfig        *liveGenerationConfig `json:"generationConfig,omitempty"`
	InputAudioTranscription *struct{}             `json:"inputAudioTranscription,omitempty"`
}

type liveGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type liveRealtimeInput struct {
	MediaChunks []liveMediaChunk `json:"mediaChunks"`
}

type liveMediaChunk struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type liveServerMessage struct {
	SetupComplete *struct{}          `json:"setupComplete,omitempty"`
	ServerContent *liveServerContent `json:"serverContent,omitempty"`
}

type liveServerContent struct {
	InputTranscription *liveTranscription `json:"inputTranscription,omitempty"`
	TurnComplete       bool               `json:"turnComplete,omitempty"`
}

type liveTranscription struct {
	Text string `json:"text"`
}
