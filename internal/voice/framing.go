package voice

import (
	"encoding/binary"
)

// framer accumulates PCM samples into fixed-size frames. The audio
// subsystem delivers blocks of arbitrary length; the transcription
// channel expects frames of exactly frameSize samples encoded as
// little-endian 16-bit PCM.
type framer struct {
	frameSize int
	pending   []int16
}

func newFramer(frameSize int) *framer {
	return &framer{frameSize: frameSize}
}

// push appends samples and returns every complete frame now available,
// encoded and ready for transmission. Leftover samples stay pending
// for the next push.
func (f *framer) push(samples []int16) [][]byte {
	f.pending = append(f.pending, samples...)

	var frames [][]byte
	for len(f.pending) >= f.frameSize {
		frames = append(frames, encodePCM(f.pending[:f.frameSize]))
		f.pending = f.pending[f.frameSize:]
	}
	return frames
}

// flush encodes whatever is pending as a final short frame, or nil
// when nothing is buffered.
func (f *framer) flush() []byte {
	if len(f.pending) == 0 {
		return nil
	}
	frame := encodePCM(f.pending)
	f.pending = nil
	return frame
}

func encodePCM(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}
