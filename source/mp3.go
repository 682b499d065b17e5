package source

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always decodes to interleaved 16 bit little endian stereo.
const mp3FrameBytes = 4

type mp3Decoder struct {
	d   *mp3.Decoder
	raw []byte
}

func newMP3Decoder(r io.Reader) (*mp3Decoder, int, int, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, 0, err
	}
	return &mp3Decoder{d: d}, d.SampleRate(), 2, nil
}

func (m *mp3Decoder) read(dst []float32) (int, error) {
	need := len(dst) * mp3FrameBytes
	if cap(m.raw) < need {
		m.raw = make([]byte, need)
	}
	raw := m.raw[:need]

	n, err := io.ReadFull(m.d, raw)
	frames := n / mp3FrameBytes
	for i := range frames {
		left := int16(binary.LittleEndian.Uint16(raw[i*mp3FrameBytes:]))
		dst[i] = float32(left) / 32768
	}

	if frames == 0 {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, io.EOF
		}
		return 0, err
	}
	return frames, nil
}
