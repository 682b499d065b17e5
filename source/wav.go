package source

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

type wavDecoder struct {
	d        *wav.Decoder
	buf      *audio.IntBuffer
	channels int
	offset   float32
	scale    float32
}

func newWavDecoder(r io.ReadSeeker) (*wavDecoder, int, int, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, 0, 0, fmt.Errorf("%w: not a valid wav file", ErrUnsupportedFormat)
	}
	// PCMBuffer decodes integer samples only, so IEEE float data would be misread.
	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return nil, 0, 0, fmt.Errorf("%w: wav audio format %d, only integer PCM is supported", ErrUnsupportedFormat, d.WavAudioFormat)
	}
	if err := d.FwdToPCM(); err != nil {
		return nil, 0, 0, err
	}

	channels := int(d.NumChans)
	depth := int(d.BitDepth)
	if channels < 1 || depth < 8 || depth > 32 {
		return nil, 0, 0, fmt.Errorf("%w: %d channel(s) at %d bits", ErrUnsupportedFormat, channels, depth)
	}

	w := &wavDecoder{
		d:        d,
		channels: channels,
		scale:    float32(int64(1) << (depth - 1)),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: int(d.SampleRate)},
			SourceBitDepth: depth,
		},
	}
	// 8 bit PCM is unsigned.
	if depth == 8 {
		w.offset = 128
	}
	return w, int(d.SampleRate), channels, nil
}

func (w *wavDecoder) read(dst []float32) (int, error) {
	need := len(dst) * w.channels
	if cap(w.buf.Data) < need {
		w.buf.Data = make([]int, need)
	}
	w.buf.Data = w.buf.Data[:need]

	n, err := w.d.PCMBuffer(w.buf)
	frames := n / w.channels
	for i := range frames {
		dst[i] = (float32(w.buf.Data[i*w.channels]) - w.offset) / w.scale
	}

	if frames == 0 {
		if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, io.EOF
		}
		return 0, err
	}
	return frames, nil
}
