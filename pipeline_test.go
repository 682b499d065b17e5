package main

import (
	"context"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/jrwynneiii/aptdecoder/apt"
	"github.com/jrwynneiii/aptdecoder/config"
	"github.com/jrwynneiii/aptdecoder/flowgraph"
	"github.com/jrwynneiii/aptdecoder/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeCarrier records seconds of an unmodulated 2400 Hz subcarrier.
func writeCarrier(t *testing.T, dir string, rate int, seconds float64) string {
	t.Helper()
	n := int(float64(rate) * seconds)
	data := make([]int, n)
	for i := range data {
		data[i] = int(16000 * math.Sin(2*math.Pi*2400*float64(i)/float64(rate)))
	}

	path := filepath.Join(dir, "pass.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	return path
}

func TestDecodeWritesImage(t *testing.T) {
	for _, rate := range []int{48000, 11025} {
		dir := t.TempDir()
		conf := config.Defaults()
		conf.Source.Path = writeCarrier(t, dir, rate, 2)
		conf.Image.Path = filepath.Join(dir, "pass.png")

		d, err := newDecoder(conf)
		require.NoError(t, err, "%d Hz", rate)
		require.NoError(t, d.fg.Run(context.Background()), "%d Hz", rate)
		require.NoError(t, d.Close())

		st := d.sink.Stats()
		assert.Equal(t, 4, st.Y, "%d Hz: two seconds is four lines", rate)
		assert.Zero(t, st.X, "%d Hz", rate)
		assert.Equal(t, 1, st.Flushes, "%d Hz", rate)

		stats := d.fg.Stats()
		require.Len(t, stats, 6)
		assert.Equal(t, "FileSource", stats[0].Name)
		assert.Equal(t, int64(2*rate), stats[0].Produced, "%d Hz", rate)
		assert.Equal(t, "APTImageSink", stats[5].Name)
		assert.Equal(t, int64(4*apt.PixelsPerLine), stats[5].Consumed, "%d Hz", rate)
		for _, s := range stats {
			assert.True(t, s.Finished, "%s", s.Name)
		}

		f, err := os.Open(conf.Image.Path)
		require.NoError(t, err)
		cfg, err := png.DecodeConfig(f)
		f.Close()
		require.NoError(t, err)
		assert.Equal(t, apt.PixelsPerLine, cfg.Width)
		assert.Equal(t, apt.Lines, cfg.Height)
	}
}

func TestExplicitResampleFactors(t *testing.T) {
	dir := t.TempDir()
	conf := config.Defaults()
	conf.Source.Path = writeCarrier(t, dir, 48000, 1)
	conf.Image.Path = filepath.Join(dir, "pass.png")
	conf.Resample = config.ResampleConf{Upsample: 13, Downsample: 300}

	d, err := newDecoder(conf)
	require.NoError(t, err)
	defer d.Close()
	require.NoError(t, d.fg.Run(context.Background()))
	assert.Equal(t, int64(48000*13/300), d.fg.Stats()[5].Consumed)
}

func TestDecoderErrors(t *testing.T) {
	dir := t.TempDir()
	conf := config.Defaults()

	conf.Source.Path = filepath.Join(dir, "pass.flac")
	_, err := newDecoder(conf)
	assert.ErrorIs(t, err, source.ErrUnsupportedFormat)

	conf.Source.Path = writeCarrier(t, dir, 8000, 0.1)
	conf.Filter.Cutoff = 6000
	_, err = newDecoder(conf)
	assert.Error(t, err, "cutoff above nyquist")
}

func TestBufferTooSmallForResampling(t *testing.T) {
	dir := t.TempDir()
	conf := config.Defaults()
	conf.Source.Path = writeCarrier(t, dir, 48000, 0.1)
	conf.Image.Path = filepath.Join(dir, "pass.png")

	conf.Pipeline.BufferSize = 100
	_, err := newDecoder(conf)
	assert.ErrorIs(t, err, flowgraph.ErrConfig, "13 + 150 does not fit in 100")

	conf.Pipeline.BufferSize = 163
	d, err := newDecoder(conf)
	require.NoError(t, err)
	defer d.Close()
	require.NoError(t, d.fg.Run(context.Background()), "smallest buffer that fits still completes")
	assert.Equal(t, int64(4800*13/150), d.fg.Stats()[5].Consumed)
}

func TestReadSeconds(t *testing.T) {
	path := writeCarrier(t, t.TempDir(), 8000, 1)
	src, err := source.Open(path, 300)
	require.NoError(t, err)
	defer src.Close()

	samples, err := readSeconds(src, 0.5)
	require.NoError(t, err)
	assert.Len(t, samples, 4000)

	rest, err := readSeconds(src, 10)
	require.NoError(t, err)
	assert.Len(t, rest, 4000, "stops at end of file")
}

func TestProbe(t *testing.T) {
	dir := t.TempDir()
	path := writeCarrier(t, dir, 11025, 1)
	plot := filepath.Join(dir, "spectrum.png")

	require.NoError(t, probe(path, 1, plot))
	_, err := os.Stat(plot)
	assert.NoError(t, err)

	assert.ErrorIs(t, probe(filepath.Join(dir, "x.ogg"), 1, ""), source.ErrUnsupportedFormat)
}
