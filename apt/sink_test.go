package apt

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/jrwynneiii/aptdecoder/flowgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func levels(pattern *[SyncLength]bool) [SyncLength]float32 {
	var w [SyncLength]float32
	for i, b := range pattern {
		if b {
			w[i] = 1
		}
	}
	return w
}

type countingSaver struct {
	calls int
	fail  map[int]bool
}

func (c *countingSaver) save(*image.Gray) error {
	c.calls++
	if c.fail[c.calls] {
		return errors.New("disk full")
	}
	return nil
}

func newTestSink(t *testing.T) (*ImageSink, *countingSaver) {
	t.Helper()
	saver := &countingSaver{}
	return NewImageSink(filepath.Join(t.TempDir(), "apt.png"), WithSaver(saver.save)), saver
}

func TestCorrelate(t *testing.T) {
	clean := levels(&SyncA)
	assert.Equal(t, SyncLength, Correlate(&clean, 0.5, &SyncA))

	var inverted [SyncLength]float32
	for i, v := range clean {
		inverted[i] = 1 - v
	}
	assert.Zero(t, Correlate(&inverted, 0.5, &SyncA))

	assert.Less(t, Correlate(&clean, 0.5, &SyncB), SyncThreshold, "markers must not be confused")

	noisy := clean
	noisy[5], noisy[9], noisy[17], noisy[30] = 0, 0, 0, 1
	assert.Equal(t, SyncThreshold, Correlate(&noisy, 0.5, &SyncA))

	var silence [SyncLength]float32
	assert.Zero(t, Correlate(&silence, 0, &SyncA), "NaN levels match nothing")
}

func TestSyncBBackfillsToMidline(t *testing.T) {
	s, _ := newTestSink(t)
	s.hasSync = true
	s.x = 10
	s.maxLevel = 1
	s.previousPixel = 0.5
	s.window = levels(&SyncB)

	s.process(0)

	assert.Equal(t, 1, s.syncB)
	assert.Zero(t, s.syncA)
	assert.Equal(t, PixelsPerLine/2+1, s.x, "cursor moved to the midline and past the written pixel")
	assert.Equal(t, float32(1), s.maxLevel, "gain is kept once synced")

	row := s.img.Pix[s.img.PixOffset(0, 0):s.img.PixOffset(0, 1)]
	assert.Zero(t, row[9])
	for x := 10; x < PixelsPerLine/2; x++ {
		require.Equal(t, uint8(127), row[x], "column %d", x)
	}
	assert.Zero(t, row[PixelsPerLine/2], "evicted sample drawn at the midline")
}

func TestFirstSyncResetsGain(t *testing.T) {
	s, _ := newTestSink(t)
	s.x = 500
	s.maxLevel = 5
	s.window = levels(&SyncA)

	s.process(0)

	assert.True(t, s.hasSync)
	assert.Equal(t, 1, s.syncA)
	assert.Equal(t, 1, s.x)
	assert.Zero(t, s.maxLevel)
}

func TestFirstSyncOnBBackfillsWithOldGain(t *testing.T) {
	s, _ := newTestSink(t)
	s.x = 10
	s.maxLevel = 5
	s.previousPixel = 2.5
	s.window = levels(&SyncB)
	evicted := s.window[0]

	s.process(0)

	assert.True(t, s.hasSync)
	assert.Equal(t, 1, s.syncB)
	assert.Zero(t, s.syncA)
	assert.Equal(t, PixelsPerLine/2+1, s.x)
	assert.Equal(t, evicted, s.maxLevel, "gain restarts from the first pixel after sync")

	row := s.img.Pix[s.img.PixOffset(0, 0):s.img.PixOffset(0, 1)]
	for x := 10; x < PixelsPerLine/2; x++ {
		require.Equal(t, uint8(127), row[x], "column %d scaled against the pre-sync peak", x)
	}
	assert.Zero(t, row[9])
}

func TestBrightnessClamps(t *testing.T) {
	s, _ := newTestSink(t)

	s.maxLevel = 0
	assert.Equal(t, uint8(255), s.brightness(1))
	assert.Equal(t, uint8(0), s.brightness(0))
	assert.Equal(t, uint8(0), s.brightness(-1))

	s.maxLevel = 1
	assert.Equal(t, uint8(255), s.brightness(2))
	assert.Equal(t, uint8(127), s.brightness(0.5))
	assert.Equal(t, uint8(0), s.brightness(-0.2))
}

func TestReconstructsLineAfterSyncA(t *testing.T) {
	var signal []float32
	signal = append(signal, make([]float32, 40)...)
	pattern := levels(&SyncA)
	signal = append(signal, pattern[:]...)
	for range PixelsPerLine {
		signal = append(signal, 0.5)
	}

	s, saver := newTestSink(t)
	for _, err := range flowgraph.Transform(s, slices.Chunk(signal, 7), 0) {
		require.NoError(t, err)
	}

	st := s.Stats()
	assert.True(t, st.HasSync)
	assert.Equal(t, 2, st.SyncA, "the marker is seen four samples early and again when complete")
	assert.Zero(t, st.SyncB)
	assert.Equal(t, 1, st.Y)
	assert.Zero(t, st.X)
	assert.Equal(t, float32(1), st.MaxLevel)
	assert.Equal(t, 1, saver.calls, "saved once at end of stream")
	assert.Equal(t, 1, st.Flushes)

	row := s.img.Pix[s.img.PixOffset(0, 0):s.img.PixOffset(0, 1)]
	for x := range SyncLength {
		assert.Equal(t, uint8(pattern[x]*255), row[x], "column %d", x)
	}
	for x := SyncLength; x < PixelsPerLine; x++ {
		require.Equal(t, uint8(127), row[x], "column %d", x)
	}
	require.Len(t, st.LastLine, PixelsPerLine)
	assert.Equal(t, 127.0, st.LastLine[PixelsPerLine-1])
	assert.Zero(t, s.img.GrayAt(0, 1).Y, "next row untouched")
}

func TestPeriodicSaveRetriesAfterFailure(t *testing.T) {
	s, saver := newTestSink(t)
	saver.fail = map[int]bool{1: true}

	silence := make([]float32, 2*FlushLines*PixelsPerLine)
	io := flowgraph.WorkIO{Input: silence}
	require.NoError(t, s.Work(&io), "periodic failures are not fatal")
	assert.Equal(t, len(silence), io.Consumed)
	assert.False(t, io.Finished)
	assert.False(t, s.hasSync)

	st := s.Stats()
	assert.Equal(t, 2*FlushLines, st.Y)
	assert.Equal(t, 2, saver.calls)
	assert.Equal(t, 1, st.FlushErrors)
	assert.Equal(t, 1, st.Flushes)
}

func TestFinalSaveFailureIsReturned(t *testing.T) {
	s, saver := newTestSink(t)
	saver.fail = map[int]bool{1: true}

	io := flowgraph.WorkIO{Input: []float32{0.1, 0.2}, InputDone: true}
	err := s.Work(&io)
	require.Error(t, err)
	assert.True(t, io.Finished)
	assert.Equal(t, 2, io.Consumed)
}

func TestRowsPastTheImageAreDropped(t *testing.T) {
	s, _ := newTestSink(t)
	s.y = Lines

	io := flowgraph.WorkIO{Input: make([]float32, PixelsPerLine+5)}
	require.NoError(t, s.Work(&io))

	assert.Equal(t, Lines+1, s.y)
	assert.Equal(t, 5, s.x)
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	s := NewImageSink(path)
	s.maxLevel = 1
	s.put(3, s.brightness(1))

	require.NoError(t, s.flush())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, PixelsPerLine, Lines), img.Bounds())
	gray, ok := img.(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, uint8(255), gray.GrayAt(3, 0).Y)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file is cleaned up")
}

func TestSavePNGMissingDirectory(t *testing.T) {
	save := SavePNG(filepath.Join(t.TempDir(), "missing", "out.png"))
	assert.Error(t, save(image.NewGray(image.Rect(0, 0, 1, 1))))
}
