package apt

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/aptdecoder/flowgraph"
)

const (
	PixelsPerLine = 2080
	Lines         = 500
	// SampleRate is the rate the sink expects: two lines per second, one sample per pixel.
	SampleRate = 2 * PixelsPerLine
	// FlushLines is how many completed lines pass between periodic saves.
	FlushLines = 100
)

// Stats is a snapshot of the sink's tracking state.
type Stats struct {
	HasSync     bool
	X           int
	Y           int
	SyncA       int
	SyncB       int
	AvgLevel    float32
	MaxLevel    float32
	Flushes     int
	FlushErrors int
	// LastLine holds the brightness of the most recently completed line that fit in the image.
	LastLine []float64
}

type Option func(*ImageSink)

// WithSaver replaces the PNG writer used for periodic and final saves.
func WithSaver(save func(img *image.Gray) error) Option {
	return func(s *ImageSink) {
		s.save = save
	}
}

// ImageSink turns a 4160 samples/s APT envelope into a grayscale raster. It locks onto the sync
// markers to find line starts and mid-line channel boundaries and normalizes brightness against
// the peak level seen since sync was first acquired.
//
// Once acquired, sync is never dropped again, even across long stretches of noise.
type ImageSink struct {
	avgLevel float32
	window   [SyncLength]float32
	pos      int

	x             int
	y             int
	hasSync       bool
	maxLevel      float32
	previousPixel float32

	img  *image.Gray
	path string
	save func(img *image.Gray) error

	syncA       int
	syncB       int
	flushes     int
	flushErrors int
	lastLine    []float64
	lineDirty   bool

	mu    sync.RWMutex
	stats Stats
}

func NewImageSink(path string, opts ...Option) *ImageSink {
	s := &ImageSink{
		avgLevel: 0.5,
		img:      image.NewGray(image.Rect(0, 0, PixelsPerLine, Lines)),
		path:     path,
		lastLine: make([]float64, PixelsPerLine),
	}
	s.save = SavePNG(path)
	for _, opt := range opts {
		opt(s)
	}
	s.publish()
	return s
}

func (s *ImageSink) Meta() flowgraph.Meta {
	return flowgraph.Meta{Name: "APTImageSink", Inputs: 1}
}

func (s *ImageSink) Work(io *flowgraph.WorkIO) error {
	for _, sample := range io.Input {
		s.process(sample)
	}
	io.Consumed = len(io.Input)

	var err error
	if io.InputDone {
		io.Finished = true
		log.Infof("[apt] Input finished after %d lines, saving %s", s.y, s.path)
		if err = s.flush(); err != nil {
			err = fmt.Errorf("final save of %s failed: %w", s.path, err)
		}
	}

	s.publish()
	return err
}

// Image returns the raster being written. It is only safe to read once the sink has finished.
func (s *ImageSink) Image() *image.Gray {
	return s.img
}

// Stats can be called from any goroutine.
func (s *ImageSink) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.stats
	st.LastLine = append([]float64(nil), s.stats.LastLine...)
	return st
}

func (s *ImageSink) publish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.HasSync = s.hasSync
	s.stats.X = s.x
	s.stats.Y = s.y
	s.stats.SyncA = s.syncA
	s.stats.SyncB = s.syncB
	s.stats.AvgLevel = s.avgLevel
	s.stats.MaxLevel = s.maxLevel
	s.stats.Flushes = s.flushes
	s.stats.FlushErrors = s.flushErrors
	if s.lineDirty || s.stats.LastLine == nil {
		s.stats.LastLine = append(s.stats.LastLine[:0], s.lastLine...)
		s.lineDirty = false
	}
}

func (s *ImageSink) markers() (isA, isB bool) {
	var window [SyncLength]float32
	for i := range window {
		window[i] = s.window[(s.pos+i)%SyncLength]
	}
	isA = Correlate(&window, s.avgLevel, &SyncA) >= SyncThreshold
	isB = Correlate(&window, s.avgLevel, &SyncB) >= SyncThreshold
	return isA, isB
}

func (s *ImageSink) process(sample float32) {
	isA, isB := s.markers()

	// The sample leaving the window is the one drawn, so markers gate pixels 40 samples late.
	pixel := s.window[s.pos]
	s.window[s.pos] = sample
	s.avgLevel = 0.25*sample + 0.75*s.avgLevel
	s.pos = (s.pos + 1) % SyncLength

	if isA {
		s.syncA++
		s.acquire(MarkerA)
		s.x = 0
	}
	if isB {
		s.syncB++
		const mid = PixelsPerLine / 2
		if s.x < mid {
			c := s.brightness(s.previousPixel)
			for x := s.x; x < mid; x++ {
				s.put(x, c)
			}
		}
		s.acquire(MarkerB)
		s.x = mid
	}

	if pixel > s.maxLevel {
		s.maxLevel = pixel
	}
	s.put(s.x, s.brightness(pixel))

	s.x++
	if s.x >= PixelsPerLine {
		s.x = 0
		s.y++
		s.lineCompleted()
		if s.y%FlushLines == 0 {
			if err := s.flush(); err != nil {
				log.Errorf("[apt] Could not save %s at line %d, retrying in %d lines: %v", s.path, s.y, FlushLines, err)
			}
		}
	}
	s.previousPixel = pixel
}

func (s *ImageSink) acquire(m Marker) {
	if s.hasSync {
		return
	}
	s.maxLevel = 0
	s.hasSync = true
	log.Infof("[apt] Acquired sync on %s at line %d, column %d", Markers[m], s.y, s.x)
}

// brightness maps v onto 0..255 relative to the running peak. Division by a zero peak yields
// NaN or +Inf, which clamp to 0 and 255.
func (s *ImageSink) brightness(v float32) uint8 {
	c := v / s.maxLevel * 255
	switch {
	case c != c:
		return 0
	case c <= 0:
		return 0
	case c >= 255:
		return 255
	}
	return uint8(c)
}

func (s *ImageSink) put(x int, c uint8) {
	if s.y >= Lines {
		return
	}
	s.img.SetGray(x, s.y, color.Gray{Y: c})
}

func (s *ImageSink) lineCompleted() {
	row := s.y - 1
	if row >= Lines {
		return
	}
	off := s.img.PixOffset(0, row)
	for i, p := range s.img.Pix[off : off+PixelsPerLine] {
		s.lastLine[i] = float64(p)
	}
	s.lineDirty = true
}

func (s *ImageSink) flush() error {
	if err := s.save(s.img); err != nil {
		s.flushErrors++
		return err
	}
	s.flushes++
	log.Debugf("[apt] Saved %s (%d lines)", s.path, min(s.y, Lines))
	return nil
}
