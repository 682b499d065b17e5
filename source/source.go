package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/aptdecoder/flowgraph"
)

var ErrUnsupportedFormat = errors.New("unsupported audio format")

const DefaultChunkSize = 4096

type SampleFormat int

const (
	WAV SampleFormat = iota
	MP3
)

func (f SampleFormat) String() string {
	switch f {
	case WAV:
		return "wav"
	case MP3:
		return "mp3"
	}
	return "unknown"
}

// decoder yields mono samples in -1..1 and io.EOF once the file is exhausted.
type decoder interface {
	read(dst []float32) (int, error)
}

// FileSource streams the first channel of an audio file into a flowgraph.
type FileSource struct {
	Path       string
	Format     SampleFormat
	SampleRate int
	Channels   int
	ChunkSize  int

	file *os.File
	dec  decoder
}

func Open(path string, chunkSize int) (*FileSource, error) {
	var format SampleFormat
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		format = WAV
	case ".mp3":
		format = MP3
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open audio file: %w", err)
	}

	s := &FileSource{Path: path, Format: format, ChunkSize: chunkSize, file: f}
	switch format {
	case WAV:
		s.dec, s.SampleRate, s.Channels, err = newWavDecoder(f)
	case MP3:
		s.dec, s.SampleRate, s.Channels, err = newMP3Decoder(f)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("could not decode %s: %w", path, err)
	}

	log.Debugf("[source] Opened %s: %s, %d Hz, %d channel(s)", path, format, s.SampleRate, s.Channels)
	return s, nil
}

// Read fills dst with up to len(dst) samples. It returns io.EOF once nothing is left.
func (s *FileSource) Read(dst []float32) (int, error) {
	return s.dec.read(dst)
}

func (s *FileSource) Meta() flowgraph.Meta {
	return flowgraph.Meta{Name: "FileSource", Outputs: 1}
}

func (s *FileSource) Work(wio *flowgraph.WorkIO) error {
	n := min(len(wio.Output), s.ChunkSize)
	if n == 0 {
		return nil
	}

	got, err := s.dec.read(wio.Output[:n])
	wio.Produced = got
	if errors.Is(err, io.EOF) {
		wio.Finished = true
		return nil
	}
	return err
}

func (s *FileSource) Close() error {
	return s.file.Close()
}
