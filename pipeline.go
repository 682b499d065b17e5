package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/aptdecoder/apt"
	"github.com/jrwynneiii/aptdecoder/config"
	"github.com/jrwynneiii/aptdecoder/demod"
	"github.com/jrwynneiii/aptdecoder/flowgraph"
	"github.com/jrwynneiii/aptdecoder/source"
)

type decoder struct {
	fg     *flowgraph.Flowgraph
	source *source.FileSource
	sink   *apt.ImageSink
}

// newDecoder opens the configured input and wires
// FileSource -> Envelope -> FIRFilter -> Upsampler -> Downsampler -> APTImageSink.
func newDecoder(conf config.Conf) (*decoder, error) {
	src, err := source.Open(conf.Source.Path, conf.Source.ChunkSize)
	if err != nil {
		return nil, err
	}

	d, err := buildChain(conf, src)
	if err != nil {
		src.Close()
		return nil, err
	}
	return d, nil
}

func buildChain(conf config.Conf, src *source.FileSource) (*decoder, error) {
	up, down := conf.Resample.Upsample, conf.Resample.Downsample
	if up <= 0 || down <= 0 {
		var err error
		up, down, err = demod.RationalRatio(src.SampleRate, apt.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("could not derive resampling factors for %d Hz: %w", src.SampleRate, err)
		}
	}
	if src.SampleRate*up != apt.SampleRate*down {
		log.Warnf("[pipeline] %d Hz * %d / %d is not %d samples/s, the image will be skewed", src.SampleRate, up, down, apt.SampleRate)
	}

	bufSize := conf.Pipeline.BufferSize
	if bufSize <= 0 {
		bufSize = flowgraph.DefaultBufferSize
	}
	// The edge between the resamplers has to fit a whole upsampled block on top of a partial
	// downsampling block, otherwise the run stalls.
	if bufSize < up+down {
		return nil, fmt.Errorf("%w: buffer of %d samples is too small for up %d and down %d (need at least %d)",
			flowgraph.ErrConfig, bufSize, up, down, up+down)
	}

	taps, err := demod.LowpassFor(src.SampleRate, conf.Filter.Cutoff, conf.Filter.TransitionWidth)
	if err != nil {
		return nil, fmt.Errorf("could not build lowpass filter: %w", err)
	}
	fir, err := demod.NewFIRFilter(taps)
	if err != nil {
		return nil, err
	}
	upsampler, err := demod.NewUpsampler(up)
	if err != nil {
		return nil, err
	}
	downsampler, err := demod.NewDownsampler(down)
	if err != nil {
		return nil, err
	}
	sink := apt.NewImageSink(conf.Image.Path)

	fg := flowgraph.New()
	fg.BufferSize = bufSize
	blocks := []flowgraph.BlockID{
		fg.Add(src),
		fg.Add(demod.NewEnvelope()),
		fg.Add(fir),
		fg.Add(upsampler),
		fg.Add(downsampler),
		fg.Add(sink),
	}
	for i := 1; i < len(blocks); i++ {
		if err := fg.Connect(blocks[i-1], blocks[i]); err != nil {
			return nil, err
		}
	}
	if err := fg.Validate(); err != nil {
		return nil, err
	}

	log.Infof("[pipeline] %s @ %d Hz, %d taps, up %d, down %d -> %s", src.Path, src.SampleRate, len(taps), up, down, conf.Image.Path)
	return &decoder{fg: fg, source: src, sink: sink}, nil
}

func (d *decoder) Close() error {
	return d.source.Close()
}
