package demod

import (
	"errors"
	"fmt"

	"github.com/jrwynneiii/aptdecoder/flowgraph"
)

var ErrBadRate = errors.New("resampling rate must be at least 1")

// Upsampler raises the sample rate by repeating every input sample Rate times.
type Upsampler struct {
	Rate int
}

func NewUpsampler(rate int) (*Upsampler, error) {
	if rate < 1 {
		return nil, fmt.Errorf("%w: upsample by %d", ErrBadRate, rate)
	}
	return &Upsampler{Rate: rate}, nil
}

func (u *Upsampler) Meta() flowgraph.Meta {
	return flowgraph.Meta{Name: "Upsampler", Inputs: 1, Outputs: 1}
}

func (u *Upsampler) Work(io *flowgraph.WorkIO) error {
	n := min(len(io.Input), len(io.Output)/u.Rate)
	for j, x := range io.Input[:n] {
		out := io.Output[j*u.Rate : (j+1)*u.Rate]
		for k := range out {
			out[k] = x
		}
	}

	io.Consumed = n
	io.Produced = n * u.Rate
	if io.InputDone && n == len(io.Input) {
		io.Finished = true
	}
	return nil
}

// Downsampler lowers the sample rate by averaging every Rate consecutive input samples. A trailing
// partial block stays in the input until more samples arrive, and is dropped at end of stream.
type Downsampler struct {
	Rate int
}

func NewDownsampler(rate int) (*Downsampler, error) {
	if rate < 1 {
		return nil, fmt.Errorf("%w: downsample by %d", ErrBadRate, rate)
	}
	return &Downsampler{Rate: rate}, nil
}

func (d *Downsampler) Meta() flowgraph.Meta {
	return flowgraph.Meta{Name: "Downsampler", Inputs: 1, Outputs: 1}
}

func (d *Downsampler) Work(io *flowgraph.WorkIO) error {
	n := min(len(io.Input)/d.Rate, len(io.Output))
	scale := float32(d.Rate)
	for j := range n {
		var acc float32
		for _, x := range io.Input[j*d.Rate : (j+1)*d.Rate] {
			acc += float32(x / scale)
		}
		io.Output[j] = acc
	}

	io.Consumed = n * d.Rate
	io.Produced = n
	if io.InputDone && len(io.Input) < d.Rate {
		io.Finished = true
	}
	return nil
}

// RationalRatio returns the smallest up/down pair that converts inRate into outRate.
func RationalRatio(inRate, outRate int) (up, down int, err error) {
	if inRate <= 0 || outRate <= 0 {
		return 0, 0, fmt.Errorf("%w: cannot convert %d Hz to %d Hz", ErrBadRate, inRate, outRate)
	}
	g := gcd(inRate, outRate)
	return outRate / g, inRate / g, nil
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
