package demod

import (
	"errors"

	"github.com/jrwynneiii/aptdecoder/flowgraph"
)

var ErrNoTaps = errors.New("fir filter needs at least one coefficient")

// FIRFilter keeps the last len(coeffs) samples in a ring and correlates them, newest first,
// against the coefficients. The ring starts zeroed, so the first len(coeffs)-1 outputs ramp up.
type FIRFilter struct {
	coeffs []float32
	state  []float32
	pos    int
}

func NewFIRFilter(coeffs []float32) (*FIRFilter, error) {
	if len(coeffs) == 0 {
		return nil, ErrNoTaps
	}
	return &FIRFilter{
		coeffs: append([]float32(nil), coeffs...),
		state:  make([]float32, len(coeffs)),
	}, nil
}

func (f *FIRFilter) Meta() flowgraph.Meta {
	return flowgraph.Meta{Name: "FIRFilter", Inputs: 1, Outputs: 1}
}

// Filter runs a single sample through the filter.
func (f *FIRFilter) Filter(x float32) float32 {
	k := len(f.coeffs)
	f.pos = (f.pos + 1) % k
	f.state[f.pos] = x

	// The explicit conversion rounds each product and keeps the compiler from fusing it into
	// the sum, so output is identical on every architecture.
	var acc float32
	for i, c := range f.coeffs {
		acc += float32(f.state[(f.pos+k-i)%k] * c)
	}
	return acc
}

func (f *FIRFilter) Work(io *flowgraph.WorkIO) error {
	n := min(len(io.Input), len(io.Output))
	for i, x := range io.Input[:n] {
		io.Output[i] = f.Filter(x)
	}

	io.Consumed = n
	io.Produced = n
	if io.InputDone && n == len(io.Input) {
		io.Finished = true
	}
	return nil
}
