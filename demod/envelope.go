package demod

import (
	"math"

	"github.com/jrwynneiii/aptdecoder/flowgraph"
)

// Envelope recovers the amplitude of an AM signal by taking the magnitude of every sample.
type Envelope struct{}

func NewEnvelope() *Envelope {
	return &Envelope{}
}

func (e *Envelope) Meta() flowgraph.Meta {
	return flowgraph.Meta{Name: "Envelope", Inputs: 1, Outputs: 1}
}

func (e *Envelope) Work(io *flowgraph.WorkIO) error {
	n := min(len(io.Input), len(io.Output))
	for i, x := range io.Input[:n] {
		io.Output[i] = float32(math.Sqrt(float64(x * x)))
	}

	io.Consumed = n
	io.Produced = n
	if io.InputDone && n == len(io.Input) {
		io.Finished = true
	}
	return nil
}
