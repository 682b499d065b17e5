package flowgraph

import "errors"

var (
	// ErrConfig marks wiring mistakes found while building or validating a flowgraph.
	ErrConfig = errors.New("invalid flowgraph")
	// ErrStalled is returned when a whole scheduling round made no progress.
	ErrStalled = errors.New("flowgraph stalled")
	// ErrOverrun is returned when a block claims more input or output than it was given.
	ErrOverrun = errors.New("block overran its buffers")
)

// Meta describes a block's name and stream ports. Only 0 or 1 ports are supported per side.
type Meta struct {
	Name    string
	Inputs  int
	Outputs int
}

// WorkIO is handed to a block on every scheduling step. The block reads from Input, writes into
// Output and records how much of each it used. Input and Output are only valid for the duration
// of the call.
type WorkIO struct {
	Input     []float32
	InputDone bool
	Output    []float32

	Consumed int
	Produced int
	Finished bool
}

// Block is a single processing stage driven by the runtime.
type Block interface {
	Meta() Meta
	Work(io *WorkIO) error
}
