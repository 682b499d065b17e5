package flowgraph

import (
	"fmt"
	"iter"
)

// Transform runs a single block over a chunked input and yields every non-empty output chunk as
// it is produced. Each yielded slice is owned by the caller. After the input sequence ends the
// block is stepped with InputDone set until it finishes; a block that stops making progress
// before finishing ends the sequence with ErrStalled.
func Transform(b Block, chunks iter.Seq[[]float32], capacity int) iter.Seq2[[]float32, error] {
	return func(yield func([]float32, error) bool) {
		var out []float32
		if b.Meta().Outputs > 0 {
			out = make([]float32, capacity)
		}
		var pending []float32

		// step returns done=true once the block finished or the consumer went away.
		step := func(inputDone bool) (done bool) {
			for {
				io := WorkIO{Input: pending, InputDone: inputDone, Output: out}
				err := b.Work(&io)
				if io.Consumed < 0 || io.Consumed > len(pending) || io.Produced < 0 || io.Produced > len(out) {
					yield(nil, fmt.Errorf("%w: %s", ErrOverrun, b.Meta().Name))
					return true
				}
				pending = pending[io.Consumed:]
				if io.Produced > 0 {
					chunk := make([]float32, io.Produced)
					copy(chunk, out[:io.Produced])
					if !yield(chunk, nil) {
						return true
					}
				}
				if err != nil {
					yield(nil, err)
					return true
				}
				if io.Finished {
					return true
				}
				if io.Consumed == 0 && io.Produced == 0 {
					return false
				}
			}
		}

		for chunk := range chunks {
			pending = append(pending, chunk...)
			if step(false) {
				return
			}
		}
		if !step(true) {
			yield(nil, fmt.Errorf("%w: %s did not finish", ErrStalled, b.Meta().Name))
		}
	}
}
