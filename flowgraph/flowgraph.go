package flowgraph

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

const DefaultBufferSize = 64 * 1024

type BlockID int

type node struct {
	block    Block
	meta     Meta
	next     BlockID
	prev     BlockID
	consumed atomic.Int64
	produced atomic.Int64
	finished atomic.Bool
}

// BlockStats is a point in time view of a block's sample counters.
type BlockStats struct {
	Name     string
	Consumed int64
	Produced int64
	Finished bool
}

// Flowgraph is a linear chain of blocks scheduled cooperatively on a single goroutine.
type Flowgraph struct {
	BufferSize int
	nodes      []*node
	chain      []BlockID
}

func New() *Flowgraph {
	return &Flowgraph{BufferSize: DefaultBufferSize}
}

func (fg *Flowgraph) Add(b Block) BlockID {
	fg.nodes = append(fg.nodes, &node{block: b, meta: b.Meta(), next: -1, prev: -1})
	fg.chain = nil
	return BlockID(len(fg.nodes) - 1)
}

func (fg *Flowgraph) get(id BlockID) (*node, error) {
	if id < 0 || int(id) >= len(fg.nodes) {
		return nil, fmt.Errorf("%w: unknown block %d", ErrConfig, id)
	}
	return fg.nodes[id], nil
}

// Connect wires the output port of src to the input port of dst.
func (fg *Flowgraph) Connect(src, dst BlockID) error {
	s, err := fg.get(src)
	if err != nil {
		return err
	}
	d, err := fg.get(dst)
	if err != nil {
		return err
	}
	if src == dst {
		return fmt.Errorf("%w: %s cannot feed itself", ErrConfig, s.meta.Name)
	}
	if s.meta.Outputs != 1 {
		return fmt.Errorf("%w: %s has no output port", ErrConfig, s.meta.Name)
	}
	if d.meta.Inputs != 1 {
		return fmt.Errorf("%w: %s has no input port", ErrConfig, d.meta.Name)
	}
	if s.next != -1 {
		return fmt.Errorf("%w: output of %s is already connected", ErrConfig, s.meta.Name)
	}
	if d.prev != -1 {
		return fmt.Errorf("%w: input of %s is already connected", ErrConfig, d.meta.Name)
	}
	s.next = dst
	d.prev = src
	fg.chain = nil
	log.Debugf("[flowgraph] Connected %s -> %s", s.meta.Name, d.meta.Name)
	return nil
}

// Validate checks that the blocks form exactly one chain from a source to a sink.
func (fg *Flowgraph) Validate() error {
	if len(fg.nodes) < 2 {
		return fmt.Errorf("%w: need at least a source and a sink", ErrConfig)
	}

	head := BlockID(-1)
	for id, n := range fg.nodes {
		if n.meta.Inputs == 1 && n.prev == -1 {
			return fmt.Errorf("%w: input of %s is not connected", ErrConfig, n.meta.Name)
		}
		if n.meta.Outputs == 1 && n.next == -1 {
			return fmt.Errorf("%w: output of %s is not connected", ErrConfig, n.meta.Name)
		}
		if n.meta.Inputs == 0 {
			if head != -1 {
				return fmt.Errorf("%w: more than one source block", ErrConfig)
			}
			head = BlockID(id)
		}
	}
	if head == -1 {
		return fmt.Errorf("%w: no source block", ErrConfig)
	}

	chain := []BlockID{}
	for id := head; id != -1; id = fg.nodes[id].next {
		chain = append(chain, id)
		if len(chain) > len(fg.nodes) {
			return fmt.Errorf("%w: cycle detected", ErrConfig)
		}
	}
	if len(chain) != len(fg.nodes) {
		return fmt.Errorf("%w: %d blocks are not reachable from the source", ErrConfig, len(fg.nodes)-len(chain))
	}
	fg.chain = chain
	return nil
}

// Run drives the chain until its last block finishes.
func (fg *Flowgraph) Run(ctx context.Context) error {
	if fg.chain == nil {
		if err := fg.Validate(); err != nil {
			return err
		}
	}
	size := fg.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}

	last := len(fg.chain) - 1
	bufs := make([]*buffer, last)
	for i := range bufs {
		bufs[i] = newBuffer(size)
	}
	finished := make([]bool, len(fg.chain))

	log.Debugf("[flowgraph] Running %d blocks with %d sample buffers", len(fg.chain), size)
	for round := 0; ; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		progress := false
		for i, id := range fg.chain {
			if finished[i] {
				continue
			}
			n := fg.nodes[id]

			io := WorkIO{}
			if i > 0 {
				io.Input = bufs[i-1].readable()
				io.InputDone = finished[i-1]
			}
			if i < last {
				io.Output = bufs[i].writable()
			}

			err := n.block.Work(&io)
			if io.Consumed < 0 || io.Consumed > len(io.Input) || io.Produced < 0 || io.Produced > len(io.Output) {
				return fmt.Errorf("%w: %s consumed %d of %d, produced %d of %d", ErrOverrun, n.meta.Name,
					io.Consumed, len(io.Input), io.Produced, len(io.Output))
			}
			if i > 0 {
				bufs[i-1].consume(io.Consumed)
			}
			if i < last {
				bufs[i].produce(io.Produced)
			}
			n.consumed.Add(int64(io.Consumed))
			n.produced.Add(int64(io.Produced))

			if io.Consumed > 0 || io.Produced > 0 {
				progress = true
			}
			if io.Finished {
				finished[i] = true
				n.finished.Store(true)
				progress = true
				log.Debugf("[flowgraph] %s finished after %d rounds (in: %d, out: %d)", n.meta.Name, round,
					n.consumed.Load(), n.produced.Load())
			}
			if err != nil {
				return fmt.Errorf("%s: %w", n.meta.Name, err)
			}
		}

		if finished[last] {
			return nil
		}
		if !progress {
			return fmt.Errorf("%w after %d rounds", ErrStalled, round)
		}
	}
}

// Stats may be called from any goroutine while Run is in progress, provided the graph was
// validated before Run started.
func (fg *Flowgraph) Stats() []BlockStats {
	order := fg.chain
	if order == nil {
		for id := range fg.nodes {
			order = append(order, BlockID(id))
		}
	}
	stats := make([]BlockStats, 0, len(order))
	for _, id := range order {
		n := fg.nodes[id]
		stats = append(stats, BlockStats{
			Name:     n.meta.Name,
			Consumed: n.consumed.Load(),
			Produced: n.produced.Load(),
			Finished: n.finished.Load(),
		})
	}
	return stats
}
