package flowgraph

// buffer is the fixed capacity FIFO sitting on each edge of the graph. Reads advance head, writes
// advance tail, and unread samples are moved to the front before handing out write space.
type buffer struct {
	data []float32
	head int
	tail int
}

func newBuffer(size int) *buffer {
	return &buffer{data: make([]float32, size)}
}

func (b *buffer) readable() []float32 {
	return b.data[b.head:b.tail]
}

func (b *buffer) writable() []float32 {
	if b.head > 0 {
		n := copy(b.data, b.data[b.head:b.tail])
		b.head = 0
		b.tail = n
	}
	return b.data[b.tail:]
}

func (b *buffer) consume(n int) {
	b.head += n
	if b.head == b.tail {
		b.head = 0
		b.tail = 0
	}
}

func (b *buffer) produce(n int) {
	b.tail += n
}

func (b *buffer) len() int {
	return b.tail - b.head
}
