package flowgraph

// VectorSource emits a fixed slice of samples and then finishes.
type VectorSource struct {
	data []float32
	pos  int
}

func NewVectorSource(data []float32) *VectorSource {
	return &VectorSource{data: data}
}

func (v *VectorSource) Meta() Meta {
	return Meta{Name: "VectorSource", Outputs: 1}
}

func (v *VectorSource) Work(io *WorkIO) error {
	n := copy(io.Output, v.data[v.pos:])
	v.pos += n
	io.Produced = n
	if v.pos == len(v.data) {
		io.Finished = true
	}
	return nil
}

// VectorSink collects everything it is given.
type VectorSink struct {
	data []float32
}

func NewVectorSink() *VectorSink {
	return &VectorSink{}
}

func (v *VectorSink) Meta() Meta {
	return Meta{Name: "VectorSink", Inputs: 1}
}

func (v *VectorSink) Work(io *WorkIO) error {
	v.data = append(v.data, io.Input...)
	io.Consumed = len(io.Input)
	if io.InputDone {
		io.Finished = true
	}
	return nil
}

func (v *VectorSink) Data() []float32 {
	return v.data
}
