package plugin

import (
	"fmt"

	"github.com/parallaxml/parallax/internal/device"
	"github.com/parallaxml/parallax/internal/kernels"
	"github.com/parallaxml/parallax/internal/tensor"
)

// DepthBias adds a learned per-depth scalar across a [N,D,H,W] activation
// volume. It carries no parameters; the depth count comes from the shapes.
type DepthBias struct{}

func (p *DepthBias) Name() string { return DepthBiasName }

// OutputShape expects a rank-4 [N,D,H,W] activation and a rank-5 bias
// descriptor with batch 1 and matching depth; the output shape equals the
// activation shape.
func (p *DepthBias) OutputShape(inputs []tensor.Shape) (tensor.Shape, error) {
	if len(inputs) != 2 {
		return tensor.Shape{}, fmt.Errorf("%w: depth bias wants 2 inputs, got %d", ErrBadShapes, len(inputs))
	}
	conv, bias := inputs[0], inputs[1]
	if conv.Rank != 4 || !conv.Valid() {
		return tensor.Shape{}, fmt.Errorf("%w: depth bias activation must be rank-4, got %v", ErrBadShapes, conv)
	}
	if bias.Rank != 5 || !bias.Valid() || bias.Dims[0] != 1 {
		return tensor.Shape{}, fmt.Errorf("%w: depth bias descriptor must be rank-5 with batch 1, got %v", ErrBadShapes, bias)
	}
	if bias.Dims[1] != conv.Dims[1] {
		return tensor.Shape{}, fmt.Errorf("%w: bias depth %d != activation depth %d", ErrBadShapes, bias.Dims[1], conv.Dims[1])
	}
	return conv, nil
}

func (p *DepthBias) Enqueue(stream *device.Stream, inputs [][]float32, output []float32, shapes []tensor.Shape) error {
	if _, err := p.OutputShape(shapes); err != nil {
		return err
	}
	conv := shapes[0]
	n := conv.Elems()
	if len(inputs[0]) < n || len(output) < n {
		return fmt.Errorf("%w: activation buffers too small", ErrBadShapes)
	}
	// The kernel adds in place; the host graph hands us a distinct output
	// buffer, so seed it with the activation first.
	copy(output[:n], inputs[0][:n])
	return kernels.AddDepthBias(stream, inputs[1], shapes[1], output, conv)
}
