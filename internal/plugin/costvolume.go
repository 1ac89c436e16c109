package plugin

import (
	"fmt"

	"github.com/parallaxml/parallax/internal/device"
	"github.com/parallaxml/parallax/internal/kernels"
	"github.com/parallaxml/parallax/internal/tensor"
)

// CostVolume builds the matching volume from a stereo feature-map pair.
// MaxDisparity is the number of candidate disparity levels D.
type CostVolume struct {
	MaxDisparity int `json:"max_disparity"`
}

func (p *CostVolume) Name() string { return CostVolumeName }

// OutputShape expects two identical rank-3 [C,H,W] inputs and negotiates a
// rank-4 [D, 2C, H, W] output.
func (p *CostVolume) OutputShape(inputs []tensor.Shape) (tensor.Shape, error) {
	if len(inputs) != 2 {
		return tensor.Shape{}, fmt.Errorf("%w: cost volume wants 2 inputs, got %d", ErrBadShapes, len(inputs))
	}
	l, r := inputs[0], inputs[1]
	if l.Rank != 3 || !l.Valid() || r != l {
		return tensor.Shape{}, fmt.Errorf("%w: cost volume wants two identical rank-3 inputs, got %v and %v", ErrBadShapes, l, r)
	}
	return tensor.Shape4(p.MaxDisparity, 2*l.Dims[0], l.Dims[1], l.Dims[2]), nil
}

func (p *CostVolume) Enqueue(stream *device.Stream, inputs [][]float32, output []float32, shapes []tensor.Shape) error {
	if _, err := p.OutputShape(shapes); err != nil {
		return err
	}
	in := shapes[0]
	out := tensor.Shape{Rank: 3, Dims: [tensor.MaxRank]int{p.MaxDisparity, in.Dims[1], in.Dims[2]}}
	return kernels.ComputeCostVolume(stream, inputs[0], inputs[1], in, output, out)
}
