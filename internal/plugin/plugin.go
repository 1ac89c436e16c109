// Package plugin is the host-facing surface of the stereo kernels: a closed
// registry of the two network plugins, their shape negotiation, and the
// JSON descriptor round-trip the host graph uses to persist them. The host
// owns every buffer and decides when each plugin runs; a plugin only
// validates shapes and enqueues kernels on the stream it is handed.
package plugin

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/parallaxml/parallax/internal/device"
	"github.com/parallaxml/parallax/internal/tensor"
)

const (
	CostVolumeName = "cost_volume"
	DepthBiasName  = "depth_bias"
)

var (
	ErrUnknownPlugin = errors.New("unknown plugin")
	ErrBadShapes     = errors.New("plugin shape negotiation failed")
)

// Plugin is one network operation. The set is closed: only the cost-volume
// and depth-bias plugins exist, and only float32 buffers cross this
// surface (half precision stays inside the conversion kernels).
type Plugin interface {
	Name() string
	// OutputShape negotiates the output descriptor from the input
	// descriptors, or rejects them.
	OutputShape(inputs []tensor.Shape) (tensor.Shape, error)
	// Enqueue launches the operation on stream. Buffers are caller-owned
	// and must match the negotiated shapes.
	Enqueue(stream *device.Stream, inputs [][]float32, output []float32, shapes []tensor.Shape) error
}

// Descriptor is the serialized form of a configured plugin.
type Descriptor struct {
	Name   string          `json:"name"`
	Params json.RawMessage `json:"params,omitempty"`
}

// New instantiates a plugin by name from serialized parameters. Dispatch is
// an explicit closed switch, not an open registry.
func New(name string, params []byte) (Plugin, error) {
	switch name {
	case CostVolumeName:
		p := &CostVolume{}
		if len(params) > 0 {
			if err := json.Unmarshal(params, p); err != nil {
				return nil, fmt.Errorf("decode %s params: %w", name, err)
			}
		}
		if p.MaxDisparity < 1 {
			return nil, fmt.Errorf("%w: %s: max_disparity must be >= 1", ErrBadShapes, name)
		}
		return p, nil
	case DepthBiasName:
		return &DepthBias{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlugin, name)
	}
}

// Serialize encodes a plugin into its descriptor form.
func Serialize(p Plugin) ([]byte, error) {
	params, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Descriptor{Name: p.Name(), Params: params})
}

// Deserialize restores a plugin from Serialize output.
func Deserialize(data []byte) (Plugin, error) {
	var desc Descriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("decode plugin descriptor: %w", err)
	}
	return New(desc.Name, desc.Params)
}
