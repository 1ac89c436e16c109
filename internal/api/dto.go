package api

import "github.com/parallaxml/parallax/internal/tensor"

// TensorPayload carries a dense row-major tensor over the wire.
type TensorPayload struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

func (t TensorPayload) shape() (tensor.Shape, bool) {
	if len(t.Shape) < 1 || len(t.Shape) > tensor.MaxRank {
		return tensor.Shape{}, false
	}
	s := tensor.Shape{Rank: len(t.Shape)}
	copy(s.Dims[:], t.Shape)
	if !s.Valid() || len(t.Data) != s.Elems() {
		return tensor.Shape{}, false
	}
	return s, true
}

type CostVolumeRequest struct {
	MaxDisparity int           `json:"max_disparity"`
	Left         TensorPayload `json:"left"`
	Right        TensorPayload `json:"right"`
}

type DepthBiasRequest struct {
	Activation TensorPayload `json:"activation"`
	Bias       []float32     `json:"bias"`
}

type ConvertRequest struct {
	// Direction is "float_to_half" or "half_to_float".
	Direction string    `json:"direction"`
	Floats    []float32 `json:"floats,omitempty"`
	// HalfBits carries binary16 bit patterns as integers.
	HalfBits []uint16 `json:"half_bits,omitempty"`
}

type TensorResponse struct {
	ID    string    `json:"id"`
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

type ConvertResponse struct {
	ID       string    `json:"id"`
	Floats   []float32 `json:"floats,omitempty"`
	HalfBits []uint16  `json:"half_bits,omitempty"`
}

type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}
