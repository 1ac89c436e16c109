package plugin

import (
	"errors"
	"testing"

	"github.com/parallaxml/parallax/internal/device"
	"github.com/parallaxml/parallax/internal/tensor"
)

func testStream(t *testing.T) *device.Stream {
	t.Helper()
	s := device.NewStream(device.WithSyncAfterLaunch(true))
	t.Cleanup(s.Destroy)
	return s
}

func TestNewClosedDispatch(t *testing.T) {
	p, err := New(CostVolumeName, []byte(`{"max_disparity":4}`))
	if err != nil {
		t.Fatalf("cost volume: %v", err)
	}
	if cv, ok := p.(*CostVolume); !ok || cv.MaxDisparity != 4 {
		t.Fatalf("unexpected plugin %#v", p)
	}

	if _, err := New(DepthBiasName, nil); err != nil {
		t.Fatalf("depth bias: %v", err)
	}

	if _, err := New("warp_grid", nil); !errors.Is(err, ErrUnknownPlugin) {
		t.Fatalf("got %v want ErrUnknownPlugin", err)
	}
	if _, err := New(CostVolumeName, []byte(`{"max_disparity":0}`)); err == nil {
		t.Fatal("zero disparity range accepted")
	}
}

func TestDescriptorRoundTrip(t *testing.T) {
	data, err := Serialize(&CostVolume{MaxDisparity: 32})
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	p, err := Deserialize(data)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	cv, ok := p.(*CostVolume)
	if !ok || cv.MaxDisparity != 32 {
		t.Fatalf("round trip produced %#v", p)
	}
}

func TestCostVolumeNegotiation(t *testing.T) {
	p := &CostVolume{MaxDisparity: 8}
	in := tensor.Shape3(16, 32, 64)
	out, err := p.OutputShape([]tensor.Shape{in, in})
	if err != nil {
		t.Fatalf("negotiate: %v", err)
	}
	if out != tensor.Shape4(8, 32, 32, 64) {
		t.Fatalf("out=%v want [8 32 32 64]", out)
	}

	if _, err := p.OutputShape([]tensor.Shape{in}); !errors.Is(err, ErrBadShapes) {
		t.Fatalf("one input: got %v", err)
	}
	other := tensor.Shape3(16, 32, 63)
	if _, err := p.OutputShape([]tensor.Shape{in, other}); !errors.Is(err, ErrBadShapes) {
		t.Fatalf("mismatched pair: got %v", err)
	}
}

func TestCostVolumeEnqueue(t *testing.T) {
	p := &CostVolume{MaxDisparity: 2}
	in := tensor.Shape3(1, 1, 4)
	left := []float32{1, 2, 3, 4}
	right := []float32{10, 20, 30, 40}
	out := make([]float32, 16)

	s := testStream(t)
	err := p.Enqueue(s, [][]float32{left, right}, out, []tensor.Shape{in, in})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	want := []float32{1, 2, 3, 4, 10, 20, 30, 40, 1, 2, 3, 4, 0, 10, 20, 30}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out=%v want %v", out, want)
		}
	}
}

func TestDepthBiasNegotiationAndEnqueue(t *testing.T) {
	p := &DepthBias{}
	conv := tensor.Shape4(1, 2, 1, 1)
	bias := tensor.Shape5(2)

	out, err := p.OutputShape([]tensor.Shape{conv, bias})
	if err != nil {
		t.Fatalf("negotiate: %v", err)
	}
	if out != conv {
		t.Fatalf("out=%v want %v", out, conv)
	}

	wrongDepth := tensor.Shape5(3)
	if _, err := p.OutputShape([]tensor.Shape{conv, wrongDepth}); !errors.Is(err, ErrBadShapes) {
		t.Fatalf("depth mismatch: got %v", err)
	}

	s := testStream(t)
	dst := make([]float32, 2)
	err = p.Enqueue(s, [][]float32{{5, 7}, {100, 200}}, dst, []tensor.Shape{conv, bias})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if dst[0] != 105 || dst[1] != 207 {
		t.Fatalf("dst=%v want [105 207]", dst)
	}
}
