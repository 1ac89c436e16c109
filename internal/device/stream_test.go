package device

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestLaunchCoversEveryThreadOnce(t *testing.T) {
	s := NewStream()
	defer s.Destroy()

	const w, h = 37, 19
	seen := make([]atomic.Int32, w*h)
	cfg := LaunchConfig{
		Grid:  Dim3{X: BlockCount(w, 16), Y: BlockCount(h, 16), Z: 1},
		Block: Dim3{X: 16, Y: 16, Z: 1},
	}
	err := s.Launch("coverage", cfg, func(x, y, z int) {
		if x >= w || y >= h {
			return
		}
		seen[y*w+x].Add(1)
	})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if err := s.Synchronize(); err != nil {
		t.Fatalf("synchronize: %v", err)
	}
	for i := range seen {
		if got := seen[i].Load(); got != 1 {
			t.Fatalf("element %d visited %d times", i, got)
		}
	}
}

func TestLaunchOrderPreserved(t *testing.T) {
	s := NewStream(WithWorkers(1))
	defer s.Destroy()

	var order []int
	for i := 0; i < 8; i++ {
		i := i
		cfg := LaunchConfig{Grid: Dim1(1), Block: Dim1(1)}
		if err := s.Launch("order", cfg, func(x, y, z int) {
			order = append(order, i)
		}); err != nil {
			t.Fatalf("launch %d: %v", i, err)
		}
	}
	if err := s.Synchronize(); err != nil {
		t.Fatalf("synchronize: %v", err)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("launch order %v", order)
		}
	}
}

func TestGridLimitRejected(t *testing.T) {
	s := NewStream()
	defer s.Destroy()

	touched := false
	tests := []LaunchConfig{
		{Grid: Dim3{X: 1, Y: MaxGridY + 1, Z: 1}, Block: Dim1(1)},
		{Grid: Dim3{X: 1, Y: 1, Z: MaxGridZ + 1}, Block: Dim1(1)},
		{Grid: Dim3{X: 0, Y: 1, Z: 1}, Block: Dim1(1)},
		{Grid: Dim1(1), Block: Dim3{X: 32, Y: 32, Z: 2}},
	}
	for _, cfg := range tests {
		err := s.Launch("reject", cfg, func(x, y, z int) { touched = true })
		if !errors.Is(err, ErrLaunch) {
			t.Fatalf("cfg %+v: got %v want ErrLaunch", cfg, err)
		}
	}
	if err := s.Synchronize(); err != nil {
		t.Fatalf("synchronize: %v", err)
	}
	if touched {
		t.Fatal("rejected launch ran anyway")
	}
}

func TestExecutionFaultDebugMode(t *testing.T) {
	s := NewStream(WithSyncAfterLaunch(true))
	defer s.Destroy()

	cfg := LaunchConfig{Grid: Dim1(1), Block: Dim1(1)}
	err := s.Launch("oob", cfg, func(x, y, z int) {
		var buf []float32
		buf[3] = 1 // out of bounds on purpose
	})
	if !errors.Is(err, ErrExecution) {
		t.Fatalf("debug launch: got %v want ErrExecution", err)
	}
}

func TestExecutionFaultReleaseModeSurfacesLater(t *testing.T) {
	s := NewStream()
	defer s.Destroy()

	cfg := LaunchConfig{Grid: Dim1(1), Block: Dim1(1)}
	err := s.Launch("oob", cfg, func(x, y, z int) {
		panic("illegal access")
	})
	// Release mode: the faulting launch itself reports success.
	if err != nil {
		t.Fatalf("release launch: %v", err)
	}
	if err := s.Synchronize(); !errors.Is(err, ErrExecution) {
		t.Fatalf("synchronize: got %v want ErrExecution", err)
	}
	// The fault is sticky across later barriers.
	if err := s.Synchronize(); !errors.Is(err, ErrExecution) {
		t.Fatalf("second synchronize: got %v want ErrExecution", err)
	}
	// Fault reports the sticky error without blocking on a barrier.
	if err := s.Fault(); !errors.Is(err, ErrExecution) {
		t.Fatalf("fault: got %v want ErrExecution", err)
	}
}

func TestFaultNilOnHealthyStream(t *testing.T) {
	s := NewStream()
	defer s.Destroy()

	cfg := LaunchConfig{Grid: Dim1(1), Block: Dim1(1)}
	if err := s.Launch("ok", cfg, func(x, y, z int) {}); err != nil {
		t.Fatalf("launch: %v", err)
	}
	if err := s.Synchronize(); err != nil {
		t.Fatalf("synchronize: %v", err)
	}
	if err := s.Fault(); err != nil {
		t.Fatalf("fault on healthy stream: %v", err)
	}
}

func TestLaunchAfterDestroyFails(t *testing.T) {
	s := NewStream()
	s.Destroy()
	cfg := LaunchConfig{Grid: Dim1(1), Block: Dim1(1)}
	if err := s.Launch("late", cfg, func(x, y, z int) {}); !errors.Is(err, ErrLaunch) {
		t.Fatalf("got %v want ErrLaunch", err)
	}
}

func TestExecutionFaultWrapsPanicError(t *testing.T) {
	cause := errors.New("boom")
	err := executionFault("k", cause)
	if !errors.Is(err, ErrExecution) || !errors.Is(err, cause) {
		t.Fatalf("unexpected wrapping: %v", err)
	}
	err = executionFault("k", "panic text")
	if !errors.Is(err, ErrExecution) {
		t.Fatalf("unexpected wrapping: %v", err)
	}
}
