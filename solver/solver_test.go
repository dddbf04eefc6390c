package solver

import (
	"math"
	"testing"
)

func TestCompileAndMulVec(t *testing.T) {
	b := NewBuilder(3)
	b.Add(0, 0, 2)
	b.Add(0, 1, -1)
	b.Add(1, 0, -1)
	b.Add(1, 1, 1)
	b.Add(1, 1, 1) // stamps accumulate
	b.Add(1, 2, -1)
	b.Add(2, 1, -1)
	b.Add(2, 2, 2)
	m := b.Compile()

	if m.Dim() != 3 {
		t.Fatalf("dim = %d", m.Dim())
	}
	y := make([]float64, 3)
	m.MulVec([]float64{1, 2, 3}, y)
	want := []float64{0, 0, 4}
	for i := range want {
		if y[i] != want[i] {
			t.Fatalf("y = %v, want %v", y, want)
		}
	}
}

func TestSolvePCGLaplacian(t *testing.T) {
	// 1D resistor chain with both ends tied down: -u'' = f discretized
	const n = 50
	b := NewBuilder(n)
	for i := 0; i < n; i++ {
		b.Add(i, i, 2)
		if i > 0 {
			b.Add(i, i-1, -1)
		}
		if i < n-1 {
			b.Add(i, i+1, -1)
		}
	}
	m := b.Compile()

	rhs := make([]float64, n)
	for i := range rhs {
		rhs[i] = 1
	}
	x := make([]float64, n)
	res, err := m.SolvePCG(rhs, x, 1e-10, 1000)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Iterations == 0 || res.Residual > 1e-10 {
		t.Fatalf("result = %+v", res)
	}

	// closed form: x_i = (i+1)(n-i)/2
	for i := 0; i < n; i++ {
		want := float64(i+1) * float64(n-i) / 2
		if math.Abs(x[i]-want) > 1e-6 {
			t.Fatalf("x[%d] = %g, want %g", i, x[i], want)
		}
	}
}

func TestSolvePCGZeroRHS(t *testing.T) {
	b := NewBuilder(2)
	b.Add(0, 0, 1)
	b.Add(1, 1, 1)
	m := b.Compile()

	x := []float64{5, -5}
	res, err := m.SolvePCG(make([]float64, 2), x, 1e-9, 10)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if x[0] != 0 || x[1] != 0 || res.Iterations != 0 {
		t.Fatalf("x = %v, res = %+v", x, res)
	}
}

func TestSolvePCGRejectsIndefinite(t *testing.T) {
	b := NewBuilder(2)
	b.Add(0, 0, -1)
	b.Add(1, 1, 1)
	m := b.Compile()

	if _, err := m.SolvePCG([]float64{1, 1}, make([]float64, 2), 1e-9, 10); err == nil {
		t.Fatal("expected error for indefinite matrix")
	}
}

func TestSolvePCGDimensionMismatch(t *testing.T) {
	b := NewBuilder(2)
	b.Add(0, 0, 1)
	b.Add(1, 1, 1)
	m := b.Compile()

	if _, err := m.SolvePCG([]float64{1}, make([]float64, 2), 1e-9, 10); err == nil {
		t.Fatal("expected dimension error")
	}
}

func TestBuilderRejectsOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewBuilder(2).Add(2, 0, 1)
}
