// Package solver implements a sparse symmetric positive definite linear
// solver: coefficient stamping into a compressed sparse row matrix and a
// Jacobi preconditioned conjugate gradient iteration. Both the quadratic
// placement and the power grid analysis reduce to systems of this kind.
package solver

import (
	"fmt"
	"math"
	"slices"
)

// Builder accumulates coefficient stamps before compilation. Stamping the
// same position twice adds the values, which is how conductance matrices
// are assembled.
type Builder struct {
	n       int
	entries map[[2]int]float64
}

func NewBuilder(n int) *Builder {
	return &Builder{n: n, entries: make(map[[2]int]float64)}
}

func (b *Builder) Add(row, col int, v float64) {
	if row < 0 || row >= b.n || col < 0 || col >= b.n {
		panic(fmt.Sprintf("stamp (%d,%d) outside %dx%d matrix", row, col, b.n, b.n))
	}
	b.entries[[2]int{row, col}] += v
}

// Compile produces the CSR form. Zero entries stay in the structure, they
// are harmless and keep compilation simple.
func (b *Builder) Compile() *Matrix {
	keys := make([][2]int, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(x, y [2]int) int {
		if x[0] != y[0] {
			return x[0] - y[0]
		}
		return x[1] - y[1]
	})

	m := &Matrix{
		n:      b.n,
		rowPtr: make([]int, b.n+1),
		cols:   make([]int, len(keys)),
		vals:   make([]float64, len(keys)),
	}
	for i, k := range keys {
		m.rowPtr[k[0]+1]++
		m.cols[i] = k[1]
		m.vals[i] = b.entries[k]
	}
	for i := 1; i <= b.n; i++ {
		m.rowPtr[i] += m.rowPtr[i-1]
	}
	return m
}

// Matrix is a square sparse matrix in compressed sparse row form.
type Matrix struct {
	n      int
	rowPtr []int
	cols   []int
	vals   []float64
}

func (m *Matrix) Dim() int {
	return m.n
}

// MulVec computes y = M x.
func (m *Matrix) MulVec(x, y []float64) {
	for i := 0; i < m.n; i++ {
		var sum float64
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			sum += m.vals[k] * x[m.cols[k]]
		}
		y[i] = sum
	}
}

func (m *Matrix) diagonal() ([]float64, error) {
	d := make([]float64, m.n)
	for i := 0; i < m.n; i++ {
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			if m.cols[k] == i {
				d[i] = m.vals[k]
			}
		}
		if d[i] <= 0 {
			return nil, fmt.Errorf("matrix is not positive definite: diagonal[%d] = %g", i, d[i])
		}
	}
	return d, nil
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Result carries convergence data of one solve.
type Result struct {
	Iterations int
	Residual   float64
}

// SolvePCG solves M x = rhs with conjugate gradients and a Jacobi
// preconditioner. x holds the initial guess on entry and the solution on
// return. Iteration stops when the 2-norm of the residual relative to rhs
// drops below tol.
func (m *Matrix) SolvePCG(rhs, x []float64, tol float64, maxIter int) (Result, error) {
	if len(rhs) != m.n || len(x) != m.n {
		return Result{}, fmt.Errorf("dimension mismatch: matrix %d, rhs %d, x %d", m.n, len(rhs), len(x))
	}
	diag, err := m.diagonal()
	if err != nil {
		return Result{}, err
	}

	bnorm := math.Sqrt(dot(rhs, rhs))
	if bnorm == 0 {
		clear(x)
		return Result{}, nil
	}

	r := make([]float64, m.n)
	z := make([]float64, m.n)
	p := make([]float64, m.n)
	ap := make([]float64, m.n)

	m.MulVec(x, r)
	for i := range r {
		r[i] = rhs[i] - r[i]
		z[i] = r[i] / diag[i]
	}
	copy(p, z)
	rz := dot(r, z)

	var res Result
	for res.Iterations = 0; res.Iterations < maxIter; res.Iterations++ {
		res.Residual = math.Sqrt(dot(r, r)) / bnorm
		if res.Residual < tol {
			return res, nil
		}

		m.MulVec(p, ap)
		pap := dot(p, ap)
		if pap <= 0 {
			return res, fmt.Errorf("iteration %d: matrix is not positive definite", res.Iterations)
		}
		alpha := rz / pap
		for i := range x {
			x[i] += alpha * p[i]
			r[i] -= alpha * ap[i]
			z[i] = r[i] / diag[i]
		}
		rzNext := dot(r, z)
		beta := rzNext / rz
		rz = rzNext
		for i := range p {
			p[i] = z[i] + beta*p[i]
		}
	}
	res.Residual = math.Sqrt(dot(r, r)) / bnorm
	if res.Residual >= tol {
		return res, fmt.Errorf("no convergence after %d iterations, residual %g", res.Iterations, res.Residual)
	}
	return res, nil
}
