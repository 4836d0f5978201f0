package utils

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"
	"gonum.org/v1/gonum/mat"
)

// DOK is an assembly matrix, entries are accumulated with AddTo and the
// matrix is frozen into CSR for solving
type DOK struct {
	M        *sparse.DOK
	readOnly bool
	name     string
}

func NewDOK(nr, nc int) (R DOK) {
	R = DOK{
		sparse.NewDOK(nr, nc),
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m DOK) Dims() (r, c int)    { return m.M.Dims() }
func (m DOK) At(i, j int) float64 { return m.M.At(i, j) }
func (m DOK) T() mat.Matrix       { return m.M.T() }

// AddTo accumulates val into entry (i, j)
func (m DOK) AddTo(i, j int, val float64) {
	m.checkWritable()
	m.M.Set(i, j, m.M.At(i, j)+val)
}

func (m *DOK) SetReadOnly(name ...string) {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
}

func (m DOK) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}

func (m DOK) ToCSR() CSR {
	return CSR{
		M:        m.M.ToCSR(),
		readOnly: true,
		name:     m.name,
	}
}

// CSR is a compressed sparse row matrix used for matrix-vector products
type CSR struct {
	M        *sparse.CSR
	readOnly bool
	name     string
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m CSR) Dims() (r, c int)              { return m.M.Dims() }
func (m CSR) At(i, j int) float64           { return m.M.At(i, j) }
func (m CSR) T() mat.Matrix                 { return m.M.T() }
func (m CSR) RawMatrix() *blas.SparseMatrix { return m.M.RawMatrix() }
func (m CSR) Data() []float64 {
	return m.RawMatrix().Data
}
func (m CSR) Name() string { return m.name }

// NNZ returns the number of stored entries
func (m CSR) NNZ() int { return len(m.RawMatrix().Data) }

// MulVecTo computes dst = A*x or dst = A^T*x through the sparse BLAS
// product. It satisfies MulVecToer.
func (m CSR) MulVecTo(dst *mat.VecDense, trans bool, x mat.Vector) {
	var xs []float64
	if xv, ok := x.(*mat.VecDense); ok && xv.RawVector().Inc == 1 {
		xs = xv.RawVector().Data[:xv.Len()]
	} else {
		xs = mat.Col(nil, 0, x)
	}
	dst.Zero()
	m.M.MulVecTo(dst.RawVector().Data[:dst.Len()], trans, xs)
}

// Diagonal returns the main diagonal
func (m CSR) Diagonal() (d []float64) {
	r, _ := m.Dims()
	d = make([]float64, r)
	m.M.DoNonZero(func(i, j int, v float64) {
		if i == j {
			d[i] += v
		}
	})
	return
}
