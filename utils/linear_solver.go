package utils

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrNotConverged is matched by every ConvergenceError
var ErrNotConverged = errors.New("linear solve did not converge")

// ConvergenceError reports a failed linear solve
type ConvergenceError struct {
	Iterations int
	Residual   float64 // Relative residual at exit
	Reason     string
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s after %d iterations (relative residual %.3e)", e.Reason, e.Iterations, e.Residual)
}

func (e *ConvergenceError) Is(target error) bool { return target == ErrNotConverged }

// SolveStats describes a completed solve
type SolveStats struct {
	Iterations int
	Residual   float64
}

// LinearSolver solves A x = b for a symmetric positive definite A. Any
// backend, direct or iterative, can be plugged in behind it.
type LinearSolver interface {
	Solve(A CSR, b []float64) (x []float64, stats SolveStats, err error)
}

// MulVecToer is a square operator known only through its products, the form
// taken by gonum's iterative solvers
type MulVecToer interface {
	MulVecTo(dst *mat.VecDense, trans bool, x mat.Vector)
}

// PreconSolve stores into dst the solution of M dst = rhs (M^T when trans)
type PreconSolve func(dst *mat.VecDense, rhs mat.Vector, trans bool) error

// Jacobi is the diagonal preconditioner solve for the given diagonal
func Jacobi(diag []float64) PreconSolve {
	d := mat.NewVecDense(len(diag), diag)
	return func(dst *mat.VecDense, rhs mat.Vector, _ bool) error {
		dst.DivElemVec(rhs, d)
		return nil
	}
}

// ConjugateGradient is a preconditioned conjugate gradient solver, Jacobi
// preconditioned unless Precon is set
type ConjugateGradient struct {
	Tolerance     float64 // Relative residual target, default 1e-10
	MaxIterations int     // Default 10*N + 100
	Precon        PreconSolve
}

// NewConjugateGradient returns a solver with the default settings
func NewConjugateGradient() *ConjugateGradient {
	return &ConjugateGradient{Tolerance: 1.e-10}
}

func (cg *ConjugateGradient) Solve(A CSR, b []float64) (x []float64, stats SolveStats, err error) {
	n, nc := A.Dims()
	if n != nc || n != len(b) {
		err = fmt.Errorf("dimension mismatch: A is %dx%d, b has %d entries", n, nc, len(b))
		return
	}
	if n == 0 {
		return []float64{}, stats, nil
	}
	precon := cg.Precon
	if precon == nil {
		diag := A.Diagonal()
		for i, d := range diag {
			if !(d > 0) {
				err = &ConvergenceError{
					Reason: fmt.Sprintf("non-positive diagonal entry %g at row %d, matrix is not SPD", d, i),
				}
				return
			}
		}
		precon = Jacobi(diag)
	}
	bv := mat.NewVecDense(n, nil)
	bv.CopyVec(mat.NewVecDense(n, b))
	xv, stats, err := cg.Iterate(A, bv, precon)
	if xv != nil {
		x = xv.RawVector().Data
	}
	return
}

// Iterate runs preconditioned conjugate gradients on a x = b from x = 0
func (cg *ConjugateGradient) Iterate(a MulVecToer, b *mat.VecDense, precon PreconSolve) (x *mat.VecDense, stats SolveStats, err error) {
	var (
		n       = b.Len()
		tol     = cg.Tolerance
		maxIter = cg.MaxIterations
	)
	if tol <= 0 {
		tol = 1.e-10
	}
	if maxIter <= 0 {
		maxIter = 10*n + 100
	}
	x = mat.NewVecDense(n, nil)
	bNorm := mat.Norm(b, 2)
	if bNorm == 0 {
		return
	}
	var (
		r  = mat.VecDenseCopyOf(b)
		z  = mat.NewVecDense(n, nil)
		p  = mat.NewVecDense(n, nil)
		Ap = mat.NewVecDense(n, nil)
	)
	if err = precon(z, r, false); err != nil {
		err = fmt.Errorf("preconditioner: %w", err)
		return
	}
	p.CopyVec(z)
	rz := mat.Dot(r, z)

	for it := 1; it <= maxIter; it++ {
		a.MulVecTo(Ap, false, p)
		pAp := mat.Dot(p, Ap)
		if !(pAp > 0) {
			err = &ConvergenceError{Iterations: it, Residual: mat.Norm(r, 2) / bNorm,
				Reason: "breakdown: search direction has non-positive curvature, matrix is singular or indefinite"}
			return
		}
		alpha := rz / pAp
		x.AddScaledVec(x, alpha, p)
		r.AddScaledVec(r, -alpha, Ap)

		res := mat.Norm(r, 2) / bNorm
		stats = SolveStats{Iterations: it, Residual: res}
		if math.IsNaN(res) {
			err = &ConvergenceError{Iterations: it, Residual: res, Reason: "residual is NaN"}
			return
		}
		if res <= tol {
			return
		}

		if err = precon(z, r, false); err != nil {
			err = fmt.Errorf("preconditioner: %w", err)
			return
		}
		rzNew := mat.Dot(r, z)
		p.AddScaledVec(z, rzNew/rz, p)
		rz = rzNew
	}
	err = &ConvergenceError{Iterations: stats.Iterations, Residual: stats.Residual,
		Reason: "iteration limit reached"}
	return
}
