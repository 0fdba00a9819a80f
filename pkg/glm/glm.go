// Package glm implements the numerically specified GLM fitting primitives
// spec §1/§4.5 treats as a library rather than the hard part:
// solve_betas, abs_effect_size, std_effect_size, stdev, and the
// t-statistic. All accumulation happens in float64; callers downcast to
// float32 only when writing results to disk (spec §9's numerical-stability
// note).
package glm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Fit precomputes the pieces of the design matrix shared across every
// fixel's regression, so fitting num_fixels rows against the same design
// only solves one (XtX)^-1 rather than re-deriving it per fixel.
type Fit struct {
	design  *mat.Dense // S x P
	designT *mat.Dense // P x S
	xtxInv  *mat.Dense // P x P
	dof     float64
}

// Prepare solves (X^T X)^-1 once for design (S x P). It returns an error if
// the design is rank-deficient (X^T X singular) — degrees of freedom must
// be strictly positive for the fit to be meaningful.
func Prepare(design *mat.Dense) (*Fit, error) {
	s, p := design.Dims()
	if s <= p {
		return nil, fmt.Errorf("glm: %d subjects insufficient for %d design columns", s, p)
	}

	designT := mat.DenseCopyOf(design.T())
	xtx := mat.NewDense(p, p, nil)
	xtx.Mul(designT, design)

	xtxInv := mat.NewDense(p, p, nil)
	if err := xtxInv.Inverse(xtx); err != nil {
		return nil, fmt.Errorf("glm: design matrix is rank-deficient: %w", err)
	}

	return &Fit{design: design, designT: designT, xtxInv: xtxInv, dof: float64(s - p)}, nil
}

// Dims returns the (numSubjects, numDesignColumns) shape of the design this
// fit was prepared from.
func (f *Fit) Dims() (int, int) {
	return f.design.Dims()
}

// Solve computes solve_betas and stdev for a single fixel's response
// vector y (length S): beta = (X^T X)^-1 X^T y, residual variance
// sigma2 = ||y - X*beta||^2 / dof.
func (f *Fit) Solve(y []float64) (beta []float64, sigma2 float64) {
	s, p := f.design.Dims()
	yVec := mat.NewVecDense(s, y)

	xty := mat.NewVecDense(p, nil)
	xty.MulVec(f.designT, yVec)

	betaVec := mat.NewVecDense(p, nil)
	betaVec.MulVec(f.xtxInv, xty)

	fitted := mat.NewVecDense(s, nil)
	fitted.MulVec(f.design, betaVec)

	var ss float64
	for i := 0; i < s; i++ {
		r := y[i] - fitted.AtVec(i)
		ss += r * r
	}

	beta = make([]float64, p)
	for i := range beta {
		beta[i] = betaVec.AtVec(i)
	}
	return beta, ss / f.dof
}

// WithDesign returns a Fit for a row-permuted design matrix, reusing the
// already-computed (X^T X)^-1 rather than re-inverting it. This is sound
// because X^T X is invariant under any permutation of X's rows — the
// permutation test shuffles which subject's covariates pair with which
// fixel response, not the sum the inverse is built from.
func (f *Fit) WithDesign(permutedDesign *mat.Dense) *Fit {
	return &Fit{
		design:  permutedDesign,
		designT: mat.DenseCopyOf(permutedDesign.T()),
		xtxInv:  f.xtxInv,
		dof:     f.dof,
	}
}

// AbsEffectSize returns c . beta for contrast row c.
func AbsEffectSize(contrast, beta []float64) float64 {
	var sum float64
	for i := range beta {
		sum += contrast[i] * beta[i]
	}
	return sum
}

// StdEffectSize returns the absolute effect size standardised by stdev
// (sqrt of sigma2). Returns 0 when stdev is 0 rather than dividing by zero.
func StdEffectSize(absEffect, stdev float64) float64 {
	if stdev == 0 {
		return 0
	}
	return absEffect / stdev
}

// Stdev returns sqrt(sigma2).
func Stdev(sigma2 float64) float64 {
	return math.Sqrt(sigma2)
}

// TStatistic computes t = (c.beta) / sqrt(sigma2 * c (X^T X)^-1 c^T) for
// contrast row c, given beta and sigma2 from Solve. Returns 0 when the
// variance term is non-positive (a degenerate contrast or a fixel with no
// residual variance at all) rather than propagating NaN/Inf into CFE.
func (f *Fit) TStatistic(contrast []float64, beta []float64, sigma2 float64) float64 {
	p := len(contrast)
	c := mat.NewVecDense(p, contrast)

	tmp := mat.NewVecDense(p, nil)
	tmp.MulVec(f.xtxInv, c)

	var inner float64
	for i := 0; i < p; i++ {
		inner += c.AtVec(i) * tmp.AtVec(i)
	}

	variance := sigma2 * inner
	if variance <= 0 {
		return 0
	}

	return AbsEffectSize(contrast, beta) / math.Sqrt(variance)
}
