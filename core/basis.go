package core

import (
	"gonum.org/v1/gonum/mat"
)

// BasisSize is the number of polynomial terms in a continuation fit: 1, x,
// and x², where x is the price scaled by the strike.
const BasisSize = 3

// Continuation evaluates fitted coefficients at moneyness x.
func Continuation(coef []float64, x float64) float64 {
	v := 0.0
	for i := len(coef) - 1; i >= 0; i-- {
		v = v*x + coef[i]
	}

	return v
}

// fitBasis solves the least-squares problem y ≈ Σ c_k x^k. It returns nil
// when the system cannot be solved.
func fitBasis(x, y []float64) []float64 {
	n := len(x)
	if n <= BasisSize {
		return nil
	}

	data := make([]float64, 0, n*BasisSize)
	for _, xi := range x {
		data = append(data, 1, xi, xi*xi)
	}

	a := mat.NewDense(n, BasisSize, data)
	b := mat.NewVecDense(n, y)

	var c mat.VecDense
	if err := c.SolveVec(a, b); err != nil {
		return nil
	}

	coef := make([]float64, BasisSize)
	for i := range coef {
		coef[i] = c.AtVec(i)
	}

	return coef
}
