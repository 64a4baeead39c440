package features

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// dctMatrix returns the n x n matrix D such that x·D is the DCT-II of the
// row vector x scaled by 1/sqrt(2n):
//
//	y[k] = 2 * sum_i x[i] * cos(pi*k*(2i+1)/(2n)) / sqrt(2n)
func dctMatrix(n int) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	scale := 2 / math.Sqrt(2*float64(n))
	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			d.Set(i, k, scale*math.Cos(math.Pi*float64(k)*float64(2*i+1)/float64(2*n)))
		}
	}
	return d
}
