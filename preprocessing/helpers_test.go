package preprocessing_test

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

func rowOf(m mat.Matrix, i int) []float64 {
	_, c := m.Dims()
	out := make([]float64, c)
	for j := range out {
		out[j] = m.At(i, j)
	}
	return out
}

func colOf(m mat.Matrix, j int) []float64 {
	r, _ := m.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = m.At(i, j)
	}
	return out
}

func typeName(v interface{}) string {
	return fmt.Sprintf("%T", v)
}
