package dataset

import (
	"math/rand/v2"

	"github.com/ezoic/tasador/pkg/errors"
)

// TrainTestSplit shuffles [0, n) with seed and returns train and test row
// indices, the test part holding round(n*testRatio) rows.
func TrainTestSplit(n int, testRatio float64, seed uint64) (train, test []int, err error) {
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, errors.NewValidationError("test_ratio", "must be in (0, 1)", testRatio)
	}
	nTest := int(float64(n)*testRatio + 0.5)
	if nTest == 0 || nTest == n {
		return nil, nil, errors.NewValueError("TrainTestSplit",
			"not enough rows to hold out a test set")
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	perm := rng.Perm(n)
	return perm[nTest:], perm[:nTest], nil
}
