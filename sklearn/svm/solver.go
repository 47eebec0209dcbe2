package svm

import (
	"context"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ezoic/tasador/core/parallel"
	"github.com/ezoic/tasador/pkg/errors"
)

const (
	tau = 1e-12

	// kernel rows shorter than this are computed on one goroutine
	parallelRowThreshold = 2048
)

// kernelCache serves rows of the training kernel matrix, keeping the most
// recently used rows in memory.
type kernelCache struct {
	x      [][]float64
	kernel kernelFunc
	rows   *lru.Cache[int, []float64]
	diag   []float64
}

func newKernelCache(x [][]float64, kernel kernelFunc, cacheMB float64) (*kernelCache, error) {
	l := len(x)
	size := int(cacheMB * (1 << 20) / float64(8*l))
	if size < 2 {
		size = 2
	}
	if size > l {
		size = l
	}
	rows, err := lru.New[int, []float64](size)
	if err != nil {
		return nil, errors.Wrap(err, "kernel cache")
	}
	diag := make([]float64, l)
	for i := range diag {
		diag[i] = kernel(x[i], x[i])
	}
	return &kernelCache{x: x, kernel: kernel, rows: rows, diag: diag}, nil
}

func (k *kernelCache) row(i int) []float64 {
	if r, ok := k.rows.Get(i); ok {
		return r
	}
	r := make([]float64, len(k.x))
	xi := k.x[i]
	parallel.ParallelizeWithThreshold(len(k.x), parallelRowThreshold, func(start, end int) {
		for j := start; j < end; j++ {
			r[j] = k.kernel(xi, k.x[j])
		}
	})
	k.rows.Add(i, r)
	return r
}

// solverResult is the dual solution of the epsilon-SVR problem.
type solverResult struct {
	coef       []float64 // alpha+ minus alpha- per training row
	rho        float64
	iterations int
	converged  bool
}

// smo solves the epsilon-SVR dual with sequential minimal optimization,
// using second-order working-set selection.
//
// The problem is written over 2l variables: the first l carry label +1 and
// linear term epsilon - z, the last l carry label -1 and epsilon + z. Q is
// y_i y_j K(i mod l, j mod l) and every variable is boxed in [0, C].
type smo struct {
	l     int
	cache *kernelCache
	c     float64
	tol   float64

	alpha []float64
	y     []float64
	grad  []float64
	qd    []float64

	// signed Q rows for the two working variables
	bufI, bufJ []float64
}

func newSMO(cache *kernelCache, z []float64, c, epsilon, tol float64) *smo {
	l := len(z)
	s := &smo{
		l:     l,
		cache: cache,
		c:     c,
		tol:   tol,
		alpha: make([]float64, 2*l),
		y:     make([]float64, 2*l),
		grad:  make([]float64, 2*l),
		qd:    make([]float64, 2*l),
		bufI:  make([]float64, 2*l),
		bufJ:  make([]float64, 2*l),
	}
	for i := 0; i < l; i++ {
		s.y[i], s.y[i+l] = 1, -1
		// alpha starts at zero so the gradient is the linear term
		s.grad[i] = epsilon - z[i]
		s.grad[i+l] = epsilon + z[i]
		s.qd[i] = cache.diag[i]
		s.qd[i+l] = cache.diag[i]
	}
	return s
}

func (s *smo) upper(t int) bool { return s.alpha[t] >= s.c }
func (s *smo) lower(t int) bool { return s.alpha[t] <= 0 }

// q fills buf with row t of the signed Q matrix.
func (s *smo) q(t int, buf []float64) []float64 {
	k := s.cache.row(t % s.l)
	yt := s.y[t]
	for j := 0; j < s.l; j++ {
		buf[j] = yt * k[j]
		buf[j+s.l] = -yt * k[j]
	}
	return buf
}

// selectWorkingSet returns the pair to optimize, or ok=false at optimality.
func (s *smo) selectWorkingSet() (int, int, bool) {
	gmax, gmax2 := math.Inf(-1), math.Inf(-1)
	i := -1
	for t := range s.alpha {
		if s.y[t] > 0 {
			if !s.upper(t) && -s.grad[t] >= gmax {
				gmax, i = -s.grad[t], t
			}
		} else if !s.lower(t) && s.grad[t] >= gmax {
			gmax, i = s.grad[t], t
		}
	}
	if i == -1 {
		return -1, -1, false
	}

	qi := s.q(i, s.bufI)
	j := -1
	best := math.Inf(1)
	for t := range s.alpha {
		var gradDiff, quad float64
		if s.y[t] > 0 {
			if s.lower(t) {
				continue
			}
			if s.grad[t] >= gmax2 {
				gmax2 = s.grad[t]
			}
			gradDiff = gmax + s.grad[t]
			quad = s.qd[i] + s.qd[t] - 2*s.y[i]*qi[t]
		} else {
			if s.upper(t) {
				continue
			}
			if -s.grad[t] >= gmax2 {
				gmax2 = -s.grad[t]
			}
			gradDiff = gmax - s.grad[t]
			quad = s.qd[i] + s.qd[t] + 2*s.y[i]*qi[t]
		}
		if gradDiff <= 0 {
			continue
		}
		if quad <= 0 {
			quad = tau
		}
		if obj := -(gradDiff * gradDiff) / quad; obj <= best {
			best, j = obj, t
		}
	}

	if gmax+gmax2 < s.tol || j == -1 {
		return -1, -1, false
	}
	return i, j, true
}

// update optimizes alpha[i] and alpha[j] analytically and refreshes the
// gradient.
func (s *smo) update(i, j int) {
	qi := s.q(i, s.bufI)
	qj := s.q(j, s.bufJ)
	c := s.c
	oldI, oldJ := s.alpha[i], s.alpha[j]

	if s.y[i] != s.y[j] {
		quad := s.qd[i] + s.qd[j] + 2*qi[j]
		if quad <= 0 {
			quad = tau
		}
		delta := (-s.grad[i] - s.grad[j]) / quad
		diff := s.alpha[i] - s.alpha[j]
		s.alpha[i] += delta
		s.alpha[j] += delta
		if diff > 0 {
			if s.alpha[j] < 0 {
				s.alpha[j], s.alpha[i] = 0, diff
			}
		} else if s.alpha[i] < 0 {
			s.alpha[i], s.alpha[j] = 0, -diff
		}
		if diff > 0 {
			if s.alpha[i] > c {
				s.alpha[i], s.alpha[j] = c, c-diff
			}
		} else if s.alpha[j] > c {
			s.alpha[j], s.alpha[i] = c, c+diff
		}
	} else {
		quad := s.qd[i] + s.qd[j] - 2*qi[j]
		if quad <= 0 {
			quad = tau
		}
		delta := (s.grad[i] - s.grad[j]) / quad
		sum := s.alpha[i] + s.alpha[j]
		s.alpha[i] -= delta
		s.alpha[j] += delta
		if sum > c {
			if s.alpha[i] > c {
				s.alpha[i], s.alpha[j] = c, sum-c
			}
		} else if s.alpha[j] < 0 {
			s.alpha[j], s.alpha[i] = 0, sum
		}
		if sum > c {
			if s.alpha[j] > c {
				s.alpha[j], s.alpha[i] = c, sum-c
			}
		} else if s.alpha[i] < 0 {
			s.alpha[i], s.alpha[j] = 0, sum
		}
	}

	dI, dJ := s.alpha[i]-oldI, s.alpha[j]-oldJ
	for t := range s.grad {
		s.grad[t] += qi[t]*dI + qj[t]*dJ
	}
}

// rho is the offset of the decision function: the mean of y*grad over free
// variables, or the midpoint of the feasible interval when none are free.
func (s *smo) rho() float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	var sumFree float64
	nFree := 0
	for t := range s.alpha {
		yg := s.y[t] * s.grad[t]
		switch {
		case s.upper(t):
			if s.y[t] < 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		case s.lower(t):
			if s.y[t] > 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		default:
			nFree++
			sumFree += yg
		}
	}
	if nFree > 0 {
		return sumFree / float64(nFree)
	}
	return (ub + lb) / 2
}

// solve iterates until the KKT gap drops below tol, maxIter is reached or
// ctx is cancelled.
func (s *smo) solve(ctx context.Context, maxIter int) (*solverResult, error) {
	res := &solverResult{}
	for res.iterations < maxIter {
		if res.iterations%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(err, "svr solver")
			}
		}
		i, j, ok := s.selectWorkingSet()
		if !ok {
			res.converged = true
			break
		}
		s.update(i, j)
		res.iterations++
	}

	res.rho = s.rho()
	res.coef = make([]float64, s.l)
	for i := 0; i < s.l; i++ {
		res.coef[i] = s.alpha[i] - s.alpha[i+s.l]
	}
	return res, nil
}
