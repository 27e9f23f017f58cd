// Package solver provides the scalar bracketing root-finder shared by the
// self-consistent and fixed-carrier Fermi level solvers.
package solver

import (
	"errors"
	"math"

	"github.com/JianboHIT/edoping/internal/consts"
)

var (
	// ErrNoBracket indicates the residual has the same sign at both interval
	// ends, so no root is guaranteed inside the interval.
	ErrNoBracket = errors.New("solver: residual does not change sign over the interval")
	// ErrNoConvergence indicates the iteration budget ran out before the
	// requested tolerance was reached. The returned root is the best estimate.
	ErrNoConvergence = errors.New("solver: iteration budget exhausted")
)

type Config struct {
	MaxIter int     // iteration cap
	XTol    float64 // absolute tolerance on the root position
}

func DefaultConfig() Config {
	return Config{
		MaxIter: 128,
		XTol:    consts.DEFAULT_TOL,
	}
}

// Bisect finds x in [a, b] with f(x) = 0 by interval halving. f(a) and f(b)
// must have opposite signs, otherwise ErrNoBracket is returned. When the
// iteration cap is hit first, the midpoint reached so far is returned
// together with ErrNoConvergence.
func Bisect(f func(float64) float64, a, b float64, cfg Config) (float64, error) {
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = DefaultConfig().MaxIter
	}
	if cfg.XTol <= 0 {
		cfg.XTol = DefaultConfig().XTol
	}
	if a > b {
		a, b = b, a
	}

	fa := f(a)
	fb := f(b)
	if fa == 0 {
		return a, nil
	}
	if fb == 0 {
		return b, nil
	}
	if math.Signbit(fa) == math.Signbit(fb) {
		return 0, ErrNoBracket
	}

	x := 0.5 * (a + b)
	for iter := 0; iter < cfg.MaxIter; iter++ {
		fx := f(x)
		if fx == 0 {
			return x, nil
		}
		if math.Signbit(fx) == math.Signbit(fa) {
			a, fa = x, fx
		} else {
			b = x
		}
		x = 0.5 * (a + b)
		if b-a < cfg.XTol {
			return x, nil
		}
	}
	return x, ErrNoConvergence
}
