package solver_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JianboHIT/edoping/pkg/solver"
)

// TestBisectFindsRoot verifies convergence to a known irrational root.
func TestBisectFindsRoot(t *testing.T) {
	f := func(x float64) float64 { return x*x - 2 }
	root, err := solver.Bisect(f, 0, 2, solver.DefaultConfig())
	require.NoError(t, err)
	require.InDelta(t, math.Sqrt2, root, 1e-6)
}

// TestBisectSwappedInterval verifies the interval may be given in any order.
func TestBisectSwappedInterval(t *testing.T) {
	f := func(x float64) float64 { return x - 1 }
	root, err := solver.Bisect(f, 3, 0, solver.DefaultConfig())
	require.NoError(t, err)
	require.InDelta(t, 1.0, root, 1e-6)
}

// TestBisectEndpointRoot verifies exact roots at interval ends are returned
// directly.
func TestBisectEndpointRoot(t *testing.T) {
	f := func(x float64) float64 { return x }
	root, err := solver.Bisect(f, 0, 5, solver.DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, 0.0, root)
}

// TestBisectNoBracket verifies that a residual with no sign change is
// rejected.
func TestBisectNoBracket(t *testing.T) {
	f := func(x float64) float64 { return x*x + 1 }
	_, err := solver.Bisect(f, -1, 1, solver.DefaultConfig())
	require.ErrorIs(t, err, solver.ErrNoBracket)
}

// TestBisectIterationBudget verifies the best estimate is returned with
// ErrNoConvergence when the cap is too small for the tolerance.
func TestBisectIterationBudget(t *testing.T) {
	f := func(x float64) float64 { return x - math.Pi }
	cfg := solver.Config{MaxIter: 3, XTol: 1e-12}
	root, err := solver.Bisect(f, 0, 4, cfg)
	require.ErrorIs(t, err, solver.ErrNoConvergence)
	require.InDelta(t, math.Pi, root, 4.0/8) // 3 halvings of a width-4 interval
}

// TestBisectDeterministic verifies identical inputs give identical roots.
func TestBisectDeterministic(t *testing.T) {
	f := func(x float64) float64 { return math.Cos(x) - x }
	a, err := solver.Bisect(f, 0, 1, solver.DefaultConfig())
	require.NoError(t, err)
	b, err := solver.Bisect(f, 0, 1, solver.DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, a, b)
}
