package fermi_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/JianboHIT/edoping/internal/consts"
	"github.com/JianboHIT/edoping/pkg/defect"
	"github.com/JianboHIT/edoping/pkg/dos"
	"github.com/JianboHIT/edoping/pkg/fermi"
	"github.com/JianboHIT/edoping/pkg/solver"
)

const testVolume = 1000.0 // A^3

// gappedTable builds a two-band DOS with a 2 eV gap: constant 10 states/eV
// below the VBM at 0 and above the CBM at 2 eV.
func gappedTable(t *testing.T) *dos.Table {
	t.Helper()
	const n = 801 // step 5 meV over [-1, 3]
	energy := make([]float64, n)
	states := make([]float64, n)
	for i := 0; i < n; i++ {
		e := -1 + 4*float64(i)/float64(n-1)
		energy[i] = e
		if e <= 0 || e >= 2 {
			states[i] = 10
		}
	}
	table, err := dos.New(energy, states)
	require.NoError(t, err)
	return table
}

// donorCurve is a shallow donor tabulated across the gap.
func donorCurve(t *testing.T) *defect.Curve {
	t.Helper()
	c, err := defect.NewCurve("V_X", testVolume, 1, []defect.ChargeState{
		{Q: +1, E0: 0.1},
		{Q: 0, E0: 2.5},
	})
	require.NoError(t, err)
	c.EFermi = floats.Span(make([]float64, 201), 0, 2)
	c.HMin = make([]float64, len(c.EFermi))
	for i, ef := range c.EFermi {
		c.HMin[i], _ = c.GroundState(ef)
	}
	return c
}

// TestSCFermiNeutrality solves the donor system and checks the solution
// actually balances the charges.
func TestSCFermiNeutrality(t *testing.T) {
	table := gappedTable(t)
	curve := donorCurve(t)
	cond := fermi.Condition{Temp: 1000}

	res, err := fermi.SCFermi([]*defect.Curve{curve}, table, cond)
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.Greater(t, res.EFermi, 0.0)
	require.Less(t, res.EFermi, 2.0)

	n, p := table.Carriers(res.EFermi, 1000, testVolume)
	require.Equal(t, res.NElectron, n)
	require.Equal(t, res.NHole, p)

	net := curve.NetChargeDensity(res.EFermi, 1000)
	require.Greater(t, net, 0.0) // a donor is positively charged
	residual := math.Abs(p - n + net)
	require.Less(t, residual, 1e-3*(p+n+net))

	require.Len(t, res.Defects, 1)
	require.Equal(t, "V_X", res.Defects[0].Name)
	require.Greater(t, res.Defects[0].NTotal, 0.0)
	require.InDelta(t, 1.0, res.Defects[0].Q, 0.05) // fully ionized shallow donor
}

// TestSCFermiDeterministic verifies repeated solves agree exactly.
func TestSCFermiDeterministic(t *testing.T) {
	table := gappedTable(t)
	curve := donorCurve(t)
	cond := fermi.Condition{Temp: 700}

	a, err := fermi.SCFermi([]*defect.Curve{curve}, table, cond)
	require.NoError(t, err)
	b, err := fermi.SCFermi([]*defect.Curve{curve}, table, cond)
	require.NoError(t, err)
	require.Equal(t, a.EFermi, b.EFermi)
}

// TestSCFermiIterationBudget starves the bisection of iterations: the best
// estimate must still come back, flagged as unconverged rather than failed.
func TestSCFermiIterationBudget(t *testing.T) {
	table := gappedTable(t)
	curve := donorCurve(t)
	cond := fermi.Condition{
		Temp:   1000,
		Solver: solver.Config{MaxIter: 2, XTol: 1e-15},
	}

	res, err := fermi.SCFermi([]*defect.Curve{curve}, table, cond)
	require.NoError(t, err)
	require.False(t, res.Converged)
	require.Greater(t, res.EFermi, 0.0)
	require.Less(t, res.EFermi, 2.0)
}

// TestSCFermiNoBracket restricts the window to a region where the residual
// keeps its sign.
func TestSCFermiNoBracket(t *testing.T) {
	table := gappedTable(t)
	curve := donorCurve(t)
	cond := fermi.Condition{Temp: 1000, EMin: 1.8, EMax: 2.0}

	_, err := fermi.SCFermi([]*defect.Curve{curve}, table, cond)
	require.ErrorIs(t, err, solver.ErrNoBracket)
}

// TestSCFermiConditionValidation covers the fatal input errors.
func TestSCFermiConditionValidation(t *testing.T) {
	table := gappedTable(t)
	curve := donorCurve(t)

	_, err := fermi.SCFermi(nil, table, fermi.Condition{Temp: 1000})
	require.ErrorIs(t, err, fermi.ErrBadCondition)

	_, err = fermi.SCFermi([]*defect.Curve{curve}, nil, fermi.Condition{Temp: 1000})
	require.ErrorIs(t, err, fermi.ErrBadCondition)

	_, err = fermi.SCFermi([]*defect.Curve{curve}, table, fermi.Condition{})
	require.ErrorIs(t, err, fermi.ErrBadCondition)

	_, err = fermi.SCFermi([]*defect.Curve{curve}, table, fermi.Condition{Temp: 1000, EMin: 1, EMax: 0.5})
	require.ErrorIs(t, err, fermi.ErrBadCondition)
}

// TestFZFermiRecoversFermiLevel pins the carrier concentration to the value
// the DOS model produces at a known Fermi level and checks the inversion.
func TestFZFermiRecoversFermiLevel(t *testing.T) {
	table := gappedTable(t)
	const temp = 1000.0

	nWant, _ := table.Carriers(1.5, temp, testVolume)
	res, err := fermi.FZFermi(nWant, +1, testVolume, table, fermi.Condition{Temp: temp})
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.InDelta(t, 1.5, res.EFermi, 1e-4)

	// H(Ef) line identity and the dilute-limit inversion
	require.InDelta(t, res.HQ, res.H0+1*res.EFermi, 1e-9)
	kt := consts.KB_EV * temp
	perCell := nWant * testVolume * consts.CM3_PER_A3
	require.InDelta(t, -kt*math.Log(perCell), res.HQ, 1e-9)
}

// TestFZFermiHoleBranch verifies a negative defect charge pins holes instead.
func TestFZFermiHoleBranch(t *testing.T) {
	table := gappedTable(t)
	const temp = 800.0

	_, pWant := table.Carriers(0.4, temp, testVolume)
	res, err := fermi.FZFermi(pWant, -2, testVolume, table, fermi.Condition{Temp: temp})
	require.NoError(t, err)
	require.InDelta(t, 0.4, res.EFermi, 1e-4)
}

// TestFZFermiIterationBudget mirrors the starved-bisection case for the
// fixed-carrier solver.
func TestFZFermiIterationBudget(t *testing.T) {
	table := gappedTable(t)
	nWant, _ := table.Carriers(1.5, 1000, testVolume)
	cond := fermi.Condition{
		Temp:   1000,
		Solver: solver.Config{MaxIter: 2, XTol: 1e-15},
	}

	res, err := fermi.FZFermi(nWant, +1, testVolume, table, cond)
	require.NoError(t, err)
	require.False(t, res.Converged)
}

// TestFZFermiValidation covers the fatal input errors.
func TestFZFermiValidation(t *testing.T) {
	table := gappedTable(t)
	cond := fermi.Condition{Temp: 1000}

	_, err := fermi.FZFermi(0, 1, testVolume, table, cond)
	require.ErrorIs(t, err, fermi.ErrBadCondition)

	_, err = fermi.FZFermi(1e18, 0, testVolume, table, cond)
	require.ErrorIs(t, err, fermi.ErrBadCondition)

	_, err = fermi.FZFermi(1e18, 1, -5, table, cond)
	require.ErrorIs(t, err, fermi.ErrBadCondition)

	_, err = fermi.FZFermi(1e18, 1, testVolume, table, fermi.Condition{})
	require.ErrorIs(t, err, fermi.ErrBadCondition)
}
