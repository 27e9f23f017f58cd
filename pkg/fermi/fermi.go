// Package fermi solves for equilibrium Fermi levels. SCFermi imposes charge
// neutrality between free carriers and thermally populated defects; FZFermi
// instead clamps the free-carrier concentration to an external value and
// inverts a single defect's formation energy from it.
package fermi

import (
	"errors"
	"fmt"
	"math"

	"github.com/JianboHIT/edoping/internal/consts"
	"github.com/JianboHIT/edoping/pkg/defect"
	"github.com/JianboHIT/edoping/pkg/dos"
	"github.com/JianboHIT/edoping/pkg/solver"
)

// ErrBadCondition indicates an unusable solve condition.
var ErrBadCondition = errors.New("fermi: invalid solve condition")

// Condition holds the solve parameters. Zero-valued bounds and volume are
// derived from the inputs: the search window from the intersection of the
// curves' tabulated windows (SCFermi) or the DOS range (FZFermi), the volume
// from the first curve.
type Condition struct {
	Temp   float64 // temperature (K)
	EMin   float64 // Fermi window lower bound (eV above VBM)
	EMax   float64 // Fermi window upper bound (eV above VBM)
	Volume float64 // supercell volume (A^3)
	Solver solver.Config
}

// DefectState is the equilibrium state of one defect at the solution.
type DefectState struct {
	Name   string
	H      float64   // effective formation energy (eV)
	Q      float64   // effective charge
	NTotal float64   // total concentration (cm^-3)
	N      []float64 // per charge state (cm^-3)
}

// Result is one solved Fermi level with its derived quantities.
type Result struct {
	EFermi    float64 // eV above VBM
	NElectron float64 // cm^-3
	NHole     float64 // cm^-3
	// NetCharge is the residual positive charge per supercell at the
	// solution, in elementary charges. Zero up to solver tolerance.
	NetCharge float64
	Defects   []DefectState
	Converged bool
}

// SCFermi finds the Fermi level satisfying charge neutrality
//
//	p(Ef) - n(Ef) + sum_d sum_q q*N_q(d, Ef) = 0
//
// by bisection over the search window. A window in which the residual does
// not change sign yields solver.ErrNoBracket. If the iteration cap is hit the
// best estimate is still returned, with Converged false.
func SCFermi(curves []*defect.Curve, table *dos.Table, cond Condition) (*Result, error) {
	if len(curves) == 0 {
		return nil, fmt.Errorf("%w: no defect curves", ErrBadCondition)
	}
	if table == nil {
		return nil, fmt.Errorf("%w: no density of states", ErrBadCondition)
	}
	if cond.Temp <= 0 {
		return nil, fmt.Errorf("%w: temperature %g must be positive", ErrBadCondition, cond.Temp)
	}
	if cond.Volume == 0 {
		cond.Volume = curves[0].Volume
	}
	if cond.Volume <= 0 {
		return nil, fmt.Errorf("%w: volume %g must be positive", ErrBadCondition, cond.Volume)
	}
	if cond.EMin == 0 && cond.EMax == 0 {
		cond.EMin, cond.EMax = curves[0].Window()
		for _, c := range curves[1:] {
			lo, hi := c.Window()
			cond.EMin = math.Max(cond.EMin, lo)
			cond.EMax = math.Min(cond.EMax, hi)
		}
	}
	if cond.EMin >= cond.EMax {
		return nil, fmt.Errorf("%w: empty Fermi window [%g, %g]", ErrBadCondition, cond.EMin, cond.EMax)
	}

	residual := func(ef float64) float64 {
		n, p := table.Carriers(ef, cond.Temp, cond.Volume)
		r := p - n
		for _, c := range curves {
			r += c.NetChargeDensity(ef, cond.Temp)
		}
		return r
	}

	ef, err := solver.Bisect(residual, cond.EMin, cond.EMax, cond.Solver)
	converged := true
	if err != nil {
		if !errors.Is(err, solver.ErrNoConvergence) {
			return nil, fmt.Errorf("fermi: charge neutrality: %w", err)
		}
		converged = false
	}

	res := &Result{EFermi: ef, Converged: converged}
	res.NElectron, res.NHole = table.Carriers(ef, cond.Temp, cond.Volume)
	res.NetCharge = residual(ef) * cond.Volume * consts.CM3_PER_A3
	for _, c := range curves {
		st := c.State(ef, cond.Temp)
		total, nq := c.Concentrations(ef, cond.Temp)
		res.Defects = append(res.Defects, DefectState{
			Name:   c.Name,
			H:      st.H,
			Q:      st.Q,
			NTotal: total,
			N:      nq,
		})
	}
	return res, nil
}

// FZResult is the fixed-carrier solve output: the formation-energy line
// H(Ef) = H0 + q*Ef that reproduces the clamped carrier concentration, and
// the Fermi level it pins.
type FZResult struct {
	H0        float64 // line intercept at Ef = 0 (eV)
	HQ        float64 // formation energy at the solved Fermi level (eV)
	EFermi    float64 // eV above VBM
	NetCharge float64 // carrier mismatch per supercell at the solution
	Converged bool
}

// FZFermi pins the free-carrier concentration to conc (cm^-3) and solves for
// the Fermi level producing it: electrons for a positive defect charge, holes
// for a negative one. The compensating defect concentration conc/|charge|
// is then inverted through the dilute limit for the formation energy.
func FZFermi(conc, charge, volume float64, table *dos.Table, cond Condition) (*FZResult, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: no density of states", ErrBadCondition)
	}
	if cond.Temp <= 0 {
		return nil, fmt.Errorf("%w: temperature %g must be positive", ErrBadCondition, cond.Temp)
	}
	if conc <= 0 {
		return nil, fmt.Errorf("%w: carrier concentration %g must be positive", ErrBadCondition, conc)
	}
	if charge == 0 {
		return nil, fmt.Errorf("%w: defect charge must be nonzero", ErrBadCondition)
	}
	if volume <= 0 {
		return nil, fmt.Errorf("%w: volume %g must be positive", ErrBadCondition, volume)
	}
	if cond.EMin == 0 && cond.EMax == 0 {
		cond.EMin, cond.EMax = table.EMin(), table.EMax()
	}
	if cond.EMin >= cond.EMax {
		return nil, fmt.Errorf("%w: empty Fermi window [%g, %g]", ErrBadCondition, cond.EMin, cond.EMax)
	}

	residual := func(ef float64) float64 {
		n, p := table.Carriers(ef, cond.Temp, volume)
		if charge > 0 {
			return n - conc
		}
		return p - conc
	}

	ef, err := solver.Bisect(residual, cond.EMin, cond.EMax, cond.Solver)
	converged := true
	if err != nil {
		if !errors.Is(err, solver.ErrNoConvergence) {
			return nil, fmt.Errorf("fermi: carrier concentration: %w", err)
		}
		converged = false
	}

	// Neutrality q*N_d = conc fixes the defect count per supercell; the
	// dilute limit N_d = gx/V * exp(-H/kT) with gx = 1 gives H.
	kt := consts.KB_EV * cond.Temp
	perCell := conc / math.Abs(charge) * volume * consts.CM3_PER_A3
	hq := -kt * math.Log(perCell)

	return &FZResult{
		H0:        hq - charge*ef,
		HQ:        hq,
		EFermi:    ef,
		NetCharge: residual(ef) * volume * consts.CM3_PER_A3,
		Converged: converged,
	}, nil
}
