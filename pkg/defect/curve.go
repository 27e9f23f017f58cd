// Package defect models point-defect formation energies as functions of the
// Fermi level, with Boltzmann-weighted charge-state statistics.
//
// A defect in charge state q has the formation energy line
//
//	E_q(Ef) = E0_q + q*Ef
//
// with Ef in eV above the VBM. The minimum over charge states is the lower
// envelope reported in formation-energy tables. Concentrations follow the
// dilute limit N_q = gx/V * g_q * exp(-E_q/kT) with gx equivalent sites per
// supercell of volume V.
package defect

import (
	"fmt"
	"math"
	"sort"

	"github.com/JianboHIT/edoping/internal/consts"
)

// Beyond this exponent Boltzmann factors are clamped to stay finite.
const expCut = 500.0

// ChargeState is one charge state of a defect.
type ChargeState struct {
	Q  int     // charge state
	E0 float64 // formation energy at Ef = 0 (eV)
	G  float64 // degeneracy weight, 1 when zero
}

func (s ChargeState) weight() float64 {
	if s.G <= 0 {
		return 1
	}
	return s.G
}

// Energy is the formation energy of the charge state at Fermi level ef.
func (s ChargeState) Energy(ef float64) float64 {
	return s.E0 + float64(s.Q)*ef
}

// Curve is the formation-energy model of a single defect at fixed
// composition. It is immutable during solves.
type Curve struct {
	Name   string
	Volume float64 // supercell volume (A^3)
	Gx     float64 // equivalent defect sites per supercell
	States []ChargeState

	// Tabulated samples: Fermi grid and the lower envelope over it.
	// Present when the curve came from a table file or the builder.
	EFermi []float64
	HMin   []float64
}

// NewCurve builds a validated curve. States are sorted by charge.
func NewCurve(name string, volume, gx float64, states []ChargeState) (*Curve, error) {
	c := &Curve{
		Name:   name,
		Volume: volume,
		Gx:     gx,
		States: make([]ChargeState, len(states)),
	}
	copy(c.States, states)
	sort.Slice(c.States, func(i, j int) bool { return c.States[i].Q < c.States[j].Q })
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Curve) validate() error {
	if len(c.States) == 0 {
		return fmt.Errorf("%w: no charge states", ErrMalformedTable)
	}
	if c.Volume <= 0 {
		return fmt.Errorf("%w: volume %g must be positive", ErrMalformedTable, c.Volume)
	}
	if c.Gx <= 0 {
		return fmt.Errorf("%w: site multiplicity %g must be positive", ErrMalformedTable, c.Gx)
	}
	for i := 1; i < len(c.States); i++ {
		if c.States[i].Q == c.States[i-1].Q {
			return fmt.Errorf("%w: duplicate charge state %+d", ErrMalformedTable, c.States[i].Q)
		}
	}
	return nil
}

// Window is the tabulated Fermi-level range, falling back to [0, 1] eV for
// curves built programmatically without samples.
func (c *Curve) Window() (emin, emax float64) {
	if len(c.EFermi) >= 2 {
		return c.EFermi[0], c.EFermi[len(c.EFermi)-1]
	}
	return 0, 1
}

// GroundState returns the minimum formation energy over charge states at ef
// and the charge that attains it.
func (c *Curve) GroundState(ef float64) (h float64, q int) {
	h = math.Inf(1)
	for _, s := range c.States {
		if e := s.Energy(ef); e < h {
			h, q = e, s.Q
		}
	}
	return h, q
}

// State is the thermally averaged charge-state population of a defect at one
// Fermi level.
type State struct {
	H float64   // effective formation energy (eV)
	Q float64   // effective (population-averaged) charge
	P []float64 // population fraction per charge state, ordered as Curve.States
}

// State evaluates the Boltzmann charge-state statistics at Fermi level ef and
// temperature temp. The partition function is accumulated relative to the
// ground state so no exponential overflows. temp <= 0 collapses to the ground
// state.
func (c *Curve) State(ef, temp float64) State {
	st := State{P: make([]float64, len(c.States))}
	hmin, _ := c.GroundState(ef)
	kt := consts.KB_EV * temp
	if kt <= 0 {
		_, q := c.GroundState(ef)
		st.H = hmin
		st.Q = float64(q)
		for i, s := range c.States {
			if s.Q == q {
				st.P[i] = 1
			}
		}
		return st
	}

	var z, zq float64
	for i, s := range c.States {
		w := s.weight() * math.Exp(-(s.Energy(ef) - hmin) / kt)
		st.P[i] = w
		z += w
		zq += w * float64(s.Q)
	}
	for i := range st.P {
		st.P[i] /= z
	}
	st.H = hmin - kt*math.Log(z)
	st.Q = zq / z
	return st
}

// Concentrations returns the equilibrium concentration of each charge state
// and their total, in cm^-3, at Fermi level ef and temperature temp.
func (c *Curve) Concentrations(ef, temp float64) (total float64, nq []float64) {
	kt := consts.KB_EV * temp
	site := c.Gx / c.Volume * consts.PER_A3_CM3
	nq = make([]float64, len(c.States))
	for i, s := range c.States {
		arg := 0.0
		if kt > 0 {
			arg = -s.Energy(ef) / kt
		} else if s.Energy(ef) < 0 {
			arg = expCut
		} else {
			arg = -expCut
		}
		arg = math.Min(arg, expCut)
		arg = math.Max(arg, -expCut)
		nq[i] = site * s.weight() * math.Exp(arg)
		total += nq[i]
	}
	return total, nq
}

// NetChargeDensity is the signed defect charge density sum(q*N_q) in
// elementary charges per cm^3.
func (c *Curve) NetChargeDensity(ef, temp float64) float64 {
	_, nq := c.Concentrations(ef, temp)
	var net float64
	for i, s := range c.States {
		net += float64(s.Q) * nq[i]
	}
	return net
}
