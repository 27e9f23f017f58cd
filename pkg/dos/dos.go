// Package dos models the electronic density of states and the equilibrium
// free-carrier concentrations derived from it.
//
// Energies are in eV relative to the valence band maximum (VBM = 0). Electron
// and hole concentrations are reported in cm^-3 for a given supercell volume
// in cubic angstroms.
package dos

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate"

	"github.com/JianboHIT/edoping/internal/consts"
)

// ErrMalformedTable indicates a DOS table that violates ordering or shape
// invariants.
var ErrMalformedTable = errors.New("dos: malformed table")

// Beyond this |x/kT| the occupation is 0 or 1 within double precision.
const expCut = 500.0

// Table is an immutable tabulated density of states.
type Table struct {
	energy []float64 // eV, strictly increasing
	states []float64 // states/eV per cell, >= 0
}

// New validates and wraps a DOS table. Both slices are copied. The grid must
// straddle the VBM: at least one point at or below zero and two above it, so
// both carrier integrals have a nondegenerate interval to work with.
func New(energy, states []float64) (*Table, error) {
	if len(energy) != len(states) {
		return nil, fmt.Errorf("%w: %d energies but %d dos values",
			ErrMalformedTable, len(energy), len(states))
	}
	if len(energy) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 points, got %d",
			ErrMalformedTable, len(energy))
	}
	for i := range energy {
		if i > 0 && energy[i] <= energy[i-1] {
			return nil, fmt.Errorf("%w: energies not strictly increasing at row %d",
				ErrMalformedTable, i)
		}
		if states[i] < 0 {
			return nil, fmt.Errorf("%w: negative dos %g at row %d",
				ErrMalformedTable, states[i], i)
		}
	}
	split := conductionSplit(energy)
	if split == 0 {
		return nil, fmt.Errorf("%w: no points at or below the VBM", ErrMalformedTable)
	}
	if len(energy)-split < 2 {
		return nil, fmt.Errorf("%w: %d points above the VBM, need at least 2",
			ErrMalformedTable, len(energy)-split)
	}
	t := &Table{
		energy: make([]float64, len(energy)),
		states: make([]float64, len(states)),
	}
	copy(t.energy, energy)
	copy(t.states, states)
	return t, nil
}

func (t *Table) Len() int { return len(t.energy) }

// EMin and EMax bound the tabulated energy range.
func (t *Table) EMin() float64 { return t.energy[0] }
func (t *Table) EMax() float64 { return t.energy[len(t.energy)-1] }

// Occupation is the Fermi-Dirac occupation 1/(1+exp(x/kT)) of a state x eV
// above the Fermi level. The exponent is clamped so large |x|/kT saturates to
// 0 or 1 instead of overflowing; kT <= 0 degenerates to the step function.
func Occupation(x, kt float64) float64 {
	if kt <= 0 {
		switch {
		case x > 0:
			return 0
		case x < 0:
			return 1
		}
		return 0.5
	}
	arg := x / kt
	switch {
	case arg > expCut:
		return 0
	case arg < -expCut:
		return 1
	}
	return 1 / (1 + math.Exp(arg))
}

// Carriers integrates the equilibrium electron and hole concentrations at
// Fermi level ef (eV above VBM) and temperature temp (K). Electrons occupy
// states strictly above the VBM, holes empty states at and below it; the
// in-gap DOS is zero so the exact split point carries no weight. volume is
// in A^3, results in cm^-3.
func (t *Table) Carriers(ef, temp, volume float64) (n, p float64) {
	kt := consts.KB_EV * temp
	split := conductionSplit(t.energy)

	x := t.energy[split:]
	y := make([]float64, len(x))
	for i, e := range x {
		y[i] = t.states[split+i] * Occupation(e-ef, kt)
	}
	n = integrate.Trapezoidal(x, y)

	// Holes run through the first point above the VBM so the band-edge
	// interval is not dropped.
	x = t.energy[:split+1]
	y = make([]float64, len(x))
	for i, e := range x {
		y[i] = t.states[i] * (1 - Occupation(e-ef, kt))
	}
	p = integrate.Trapezoidal(x, y)

	scale := consts.PER_A3_CM3 / volume
	return n * scale, p * scale
}

// conductionSplit is the first index strictly above the VBM. New guarantees
// 1 <= split <= len(energy)-2 for every constructed table.
func conductionSplit(energy []float64) int {
	for i, e := range energy {
		if e > 0 {
			return i
		}
	}
	return len(energy)
}
