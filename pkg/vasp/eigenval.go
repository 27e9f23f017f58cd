package vasp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Band identifies a band edge: its energy, 1-based band number and the
// k-point where the extremum occurs.
type Band struct {
	Energy float64
	Index  int
	KPoint [3]float64
}

// EIGENVAL layout: 6 header lines (the 6th holds Nelect, Nkpoints, Nbands),
// then per k-point a blank line, the k-point line and Nbands eigenvalue lines
// of the form "band energy occupation".
const eigHeader = 6

// ReadVBM locates the valence band maximum and conduction band minimum in an
// EIGENVAL file. Bands are scanned bottom-up; the first band whose occupation
// weight stays below threshold everywhere, directly above a band filled
// beyond 1-threshold, is taken as the conduction band.
func ReadVBM(path string, threshold float64) (vbm, cbm Band, gap float64, err error) {
	lines, err := readLines(path)
	if err != nil {
		return vbm, cbm, 0, err
	}
	if len(lines) <= eigHeader {
		return vbm, cbm, 0, fmt.Errorf("vasp: truncated EIGENVAL %s", path)
	}
	counts := strings.Fields(lines[eigHeader-1])
	if len(counts) < 3 {
		return vbm, cbm, 0, fmt.Errorf("vasp: malformed EIGENVAL header in %s", path)
	}
	nkpt, err := strconv.Atoi(counts[1])
	if err != nil {
		return vbm, cbm, 0, fmt.Errorf("vasp: EIGENVAL k-point count in %s: %v", path, err)
	}
	nband, err := strconv.Atoi(counts[2])
	if err != nil {
		return vbm, cbm, 0, fmt.Errorf("vasp: EIGENVAL band count in %s: %v", path, err)
	}
	if len(lines) < eigHeader+1+nkpt*(nband+2)-1 {
		return vbm, cbm, 0, fmt.Errorf("vasp: truncated EIGENVAL %s", path)
	}

	kpoints := make([][3]float64, nkpt)
	for k := 0; k < nkpt; k++ {
		fields := strings.Fields(lines[eigHeader+1+k*(nband+2)])
		if len(fields) < 3 {
			return vbm, cbm, 0, fmt.Errorf("vasp: malformed k-point %d in %s", k+1, path)
		}
		for j := 0; j < 3; j++ {
			v, err := strconv.ParseFloat(fields[j], 64)
			if err != nil {
				return vbm, cbm, 0, fmt.Errorf("vasp: k-point %d in %s: %v", k+1, path, err)
			}
			if math.Abs(v) < 1e-8 {
				v = 0
			}
			kpoints[k][j] = v
		}
	}

	band := func(i int) (energy, weight []float64, err error) {
		energy = make([]float64, nkpt)
		weight = make([]float64, nkpt)
		for k := 0; k < nkpt; k++ {
			fields := strings.Fields(lines[eigHeader+2+i+k*(nband+2)])
			if len(fields) < 3 {
				return nil, nil, fmt.Errorf("vasp: malformed band %d at k-point %d in %s", i+1, k+1, path)
			}
			if energy[k], err = strconv.ParseFloat(fields[1], 64); err != nil {
				return nil, nil, fmt.Errorf("vasp: band %d in %s: %v", i+1, path, err)
			}
			if weight[k], err = strconv.ParseFloat(fields[2], 64); err != nil {
				return nil, nil, fmt.Errorf("vasp: band %d in %s: %v", i+1, path, err)
			}
		}
		return energy, weight, nil
	}

	filled := 1.0 // minimum occupation of the band below
	var below []float64
	for i := 0; i < nband; i++ {
		energy, weight, err := band(i)
		if err != nil {
			return vbm, cbm, 0, err
		}
		if i > 0 && maxOf(weight) < threshold && filled > 1-threshold {
			kv := argmax(below)
			kc := argmin(energy)
			vbm = Band{Energy: below[kv], Index: i, KPoint: kpoints[kv]}
			cbm = Band{Energy: energy[kc], Index: i + 1, KPoint: kpoints[kc]}
			return vbm, cbm, cbm.Energy - vbm.Energy, nil
		}
		filled = minOf(weight)
		below = energy
	}
	return vbm, cbm, 0, fmt.Errorf("vasp: no unoccupied band found in %s", path)
}

func minOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		m = math.Min(m, x)
	}
	return m
}

func maxOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		m = math.Max(m, x)
	}
	return m
}

func argmin(v []float64) int {
	idx := 0
	for i, x := range v {
		if x < v[idx] {
			idx = i
		}
	}
	return idx
}

func argmax(v []float64) int {
	idx := 0
	for i, x := range v {
		if x > v[idx] {
			idx = i
		}
	}
	return idx
}
