package defect

// ScanPoint is the equilibrium state of one defect at one trial Fermi level.
type ScanPoint struct {
	EFermi float64   // trial Fermi level (eV)
	Q      float64   // effective charge
	H      float64   // effective formation energy (eV)
	NTotal float64   // total defect concentration (cm^-3)
	N      []float64 // per charge state (cm^-3), ordered as Curve.States
}

// Scan evaluates the charge-state model at each trial Fermi level. No root
// finding is involved; the levels are swept as given. ground selects the
// ground-state approximation for H instead of the free-energy form.
func (c *Curve) Scan(efermi []float64, temp float64, ground bool) []ScanPoint {
	points := make([]ScanPoint, len(efermi))
	for i, ef := range efermi {
		st := c.State(ef, temp)
		total, nq := c.Concentrations(ef, temp)
		h := st.H
		if ground {
			h, _ = c.GroundState(ef)
		}
		points[i] = ScanPoint{
			EFermi: ef,
			Q:      st.Q,
			H:      h,
			NTotal: total,
			N:      nq,
		}
	}
	return points
}

// NormalizeScan rescales the per-charge concentration columns to fractions of
// the total at each point, in place. Points with zero total are left as is.
func NormalizeScan(points []ScanPoint) {
	for i := range points {
		if points[i].NTotal == 0 {
			continue
		}
		for j := range points[i].N {
			points[i].N[j] /= points[i].NTotal
		}
	}
}
