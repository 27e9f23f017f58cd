package defect

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"gonum.org/v1/gonum/floats"

	"github.com/JianboHIT/edoping/pkg/vasp"
)

// BuildConfig drives the formation-energy builder. Fields left at +Inf are
// read from the DFT outputs under DPerfect instead.
type BuildConfig struct {
	DPerfect string    `toml:"dperfect"` // perfect-cell calculation directory
	DDefect  string    `toml:"ddefect"`  // defect calculation root directory
	Valence  []int     `toml:"valence"`  // charge states
	DDName   []string  `toml:"ddname"`   // per-charge subdirectories, derived from Prefix when empty
	Prefix   string    `toml:"prefix"`   // subdirectory prefix, e.g. charge_+1
	EVBM     float64   `toml:"evbm"`     // VBM energy (eV), +Inf = read EIGENVAL
	PEnergy  float64   `toml:"penergy"`  // perfect-cell energy (eV), +Inf = read OUTCAR
	PVolume  float64   `toml:"pvolume"`  // perfect-cell volume (A^3), +Inf = read OUTCAR
	Ewald    float64   `toml:"ewald"`    // Ewald energy (eV) for image-charge correction
	Epsilon  float64   `toml:"epsilon"`  // static dielectric constant, +Inf = no correction
	CMPot    []float64 `toml:"cmpot"`    // chemical potentials, remove-add pairs (eV)
	EMin     float64   `toml:"emin"`     // Fermi grid lower bound (eV)
	EMax     float64   `toml:"emax"`     // Fermi grid upper bound (eV)
	NPts     int       `toml:"npts"`     // Fermi grid points
	PSite    int       `toml:"psite"`    // 1-based alignment site in the perfect cell, 0 = off
	DSite    int       `toml:"dsite"`    // 1-based alignment site in the defect cells, 0 = off
}

func DefaultBuildConfig() BuildConfig {
	return BuildConfig{
		DPerfect: "../perfect",
		DDefect:  ".",
		Valence:  []int{-2, -1, 0, 1, 2},
		Prefix:   "charge_",
		EVBM:     math.Inf(1),
		PEnergy:  math.Inf(1),
		PVolume:  math.Inf(1),
		Ewald:    0,
		Epsilon:  math.Inf(1),
		EMin:     -1,
		EMax:     2,
		NPts:     1001,
	}
}

// LoadBuildConfig overlays a TOML file onto the defaults.
func LoadBuildConfig(path string) (BuildConfig, error) {
	cfg := DefaultBuildConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrBadConfig, err)
	}
	return cfg, nil
}

// normalize derives per-charge directories and sorts charge states.
func (cfg *BuildConfig) normalize() error {
	if len(cfg.Valence) == 0 {
		return fmt.Errorf("%w: no charge states", ErrBadConfig)
	}
	if cfg.NPts < 2 {
		return fmt.Errorf("%w: npts %d must be at least 2", ErrBadConfig, cfg.NPts)
	}
	if cfg.EMin >= cfg.EMax {
		return fmt.Errorf("%w: emin %g must be below emax %g", ErrBadConfig, cfg.EMin, cfg.EMax)
	}
	seen := make(map[int]bool, len(cfg.Valence))
	for _, q := range cfg.Valence {
		if seen[q] {
			return fmt.Errorf("%w: duplicate charge state %+d", ErrBadConfig, q)
		}
		seen[q] = true
	}

	if len(cfg.DDName) == 0 {
		for _, q := range cfg.Valence {
			if q == 0 {
				cfg.DDName = append(cfg.DDName, cfg.Prefix+"0")
			} else {
				cfg.DDName = append(cfg.DDName, fmt.Sprintf("%s%+d", cfg.Prefix, q))
			}
		}
	}
	if len(cfg.DDName) != len(cfg.Valence) {
		return fmt.Errorf("%w: %d directories for %d charge states",
			ErrBadConfig, len(cfg.DDName), len(cfg.Valence))
	}

	idx := make([]int, len(cfg.Valence))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return cfg.Valence[idx[a]] < cfg.Valence[idx[b]] })
	valence := make([]int, len(idx))
	names := make([]string, len(idx))
	for i, j := range idx {
		valence[i] = cfg.Valence[j]
		names[i] = cfg.DDName[j]
	}
	cfg.Valence = valence
	cfg.DDName = names
	return nil
}

// deltaMu sums the chemical-potential change of remove-add pairs: removed
// species count positive, added negative.
func (cfg *BuildConfig) deltaMu() float64 {
	var dmu float64
	for i, mu := range cfg.CMPot {
		if i%2 == 0 {
			dmu += mu
		} else {
			dmu -= mu
		}
	}
	return dmu
}

// imageCharge is the image-charge correction per squared charge,
// 2/3 * Ewald / epsilon, zero when the dielectric response is absent.
func (cfg *BuildConfig) imageCharge() float64 {
	if math.IsInf(cfg.Ewald, 0) || math.IsInf(cfg.Epsilon, 0) {
		return 0
	}
	if cfg.Epsilon == 0 || cfg.Epsilon > 1e8 {
		return 0
	}
	return 2.0 / 3.0 * cfg.Ewald / cfg.Epsilon
}

// ChargeEntry is the energy bookkeeping for one charge state.
type ChargeEntry struct {
	Q       int
	Dir     string  // calculation directory
	EDefect float64 // defect supercell energy (eV)
	DE      float64 // EDefect - EPerfect
	EQ      float64 // q * EVBM
	EIC     float64 // image-charge correction q^2 * Eic
	EPA     float64 // potential-alignment correction q * (V_d - V_p)
	E0      float64 // formation energy at Ef = 0
}

// Transition is a thermodynamic transition level between two ground-state
// charge segments.
type Transition struct {
	QFrom, QTo int
	Level      float64 // Fermi level of the crossing (eV)
	Energy     float64 // formation energy at the crossing (eV)
}

type BuildResult struct {
	Entries     []ChargeEntry
	Curve       *Curve
	Transitions []Transition
	EPerfect    float64
	Volume      float64
	EVBM        float64
	DeltaMu     float64
	ImageCharge float64 // per squared charge
}

// Build assembles formation-energy lines for every configured charge state
// from the DFT outputs and tabulates them over the Fermi grid.
func Build(cfg BuildConfig) (*BuildResult, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	res := &BuildResult{
		EVBM:        cfg.EVBM,
		EPerfect:    cfg.PEnergy,
		Volume:      cfg.PVolume,
		DeltaMu:     cfg.deltaMu(),
		ImageCharge: cfg.imageCharge(),
	}

	if math.IsInf(res.EVBM, 0) {
		vbm, _, _, err := vasp.ReadVBM(filepath.Join(cfg.DPerfect, "EIGENVAL"), 0.1)
		if err != nil {
			return nil, err
		}
		res.EVBM = vbm.Energy
	}
	if math.IsInf(res.EPerfect, 0) {
		e, err := vasp.ReadEnergy(filepath.Join(cfg.DPerfect, "OUTCAR"))
		if err != nil {
			return nil, err
		}
		res.EPerfect = e
	}
	if math.IsInf(res.Volume, 0) {
		v, err := vasp.ReadVolume(filepath.Join(cfg.DPerfect, "OUTCAR"))
		if err != nil {
			return nil, err
		}
		res.Volume = v
	}

	// Optional potential alignment against explicit reference sites.
	var potPerfect float64
	align := cfg.PSite > 0 && cfg.DSite > 0
	if align {
		pots, err := vasp.ReadPotentials(filepath.Join(cfg.DPerfect, "OUTCAR"))
		if err != nil {
			return nil, err
		}
		if cfg.PSite > len(pots) {
			return nil, fmt.Errorf("%w: psite %d exceeds %d sites", ErrBadConfig, cfg.PSite, len(pots))
		}
		potPerfect = pots[cfg.PSite-1]
	}

	states := make([]ChargeState, len(cfg.Valence))
	res.Entries = make([]ChargeEntry, len(cfg.Valence))
	for i, q := range cfg.Valence {
		dir := filepath.Join(cfg.DDefect, cfg.DDName[i])
		ed, err := vasp.ReadEnergy(filepath.Join(dir, "OUTCAR"))
		if err != nil {
			return nil, err
		}

		var epa float64
		if align {
			pots, err := vasp.ReadPotentials(filepath.Join(dir, "OUTCAR"))
			if err != nil {
				return nil, err
			}
			if cfg.DSite > len(pots) {
				return nil, fmt.Errorf("%w: dsite %d exceeds %d sites", ErrBadConfig, cfg.DSite, len(pots))
			}
			epa = float64(q) * (pots[cfg.DSite-1] - potPerfect)
		}

		entry := ChargeEntry{
			Q:       q,
			Dir:     dir,
			EDefect: ed,
			DE:      ed - res.EPerfect,
			EQ:      float64(q) * res.EVBM,
			EIC:     float64(q*q) * res.ImageCharge,
			EPA:     epa,
		}
		entry.E0 = entry.DE + res.DeltaMu + entry.EQ + entry.EPA + entry.EIC
		res.Entries[i] = entry
		states[i] = ChargeState{Q: q, E0: entry.E0, G: 1}
	}

	name := filepath.Base(cfg.DDefect)
	if name == "." || name == string(filepath.Separator) {
		if wd, err := os.Getwd(); err == nil {
			name = filepath.Base(wd)
		} else {
			name = "defect"
		}
	}
	curve, err := NewCurve(name, res.Volume, 1, states)
	if err != nil {
		return nil, err
	}
	curve.EFermi = floats.Span(make([]float64, cfg.NPts), cfg.EMin, cfg.EMax)
	curve.HMin = make([]float64, cfg.NPts)
	for i, ef := range curve.EFermi {
		curve.HMin[i], _ = curve.GroundState(ef)
	}
	res.Curve = curve
	res.Transitions = transitions(curve)
	return res, nil
}

// transitions walks the sample grid and reports the crossing between each
// pair of consecutive ground-state charge segments.
func transitions(c *Curve) []Transition {
	var trs []Transition
	_, prev := c.GroundState(c.EFermi[0])
	prevState := c.stateByCharge(prev)
	for _, ef := range c.EFermi[1:] {
		_, q := c.GroundState(ef)
		if q == prev {
			continue
		}
		cur := c.stateByCharge(q)
		dq := float64(cur.Q - prevState.Q)
		trs = append(trs, Transition{
			QFrom:  prev,
			QTo:    q,
			Level:  -(cur.E0 - prevState.E0) / dq,
			Energy: (float64(cur.Q)*prevState.E0 - float64(prevState.Q)*cur.E0) / dq,
		})
		prev, prevState = q, cur
	}
	return trs
}

func (c *Curve) stateByCharge(q int) ChargeState {
	for _, s := range c.States {
		if s.Q == q {
			return s
		}
	}
	return ChargeState{Q: q, G: 1}
}
