// Package vasp reads the scalar quantities the solvers consume out of VASP
// output files: total energies, cell volumes, Ewald energies, site
// potentials, band edges and densities of states. It is not a general VASP
// file-format library; each reader targets one marker in one file.
package vasp

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vasp: %w", err)
	}
	return strings.Split(string(data), "\n"), nil
}

// ReadEnergy returns the final total energy (sigma->0) in eV from an OUTCAR.
func ReadEnergy(path string) (float64, error) {
	lines, err := readLines(path)
	if err != nil {
		return 0, err
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if !strings.Contains(lines[i], "sigma") {
			continue
		}
		fields := strings.Fields(lines[i])
		if len(fields) == 0 {
			continue
		}
		e, err := strconv.ParseFloat(fields[len(fields)-1], 64)
		if err != nil {
			return 0, fmt.Errorf("vasp: energy entry in %s: %v", path, err)
		}
		return e, nil
	}
	return 0, fmt.Errorf("vasp: no energy entry in %s", path)
}

// ReadVolume returns the final cell volume in A^3 from an OUTCAR.
func ReadVolume(path string) (float64, error) {
	lines, err := readLines(path)
	if err != nil {
		return 0, err
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if !strings.Contains(lines[i], "volume") {
			continue
		}
		fields := strings.Fields(lines[i])
		if len(fields) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(fields[len(fields)-1], 64)
		if err != nil {
			return 0, fmt.Errorf("vasp: volume entry in %s: %v", path, err)
		}
		return v, nil
	}
	return 0, fmt.Errorf("vasp: no volume entry in %s", path)
}

// ReadEwald returns the magnitude of the final Ewald energy (TEWEN) in eV
// from an OUTCAR.
func ReadEwald(path string) (float64, error) {
	lines, err := readLines(path)
	if err != nil {
		return 0, err
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if !strings.Contains(lines[i], "Ewald energy   TEWEN") {
			continue
		}
		_, value, found := strings.Cut(lines[i], "=")
		if !found {
			continue
		}
		e, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return 0, fmt.Errorf("vasp: Ewald entry in %s: %v", path, err)
		}
		if e < 0 {
			e = -e
		}
		return e, nil
	}
	return 0, fmt.Errorf("vasp: no Ewald entry in %s", path)
}

// ReadPotentials returns the average electrostatic potential at each atomic
// site from the last potential block of an OUTCAR, in site order. The block
// lays out (index, potential) pairs in fixed 17-column cells.
func ReadPotentials(path string) ([]float64, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	start := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.Contains(lines[i], "electrostatic") {
			start = i + 3 // marker, test-charge radii, norm line
			break
		}
	}
	if start < 0 || start >= len(lines) {
		return nil, fmt.Errorf("vasp: no potential block in %s", path)
	}

	var pots []float64
	for _, line := range lines[start:] {
		if strings.TrimSpace(line) == "" {
			break
		}
		for len(line) > 8 {
			end := 17
			if len(line) < end {
				end = len(line)
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(line[8:end]), 64)
			if err != nil {
				return nil, fmt.Errorf("vasp: potential block in %s: %v", path, err)
			}
			pots = append(pots, v)
			line = line[end:]
		}
	}
	if len(pots) == 0 {
		return nil, fmt.Errorf("vasp: empty potential block in %s", path)
	}
	return pots, nil
}
