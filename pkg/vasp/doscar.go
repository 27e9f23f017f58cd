package vasp

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/JianboHIT/edoping/pkg/dos"
)

// ReadDOS loads a total density of states from either a DOSCAR or a plain
// two-column (energy, dos) text file, shifting energies down by efermi so the
// returned table is relative to the chosen reference (typically the VBM).
//
// A DOSCAR is recognized by its header shape: four counters on the first
// line and single-value lines at positions three and four; the total-DOS
// block then spans NEDOS rows after the six header lines.
func ReadDOS(path string, efermi float64) (*dos.Table, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	block := lines
	if isDOSCAR(lines) {
		fields := strings.Fields(lines[5])
		if len(fields) < 3 {
			return nil, fmt.Errorf("vasp: malformed DOSCAR counter line in %s", path)
		}
		nedos, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("vasp: DOSCAR NEDOS in %s: %v", path, err)
		}
		if math.IsNaN(nedos) || nedos < 1 || nedos > float64(len(lines)) {
			return nil, fmt.Errorf("vasp: DOSCAR NEDOS %g out of range in %s", nedos, path)
		}
		end := 6 + int(nedos)
		if end > len(lines) {
			return nil, fmt.Errorf("vasp: truncated DOSCAR %s", path)
		}
		block = lines[6:end]
	}

	var energy, states []float64
	for i, line := range block {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("vasp: DOS row %d in %s has %d columns", i+1, path, len(fields))
		}
		e, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("vasp: DOS row %d in %s: %v", i+1, path, err)
		}
		d, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("vasp: DOS row %d in %s: %v", i+1, path, err)
		}
		energy = append(energy, e-efermi)
		states = append(states, d)
	}

	table, err := dos.New(energy, states)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return table, nil
}

func isDOSCAR(lines []string) bool {
	if len(lines) < 7 {
		return false
	}
	return len(strings.Fields(lines[0])) == 4 &&
		len(strings.Fields(lines[2])) == 1 &&
		len(strings.Fields(lines[3])) == 1
}
