package defect

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Formation-energy table layout: a comment header naming the columns and
// ending in the supercell volume (A^3) and site multiplicity gx, then one row
// per Fermi-level sample with columns Ef, Hmin, H_q1, H_q2, ...
//
//	# Ef, Eformation, q_-1, q_0, q_+1;     512.0000    1
//	0.0000 1.0000 3.0000 2.0000 1.0000
//	...

var chargeLabel = regexp.MustCompile(`q_([+-]?\d+)`)

// envelope/line consistency tolerance; rows are written at 1e-4 resolution
const rowTol = 5e-3

// ReadCurve parses a formation-energy table file. The curve name is the file
// name without extension.
func ReadCurve(path string) (*Curve, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("defect: %w", err)
	}
	defer f.Close()

	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	c, err := ParseCurve(f, name)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return c, nil
}

// ParseCurve reads a formation-energy table from r.
func ParseCurve(r io.Reader, name string) (*Curve, error) {
	scanner := bufio.NewScanner(r)

	var header string
	for scanner.Scan() {
		header = strings.TrimSpace(scanner.Text())
		if header != "" {
			break
		}
	}
	if header == "" {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedTable)
	}

	charges, volume, gx, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	var efermi, hmin []float64
	var hq [][]float64
	row := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2+len(charges) {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d",
				ErrMalformedTable, row+1, len(fields), 2+len(charges))
		}
		values := make([]float64, len(fields))
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedTable, row+1, err)
			}
			values[i] = v
		}
		if row > 0 && values[0] <= efermi[row-1] {
			return nil, fmt.Errorf("%w: Fermi levels not strictly increasing at row %d",
				ErrMalformedTable, row+1)
		}
		efermi = append(efermi, values[0])
		hmin = append(hmin, values[1])
		hq = append(hq, values[2:])
		row++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("defect: %w", err)
	}
	if row < 2 {
		return nil, fmt.Errorf("%w: need at least 2 rows, got %d", ErrMalformedTable, row)
	}

	// Recover the line intercepts from the first row and cross-check the
	// last one: each H_q column must be the line E0_q + q*Ef.
	last := row - 1
	states := make([]ChargeState, len(charges))
	for i, q := range charges {
		e0 := hq[0][i] - float64(q)*efermi[0]
		e0Last := hq[last][i] - float64(q)*efermi[last]
		if math.Abs(e0Last-e0) > rowTol {
			return nil, fmt.Errorf("%w: column q_%+d is not linear in Ef", ErrMalformedTable, q)
		}
		states[i] = ChargeState{Q: q, E0: e0, G: 1}
	}
	for i := range efermi {
		low := math.Inf(1)
		for _, h := range hq[i] {
			low = math.Min(low, h)
		}
		if math.Abs(hmin[i]-low) > rowTol {
			return nil, fmt.Errorf("%w: envelope mismatch at row %d", ErrMalformedTable, i+1)
		}
	}

	c, err := NewCurve(name, volume, gx, states)
	if err != nil {
		return nil, err
	}
	c.EFermi = efermi
	c.HMin = hmin
	return c, nil
}

func parseHeader(header string) (charges []int, volume, gx float64, err error) {
	header = strings.TrimLeft(header, "# \t")

	fields := strings.Fields(header)
	if len(fields) < 2 {
		return nil, 0, 0, fmt.Errorf("%w: header %q lacks volume and gx", ErrMalformedTable, header)
	}
	gx, err = strconv.ParseFloat(fields[len(fields)-1], 64)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: header gx: %v", ErrMalformedTable, err)
	}
	volume, err = strconv.ParseFloat(fields[len(fields)-2], 64)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: header volume: %v", ErrMalformedTable, err)
	}

	for _, m := range chargeLabel.FindAllStringSubmatch(header, -1) {
		q, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, 0, 0, fmt.Errorf("%w: charge label %q", ErrMalformedTable, m[0])
		}
		charges = append(charges, q)
	}
	if len(charges) == 0 {
		return nil, 0, 0, fmt.Errorf("%w: header %q names no charge states", ErrMalformedTable, header)
	}
	return charges, volume, gx, nil
}

// WriteCurve writes the tabulated formation-energy file for c over its sample
// grid. Curves without samples cannot be written.
func WriteCurve(w io.Writer, c *Curve) error {
	if len(c.EFermi) < 2 {
		return fmt.Errorf("%w: curve %s has no sample grid", ErrMalformedTable, c.Name)
	}

	var labels []string
	for _, s := range c.States {
		labels = append(labels, fmt.Sprintf("q_%+d", s.Q))
	}
	_, err := fmt.Fprintf(w, "# Ef, Eformation, %s; %12.4f %4g\n",
		strings.Join(labels, ", "), c.Volume, c.Gx)
	if err != nil {
		return fmt.Errorf("defect: %w", err)
	}

	for _, ef := range c.EFermi {
		hmin, _ := c.GroundState(ef)
		cols := make([]string, 0, 2+len(c.States))
		cols = append(cols, fmt.Sprintf("%.4f", ef), fmt.Sprintf("%.4f", hmin))
		for _, s := range c.States {
			cols = append(cols, fmt.Sprintf("%.4f", s.Energy(ef)))
		}
		if _, err := fmt.Fprintln(w, strings.Join(cols, " ")); err != nil {
			return fmt.Errorf("defect: %w", err)
		}
	}
	return nil
}
