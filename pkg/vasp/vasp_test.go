package vasp_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JianboHIT/edoping/pkg/vasp"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const outcarFixture = ` vasp.6.3.0
  Ewald energy   TEWEN  =      -924.1503
  volume of cell :      498.0000

 average (electrostatic) potential at core
  the test charge radii are  0.9764
  (the norm of the test charge is              1.0000)
       1 -50.0000       2 -51.0000
       3 -52.0000

  volume of cell :      512.0000
  Ewald energy   TEWEN  =      -931.2846

 average (electrostatic) potential at core
  the test charge radii are  0.9764
  (the norm of the test charge is              1.0000)
       1 -83.1234       2 -84.5678       3 -82.0000
       4 -85.5000

  energy  without entropy=     -100.231        energy(sigma->0) =     -100.1250
`

func TestReadEnergy(t *testing.T) {
	path := writeFile(t, "OUTCAR", outcarFixture)
	e, err := vasp.ReadEnergy(path)
	require.NoError(t, err)
	require.Equal(t, -100.1250, e)
}

// TestReadVolume checks the final relaxation step wins over earlier ones.
func TestReadVolume(t *testing.T) {
	path := writeFile(t, "OUTCAR", outcarFixture)
	v, err := vasp.ReadVolume(path)
	require.NoError(t, err)
	require.Equal(t, 512.0, v)
}

// TestReadEwald checks the magnitude of the last TEWEN entry is returned.
func TestReadEwald(t *testing.T) {
	path := writeFile(t, "OUTCAR", outcarFixture)
	e, err := vasp.ReadEwald(path)
	require.NoError(t, err)
	require.Equal(t, 931.2846, e)
}

// TestReadPotentials checks the last potential block is parsed cell by cell,
// including the short final row.
func TestReadPotentials(t *testing.T) {
	path := writeFile(t, "OUTCAR", outcarFixture)
	pots, err := vasp.ReadPotentials(path)
	require.NoError(t, err)
	require.Equal(t, []float64{-83.1234, -84.5678, -82.0000, -85.5000}, pots)
}

func TestReadOutcarErrors(t *testing.T) {
	_, err := vasp.ReadEnergy(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	empty := writeFile(t, "OUTCAR", "nothing of interest\n")
	_, err = vasp.ReadEnergy(empty)
	require.Error(t, err)
	_, err = vasp.ReadVolume(empty)
	require.Error(t, err)
	_, err = vasp.ReadEwald(empty)
	require.Error(t, err)
	_, err = vasp.ReadPotentials(empty)
	require.Error(t, err)
}

// eigenvalFixture holds 2 k-points and 3 bands; the two lowest bands are
// fully occupied, the third empty.
const eigenvalFixture = `    2    2    1    2
  0.3668028E+02  0.5802839E-09  0.5802839E-09  0.5802839E-09  0.5000000E-15
  1.000000000000000E-004
  CAR
 test system
      8      2      3

  0.0000000E+00  0.0000000E+00  0.0000000E+00  0.5000000E+00
   1     -5.0000   1.0000
   2     -1.0000   1.0000
   3      2.0000   0.0000

  0.5000000E+00  0.0000000E+00  0.0000000E+00  0.5000000E+00
   1     -4.5000   1.0000
   2     -0.8000   1.0000
   3      2.5000   0.0000
`

func TestReadVBM(t *testing.T) {
	path := writeFile(t, "EIGENVAL", eigenvalFixture)
	vbm, cbm, gap, err := vasp.ReadVBM(path, 0.1)
	require.NoError(t, err)

	require.Equal(t, -0.8, vbm.Energy)
	require.Equal(t, 2, vbm.Index)
	require.Equal(t, [3]float64{0.5, 0, 0}, vbm.KPoint)

	require.Equal(t, 2.0, cbm.Energy)
	require.Equal(t, 3, cbm.Index)
	require.Equal(t, [3]float64{0, 0, 0}, cbm.KPoint)

	require.InDelta(t, 2.8, gap, 1e-12)
}

// TestReadVBMMetallic has every band partially occupied, so there is no edge
// to report.
func TestReadVBMMetallic(t *testing.T) {
	fixture := `    2    2    1    2
 header
 header
  CAR
 metal
      8      1      2

  0.0000000E+00  0.0000000E+00  0.0000000E+00  0.1000000E+01
   1     -1.0000   0.7000
   2      0.5000   0.3000
`
	path := writeFile(t, "EIGENVAL", fixture)
	_, _, _, err := vasp.ReadVBM(path, 0.1)
	require.Error(t, err)
}

func TestReadVBMTruncated(t *testing.T) {
	path := writeFile(t, "EIGENVAL", "    2    2    1    2\n")
	_, _, _, err := vasp.ReadVBM(path, 0.1)
	require.Error(t, err)
}

// doscarFixture has NEDOS = 4 and a trailing ion-projected block that must
// not be read.
const doscarFixture = `   2   2   1   0
  0.2996857E+02  0.5168780E-09  0.5168780E-09  0.5168780E-09  0.5000000E-15
  1.000000000000000E-004
  CAR
 test system
     10.00000000  -5.00000000    4  6.00000000  1.00000000
    5.0000   10.0000    0.1000
    6.0000   10.0000    0.2000
    7.0000    0.0000    0.2000
    8.0000    0.0000    0.2000
     10.00000000  -5.00000000    4  6.00000000  1.00000000
    5.0000    1.0  1.0  1.0  1.0  1.0  1.0  1.0  1.0  1.0
`

func TestReadDOSFromDOSCAR(t *testing.T) {
	path := writeFile(t, "DOSCAR", doscarFixture)
	table, err := vasp.ReadDOS(path, 6.0)
	require.NoError(t, err)
	require.Equal(t, 4, table.Len())
	require.Equal(t, -1.0, table.EMin())
	require.Equal(t, 2.0, table.EMax())
}

// TestReadDOSTwoColumn loads a plain text table, with comments skipped and no
// Fermi shift.
func TestReadDOSTwoColumn(t *testing.T) {
	path := writeFile(t, "dos.dat", `# energy  dos
  -1.0   5.0
   0.0   5.0
   1.0   0.0
   2.0   0.0
`)
	table, err := vasp.ReadDOS(path, 0)
	require.NoError(t, err)
	require.Equal(t, 4, table.Len())
	require.Equal(t, -1.0, table.EMin())
	require.Equal(t, 2.0, table.EMax())
}

func TestReadDOSErrors(t *testing.T) {
	_, err := vasp.ReadDOS(filepath.Join(t.TempDir(), "missing"), 0)
	require.Error(t, err)

	path := writeFile(t, "dos.dat", "0.0\n1.0\n")
	_, err = vasp.ReadDOS(path, 0)
	require.Error(t, err)

	truncated := writeFile(t, "DOSCAR", `   2   2   1   0
 header
  1.0
  CAR
 system
  10.0 -5.0  99  6.0  1.0
  5.0  1.0  0.1
`)
	_, err = vasp.ReadDOS(truncated, 0)
	require.Error(t, err)

	// counter line too short to hold NEDOS
	short := writeFile(t, "DOSCAR", `   2   2   1   0
 header
  1.0
  CAR
 system
  10.00000000
  5.0  1.0  0.1
`)
	_, err = vasp.ReadDOS(short, 0)
	require.Error(t, err)

	negative := writeFile(t, "DOSCAR", `   2   2   1   0
 header
  1.0
  CAR
 system
  10.0 -5.0  -4  6.0  1.0
  5.0  1.0  0.1
`)
	_, err = vasp.ReadDOS(negative, 0)
	require.Error(t, err)
}
