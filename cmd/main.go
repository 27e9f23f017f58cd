package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/JianboHIT/edoping/pkg/defect"
	"github.com/JianboHIT/edoping/pkg/fermi"
	"github.com/JianboHIT/edoping/pkg/util"
	"github.com/JianboHIT/edoping/pkg/vasp"
)

var (
	quiet   bool // only show key output
	verbose bool // show detailed output
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: edoping [-q] [-v] <subcommand> [options]

Point defect formation energy and self-consistent Fermi level tool.

Subcommands:
  cal       Calculate defect formation energy
  energy    Read final energy from OUTCAR
  ewald     Read Ewald energy from OUTCAR
  volume    Read cell volume from OUTCAR
  evbm      Read VBM/CBM from EIGENVAL
  scfermi   Calculate self-consistent Fermi level
  fzfermi   Calculate Fermi level at fixed carrier concentration
  equi      Evaluate equilibrium defect states over Fermi levels
  plot      Plot formation energy curves to PNG
`)
}

func main() {
	log.SetFlags(0)
	flag.BoolVar(&quiet, "q", false, "only show key output")
	flag.BoolVar(&verbose, "v", false, "show detailed output")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	task, rest := flag.Arg(0), flag.Args()[1:]
	switch task {
	case "cal":
		runCal(rest)
	case "energy":
		runScalar(rest, "Final energy", vasp.ReadEnergy)
	case "ewald":
		runScalar(rest, "Final (absolute) Ewald", vasp.ReadEwald)
	case "volume":
		runScalar(rest, "Final volume of cell", vasp.ReadVolume)
	case "evbm":
		runEVBM(rest)
	case "scfermi":
		runSCFermi(rest)
	case "fzfermi":
		runFZFermi(rest)
	case "equi":
		runEqui(rest)
	case "plot":
		runPlot(rest)
	default:
		log.Fatalf("Unknown subcommand %q", task)
	}
}

func runScalar(args []string, label string, read func(string) (float64, error)) {
	fs := flag.NewFlagSet("scalar", flag.ExitOnError)
	filename := fs.String("f", "OUTCAR", "filename")
	fs.Parse(args)

	value, err := read(*filename)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	if quiet {
		fmt.Printf("%.4f\n", value)
		return
	}
	fmt.Printf("%s: %.4f\n", label, value)
}

func runEVBM(args []string) {
	fs := flag.NewFlagSet("evbm", flag.ExitOnError)
	filename := fs.String("f", "EIGENVAL", "filename")
	ratio := fs.Float64("r", 0.1, "threshold of band filling ratio")
	fs.Parse(args)

	vbm, cbm, gap, err := vasp.ReadVBM(*filename, *ratio)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	switch {
	case quiet:
		fmt.Printf("%.4f\n", cbm.Energy)
	case verbose:
		dsp := "%s: %-8.4f (band #%-3d) [%9.4f%9.4f%9.4f ]\n"
		fmt.Printf(dsp, "VBM", vbm.Energy, vbm.Index, vbm.KPoint[0], vbm.KPoint[1], vbm.KPoint[2])
		fmt.Printf(dsp, "CBM", cbm.Energy, cbm.Index, cbm.KPoint[0], cbm.KPoint[1], cbm.KPoint[2])
		fmt.Printf("GAP: %.4f\n", gap)
	default:
		fmt.Printf("VBM: %.4f\n", vbm.Energy)
		fmt.Printf("CBM: %.4f\n", cbm.Energy)
		fmt.Printf("GAP: %.4f\n", gap)
	}
}

func runCal(args []string) {
	fs := flag.NewFlagSet("cal", flag.ExitOnError)
	input := fs.String("i", "edoping.toml", "input file name")
	output := fs.String("o", "edoping.dat", "output file name")
	fs.Parse(args)

	cfg, err := defect.LoadBuildConfig(*input)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	res, err := defect.Build(cfg)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	if !quiet {
		fmt.Printf("Energy of perfect cell: %.4f eV\n", res.EPerfect)
		fmt.Printf("Volume of perfect cell: %.4f A^3\n", res.Volume)
		fmt.Printf("Energy at VBM: %.4f eV\n", res.EVBM)
		fmt.Printf("Chemical potential change: %.4f eV\n", res.DeltaMu)
		if res.ImageCharge != 0 {
			fmt.Printf("Image-charge correction: Eic/q^2 = %s\n", util.FormatEnergyFactor(res.ImageCharge))
		} else {
			fmt.Println("Image-charge correction: negligible")
		}
		fmt.Println()

		fmt.Println(strings.Repeat("=", 60))
		fmt.Printf("%10s%10s%10s%10s%10s%10s\n", "q", "dE", "Eq", "Eic", "Epa", "E0")
		fmt.Println(strings.Repeat("-", 60))
		for _, e := range res.Entries {
			fmt.Printf("%+10d%10.2f%10.2f%10.2f%10.2f%10.2f\n",
				e.Q, e.DE, e.EQ, e.EIC, e.EPA, e.E0)
		}
		fmt.Println(strings.Repeat("=", 60))
		fmt.Println()

		fmt.Println("Transition energy levels:")
		fmt.Printf("  %12s  %12s  %12s\n", "Valence", "E_trans/eV", "E_defect/eV")
		for _, tr := range res.Transitions {
			fmt.Printf("  %6d/%-5d  %12.2f  %12.2f\n", tr.QFrom, tr.QTo, tr.Level, tr.Energy)
		}
	}

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer f.Close()
	if err := defect.WriteCurve(f, res.Curve); err != nil {
		log.Fatalf("Error: %v", err)
	}
	if !quiet {
		fmt.Printf("\nFormation energy data written to %s\n", *output)
	}
}

func readCurves(paths []string) []*defect.Curve {
	if len(paths) == 0 {
		log.Fatalf("Error: no formation energy files given")
	}
	curves := make([]*defect.Curve, len(paths))
	for i, path := range paths {
		c, err := defect.ReadCurve(path)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		curves[i] = c
	}
	return curves
}

func runSCFermi(args []string) {
	fs := flag.NewFlagSet("scfermi", flag.ExitOnError)
	temp := fs.Float64("t", 1000, "temperature (K)")
	dosfile := fs.String("d", "DOSCAR", "DOSCAR or two-column DOS file")
	evbm := fs.Float64("vbm", 0, "energy of VBM (crucial when reading DOSCAR)")
	fs.Parse(args)

	curves := readCurves(fs.Args())
	table, err := vasp.ReadDOS(*dosfile, *evbm)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	res, err := fermi.SCFermi(curves, table, fermi.Condition{Temp: *temp})
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	if !res.Converged {
		fmt.Fprintln(os.Stderr, "Warning: root finder hit the iteration cap; result is the best estimate")
	}

	if quiet {
		fmt.Printf("%.6f %s %s\n", res.EFermi,
			util.FormatConcentration(res.NElectron), util.FormatConcentration(res.NHole))
		return
	}
	fmt.Printf("Self-consistent Fermi level (eV) : %.3f\n", res.EFermi)
	fmt.Printf("Electron concentration (cm^-3)   : %s\n", util.FormatConcentration(res.NElectron))
	fmt.Printf("Hole concentration (cm^-3)       : %s\n", util.FormatConcentration(res.NHole))
	if verbose {
		fmt.Printf("Net charge per cell (e)          : %+.6E\n", res.NetCharge)
		fmt.Println()
		fmt.Printf("%-16s%12s%12s%14s\n", "Defect", "H_eff/eV", "q_eff", "N/cm^-3")
		for _, d := range res.Defects {
			fmt.Printf("%-16s%12s%12s%14s\n", d.Name,
				util.FormatEnergy(d.H), util.FormatCharge(d.Q), util.FormatConcentration(d.NTotal))
		}
	}
}

func runFZFermi(args []string) {
	fs := flag.NewFlagSet("fzfermi", flag.ExitOnError)
	temp := fs.Float64("t", 1000, "temperature (K)")
	dosfile := fs.String("d", "DOSCAR", "DOSCAR or two-column DOS file")
	evbm := fs.Float64("vbm", 0, "energy of VBM (crucial when reading DOSCAR)")
	fs.Parse(args)

	if fs.NArg() != 3 {
		log.Fatalf("Usage: edoping fzfermi [options] <conc/cm^-3> <charge> <volume/A^3>")
	}
	conc := parseFloatArg(fs.Arg(0), "conc")
	charge := parseFloatArg(fs.Arg(1), "charge")
	volume := parseFloatArg(fs.Arg(2), "volume")

	table, err := vasp.ReadDOS(*dosfile, *evbm)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	res, err := fermi.FZFermi(conc, charge, volume, table, fermi.Condition{Temp: *temp})
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	if !res.Converged {
		fmt.Fprintln(os.Stderr, "Warning: root finder hit the iteration cap; result is the best estimate")
	}

	if quiet {
		fmt.Printf("%.4f %.4f %.6f\n", res.H0, res.HQ, res.EFermi)
		return
	}
	fmt.Printf("Formation energy: H(Ef) = %.2f %+.3f*Ef\n", res.H0, charge)
	fmt.Printf("Formation energy at Ef = %.2f eV: %.2f eV/u.c.\n", res.EFermi, res.HQ)
	if verbose {
		fmt.Printf("Carrier mismatch per cell: %+.6E\n", res.NetCharge)
	}
}

func runEqui(args []string) {
	fs := flag.NewFlagSet("equi", flag.ExitOnError)
	temp := fs.Float64("t", 1000, "temperature (K)")
	levels := fs.String("fermi", "0", "comma-separated Fermi levels (eV)")
	emin := fs.Float64("emin", 0, "lower bound of the Fermi level sweep")
	emax := fs.Float64("emax", 1, "upper bound of the Fermi level sweep")
	npts := fs.Int("n", 0, "number of sweep intervals (0 = use -fermi)")
	ratio := fs.Bool("r", false, "normalize concentrations to fractions of the total")
	fs.Parse(args)

	var efermi []float64
	if *npts > 0 {
		efermi = floats.Span(make([]float64, *npts+1), *emin, *emax)
	} else {
		for _, s := range strings.Split(*levels, ",") {
			efermi = append(efermi, parseFloatArg(strings.TrimSpace(s), "fermi"))
		}
	}

	for _, c := range readCurves(fs.Args()) {
		points := c.Scan(efermi, *temp, !verbose)
		if *ratio && verbose {
			defect.NormalizeScan(points)
		}

		if !quiet {
			header := fmt.Sprintf("# %s:%10s%10s%10s", c.Name, "Ef", "q_eff", "H_eff")
			if verbose {
				header += fmt.Sprintf("%10s", "N_tot")
				for _, s := range c.States {
					header += fmt.Sprintf("%10s", fmt.Sprintf("N_%+d", s.Q))
				}
			}
			fmt.Println(header)
		}
		for _, pt := range points {
			fmt.Printf("%10.4f%10.4f%10.4f", pt.EFermi, pt.Q, pt.H)
			if verbose {
				fmt.Printf("%10.3E", pt.NTotal)
				for _, n := range pt.N {
					fmt.Printf("%10.3E", n)
				}
			}
			fmt.Println()
		}
	}
}

func parseFloatArg(s, name string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		log.Fatalf("Error: invalid %s value %q", name, s)
	}
	return v
}
