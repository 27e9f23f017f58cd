package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/JianboHIT/edoping/pkg/defect"
)

var linePalette = []color.RGBA{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
	{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff},
}

// runPlot renders each formation-energy file to a PNG: one thin line per
// charge state plus the thick lower envelope.
func runPlot(args []string) {
	fs := flag.NewFlagSet("plot", flag.ExitOnError)
	output := fs.String("o", "", "output file name (default <input>.png)")
	fs.Parse(args)

	if fs.NArg() == 0 {
		log.Fatalf("Error: no formation energy files given")
	}
	for _, path := range fs.Args() {
		curve, err := defect.ReadCurve(path)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		out := *output
		if out == "" || fs.NArg() > 1 {
			out = strings.TrimSuffix(path, ".dat") + ".png"
		}
		if err := plotCurve(curve, out); err != nil {
			log.Fatalf("Error: %v", err)
		}
		if !quiet {
			fmt.Printf("Plot of %s written to %s\n", curve.Name, out)
		}
	}
}

func plotCurve(curve *defect.Curve, out string) error {
	p := plot.New()
	p.Title.Text = curve.Name
	p.X.Label.Text = "Fermi level (eV)"
	p.Y.Label.Text = "Formation energy (eV)"

	emin, emax := curve.Window()
	for i, s := range curve.States {
		line, err := plotter.NewLine(plotter.XYs{
			{X: emin, Y: s.Energy(emin)},
			{X: emax, Y: s.Energy(emax)},
		})
		if err != nil {
			return fmt.Errorf("plot %s: %w", curve.Name, err)
		}
		line.Color = linePalette[i%len(linePalette)]
		line.Width = vg.Points(0.5)
		line.Dashes = []vg.Length{vg.Points(3), vg.Points(2)}
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("q = %+d", s.Q), line)
	}

	envelope := make(plotter.XYs, 0, len(curve.EFermi))
	for i, ef := range curve.EFermi {
		envelope = append(envelope, plotter.XY{X: ef, Y: curve.HMin[i]})
	}
	line, err := plotter.NewLine(envelope)
	if err != nil {
		return fmt.Errorf("plot %s: %w", curve.Name, err)
	}
	line.Width = vg.Points(2)
	p.Add(line)
	p.Legend.Add("ground state", line)
	p.Legend.Top = true

	if err := p.Save(6*vg.Inch, 4*vg.Inch, out); err != nil {
		return fmt.Errorf("plot %s: %w", curve.Name, err)
	}
	return nil
}
