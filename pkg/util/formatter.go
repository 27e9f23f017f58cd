package util

import (
	"fmt"
	"math"
)

// FormatEnergyFactor prints an energy with an eV/meV unit factor.
func FormatEnergyFactor(value float64) string {
	absValue := math.Abs(value)
	switch {
	case absValue >= 1 || absValue == 0:
		return fmt.Sprintf("%.3f eV", value)
	case absValue >= 1e-3:
		return fmt.Sprintf("%.3f meV", value*1e3)
	default:
		return fmt.Sprintf("%.3e eV", value)
	}
}

// FormatEnergy prints an energy in eV at table resolution.
func FormatEnergy(value float64) string {
	return fmt.Sprintf("%.4f", value)
}

// FormatConcentration prints a carrier or defect concentration in cm^-3.
func FormatConcentration(value float64) string {
	return fmt.Sprintf("%.4E", value)
}

// FormatCharge prints a signed effective charge.
func FormatCharge(value float64) string {
	return fmt.Sprintf("%+.4f", value)
}
