package consts

const (
	CHARGE      = 1.6021918e-19 // Elementary charge (C)
	BOLTZMANN   = 1.3806226e-23 // Boltzmann constant (J/K)
	KB_EV       = 8.617333e-5   // Boltzmann constant (eV/K)
	KELVIN      = 273.15        // Kelvin temperature (K)
	ROOM_TEMP   = 300.0         // Default temperature (K)
	CM3_PER_A3  = 1e-24         // Cubic angstrom (cm^3)
	PER_A3_CM3  = 1e24          // 1/A^3 in 1/cm^3
	DEFAULT_TOL = 1e-6          // Fermi level tolerance (eV)
)
