// Package kinetics converts between barriers and rate constants and carries
// the energy-unit helpers used when decorating the network.
package kinetics

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// RoomTemperature in kelvin.
	RoomTemperature = 298.15
	// GasConstant in kJ/(mol K).
	GasConstant = 0.008314462618
	// Boltzmann constant in J/K.
	Boltzmann = 1.380649e-23
	// Planck constant in J s.
	Planck = 6.62607015e-34

	HartreeToKJMol   = 2625.4996394799
	KcalMolToKJMol   = 4.184
	HartreeToKcalMol = HartreeToKJMol / KcalMolToKJMol
)

// EnergyFactor returns the factor converting unit to kJ/mol.
func EnergyFactor(unit string) (float64, error) {
	switch unit {
	case "hartree", "":
		return HartreeToKJMol, nil
	case "kjmol":
		return 1, nil
	case "kcalmol":
		return KcalMolToKJMol, nil
	default:
		return 0, fmt.Errorf("kinetics: unknown energy unit %q", unit)
	}
}

// RateConstant returns the Eyring rate constant (1/s) for a free-energy
// barrier dG in kJ/mol at temperature T.
func RateConstant(dG, T float64) float64 {
	return Boltzmann * T / Planck * math.Exp(-dG/(GasConstant*T))
}

// BarrierFromRate inverts RateConstant. k must be positive.
func BarrierFromRate(k, T float64) float64 {
	return -GasConstant * T * math.Log(k*Planck/(Boltzmann*T))
}

// Barriers holds forward and backward barriers of one step.
type Barriers struct {
	Forward  float64
	Backward float64
}

// BarriersFrom computes barriers from reactant, product and transition-state
// energies. A nil transition state means a barrierless step, whose effective
// transition state is the higher of the two sides. ok is false when a side
// energy is missing.
func BarriersFrom(lhs, rhs, ts *float64) (b Barriers, ok bool) {
	if lhs == nil || rhs == nil {
		return Barriers{}, false
	}
	top := math.Max(*lhs, *rhs)
	if ts != nil {
		top = *ts
	}
	return Barriers{Forward: top - *lhs, Backward: top - *rhs}, true
}

// CompositeEnergy corrects a high-level electronic energy with the thermal
// contribution of a lower level: elecHigh + (gibbsLow - elecLow).
func CompositeEnergy(elecHigh, gibbsLow, elecLow float64) float64 {
	return elecHigh + (gibbsLow - elecLow)
}

// StoichFormula renders O, C and H counts in that order, omitting zero counts
// and unit suffixes: (1, 2, 4) -> "OC2H4".
func StoichFormula(nO, nC, nH int) string {
	var sb strings.Builder
	for _, p := range []struct {
		sym string
		n   int
	}{{"O", nO}, {"C", nC}, {"H", nH}} {
		switch {
		case p.n == 1:
			sb.WriteString(p.sym)
		case p.n >= 2:
			sb.WriteString(p.sym)
			sb.WriteString(strconv.Itoa(p.n))
		}
	}
	return sb.String()
}
