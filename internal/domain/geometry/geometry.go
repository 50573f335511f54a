// Package geometry holds atomic coordinate lists and the display helpers the
// graph builder applies to them: length-unit rescaling, coordinate blocks and
// molecular formulas.
package geometry

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// BohrToAngstrom converts atomic length units to angstrom.
const BohrToAngstrom = 0.529177210903

// LengthFactor returns the factor converting unit to angstrom.
func LengthFactor(unit string) (float64, error) {
	switch unit {
	case "bohr", "":
		return BohrToAngstrom, nil
	case "angstrom":
		return 1, nil
	default:
		return 0, fmt.Errorf("geometry: unknown length unit %q", unit)
	}
}

// Atom is one element symbol at a position. On the wire it is the pair
// ["C", [x, y, z]].
type Atom struct {
	Symbol string
	Pos    r3.Vec
}

func (a Atom) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{a.Symbol, [3]float64{a.Pos.X, a.Pos.Y, a.Pos.Z}})
}

func (a *Atom) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("geometry: atom must be [symbol, [x, y, z]]: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("geometry: atom must have 2 entries, got %d", len(raw))
	}
	var sym string
	if err := json.Unmarshal(raw[0], &sym); err != nil {
		return fmt.Errorf("geometry: atom symbol: %w", err)
	}
	var pos []float64
	if err := json.Unmarshal(raw[1], &pos); err != nil {
		return fmt.Errorf("geometry: atom position: %w", err)
	}
	if len(pos) != 3 {
		return fmt.Errorf("geometry: atom position must have 3 components, got %d", len(pos))
	}
	a.Symbol = sym
	a.Pos = r3.Vec{X: pos[0], Y: pos[1], Z: pos[2]}
	return nil
}

// Coords is an ordered atom list for one fragment.
type Coords []Atom

// Rescale converts c from bohr to angstrom and adds translation. The input is
// not modified.
func Rescale(c Coords, translation r3.Vec) Coords {
	return RescaleBy(c, BohrToAngstrom, translation)
}

// RescaleBy multiplies every position by factor, then adds translation.
func RescaleBy(c Coords, factor float64, translation r3.Vec) Coords {
	out := make(Coords, len(c))
	for i, a := range c {
		out[i] = Atom{Symbol: a.Symbol, Pos: r3.Add(r3.Scale(factor, a.Pos), translation)}
	}
	return out
}

// Translate shifts every position by d.
func Translate(c Coords, d r3.Vec) Coords {
	return RescaleBy(c, 1, d)
}

// Centroid is the unweighted mean position. An empty list yields the origin.
func Centroid(c Coords) r3.Vec {
	var sum r3.Vec
	if len(c) == 0 {
		return sum
	}
	for _, a := range c {
		sum = r3.Add(sum, a.Pos)
	}
	return r3.Scale(1/float64(len(c)), sum)
}

// CoordsToBlock renders one "<element> <x> <y> <z>" line per atom with six
// decimals, joined by newlines.
func CoordsToBlock(c Coords) string {
	lines := make([]string, len(c))
	for i, a := range c {
		lines[i] = fmt.Sprintf("%s %.6f %.6f %.6f", a.Symbol, a.Pos.X, a.Pos.Y, a.Pos.Z)
	}
	return strings.Join(lines, "\n")
}

// Formula counts atoms per element and renders them in lexicographic symbol
// order, omitting a count of 1: C,H,H,O -> "CH2O".
func Formula(c Coords) string {
	counts := make(map[string]int)
	for _, a := range c {
		counts[a.Symbol]++
	}
	symbols := make([]string, 0, len(counts))
	for s := range counts {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	var sb strings.Builder
	for _, s := range symbols {
		sb.WriteString(s)
		if n := counts[s]; n > 1 {
			sb.WriteString(strconv.Itoa(n))
		}
	}
	return sb.String()
}

// Concat joins fragment lists into one.
func Concat(frags ...Coords) Coords {
	var n int
	for _, f := range frags {
		n += len(f)
	}
	out := make(Coords, 0, n)
	for _, f := range frags {
		out = append(out, f...)
	}
	return out
}

// Axis returns the unit vector for "x", "y" or "z".
func Axis(name string) (r3.Vec, error) {
	switch name {
	case "x", "":
		return r3.Vec{X: 1}, nil
	case "y":
		return r3.Vec{Y: 1}, nil
	case "z":
		return r3.Vec{Z: 1}, nil
	default:
		return r3.Vec{}, fmt.Errorf("geometry: unknown axis %q", name)
	}
}
