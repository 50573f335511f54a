package network

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/vizcrn/internal/domain/geometry"
	"github.com/turtacn/vizcrn/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/vizcrn/pkg/errors"
)

// unitOptions keeps coordinates and energies unconverted.
func unitOptions() Options {
	return Options{AdductGap: 3.0, Axis: r3.Vec{X: 1}, LengthFactor: 1, EnergyFactor: 1}
}

func atom(sym string, x, y, z float64) geometry.Atom {
	return geometry.Atom{Symbol: sym, Pos: r3.Vec{X: x, Y: y, Z: z}}
}

func single(id string, energy float64, atoms ...geometry.Atom) *CompoundRecord {
	return &CompoundRecord{
		CrnID:        SingleLabel(id),
		XYZ:          []geometry.Coords{atoms},
		Charge:       Scalars{0},
		Multiplicity: Scalars{1},
		Energy:       Scalars{energy},
	}
}

// sampleNetwork: A(1) <-> B+C adduct(2) via TS(3); adduct(2) <-> D(4) barrierless.
func sampleNetwork() ([]Reaction, CompoundTable) {
	compounds := CompoundTable{
		1: single("A", -100, atom("C", 0, 0, 0), atom("H", 1, 0, 0), atom("H", -1, 0, 0), atom("O", 0, 1, 0)),
		2: {
			CrnID: AdductLabel("B", "C"),
			XYZ: []geometry.Coords{
				{atom("O", 1, 1, 1), atom("H", 2, 1, 1), atom("H", 0, 1, 1)},
				{atom("H", 0, 0, 0), atom("H", 0, 0, 1)},
			},
			Charge:       Scalars{0, 1},
			Multiplicity: Scalars{1, 2},
			Energy:       Scalars{-60, -35},
		},
		3: single("TS-A-BC", -70, atom("C", 0, 0, 0), atom("O", 0, 0, 1)),
		4: single("D", -90, atom("N", 0, 0, 0)),
	}
	reactions := []Reaction{
		{Reactant: 1, Product: 2, TS: SomeTS(3)},
		{Reactant: 2, Product: 4, TS: NoTS},
	}
	return reactions, compounds
}

func build(t *testing.T, reactions []Reaction, compounds CompoundTable) (*Graph, BuildStats) {
	t.Helper()
	g, stats, err := NewBuilder(unitOptions(), nil).Build(reactions, compounds)
	require.NoError(t, err)
	return g, stats
}

func buildSample(t *testing.T) (*Graph, BuildStats) {
	t.Helper()
	reactions, compounds := sampleNetwork()
	return build(t, reactions, compounds)
}

func TestBuild_NodesAreDecorated(t *testing.T) {
	g, _ := buildSample(t)

	require.Equal(t, 3, g.NodeCount())
	require.Equal(t, 2, g.EdgeCount())

	a, ok := g.Node("A")
	require.True(t, ok)
	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, -100.0, a.Energy)
	assert.Equal(t, 0.0, a.ZPVE)
	assert.Equal(t, 1, a.Degree)
	assert.Equal(t, "0", a.Charge)
	assert.Equal(t, "1", a.Multiplicity)
	assert.Equal(t, "CH2O", a.Formula)
	assert.Equal(t, []string{"B+C"}, a.Neighbors)

	adduct, ok := g.Node("B+C")
	require.True(t, ok)
	assert.Equal(t, -95.0, adduct.Energy)
	assert.Equal(t, 2, adduct.Degree)
	assert.Equal(t, "0;1", adduct.Charge)
	assert.Equal(t, "1;2", adduct.Multiplicity)
	assert.Equal(t, "H2O;H2", adduct.Formula)
	assert.Equal(t, []string{"A", "D"}, adduct.Neighbors)

	_, ok = g.Node("TS-A-BC")
	assert.False(t, ok, "transition states are edge attributes, not nodes")
}

func TestBuild_AdductGeometry(t *testing.T) {
	g, _ := buildSample(t)
	adduct, _ := g.Node("B+C")

	lines := strings.Split(adduct.Geometry, "\n")
	require.Len(t, lines, 5)

	parse := func(line string) r3.Vec {
		f := strings.Fields(line)
		require.Len(t, f, 4)
		var v [3]float64
		for i := range v {
			x, err := strconv.ParseFloat(f[i+1], 64)
			require.NoError(t, err)
			v[i] = x
		}
		return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
	}

	// first fragment centered on the origin
	var sum r3.Vec
	for _, l := range lines[:3] {
		sum = r3.Add(sum, parse(l))
	}
	assert.InDelta(t, 0, sum.X, 1e-6)
	assert.InDelta(t, 0, sum.Y, 1e-6)
	assert.InDelta(t, 0, sum.Z, 1e-6)

	// second fragment shifted by centroid(first) + 1*3.0 along x
	c0 := r3.Vec{X: 1, Y: 1, Z: 1}
	h1 := parse(lines[3])
	h2 := parse(lines[4])
	assert.InDelta(t, c0.X+3.0, h1.X, 1e-6)
	assert.InDelta(t, c0.Y, h1.Y, 1e-6)
	assert.InDelta(t, c0.Z, h1.Z, 1e-6)
	assert.InDelta(t, c0.Z+1, h2.Z, 1e-6)
	assert.True(t, strings.HasPrefix(lines[3], "H "))
}

func TestBuild_AdductGeometryAlongConfiguredAxis(t *testing.T) {
	reactions, compounds := sampleNetwork()
	opts := unitOptions()
	opts.Axis = r3.Vec{Z: 1}
	opts.AdductGap = 4.5

	g, _, err := NewBuilder(opts, nil).Build(reactions, compounds)
	require.NoError(t, err)
	adduct, _ := g.Node("B+C")
	lines := strings.Split(adduct.Geometry, "\n")
	assert.Equal(t, "H 1.000000 1.000000 5.500000", lines[3])
}

func TestBuild_RegularEdge(t *testing.T) {
	g, _ := buildSample(t)

	e, ok := g.Edge("A", "B+C")
	require.True(t, ok)
	assert.False(t, e.Barrierless)
	assert.Equal(t, "TS-A-BC", e.Name)
	assert.Equal(t, "C 0.000000 0.000000 0.000000\nO 0.000000 0.000000 1.000000", e.Geometry)
	assert.Equal(t, -70.0, e.Energy)
	assert.Equal(t, "CO", e.Formula)
	assert.Equal(t, "0", e.Charge)
	assert.Equal(t, "A", e.From)
	assert.Equal(t, "B+C", e.To)

	assert.InDelta(t, 30.0, e.DeltaE1.Value, 1e-9)
	assert.Equal(t, "30.00 (1)", e.DeltaE1.String())
	assert.InDelta(t, 25.0, e.DeltaE2.Value, 1e-9)
	assert.Equal(t, "25.00 (2)", e.DeltaE2.String())
}

func TestBuild_BarrierlessUsesHigherEndpoint(t *testing.T) {
	compounds := CompoundTable{
		1: single("X", -100, atom("H", 0, 0, 0)),
		2: single("Y", -95, atom("H", 0, 0, 0)),
	}
	g, stats := build(t, []Reaction{{Reactant: 1, Product: 2, TS: NoTS}}, compounds)

	e, ok := g.Edge("X", "Y")
	require.True(t, ok)
	assert.True(t, e.Barrierless)
	assert.Equal(t, "TSb_0000", e.Name)
	assert.Empty(t, e.Geometry)
	assert.Equal(t, 0.0, e.Energy)
	assert.Equal(t, 0.0, e.ZPVE)
	assert.Empty(t, e.Formula)
	assert.InDelta(t, 5.0, e.DeltaE1.Value, 1e-9)
	assert.Equal(t, "5.00 (1)", e.DeltaE1.String())
	assert.InDelta(t, 0.0, e.DeltaE2.Value, 1e-9)
	assert.Equal(t, 1, stats.Barrierless)
}

func TestBuild_BarrierlessNamesAreSequential(t *testing.T) {
	compounds := CompoundTable{
		1: single("P", -1, atom("H", 0, 0, 0)),
		2: single("Q", -2, atom("H", 0, 0, 0)),
		3: single("R", -3, atom("H", 0, 0, 0)),
	}
	g, _ := build(t, []Reaction{{Reactant: 1, Product: 2}, {Reactant: 2, Product: 3}}, compounds)

	edges := g.Edges()
	require.Len(t, edges, 2)
	assert.Equal(t, "TSb_0000", edges[0].Name)
	assert.Equal(t, "TSb_0001", edges[1].Name)
}

func TestBuild_ParallelStepsCollapse(t *testing.T) {
	compounds := CompoundTable{
		3:  single("N3", -10, atom("H", 0, 0, 0)),
		7:  single("N7", -12, atom("H", 0, 0, 0)),
		10: single("TS1", -5, atom("H", 0, 0, 0)),
		11: single("TS2", -4, atom("H", 0, 0, 0)),
	}
	reactions := []Reaction{
		{Reactant: 3, Product: 7, TS: SomeTS(10)},
		{Reactant: 7, Product: 3, TS: SomeTS(11)},
	}
	g, stats := build(t, reactions, compounds)

	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, 1, stats.Collapsed)
	_, ok := g.Edge("N3", "N7")
	assert.True(t, ok)
	_, ok = g.Edge("N7", "N3")
	assert.True(t, ok)
}

func TestBuild_IsIdempotent(t *testing.T) {
	reactions, compounds := sampleNetwork()
	g1, _ := build(t, reactions, compounds)
	g2, _ := build(t, reactions, compounds)

	assert.Equal(t, g1.Nodes(), g2.Nodes())
	assert.Equal(t, g1.Edges(), g2.Edges())
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	reactions, compounds := sampleNetwork()
	before := compounds[2].XYZ[1][0].Pos
	build(t, reactions, compounds)
	assert.Equal(t, before, compounds[2].XYZ[1][0].Pos)
}

func TestBuild_MissingCompound(t *testing.T) {
	_, compounds := sampleNetwork()
	_, _, err := NewBuilder(unitOptions(), nil).Build([]Reaction{{Reactant: 1, Product: 99}}, compounds)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeCompoundMissing))
}

func TestBuild_MissingTransitionState(t *testing.T) {
	_, compounds := sampleNetwork()
	_, _, err := NewBuilder(unitOptions(), nil).Build([]Reaction{{Reactant: 1, Product: 4, TS: SomeTS(42)}}, compounds)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeCompoundMissing))
}

func TestBuild_InvalidRecord(t *testing.T) {
	reactions, compounds := sampleNetwork()
	compounds[4].Energy = Scalars{-1, -2}
	_, _, err := NewBuilder(unitOptions(), nil).Build(reactions, compounds)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeCompoundInvalid))
}

func TestBuild_DuplicateLabel(t *testing.T) {
	compounds := CompoundTable{
		1: single("same", -1, atom("H", 0, 0, 0)),
		2: single("same", -2, atom("H", 0, 0, 0)),
	}
	_, _, err := NewBuilder(unitOptions(), nil).Build([]Reaction{{Reactant: 1, Product: 2}}, compounds)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeDuplicateLabel))
}

func TestBuild_SelfLoopSkippedWithWarning(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	reactions, compounds := sampleNetwork()
	reactions = append(reactions, Reaction{Reactant: 4, Product: 4, TS: SomeTS(3)})

	g, stats, err := NewBuilder(unitOptions(), logging.NewLoggerFromCore(core)).Build(reactions, compounds)
	require.NoError(t, err)
	assert.Equal(t, 2, g.EdgeCount())
	assert.Equal(t, 1, stats.SelfLoops)
	assert.Equal(t, 1, logs.FilterMessage("skipping self-loop reaction").Len())
}

func TestBuild_SelfLoopKeepsIsolatedNode(t *testing.T) {
	reactions, compounds := sampleNetwork()
	compounds[5] = single("E", -80, atom("H", 0, 0, 0))
	reactions = append(reactions, Reaction{Reactant: 5, Product: 5, TS: NoTS})

	g, stats := build(t, reactions, compounds)
	assert.Equal(t, 1, stats.SelfLoops)
	assert.Equal(t, 4, g.NodeCount())
	assert.Equal(t, 2, g.EdgeCount())

	e, ok := g.Node("E")
	require.True(t, ok)
	assert.Equal(t, 0, e.Degree)
	assert.Empty(t, e.Neighbors)
	assert.Equal(t, -80.0, e.Energy)
}

func TestBuild_UnitConversion(t *testing.T) {
	compounds := CompoundTable{
		1: single("X", -1, atom("H", 1, 0, 0)),
		2: single("Y", -2, atom("H", 0, 0, 0)),
	}
	g, _, err := NewBuilder(DefaultOptions(), nil).Build([]Reaction{{Reactant: 1, Product: 2}}, compounds)
	require.NoError(t, err)

	x, _ := g.Node("X")
	assert.InDelta(t, -2625.4996394799, x.Energy, 1e-6)
	assert.Equal(t, "H 0.529177 0.000000 0.000000", x.Geometry)
}

func TestGraph_MarshalJSON(t *testing.T) {
	g, _ := buildSample(t)
	out, err := g.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(out), `"deltaE1":"30.00 (1)"`)
	assert.Contains(t, string(out), `"neighbors":["A","D"]`)
}
