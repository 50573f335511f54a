package network

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/vizcrn/internal/domain/geometry"
	"github.com/turtacn/vizcrn/internal/domain/kinetics"
	"github.com/turtacn/vizcrn/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/vizcrn/pkg/errors"
)

// Options tune graph construction.
type Options struct {
	// AdductGap is the spacing in angstrom between fragment centers of a
	// merged adduct.
	AdductGap float64
	// Axis is the unit vector fragments are laid out along.
	Axis r3.Vec
	// LengthFactor converts record coordinates to angstrom.
	LengthFactor float64
	// EnergyFactor converts record energies to kJ/mol.
	EnergyFactor float64
}

// DefaultOptions lays adducts out 3 Å apart along x and converts from
// bohr/hartree.
func DefaultOptions() Options {
	return Options{
		AdductGap:    3.0,
		Axis:         r3.Vec{X: 1},
		LengthFactor: geometry.BohrToAngstrom,
		EnergyFactor: kinetics.HartreeToKJMol,
	}
}

// BuildStats counts what the builder dropped or synthesized.
type BuildStats struct {
	Reactions   int
	Collapsed   int
	SelfLoops   int
	Barrierless int
}

// Builder turns reactions and compound records into a decorated Graph.
type Builder struct {
	opts   Options
	logger logging.Logger
}

// NewBuilder returns a Builder. A nil logger discards output.
func NewBuilder(opts Options, logger logging.Logger) *Builder {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Builder{opts: opts, logger: logger.Named("builder")}
}

// Build constructs the graph. The inputs are not modified.
//
// Parallel reactions between the same two nodes collapse to one edge and the
// last one processed wins. Self-loops add no edge but keep their node.
func (b *Builder) Build(reactions []Reaction, compounds CompoundTable) (*Graph, BuildStats, error) {
	stats := BuildStats{Reactions: len(reactions)}
	gr := newGraph()

	latest := make(map[edgeKey]Reaction, len(reactions))
	for _, r := range reactions {
		if r.Reactant == r.Product {
			gr.ensureNode(r.Reactant)
			stats.SelfLoops++
			b.logger.Warn("skipping self-loop reaction", logging.Int64("node", r.Reactant), logging.String("ts", r.TS.String()))
			continue
		}
		k := keyOf(r.Reactant, r.Product)
		if prev, ok := latest[k]; ok {
			stats.Collapsed++
			b.logger.Debug("parallel reaction replaces previous edge",
				logging.String("previous", prev.String()), logging.String("current", r.String()))
		}
		latest[k] = r
		gr.setEdge(r.Reactant, r.Product, &Edge{FromID: r.Reactant, ToID: r.Product, TS: r.TS})
	}

	names := make(map[int64]string)
	for _, id := range sortedIDs(gr.g.Nodes()) {
		n, err := b.decorateNode(gr, id, compounds)
		if err != nil {
			return nil, stats, err
		}
		gr.nodes[id] = n
		names[id] = n.Name
	}

	for _, k := range gr.order {
		e := gr.edges[k]
		if err := b.decorateEdge(gr, e, compounds, stats.Barrierless); err != nil {
			return nil, stats, err
		}
		if e.Barrierless {
			stats.Barrierless++
		}
	}

	if err := gr.relabel(names); err != nil {
		return nil, stats, err
	}

	b.logger.Debug("graph built",
		logging.Int("nodes", gr.NodeCount()), logging.Int("edges", gr.EdgeCount()),
		logging.Int("collapsed", stats.Collapsed), logging.Int("barrierless", stats.Barrierless))
	return gr, stats, nil
}

func (b *Builder) decorateNode(gr *Graph, id int64, compounds CompoundTable) (*Node, error) {
	rec, err := compounds.Lookup(id)
	if err != nil {
		return nil, err
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	var coords geometry.Coords
	if rec.CrnID.Multi {
		coords = b.adductGeometry(rec.XYZ)
	} else {
		coords = b.plainGeometry(rec.XYZ)
	}

	neighbors := sortedIDs(gr.g.From(id))
	return &Node{
		ID:           id,
		Name:         rec.CrnID.Display(),
		Geometry:     geometry.CoordsToBlock(coords),
		Energy:       rec.Energy.Sum() * b.opts.EnergyFactor,
		ZPVE:         0,
		Degree:       len(neighbors),
		Charge:       rec.Charge.Join(),
		Multiplicity: rec.Multiplicity.Join(),
		Formula:      rec.Formulas(),
		Adduct:       rec.CrnID.Multi,
		neighborIDs:  neighbors,
	}, nil
}

// adductGeometry centers the first fragment on the origin and shifts
// fragment i by c0 + i*gap along the axis, c0 being the first fragment's
// centroid.
func (b *Builder) adductGeometry(frags []geometry.Coords) geometry.Coords {
	if len(frags) == 0 {
		return nil
	}
	first := geometry.RescaleBy(frags[0], b.opts.LengthFactor, r3.Vec{})
	c0 := geometry.Centroid(first)

	parts := make([]geometry.Coords, len(frags))
	parts[0] = geometry.Translate(first, r3.Scale(-1, c0))
	for i := 1; i < len(frags); i++ {
		shift := r3.Add(c0, r3.Scale(float64(i)*b.opts.AdductGap, b.opts.Axis))
		parts[i] = geometry.RescaleBy(frags[i], b.opts.LengthFactor, shift)
	}
	return geometry.Concat(parts...)
}

func (b *Builder) plainGeometry(frags []geometry.Coords) geometry.Coords {
	parts := make([]geometry.Coords, len(frags))
	for i, f := range frags {
		parts[i] = geometry.RescaleBy(f, b.opts.LengthFactor, r3.Vec{})
	}
	return geometry.Concat(parts...)
}

func (b *Builder) decorateEdge(gr *Graph, e *Edge, compounds CompoundTable, barrierlessSeq int) error {
	e1 := gr.nodes[e.FromID].Energy
	e2 := gr.nodes[e.ToID].Energy

	var tsEnergy float64
	if !e.TS.Valid {
		tsEnergy = math.Max(e1, e2)
		e.Barrierless = true
		e.Name = fmt.Sprintf("TSb_%04d", barrierlessSeq)
		e.Energy = 0
		e.ZPVE = 0
		b.logger.Debug("barrierless step", logging.String("edge", e.Name),
			logging.Int64("from", e.FromID), logging.Int64("to", e.ToID))
	} else {
		rec, err := compounds.Lookup(e.TS.ID)
		if err != nil {
			return errors.Wrap(err, errors.CodeUnknown, "transition state record missing")
		}
		if err := rec.Validate(); err != nil {
			return err
		}
		tsEnergy = rec.Energy.Sum() * b.opts.EnergyFactor
		e.Name = rec.CrnID.Display()
		e.Geometry = geometry.CoordsToBlock(b.plainGeometry(rec.XYZ))
		e.Energy = tsEnergy
		e.ZPVE = 0
		e.Charge = rec.Charge.Join()
		e.Multiplicity = rec.Multiplicity.Join()
		e.Formula = rec.Formulas()
	}

	e.DeltaE1 = Barrier{Value: tsEnergy - e1, NodeID: e.FromID}
	e.DeltaE2 = Barrier{Value: tsEnergy - e2, NodeID: e.ToID}
	return nil
}

func sortedIDs(it graph.Nodes) []int64 {
	var ids []int64
	for it.Next() {
		ids = append(ids, it.Node().ID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
