package dashboard

import (
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/layout"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat/mds"

	"github.com/turtacn/vizcrn/internal/domain/network"
	"github.com/turtacn/vizcrn/pkg/errors"
)

// Layout names accepted by LayoutByName.
const (
	LayoutSpring      = "spring"
	LayoutKamadaKawai = "kamada_kawai"
	LayoutSpectral    = "spectral"
	LayoutCircular    = "circular"
)

// Positions maps node id to a 2-D coordinate.
type Positions map[int64]r2.Vec

// LayoutFunc places every node of g.
type LayoutFunc func(g *network.Graph) Positions

// LayoutByName returns the layout function for name.
func LayoutByName(name string) (LayoutFunc, error) {
	switch name {
	case LayoutSpring, "":
		return SpringLayout, nil
	case LayoutKamadaKawai:
		return DistanceLayout, nil
	case LayoutSpectral:
		return SpectralLayout, nil
	case LayoutCircular:
		return CircularLayout, nil
	}
	return nil, errors.New(errors.CodeUnknownLayout, "unknown layout").WithDetail(name)
}

// sortedNodeIDs orders nodes by display name so layouts are stable across
// runs.
func sortedNodeIDs(g *network.Graph) []int64 {
	nodes := g.Nodes()
	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

// CircularLayout spaces nodes evenly on the unit circle in name order.
func CircularLayout(g *network.Graph) Positions {
	ids := sortedNodeIDs(g)
	pos := make(Positions, len(ids))
	if len(ids) == 1 {
		pos[ids[0]] = r2.Vec{}
		return pos
	}
	for i, id := range ids {
		theta := 2 * math.Pi * float64(i) / float64(len(ids))
		pos[id] = r2.Vec{X: math.Cos(theta), Y: math.Sin(theta)}
	}
	return pos
}

// SpringLayout runs the Eades force-directed optimizer.
func SpringLayout(g *network.Graph) Positions {
	ids := sortedNodeIDs(g)
	if len(ids) < 2 {
		return CircularLayout(g)
	}
	eades := layout.EadesR2{Updates: 100, Repulsion: 1, Rate: 0.05, Theta: 0.2}
	o := layout.NewOptimizerR2(g.Topology(), eades.Update)
	for o.Update() {
	}
	pos := make(Positions, len(ids))
	for _, id := range ids {
		pos[id] = o.Coord2(id)
	}
	return pos
}

// DistanceLayout embeds hop distances with classical multidimensional
// scaling, so graph distance approximates drawing distance. Nodes in
// different components are treated as n hops apart.
func DistanceLayout(g *network.Graph) Positions {
	ids := sortedNodeIDs(g)
	n := len(ids)
	if n < 3 {
		return CircularLayout(g)
	}
	index := make(map[int64]int, n)
	for i, id := range ids {
		index[id] = i
	}

	dist := mat.NewSymDense(n, nil)
	topo := g.Topology()
	for i, src := range ids {
		hops := bfsHops(topo, src)
		for j := i + 1; j < n; j++ {
			d, ok := hops[ids[j]]
			if !ok {
				d = n
			}
			dist.SetSym(i, j, float64(d))
		}
	}

	var coords mat.Dense
	k, _ := mds.TorgersonScaling(&coords, nil, dist)
	if k == 0 {
		return CircularLayout(g)
	}
	pos := make(Positions, n)
	for _, id := range ids {
		row := index[id]
		v := r2.Vec{X: coords.At(row, 0)}
		if k > 1 {
			v.Y = coords.At(row, 1)
		}
		pos[id] = v
	}
	return pos
}

func bfsHops(g graph.Undirected, src int64) map[int64]int {
	hops := map[int64]int{src: 0}
	queue := []int64{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		it := g.From(cur)
		for it.Next() {
			nb := it.Node().ID()
			if _, seen := hops[nb]; !seen {
				hops[nb] = hops[cur] + 1
				queue = append(queue, nb)
			}
		}
	}
	return hops
}

// SpectralLayout uses the eigenvectors of the graph Laplacian belonging to
// the second and third smallest eigenvalues as x and y.
func SpectralLayout(g *network.Graph) Positions {
	ids := sortedNodeIDs(g)
	n := len(ids)
	if n < 3 {
		return CircularLayout(g)
	}
	index := make(map[int64]int, n)
	for i, id := range ids {
		index[id] = i
	}

	lap := mat.NewSymDense(n, nil)
	for _, e := range g.Edges() {
		i, j := index[e.FromID], index[e.ToID]
		lap.SetSym(i, j, -1)
		lap.SetSym(i, i, lap.At(i, i)+1)
		lap.SetSym(j, j, lap.At(j, j)+1)
	}

	var eig mat.EigenSym
	if !eig.Factorize(lap, true) {
		return CircularLayout(g)
	}
	// Values are ascending, the first belongs to the constant vector.
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	pos := make(Positions, n)
	for _, id := range ids {
		row := index[id]
		pos[id] = r2.Vec{X: vecs.At(row, 1), Y: vecs.At(row, 2)}
	}
	return pos
}

// Bounds returns the bounding box of pos.
func Bounds(pos Positions) (lo, hi r2.Vec) {
	if len(pos) == 0 {
		return r2.Vec{}, r2.Vec{}
	}
	lo = r2.Vec{X: math.Inf(1), Y: math.Inf(1)}
	hi = r2.Vec{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, p := range pos {
		lo.X, lo.Y = math.Min(lo.X, p.X), math.Min(lo.Y, p.Y)
		hi.X, hi.Y = math.Max(hi.X, p.X), math.Max(hi.Y, p.Y)
	}
	return lo, hi
}

// Normalize maps pos into the unit square, preserving aspect ratio.
func Normalize(pos Positions) Positions {
	lo, hi := Bounds(pos)
	span := math.Max(hi.X-lo.X, hi.Y-lo.Y)
	out := make(Positions, len(pos))
	for id, p := range pos {
		if span == 0 {
			out[id] = r2.Vec{X: 0.5, Y: 0.5}
			continue
		}
		out[id] = r2.Vec{X: (p.X - lo.X) / span, Y: (p.Y - lo.Y) / span}
	}
	return out
}
