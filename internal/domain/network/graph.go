package network

import (
	"encoding/json"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/turtacn/vizcrn/pkg/errors"
)

// Node is a decorated species. Name is the display label after relabeling;
// ID is the node id from the compound table.
type Node struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Geometry     string   `json:"geometry"`
	Energy       float64  `json:"energy"`
	ZPVE         float64  `json:"ZPVE"`
	Degree       int      `json:"degree"`
	Charge       string   `json:"charge"`
	Multiplicity string   `json:"multiplicity"`
	Formula      string   `json:"formula"`
	Neighbors    []string `json:"neighbors"`
	Adduct       bool     `json:"adduct"`

	// neighborIDs is the pre-relabel snapshot replaced by Neighbors.
	neighborIDs []int64
}

// Barrier is an energy difference relative to one endpoint of an edge. The
// endpoint is the node id, fixed before relabeling.
type Barrier struct {
	Value  float64
	NodeID int64
}

// String renders "<value> (<node id>)" with two decimals.
func (b Barrier) String() string {
	return fmt.Sprintf("%.2f (%d)", b.Value, b.NodeID)
}

func (b Barrier) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// Edge is a decorated elementary step. Endpoint order is reactant, product of
// the step that last wrote the edge.
type Edge struct {
	From         string  `json:"source"`
	To           string  `json:"target"`
	FromID       int64   `json:"-"`
	ToID         int64   `json:"-"`
	TS           TSRef   `json:"-"`
	Barrierless  bool    `json:"barrierless"`
	Name         string  `json:"name"`
	Geometry     string  `json:"geometry,omitempty"`
	Energy       float64 `json:"energy"`
	ZPVE         float64 `json:"ZPVE"`
	DeltaE1      Barrier `json:"deltaE1"`
	DeltaE2      Barrier `json:"deltaE2"`
	Charge       string  `json:"charge,omitempty"`
	Multiplicity string  `json:"multiplicity,omitempty"`
	Formula      string  `json:"formula,omitempty"`
}

type edgeKey [2]int64

func keyOf(u, v int64) edgeKey {
	if u > v {
		u, v = v, u
	}
	return edgeKey{u, v}
}

// Graph is the undirected display graph. Parallel steps between the same
// endpoints share one edge.
type Graph struct {
	g      *simple.UndirectedGraph
	nodes  map[int64]*Node
	edges  map[edgeKey]*Edge
	order  []edgeKey
	byName map[string]int64
}

func newGraph() *Graph {
	return &Graph{
		g:      simple.NewUndirectedGraph(),
		nodes:  make(map[int64]*Node),
		edges:  make(map[edgeKey]*Edge),
		byName: make(map[string]int64),
	}
}

// setEdge inserts or replaces the u-v edge. It reports whether an edge
// already existed. Insertion order of the first write is kept.
func (gr *Graph) setEdge(u, v int64, e *Edge) (replaced bool) {
	k := keyOf(u, v)
	if _, ok := gr.edges[k]; ok {
		replaced = true
	} else {
		gr.order = append(gr.order, k)
	}
	gr.g.SetEdge(simple.Edge{F: simple.Node(u), T: simple.Node(v)})
	gr.edges[k] = e
	return replaced
}

// ensureNode adds id as an isolated node unless it is already present.
func (gr *Graph) ensureNode(id int64) {
	if gr.g.Node(id) == nil {
		gr.g.AddNode(simple.Node(id))
	}
}

// relabel assigns display names and refreshes neighbor lists from them.
func (gr *Graph) relabel(names map[int64]string) error {
	byName := make(map[string]int64, len(names))
	for id, name := range names {
		if other, dup := byName[name]; dup {
			return errors.New(errors.CodeDuplicateLabel, "two nodes share a display label").
				WithDetailf("label=%q ids=%d,%d", name, other, id)
		}
		byName[name] = id
	}
	for id, n := range gr.nodes {
		n.Name = names[id]
	}
	for _, e := range gr.edges {
		e.From = names[e.FromID]
		e.To = names[e.ToID]
	}
	gr.byName = byName

	for id, n := range gr.nodes {
		neighbors := graph.NodesOf(gr.g.From(id))
		n.Neighbors = make([]string, len(neighbors))
		for i, m := range neighbors {
			n.Neighbors[i] = names[m.ID()]
		}
		sort.Strings(n.Neighbors)
		n.neighborIDs = nil
	}
	return nil
}

// Topology exposes the underlying gonum graph for layout algorithms.
func (gr *Graph) Topology() graph.Undirected { return gr.g }

// NodeCount returns the number of nodes.
func (gr *Graph) NodeCount() int { return len(gr.nodes) }

// EdgeCount returns the number of edges.
func (gr *Graph) EdgeCount() int { return len(gr.edges) }

// Node returns the node with display name name.
func (gr *Graph) Node(name string) (*Node, bool) {
	id, ok := gr.byName[name]
	if !ok {
		return nil, false
	}
	return gr.nodes[id], true
}

// NodeByID returns the node with table id id.
func (gr *Graph) NodeByID(id int64) (*Node, bool) {
	n, ok := gr.nodes[id]
	return n, ok
}

// Nodes returns all nodes ordered by name.
func (gr *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(gr.nodes))
	for _, n := range gr.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Edges returns all edges in first-insertion order.
func (gr *Graph) Edges() []*Edge {
	out := make([]*Edge, len(gr.order))
	for i, k := range gr.order {
		out[i] = gr.edges[k]
	}
	return out
}

// Edge returns the edge between two display names, in either direction.
func (gr *Graph) Edge(a, b string) (*Edge, bool) {
	u, ok := gr.byName[a]
	if !ok {
		return nil, false
	}
	v, ok := gr.byName[b]
	if !ok {
		return nil, false
	}
	e, ok := gr.edges[keyOf(u, v)]
	return e, ok
}

// MarshalJSON emits {"nodes": [...], "edges": [...]}.
func (gr *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Nodes []*Node `json:"nodes"`
		Edges []*Edge `json:"edges"`
	}{gr.Nodes(), gr.Edges()})
}
