package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/vizcrn/internal/application/pipeline"
	"github.com/turtacn/vizcrn/internal/domain/kinetics"
	"github.com/turtacn/vizcrn/internal/domain/network"
	"github.com/turtacn/vizcrn/pkg/errors"
)

// EdgeRow describes one elementary step of the built graph. Barriers are in
// kJ/mol relative to the named endpoint; rates are Eyring constants in 1/s.
type EdgeRow struct {
	Name        string  `json:"name" yaml:"name"`
	Source      string  `json:"source" yaml:"source"`
	Target      string  `json:"target" yaml:"target"`
	Barrierless bool    `json:"barrierless" yaml:"barrierless"`
	Stoich      string  `json:"stoich,omitempty" yaml:"stoich,omitempty"`
	Forward     float64 `json:"dE_forward" yaml:"dE_forward"`
	Backward    float64 `json:"dE_backward" yaml:"dE_backward"`
	RateForward float64 `json:"k_forward" yaml:"k_forward"`
	RateBack    float64 `json:"k_backward" yaml:"k_backward"`
}

// EdgeTable is the result of vizcrn inspect.
type EdgeTable struct {
	Temperature float64   `json:"temperature" yaml:"temperature"`
	Nodes       int       `json:"nodes" yaml:"nodes"`
	Edges       []EdgeRow `json:"edges" yaml:"edges"`
}

// NewEdgeTable tabulates the edges of g, optionally restricted to those
// touching node.
func NewEdgeTable(g *network.Graph, temperature float64, node string) (*EdgeTable, error) {
	if node != "" {
		if _, ok := g.Node(node); !ok {
			return nil, errors.New(errors.CodeNotFound, "node not in graph").WithDetail(node)
		}
	}
	t := &EdgeTable{Temperature: temperature, Nodes: g.NodeCount()}
	for _, e := range g.Edges() {
		if node != "" && e.From != node && e.To != node {
			continue
		}
		t.Edges = append(t.Edges, EdgeRow{
			Name:        e.Name,
			Source:      e.From,
			Target:      e.To,
			Barrierless: e.Barrierless,
			Stoich:      stoich(e.Geometry),
			Forward:     e.DeltaE1.Value,
			Backward:    e.DeltaE2.Value,
			RateForward: kinetics.RateConstant(e.DeltaE1.Value, temperature),
			RateBack:    kinetics.RateConstant(e.DeltaE2.Value, temperature),
		})
	}
	return t, nil
}

// stoich counts O, C and H in a geometry block of "<element> x y z" lines.
func stoich(block string) string {
	var nO, nC, nH int
	for _, line := range strings.Split(block, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "O":
			nO++
		case "C":
			nC++
		case "H":
			nH++
		}
	}
	return kinetics.StoichFormula(nO, nC, nH)
}

func (t *EdgeTable) TableHeaders() []string {
	return []string{"EDGE", "SOURCE", "TARGET", "TS", "dE_FWD", "dE_BWD", "k_FWD", "k_BWD"}
}

func (t *EdgeTable) TableRows() [][]string {
	rows := make([][]string, len(t.Edges))
	for i, e := range t.Edges {
		rows[i] = []string{
			e.Name, e.Source, e.Target, e.Stoich,
			fmt.Sprintf("%.2f", e.Forward),
			fmt.Sprintf("%.2f", e.Backward),
			fmt.Sprintf("%.3e", e.RateForward),
			fmt.Sprintf("%.3e", e.RateBack),
		}
	}
	return rows
}

func (t *EdgeTable) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d nodes, %d edges at %.2f K", t.Nodes, len(t.Edges), t.Temperature)
	for _, e := range t.Edges {
		fmt.Fprintf(&sb, "\n%s: %s <-> %s  dE %.2f / %.2f kJ/mol  k %.3e / %.3e 1/s",
			e.Name, e.Source, e.Target, e.Forward, e.Backward, e.RateForward, e.RateBack)
	}
	return sb.String()
}

func newInspectCmd() *cobra.Command {
	var (
		temperature float64
		node        string
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the edges of the network with barriers and rate constants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if temperature <= 0 {
				return errors.Newf(errors.CodeInvalidParam, "temperature must be positive, got %g", temperature)
			}
			p, err := pipeline.New(cliCtx.Config, cliCtx.Logger)
			if err != nil {
				return err
			}
			g, _, err := p.Load()
			if err != nil {
				return err
			}
			table, err := NewEdgeTable(g, temperature, node)
			if err != nil {
				return err
			}
			return PrintResult(cmd, table)
		},
	}
	cmd.Flags().Float64VarP(&temperature, "temperature", "T", kinetics.RoomTemperature, "temperature in kelvin for rate constants")
	cmd.Flags().StringVar(&node, "node", "", "only list edges touching this node")
	return cmd
}
