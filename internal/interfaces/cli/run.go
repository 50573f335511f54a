package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/vizcrn/internal/application/pipeline"
	"github.com/turtacn/vizcrn/internal/infrastructure/monitoring/logging"
)

// RunSummary is the printable outcome of run, extract and render.
type RunSummary struct {
	RunID       string            `json:"run_id" yaml:"run_id"`
	Reactions   int               `json:"reactions" yaml:"reactions"`
	Compounds   int               `json:"compounds" yaml:"compounds"`
	Excluded    map[string]int    `json:"excluded,omitempty" yaml:"excluded,omitempty"`
	Nodes       int               `json:"nodes" yaml:"nodes"`
	Edges       int               `json:"edges" yaml:"edges"`
	Collapsed   int               `json:"collapsed" yaml:"collapsed"`
	SelfLoops   int               `json:"self_loops" yaml:"self_loops"`
	Barrierless int               `json:"barrierless" yaml:"barrierless"`
	Output      string            `json:"output,omitempty" yaml:"output,omitempty"`
	Published   []string          `json:"published,omitempty" yaml:"published,omitempty"`
	Stages      map[string]string `json:"stages" yaml:"stages"`
}

func summarize(rep *pipeline.Report, output string) *RunSummary {
	s := &RunSummary{
		RunID:  rep.RunID,
		Output: output,
		Stages: make(map[string]string, len(rep.Stages)),
	}
	if rep.Extraction != nil {
		s.Reactions = len(rep.Extraction.Reactions)
		s.Compounds = len(rep.Extraction.Compounds)
		s.Excluded = rep.Extraction.Excluded
	}
	if rep.Graph != nil {
		s.Nodes = rep.Graph.NodeCount()
		s.Edges = rep.Graph.EdgeCount()
		s.Collapsed = rep.Stats.Collapsed
		s.SelfLoops = rep.Stats.SelfLoops
		s.Barrierless = rep.Stats.Barrierless
	}
	for _, obj := range rep.Published {
		s.Published = append(s.Published, obj.ObjectKey)
	}
	for name, d := range rep.Stages {
		s.Stages[name] = d.String()
	}
	return s
}

func (s *RunSummary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "run %s\n", s.RunID)
	if s.Reactions > 0 || len(s.Excluded) > 0 {
		fmt.Fprintf(&sb, "  extracted: %d reactions, %d compounds\n", s.Reactions, s.Compounds)
		for _, reason := range sortedKeys(s.Excluded) {
			fmt.Fprintf(&sb, "  excluded (%s): %d\n", reason, s.Excluded[reason])
		}
	}
	if s.Nodes > 0 {
		fmt.Fprintf(&sb, "  graph: %d nodes, %d edges (%d barrierless, %d collapsed, %d self-loops skipped)\n",
			s.Nodes, s.Edges, s.Barrierless, s.Collapsed, s.SelfLoops)
	}
	if s.Output != "" {
		fmt.Fprintf(&sb, "  page: %s\n", s.Output)
	}
	for _, key := range s.Published {
		fmt.Fprintf(&sb, "  published: %s\n", key)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// TableHeaders lists one row per stage.
func (s *RunSummary) TableHeaders() []string { return []string{"STAGE", "DURATION"} }

func (s *RunSummary) TableRows() [][]string {
	rows := make([][]string, 0, len(s.Stages)+2)
	for _, name := range sortedKeys(s.Stages) {
		rows = append(rows, []string{name, s.Stages[name]})
	}
	rows = append(rows,
		[]string{"nodes", strconv.Itoa(s.Nodes)},
		[]string{"edges", strconv.Itoa(s.Edges)},
	)
	return rows
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type pipelineStep func(p *pipeline.Pipeline, cmd *cobra.Command, cliCtx *CLIContext) (*pipeline.Report, error)

// runPipeline builds a pipeline from the CLI context and runs step. The
// report is printed even when the step fails part way.
func runPipeline(cmd *cobra.Command, showOutput bool, step pipelineStep) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	p, err := pipeline.New(cliCtx.Config, cliCtx.Logger)
	if err != nil {
		return err
	}
	rep, err := step(p, cmd, cliCtx)
	if err != nil {
		cliCtx.Logger.Error("command failed", logging.String("command", cmd.Name()), logging.Err(err))
		return err
	}
	output := ""
	if showOutput {
		output = cliCtx.Config.Output.File
	}
	return PrintResult(cmd, summarize(rep, output))
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline: extract, write, read, build, render and publish",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, true, func(p *pipeline.Pipeline, cmd *cobra.Command, cliCtx *CLIContext) (*pipeline.Report, error) {
				ctx, cancel := commandContext(cmd, cliCtx)
				defer cancel()
				return p.Run(ctx)
			})
		},
	}
}

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "Extract the network from the reaction database and write the edge and compound files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, false, func(p *pipeline.Pipeline, cmd *cobra.Command, cliCtx *CLIContext) (*pipeline.Report, error) {
				ctx, cancel := commandContext(cmd, cliCtx)
				defer cancel()
				return p.Extract(ctx)
			})
		},
	}
}

func newRenderCmd() *cobra.Command {
	var layout, mapField, out string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the network page from existing edge and compound files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, true, func(p *pipeline.Pipeline, cmd *cobra.Command, cliCtx *CLIContext) (*pipeline.Report, error) {
				ctx, cancel := commandContext(cmd, cliCtx)
				defer cancel()
				return p.Render(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&layout, "layout", "", "layout function (spring, kamada_kawai, spectral, circular)")
	cmd.Flags().StringVar(&mapField, "map-field", "", "node coloring field (energy, degree)")
	cmd.Flags().StringVar(&out, "out", "", "output page path")
	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		cliCtx, err := GetCLIContext(cmd)
		if err != nil {
			return err
		}
		if layout != "" {
			cliCtx.Config.Graph.Layout = layout
		}
		if mapField != "" {
			cliCtx.Config.Graph.MapField = mapField
		}
		if out != "" {
			cliCtx.Config.Output.File = out
		}
		return nil
	}
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		// Skips config loading so version works without a valid config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "vizcrn %s\n  commit: %s\n  built:  %s\n", Version, GitCommit, BuildDate)
			return nil
		},
	}
}
