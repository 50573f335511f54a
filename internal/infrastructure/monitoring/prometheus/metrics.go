package prometheus

import (
	"time"

	"github.com/turtacn/vizcrn/internal/domain/network"
)

// Pipeline stage labels.
const (
	StageExtract = "extract"
	StageWrite   = "write"
	StageRead    = "read"
	StageBuild   = "build"
	StageRender  = "render"
	StagePreview = "preview"
	StagePublish = "publish"
)

// Pipeline stages are short batch steps; extraction against a remote store
// dominates.
var DefaultStageBuckets = []float64{.001, .01, .05, .1, .5, 1, 5, 10, 30, 60, 300}

// PipelineMetrics holds the metric families written by one pipeline.
type PipelineMetrics struct {
	StageDuration      HistogramVec
	StageFailures      CounterVec
	GraphNodes         GaugeVec
	GraphEdges         GaugeVec
	ReactionsExtracted CounterVec
	ReactionsExcluded  CounterVec
	EdgesCollapsed     CounterVec
	SelfLoopsSkipped   CounterVec
	LastRunTimestamp   GaugeVec
}

// NewPipelineMetrics registers every pipeline metric on collector.
func NewPipelineMetrics(collector MetricsCollector) *PipelineMetrics {
	return &PipelineMetrics{
		StageDuration:      collector.RegisterHistogram("stage_duration_seconds", "Pipeline stage duration", DefaultStageBuckets, "stage"),
		StageFailures:      collector.RegisterCounter("stage_failures_total", "Pipeline stage failures", "stage", "code"),
		GraphNodes:         collector.RegisterGauge("graph_nodes", "Nodes in the rendered network", "kind"),
		GraphEdges:         collector.RegisterGauge("graph_edges", "Edges in the rendered network", "kind"),
		ReactionsExtracted: collector.RegisterCounter("reactions_extracted_total", "Reactions projected into the edge list"),
		ReactionsExcluded:  collector.RegisterCounter("reactions_excluded_total", "Reactions dropped during extraction", "reason"),
		EdgesCollapsed:     collector.RegisterCounter("edges_collapsed_total", "Parallel reactions collapsed onto an existing edge"),
		SelfLoopsSkipped:   collector.RegisterCounter("self_loops_skipped_total", "Reactions whose sides map to the same node"),
		LastRunTimestamp:   collector.RegisterGauge("last_run_timestamp_seconds", "Unix time of the last completed run", "status"),
	}
}

// StageTimer starts timing one stage.
func (m *PipelineMetrics) StageTimer(stage string) *Timer {
	return NewTimer(m.StageDuration.WithLabelValues(stage))
}

// RecordStageFailure counts a failed stage under its error code.
func (m *PipelineMetrics) RecordStageFailure(stage, code string) {
	m.StageFailures.WithLabelValues(stage, code).Inc()
}

// RecordGraph sets the node and edge gauges from a built graph.
func (m *PipelineMetrics) RecordGraph(g *network.Graph, stats network.BuildStats) {
	var adducts float64
	for _, n := range g.Nodes() {
		if n.Adduct {
			adducts++
		}
	}
	m.GraphNodes.WithLabelValues("all").Set(float64(g.NodeCount()))
	m.GraphNodes.WithLabelValues("adduct").Set(adducts)
	m.GraphEdges.WithLabelValues("all").Set(float64(g.EdgeCount()))
	m.GraphEdges.WithLabelValues("barrierless").Set(float64(stats.Barrierless))
	m.EdgesCollapsed.WithLabelValues().Add(float64(stats.Collapsed))
	m.SelfLoopsSkipped.WithLabelValues().Add(float64(stats.SelfLoops))
}

// RecordExtraction counts projected and excluded reactions.
func (m *PipelineMetrics) RecordExtraction(extracted int, excluded map[string]int) {
	m.ReactionsExtracted.WithLabelValues().Add(float64(extracted))
	for reason, n := range excluded {
		m.ReactionsExcluded.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordRun stamps the completion time of a run.
func (m *PipelineMetrics) RecordRun(at time.Time, ok bool) {
	status := "success"
	if !ok {
		status = "failure"
	}
	m.LastRunTimestamp.WithLabelValues(status).Set(float64(at.Unix()))
}
