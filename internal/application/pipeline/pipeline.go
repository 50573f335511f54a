// Package pipeline runs the batch stages extract, write, read, build and
// render in order. Each stage completes before the next starts and the first
// failure aborts the run.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/vizcrn/internal/application/dashboard"
	"github.com/turtacn/vizcrn/internal/application/extraction"
	"github.com/turtacn/vizcrn/internal/config"
	"github.com/turtacn/vizcrn/internal/domain/geometry"
	"github.com/turtacn/vizcrn/internal/domain/kinetics"
	"github.com/turtacn/vizcrn/internal/domain/network"
	"github.com/turtacn/vizcrn/internal/infrastructure/monitoring/logging"
	prom "github.com/turtacn/vizcrn/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/vizcrn/internal/infrastructure/storage/crnfile"
	"github.com/turtacn/vizcrn/internal/infrastructure/storage/minio"
	"github.com/turtacn/vizcrn/pkg/errors"
)

// StoreFactory opens the reaction database. The returned func releases it.
type StoreFactory func(ctx context.Context) (extraction.Store, func(), error)

// CacheFactory opens the pathfinder cache at path.
type CacheFactory func(ctx context.Context, path string) (network.PathfinderCache, func(), error)

// Publisher uploads run artifacts.
type Publisher interface {
	Publish(ctx context.Context, runID string, artifacts []minio.Artifact) ([]minio.PublishedObject, error)
}

// PublisherFactory connects the artifact publisher.
type PublisherFactory func(ctx context.Context) (Publisher, error)

// Report summarizes one run.
type Report struct {
	RunID      string
	Extraction *extraction.Result
	Graph      *network.Graph
	Stats      network.BuildStats
	Published  []minio.PublishedObject
	Stages     map[string]time.Duration
}

// Pipeline wires the stages to their collaborators.
type Pipeline struct {
	cfg          *config.Config
	logger       logging.Logger
	collector    prom.MetricsCollector
	metrics      *prom.PipelineMetrics
	renderer     *dashboard.Renderer
	openStore    StoreFactory
	openCache    CacheFactory
	newPublisher PublisherFactory
	newRunID     func() string
	now          func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

func WithStoreFactory(f StoreFactory) Option         { return func(p *Pipeline) { p.openStore = f } }
func WithCacheFactory(f CacheFactory) Option         { return func(p *Pipeline) { p.openCache = f } }
func WithPublisherFactory(f PublisherFactory) Option { return func(p *Pipeline) { p.newPublisher = f } }
func WithCollector(c prom.MetricsCollector) Option   { return func(p *Pipeline) { p.collector = c } }
func WithRunID(f func() string) Option               { return func(p *Pipeline) { p.newRunID = f } }

// New validates cfg and builds a pipeline.
func New(cfg *config.Config, logger logging.Logger, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid configuration")
	}
	p := &Pipeline{
		cfg:      cfg,
		logger:   logger.Named("pipeline"),
		renderer: dashboard.NewRenderer(logger),
		newRunID: uuid.NewString,
		now:      time.Now,
	}
	p.openStore = p.neo4jStore
	p.openCache = p.pathfinderCache
	p.newPublisher = p.minioPublisher
	for _, o := range opts {
		o(p)
	}
	if p.collector == nil {
		c, err := prom.NewMetricsCollector(prom.CollectorConfig{Namespace: "vizcrn"}, logger)
		if err != nil {
			return nil, err
		}
		p.collector = c
	}
	p.metrics = prom.NewPipelineMetrics(p.collector)
	return p, nil
}

// Collector exposes the metrics registry, e.g. for a /metrics endpoint.
func (p *Pipeline) Collector() prom.MetricsCollector { return p.collector }

// BuilderOptions converts the graph section into builder options.
func BuilderOptions(g config.GraphConfig) (network.Options, error) {
	axis, err := geometry.Axis(g.AdductAxis)
	if err != nil {
		return network.Options{}, errors.Wrap(err, errors.CodeInvalidParam, "adduct axis")
	}
	lf, err := geometry.LengthFactor(g.LengthUnit)
	if err != nil {
		return network.Options{}, errors.Wrap(err, errors.CodeInvalidParam, "length unit")
	}
	ef, err := kinetics.EnergyFactor(g.EnergyUnit)
	if err != nil {
		return network.Options{}, errors.Wrap(err, errors.CodeInvalidParam, "energy unit")
	}
	return network.Options{AdductGap: g.DistAdduct, Axis: axis, LengthFactor: lf, EnergyFactor: ef}, nil
}

// RenderOptions converts the output and graph sections into renderer options.
func RenderOptions(cfg *config.Config) (dashboard.Options, error) {
	layout, err := dashboard.LayoutByName(cfg.Graph.Layout)
	if err != nil {
		return dashboard.Options{}, err
	}
	return dashboard.Options{
		Title:    cfg.Output.Title,
		Width:    cfg.Graph.Width(),
		Height:   cfg.Graph.Height(),
		MapField: cfg.Graph.MapField,
		Layout:   layout,
	}, nil
}

type run struct {
	*Report
	logger logging.Logger
}

func (p *Pipeline) start() *run {
	id := p.newRunID()
	return &run{
		Report: &Report{RunID: id, Stages: map[string]time.Duration{}},
		logger: p.logger.With(logging.String("run_id", id)),
	}
}

func (p *Pipeline) stage(r *run, name string, fn func() error) error {
	timer := p.metrics.StageTimer(name)
	err := fn()
	elapsed := timer.ObserveDuration()
	r.Stages[name] = elapsed
	if err != nil {
		p.metrics.RecordStageFailure(name, string(errors.GetCode(err)))
		r.logger.Error("stage failed", logging.String("stage", name), logging.Err(err))
		return err
	}
	r.logger.Info("stage finished", logging.String("stage", name), logging.Duration("elapsed", elapsed))
	return nil
}

func (p *Pipeline) finish(r *run, err error) (*Report, error) {
	p.metrics.RecordRun(p.now(), err == nil)
	if path := p.cfg.Output.MetricsFile; path != "" {
		if werr := p.collector.WriteToTextfile(path); werr != nil {
			r.logger.Warn("metrics textfile not written", logging.String("path", path), logging.Err(werr))
		}
	}
	return r.Report, err
}

// Run executes every stage: optional extraction, write, read, build, render,
// preview and publish.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	r := p.start()
	r.logger.Info("pipeline started", logging.Bool("extraction", p.cfg.DB.Active))
	if err := p.extractAndWrite(ctx, r); err != nil {
		return p.finish(r, err)
	}
	if err := p.loadAndBuild(r); err != nil {
		return p.finish(r, err)
	}
	if err := p.render(ctx, r, true); err != nil {
		return p.finish(r, err)
	}
	return p.finish(r, nil)
}

// Extract runs extraction and writes the edge and compound files.
func (p *Pipeline) Extract(ctx context.Context) (*Report, error) {
	r := p.start()
	if !p.cfg.DB.Active {
		return p.finish(r, errors.New(errors.CodeInvalidParam, "extraction requires db.active"))
	}
	return p.finish(r, p.extractAndWrite(ctx, r))
}

// Render reads the files, builds the graph and renders it.
func (p *Pipeline) Render(ctx context.Context) (*Report, error) {
	r := p.start()
	if err := p.loadAndBuild(r); err != nil {
		return p.finish(r, err)
	}
	return p.finish(r, p.render(ctx, r, false))
}

// Load reads the files and builds the graph without rendering.
func (p *Pipeline) Load() (*network.Graph, network.BuildStats, error) {
	r := p.start()
	if err := p.loadAndBuild(r); err != nil {
		return nil, network.BuildStats{}, err
	}
	return r.Graph, r.Stats, nil
}

func (p *Pipeline) extractAndWrite(ctx context.Context, r *run) error {
	if !p.cfg.DB.Active {
		r.logger.Info("extraction disabled, reading existing files")
		return nil
	}
	if err := p.stage(r, prom.StageExtract, func() error { return p.extract(ctx, r) }); err != nil {
		return err
	}
	// Validate keeps the compounds mode equal to the reactions mode.
	if p.cfg.Files.Reactions.Mode != config.ModeWrite {
		r.logger.Warn("extraction result discarded, reaction files are in read mode",
			logging.String("reactions", p.cfg.Files.Reactions.Path))
		return nil
	}
	return p.stage(r, prom.StageWrite, func() error {
		return crnfile.Write(r.Extraction.Reactions, r.Extraction.Compounds,
			p.cfg.Files.Reactions.Path, p.cfg.Files.Compounds.Path)
	})
}

func (p *Pipeline) extract(ctx context.Context, r *run) error {
	store, closeStore, err := p.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()
	cache, closeCache, err := p.openCache(ctx, p.cfg.Files.Pathfinder.Path)
	if err != nil {
		return err
	}
	defer closeCache()

	svc := extraction.NewService(store, extraction.MethodFromConfig(p.cfg.Method), r.logger)
	g, err := svc.ResolveGraph(ctx, cache, p.cfg.Files.Pathfinder.Mode)
	if err != nil {
		return err
	}
	res, err := svc.Extract(ctx, g)
	if err != nil {
		return err
	}
	r.Extraction = res
	p.metrics.RecordExtraction(len(res.Reactions), res.Excluded)
	return nil
}

func (p *Pipeline) loadAndBuild(r *run) error {
	var reactions []network.Reaction
	var compounds network.CompoundTable
	err := p.stage(r, prom.StageRead, func() error {
		var err error
		reactions, compounds, err = crnfile.Read(p.cfg.Files.Reactions.Path, p.cfg.Files.Compounds.Path)
		return err
	})
	if err != nil {
		return err
	}
	return p.stage(r, prom.StageBuild, func() error {
		opts, err := BuilderOptions(p.cfg.Graph)
		if err != nil {
			return err
		}
		g, stats, err := network.NewBuilder(opts, r.logger).Build(reactions, compounds)
		if err != nil {
			return err
		}
		r.Graph, r.Stats = g, stats
		p.metrics.RecordGraph(g, stats)
		return nil
	})
}

func (p *Pipeline) render(ctx context.Context, r *run, publish bool) error {
	opts, err := RenderOptions(p.cfg)
	if err != nil {
		return err
	}
	if err := p.stage(r, prom.StageRender, func() error {
		return p.renderer.RenderFile(p.cfg.Output.File, r.Graph, opts)
	}); err != nil {
		return err
	}
	if p.cfg.Output.Preview != "" {
		if err := p.stage(r, prom.StagePreview, func() error {
			return p.renderer.Preview(p.cfg.Output.Preview, r.Graph, opts)
		}); err != nil {
			return err
		}
	}
	if publish && p.cfg.Publish.Enabled {
		return p.stage(r, prom.StagePublish, func() error { return p.publish(ctx, r) })
	}
	return nil
}

// Artifacts lists the files a run publishes.
func (p *Pipeline) Artifacts() []minio.Artifact {
	out := []minio.Artifact{
		{Path: p.cfg.Output.File, Kind: "page"},
		{Path: p.cfg.Files.Reactions.Path, Kind: "reactions"},
		{Path: p.cfg.Files.Compounds.Path, Kind: "compounds"},
	}
	if p.cfg.Output.Preview != "" {
		out = append(out, minio.Artifact{Path: p.cfg.Output.Preview, Kind: "preview"})
	}
	return out
}

func (p *Pipeline) publish(ctx context.Context, r *run) error {
	pub, err := p.newPublisher(ctx)
	if err != nil {
		return err
	}
	objs, err := pub.Publish(ctx, r.RunID, p.Artifacts())
	r.Published = objs
	return err
}
