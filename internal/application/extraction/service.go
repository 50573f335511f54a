// Package extraction projects an upstream pathfinder graph onto the flat
// reaction list and compound table consumed by the network builder.
package extraction

import (
	"context"
	"sort"
	"strings"

	"github.com/turtacn/vizcrn/internal/config"
	"github.com/turtacn/vizcrn/internal/domain/kinetics"
	"github.com/turtacn/vizcrn/internal/domain/network"
	"github.com/turtacn/vizcrn/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/vizcrn/pkg/errors"
)

// Store is the read side of the reaction database.
type Store interface {
	PathfinderGraph(ctx context.Context) (*network.PathfinderGraph, error)
	Structures(ctx context.Context, ids []string) (map[string]network.Structure, error)
	Energies(ctx context.Context, ids []string, name string, model network.Model) (map[string]float64, error)
}

// Exclusion reasons reported in Result.Excluded.
const (
	ReasonTooManySpecies    = "too_many_species"
	ReasonEmptySide         = "empty_side"
	ReasonNoStep            = "no_elementary_step"
	ReasonUnknownSpecies    = "unknown_species"
	ReasonNoTransitionState = "no_transition_state"
	ReasonMissingEnergy     = "missing_energy"
)

// Method selects which stored energies are used.
type Method struct {
	Model      network.Model
	EnergyType string
	// Correction enables E_elec(Correction) + G(Model) - E_elec(Model).
	Correction *network.Model
	Solvent    string
	Solvation  string
}

// MethodFromConfig converts the configured method descriptor.
func MethodFromConfig(c config.MethodConfig) Method {
	m := Method{
		Model:      modelOf(c.ModelConfig),
		EnergyType: c.EnergyType,
		Solvent:    c.Solvent,
		Solvation:  c.Solvation,
	}
	if m.EnergyType == "" {
		m.EnergyType = network.ElectronicEnergy
	}
	if !c.Correction.IsZero() {
		corr := modelOf(c.Correction)
		m.Correction = &corr
	}
	return m
}

func modelOf(c config.ModelConfig) network.Model {
	return network.Model{Family: c.Family, Method: c.Method, BasisSet: c.BasisSet, Program: c.Program}
}

// Result is the projected network plus exclusion counts.
type Result struct {
	Reactions []network.Reaction
	Compounds network.CompoundTable
	Excluded  map[string]int
}

// ExcludedTotal sums all exclusion counts.
func (r *Result) ExcludedTotal() int {
	n := 0
	for _, v := range r.Excluded {
		n += v
	}
	return n
}

// Service runs extraction against one store.
type Service struct {
	store  Store
	method Method
	logger logging.Logger
}

func NewService(store Store, method Method, logger logging.Logger) *Service {
	return &Service{store: store, method: method, logger: logger.Named("extraction")}
}

// ResolveGraph returns the pathfinder graph for mode. ModeRead loads it from
// cache; ModeWrite queries the store and overwrites the cache.
func (s *Service) ResolveGraph(ctx context.Context, cache network.PathfinderCache, mode string) (*network.PathfinderGraph, error) {
	switch mode {
	case config.ModeRead:
		g, err := cache.Load(ctx)
		if err != nil {
			return nil, err
		}
		s.logger.Info("pathfinder graph loaded from cache",
			logging.Int("species", len(g.Species)), logging.Int("reactions", len(g.Reactions)))
		return g, nil
	case config.ModeWrite:
		g, err := s.store.PathfinderGraph(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeSourceUnavailable, "query pathfinder graph")
		}
		if err := cache.Save(ctx, g); err != nil {
			return nil, err
		}
		s.logger.Info("pathfinder graph queried and cached",
			logging.Int("species", len(g.Species)), logging.Int("reactions", len(g.Reactions)))
		return g, nil
	default:
		return nil, errors.Newf(errors.CodeInvalidParam, "unknown pathfinder mode %q", mode)
	}
}

// candidate is a reaction that passed the structural filters.
type candidate struct {
	rxn    network.PathfinderReaction
	lhs    []network.PathfinderSpecies
	rhs    []network.PathfinderSpecies
	needed []string
}

// Extract projects g. Node ids are assigned from 1 in first-seen order over
// included reactions: the reactant side, then the product side, then the
// transition state.
func (s *Service) Extract(ctx context.Context, g *network.PathfinderGraph) (*Result, error) {
	res := &Result{Compounds: network.CompoundTable{}, Excluded: map[string]int{}}
	exclude := func(r network.PathfinderReaction, reason string) {
		res.Excluded[reason]++
		s.logger.Debug("reaction excluded", logging.String("reaction", r.ID), logging.String("reason", reason))
	}

	var cands []candidate
	var structureIDs []string
	seen := map[string]bool{}
	for _, r := range g.Reactions {
		c, reason := s.screen(g, r)
		if reason != "" {
			exclude(r, reason)
			continue
		}
		for _, id := range c.needed {
			if !seen[id] {
				seen[id] = true
				structureIDs = append(structureIDs, id)
			}
		}
		cands = append(cands, c)
	}

	energies, err := s.energies(ctx, structureIDs)
	if err != nil {
		return nil, err
	}

	p := newProjector()
	for _, c := range cands {
		if !allPresent(energies, c.needed) {
			exclude(c.rxn, ReasonMissingEnergy)
			continue
		}
		x := p.side(c.lhs)
		y := p.side(c.rhs)
		ts := network.NoTS
		if c.rxn.StepType != network.StepBarrierless {
			ts = network.SomeTS(p.transitionState(c.rxn.TransitionState))
		}
		res.Reactions = append(res.Reactions, network.Reaction{Reactant: x, Product: y, TS: ts})
	}

	if err := s.fillCompounds(ctx, p, energies, res.Compounds); err != nil {
		return nil, err
	}

	s.logger.Info("extraction finished",
		logging.Int("reactions", len(res.Reactions)),
		logging.Int("excluded", res.ExcludedTotal()),
		logging.Int("nodes", len(res.Compounds)))
	return res, nil
}

func (s *Service) screen(g *network.PathfinderGraph, r network.PathfinderReaction) (candidate, string) {
	if len(r.LHS) >= 3 || len(r.RHS) >= 3 {
		return candidate{}, ReasonTooManySpecies
	}
	if len(r.LHS) == 0 || len(r.RHS) == 0 {
		return candidate{}, ReasonEmptySide
	}
	if !r.HasStep() {
		return candidate{}, ReasonNoStep
	}
	c := candidate{rxn: r}
	for _, side := range []struct {
		ids []string
		dst *[]network.PathfinderSpecies
	}{{r.LHS, &c.lhs}, {r.RHS, &c.rhs}} {
		for _, id := range side.ids {
			sp, ok := g.SpeciesByID(id)
			if !ok {
				return candidate{}, ReasonUnknownSpecies
			}
			*side.dst = append(*side.dst, sp)
			c.needed = append(c.needed, sp.Centroid)
		}
	}
	if r.StepType != network.StepBarrierless {
		if r.TransitionState == "" {
			return candidate{}, ReasonNoTransitionState
		}
		c.needed = append(c.needed, r.TransitionState)
	}
	return c, ""
}

// energies returns the energy of every structure the active scheme can
// provide. Structures missing any ingredient are absent from the map.
func (s *Service) energies(ctx context.Context, ids []string) (map[string]float64, error) {
	if len(ids) == 0 {
		return map[string]float64{}, nil
	}
	query := func(name string, model network.Model) (map[string]float64, error) {
		e, err := s.store.Energies(ctx, ids, name, model)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeSourceUnavailable, "query energies").
				WithDetailf("property=%s model=%s", name, model.Key())
		}
		return e, nil
	}

	if s.method.Correction == nil {
		return query(s.method.EnergyType, s.method.Model)
	}

	elecHigh, err := query(network.ElectronicEnergy, *s.method.Correction)
	if err != nil {
		return nil, err
	}
	gibbsLow, err := query(network.GibbsFreeEnergy, s.method.Model)
	if err != nil {
		return nil, err
	}
	elecLow, err := query(network.ElectronicEnergy, s.method.Model)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(ids))
	for _, id := range ids {
		eh, ok1 := elecHigh[id]
		gl, ok2 := gibbsLow[id]
		el, ok3 := elecLow[id]
		if ok1 && ok2 && ok3 {
			out[id] = kinetics.CompositeEnergy(eh, gl, el)
		}
	}
	return out, nil
}

func allPresent(m map[string]float64, ids []string) bool {
	for _, id := range ids {
		if _, ok := m[id]; !ok {
			return false
		}
	}
	return true
}

func (s *Service) fillCompounds(ctx context.Context, p *projector, energies map[string]float64, out network.CompoundTable) error {
	if len(p.nodes) == 0 {
		return nil
	}
	structures, err := s.store.Structures(ctx, p.structureIDs())
	if err != nil {
		return errors.Wrap(err, errors.CodeSourceUnavailable, "query structures")
	}

	for _, n := range p.nodes {
		rec := &network.CompoundRecord{
			CrnID:    n.label,
			Method:   s.method.Model.Method,
			BasisSet: s.method.Model.BasisSet,
			Program:  s.method.Model.Program,
		}
		if s.method.Solvent != "" {
			solvent := s.method.Solvent
			rec.Solvent = &solvent
		}
		if s.method.Solvation != "" {
			solvation := s.method.Solvation
			rec.Solvation = &solvation
		}
		for _, sid := range n.structures {
			st, ok := structures[sid]
			if !ok {
				return errors.New(errors.CodeCompoundMissing, "structure not found in store").
					WithDetailf("node=%d structure=%s", n.id, sid)
			}
			rec.XYZ = append(rec.XYZ, st.Atoms)
			rec.Charge = append(rec.Charge, float64(st.Charge))
			rec.Multiplicity = append(rec.Multiplicity, float64(st.Multiplicity))
			rec.Energy = append(rec.Energy, energies[sid])
		}
		out[n.id] = rec
	}
	return nil
}

// projected is one node of the flat network.
type projected struct {
	id         int64
	label      network.Label
	structures []string
}

type projector struct {
	ids   map[string]int64
	nodes []*projected
	next  int64
}

func newProjector() *projector {
	return &projector{ids: map[string]int64{}, next: 1}
}

func (p *projector) assign(key string, label network.Label, structures []string) int64 {
	if id, ok := p.ids[key]; ok {
		return id
	}
	id := p.next
	p.next++
	p.ids[key] = id
	p.nodes = append(p.nodes, &projected{id: id, label: label, structures: structures})
	return id
}

// side keys a one-species side by its id and a two-species side by the
// sorted ids joined with "//".
func (p *projector) side(species []network.PathfinderSpecies) int64 {
	sorted := append([]network.PathfinderSpecies(nil), species...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	ids := make([]string, len(sorted))
	structures := make([]string, len(sorted))
	for i, sp := range sorted {
		ids[i] = sp.ID
		structures[i] = sp.Centroid
	}
	if len(ids) == 1 {
		return p.assign(ids[0], network.SingleLabel(ids[0]), structures)
	}
	return p.assign(strings.Join(ids, "//"), network.AdductLabel(ids...), structures)
}

// transitionState keys a transition state as "<structure>;" so it never
// collides with a species id.
func (p *projector) transitionState(structure string) int64 {
	return p.assign(structure+";", network.SingleLabel(structure), []string{structure})
}

func (p *projector) structureIDs() []string {
	seen := map[string]bool{}
	var out []string
	for _, n := range p.nodes {
		for _, sid := range n.structures {
			if !seen[sid] {
				seen[sid] = true
				out = append(out, sid)
			}
		}
	}
	return out
}
