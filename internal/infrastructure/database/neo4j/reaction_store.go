package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/vizcrn/internal/domain/geometry"
	"github.com/turtacn/vizcrn/internal/domain/network"
	"github.com/turtacn/vizcrn/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/vizcrn/pkg/errors"
)

// Graph schema:
//
//	(:Species {id, type, centroid})-[:LHS]->(:Reaction {id, elementary_step_id, step_type, transition_state})
//	(:Reaction)-[:RHS]->(:Species)
//	(:Structure {id, charge, multiplicity, elements, positions})-[:HAS_PROPERTY]->(:Property {name, model, value})
const (
	querySpecies = `
MATCH (s:Species)
RETURN s.id AS id, s.type AS type, s.centroid AS centroid
ORDER BY s.id`

	queryReactions = `
MATCH (r:Reaction)
OPTIONAL MATCH (l:Species)-[:LHS]->(r)
WITH r, collect(l.id) AS lhs
OPTIONAL MATCH (r)-[:RHS]->(p:Species)
WITH r, lhs, collect(p.id) AS rhs
RETURN r.id AS id, lhs, rhs,
       r.elementary_step_id AS elementary_step_id,
       r.step_type AS step_type,
       r.transition_state AS transition_state
ORDER BY r.id`

	queryStructures = `
MATCH (s:Structure)
WHERE s.id IN $ids
RETURN s.id AS id, s.charge AS charge, s.multiplicity AS multiplicity,
       s.elements AS elements, s.positions AS positions`

	queryEnergies = `
MATCH (s:Structure)-[:HAS_PROPERTY]->(p:Property {name: $name, model: $model})
WHERE s.id IN $ids
RETURN s.id AS id, p.value AS value`
)

// reader is the part of Driver the store needs.
type reader interface {
	ExecuteRead(ctx context.Context, work func(Transaction) (any, error)) (any, error)
}

// ReactionStore reads the reaction network and structure data.
type ReactionStore struct {
	db     reader
	logger logging.Logger
}

// NewReactionStore returns a store reading through d.
func NewReactionStore(d *Driver, logger logging.Logger) *ReactionStore {
	return &ReactionStore{db: d, logger: logger.Named("reaction_store")}
}

// PathfinderGraph loads every species and reaction.
func (s *ReactionStore) PathfinderGraph(ctx context.Context) (*network.PathfinderGraph, error) {
	out, err := s.db.ExecuteRead(ctx, func(tx Transaction) (any, error) {
		res, err := tx.Run(ctx, querySpecies, nil)
		if err != nil {
			return nil, err
		}
		species, err := CollectRecords(ctx, res, mapSpecies)
		if err != nil {
			return nil, err
		}

		res, err = tx.Run(ctx, queryReactions, nil)
		if err != nil {
			return nil, err
		}
		reactions, err := CollectRecords(ctx, res, mapReaction)
		if err != nil {
			return nil, err
		}
		return &network.PathfinderGraph{Species: species, Reactions: reactions}, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "load pathfinder graph")
	}
	g := out.(*network.PathfinderGraph)
	s.logger.Info("pathfinder graph loaded",
		logging.Int("species", len(g.Species)), logging.Int("reactions", len(g.Reactions)))
	return g, nil
}

// Structures returns the structures with the given ids. Unknown ids are absent
// from the result.
func (s *ReactionStore) Structures(ctx context.Context, ids []string) (map[string]network.Structure, error) {
	out, err := s.db.ExecuteRead(ctx, func(tx Transaction) (any, error) {
		res, err := tx.Run(ctx, queryStructures, map[string]any{"ids": ids})
		if err != nil {
			return nil, err
		}
		return CollectRecords(ctx, res, mapStructure)
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "load structures")
	}
	structures := out.([]network.Structure)
	byID := make(map[string]network.Structure, len(structures))
	for _, st := range structures {
		byID[st.ID] = st
	}
	return byID, nil
}

// Energies returns property name of model for the given structures. Structures
// without the property are absent from the result.
func (s *ReactionStore) Energies(ctx context.Context, ids []string, name string, model network.Model) (map[string]float64, error) {
	type pair struct {
		id    string
		value float64
	}
	out, err := s.db.ExecuteRead(ctx, func(tx Transaction) (any, error) {
		res, err := tx.Run(ctx, queryEnergies, map[string]any{"ids": ids, "name": name, "model": model.Key()})
		if err != nil {
			return nil, err
		}
		return CollectRecords(ctx, res, func(r *neo4j.Record) (pair, error) {
			id, err := stringValue(r, "id")
			if err != nil {
				return pair{}, err
			}
			v, err := floatValue(r, "value")
			return pair{id: id, value: v}, err
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "load energies").WithDetail(name + "@" + model.Key())
	}
	energies := make(map[string]float64)
	for _, p := range out.([]pair) {
		energies[p.id] = p.value
	}
	return energies, nil
}

func mapSpecies(r *neo4j.Record) (network.PathfinderSpecies, error) {
	id, err := stringValue(r, "id")
	if err != nil {
		return network.PathfinderSpecies{}, err
	}
	typ, _ := optionalString(r, "type")
	centroid, _ := optionalString(r, "centroid")
	if typ == "" {
		typ = string(network.SpeciesCompound)
	}
	return network.PathfinderSpecies{ID: id, Type: network.SpeciesType(typ), Centroid: centroid}, nil
}

func mapReaction(r *neo4j.Record) (network.PathfinderReaction, error) {
	id, err := stringValue(r, "id")
	if err != nil {
		return network.PathfinderReaction{}, err
	}
	lhs, err := stringList(r, "lhs")
	if err != nil {
		return network.PathfinderReaction{}, err
	}
	rhs, err := stringList(r, "rhs")
	if err != nil {
		return network.PathfinderReaction{}, err
	}
	es, _ := optionalString(r, "elementary_step_id")
	stepType, _ := optionalString(r, "step_type")
	ts, _ := optionalString(r, "transition_state")
	return network.PathfinderReaction{
		ID:               id,
		LHS:              lhs,
		RHS:              rhs,
		ElementaryStepID: es,
		StepType:         network.StepType(stepType),
		TransitionState:  ts,
	}, nil
}

func mapStructure(r *neo4j.Record) (network.Structure, error) {
	id, err := stringValue(r, "id")
	if err != nil {
		return network.Structure{}, err
	}
	charge, err := intValue(r, "charge")
	if err != nil {
		return network.Structure{}, err
	}
	mult, err := intValue(r, "multiplicity")
	if err != nil {
		return network.Structure{}, err
	}
	elements, err := stringList(r, "elements")
	if err != nil {
		return network.Structure{}, err
	}
	positions, err := floatList(r, "positions")
	if err != nil {
		return network.Structure{}, err
	}
	if len(positions) != 3*len(elements) {
		return network.Structure{}, fmt.Errorf("structure %s: %d elements but %d coordinates", id, len(elements), len(positions))
	}
	atoms := make(geometry.Coords, len(elements))
	for i, el := range elements {
		atoms[i] = geometry.Atom{Symbol: el, Pos: r3.Vec{X: positions[3*i], Y: positions[3*i+1], Z: positions[3*i+2]}}
	}
	return network.Structure{ID: id, Atoms: atoms, Charge: charge, Multiplicity: mult}, nil
}

func stringValue(r *neo4j.Record, key string) (string, error) {
	v, ok := r.Get(key)
	if !ok {
		return "", fmt.Errorf("record has no key %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("key %q: expected string, got %T", key, v)
	}
	return s, nil
}

func optionalString(r *neo4j.Record, key string) (string, bool) {
	v, ok := r.Get(key)
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func intValue(r *neo4j.Record, key string) (int, error) {
	v, ok := r.Get(key)
	if !ok {
		return 0, fmt.Errorf("record has no key %q", key)
	}
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("key %q: expected integer, got %T", key, v)
	}
}

func floatValue(r *neo4j.Record, key string) (float64, error) {
	v, ok := r.Get(key)
	if !ok {
		return 0, fmt.Errorf("record has no key %q", key)
	}
	return toFloat(key, v)
}

func toFloat(key string, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("key %q: expected number, got %T", key, v)
	}
}

func stringList(r *neo4j.Record, key string) ([]string, error) {
	v, ok := r.Get(key)
	if !ok {
		return nil, fmt.Errorf("record has no key %q", key)
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("key %q: expected list, got %T", key, v)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("key %q: expected string items, got %T", key, item)
		}
		out = append(out, s)
	}
	return out, nil
}

func floatList(r *neo4j.Record, key string) ([]float64, error) {
	v, ok := r.Get(key)
	if !ok {
		return nil, fmt.Errorf("record has no key %q", key)
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("key %q: expected list, got %T", key, v)
	}
	out := make([]float64, len(raw))
	for i, item := range raw {
		f, err := toFloat(key, item)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}
