package network

import (
	"context"

	"github.com/turtacn/vizcrn/internal/domain/geometry"
)

// SpeciesType distinguishes covalent compounds from weakly bound flasks.
type SpeciesType string

const (
	SpeciesCompound SpeciesType = "compound"
	SpeciesFlask    SpeciesType = "flask"
)

// StepType of the elementary step selected for a reaction.
type StepType string

const (
	StepRegular     StepType = "regular"
	StepBarrierless StepType = "barrierless"
)

// PathfinderSpecies is a compound or flask node of the upstream network.
type PathfinderSpecies struct {
	ID       string      `json:"id"`
	Type     SpeciesType `json:"type"`
	Centroid string      `json:"centroid"`
}

// PathfinderReaction is a reaction node of the upstream network with the
// elementary step selected for it, if any.
type PathfinderReaction struct {
	ID               string   `json:"id"`
	LHS              []string `json:"lhs"`
	RHS              []string `json:"rhs"`
	ElementaryStepID string   `json:"elementary_step_id,omitempty"`
	StepType         StepType `json:"step_type,omitempty"`
	TransitionState  string   `json:"transition_state,omitempty"`
}

// HasStep reports whether an elementary step was selected.
func (r PathfinderReaction) HasStep() bool { return r.ElementaryStepID != "" }

// PathfinderGraph is the upstream reaction network used by extraction.
type PathfinderGraph struct {
	Species   []PathfinderSpecies  `json:"species"`
	Reactions []PathfinderReaction `json:"reactions"`

	index map[string]int
}

// SpeciesByID looks a species up by id.
func (p *PathfinderGraph) SpeciesByID(id string) (PathfinderSpecies, bool) {
	if p.index == nil || len(p.index) != len(p.Species) {
		p.index = make(map[string]int, len(p.Species))
		for i, s := range p.Species {
			p.index[s.ID] = i
		}
	}
	i, ok := p.index[id]
	if !ok {
		return PathfinderSpecies{}, false
	}
	return p.Species[i], true
}

// PathfinderCache persists a PathfinderGraph between runs.
type PathfinderCache interface {
	Load(ctx context.Context) (*PathfinderGraph, error)
	Save(ctx context.Context, g *PathfinderGraph) error
}

// Structure is one stored geometry with its electronic state.
type Structure struct {
	ID           string          `json:"id"`
	Atoms        geometry.Coords `json:"atoms"`
	Charge       int             `json:"charge"`
	Multiplicity int             `json:"multiplicity"`
}

// Model identifies the electronic-structure model a property was computed with.
type Model struct {
	Family   string
	Method   string
	BasisSet string
	Program  string
}

// Key renders the model as "family/method/basis_set/program".
func (m Model) Key() string {
	return m.Family + "/" + m.Method + "/" + m.BasisSet + "/" + m.Program
}

// Energy property names.
const (
	ElectronicEnergy = "electronic_energy"
	GibbsFreeEnergy  = "gibbs_free_energy"
)
