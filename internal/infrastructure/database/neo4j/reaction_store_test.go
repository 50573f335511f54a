package neo4j

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/vizcrn/internal/domain/network"
	"github.com/turtacn/vizcrn/internal/infrastructure/monitoring/logging"
)

func newStore(tx *MockTransaction) *ReactionStore {
	d, _ := newMockedDriver(tx)
	return NewReactionStore(d, logging.NewNopLogger())
}

func TestReactionStore_PathfinderGraph(t *testing.T) {
	tx := new(MockTransaction)
	tx.On("Run", mock.Anything, querySpecies, mock.Anything).Return(newResult(
		[]string{"id", "type", "centroid"},
		[]any{"c1", "compound", "s1"},
		[]any{"f1", "flask", "s2"},
		[]any{"c2", nil, nil},
	), nil)
	tx.On("Run", mock.Anything, queryReactions, mock.Anything).Return(newResult(
		[]string{"id", "lhs", "rhs", "elementary_step_id", "step_type", "transition_state"},
		[]any{"r1", []any{"c1"}, []any{"f1"}, "es1", "regular", "ts1"},
		[]any{"r2", []any{"c1", "c2"}, []any{"f1"}, nil, nil, nil},
	), nil)

	g, err := newStore(tx).PathfinderGraph(context.Background())
	require.NoError(t, err)

	require.Len(t, g.Species, 3)
	assert.Equal(t, network.SpeciesFlask, g.Species[1].Type)
	assert.Equal(t, network.SpeciesCompound, g.Species[2].Type)
	require.Len(t, g.Reactions, 2)
	assert.Equal(t, network.PathfinderReaction{
		ID: "r1", LHS: []string{"c1"}, RHS: []string{"f1"},
		ElementaryStepID: "es1", StepType: network.StepRegular, TransitionState: "ts1",
	}, g.Reactions[0])
	assert.False(t, g.Reactions[1].HasStep())
	assert.Equal(t, []string{"c1", "c2"}, g.Reactions[1].LHS)
}

func TestReactionStore_PathfinderGraphBadRecord(t *testing.T) {
	tx := new(MockTransaction)
	tx.On("Run", mock.Anything, querySpecies, mock.Anything).Return(newResult(
		[]string{"id", "type", "centroid"}, []any{int64(5), "compound", "s1"},
	), nil)

	_, err := newStore(tx).PathfinderGraph(context.Background())
	assert.Error(t, err)
}

func TestReactionStore_Structures(t *testing.T) {
	tx := new(MockTransaction)
	ids := []string{"s1", "missing"}
	tx.On("Run", mock.Anything, queryStructures, map[string]any{"ids": ids}).Return(newResult(
		[]string{"id", "charge", "multiplicity", "elements", "positions"},
		[]any{"s1", int64(-1), int64(2), []any{"O", "H"}, []any{0.0, 0.0, 0.0, 1.8, 0.0, int64(0)}},
	), nil)

	got, err := newStore(tx).Structures(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, got, 1)
	st := got["s1"]
	assert.Equal(t, -1, st.Charge)
	assert.Equal(t, 2, st.Multiplicity)
	require.Len(t, st.Atoms, 2)
	assert.Equal(t, "H", st.Atoms[1].Symbol)
	assert.Equal(t, r3.Vec{X: 1.8}, st.Atoms[1].Pos)
}

func TestReactionStore_StructuresCoordinateMismatch(t *testing.T) {
	tx := new(MockTransaction)
	tx.On("Run", mock.Anything, queryStructures, mock.Anything).Return(newResult(
		[]string{"id", "charge", "multiplicity", "elements", "positions"},
		[]any{"s1", int64(0), int64(1), []any{"O"}, []any{0.0, 0.0}},
	), nil)

	_, err := newStore(tx).Structures(context.Background(), []string{"s1"})
	assert.Error(t, err)
}

func TestReactionStore_Energies(t *testing.T) {
	tx := new(MockTransaction)
	model := network.Model{Family: "dft", Method: "pbe", BasisSet: "def2-svp", Program: "orca"}
	tx.On("Run", mock.Anything, queryEnergies, map[string]any{
		"ids": []string{"s1", "s2"}, "name": network.ElectronicEnergy, "model": "dft/pbe/def2-svp/orca",
	}).Return(newResult([]string{"id", "value"}, []any{"s1", -76.4}), nil)

	got, err := newStore(tx).Energies(context.Background(), []string{"s1", "s2"}, network.ElectronicEnergy, model)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"s1": -76.4}, got)
}
