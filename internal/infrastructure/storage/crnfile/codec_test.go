package crnfile

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/vizcrn/internal/domain/geometry"
	"github.com/turtacn/vizcrn/internal/domain/network"
	"github.com/turtacn/vizcrn/pkg/errors"
)

func strPtr(s string) *string { return &s }

func sampleReactions() []network.Reaction {
	return []network.Reaction{
		{Reactant: 1, Product: 2, TS: network.SomeTS(3)},
		{Reactant: 2, Product: 4, TS: network.NoTS},
		{Reactant: 4, Product: 5, TS: network.SomeTS(6)},
	}
}

func sampleCompounds() network.CompoundTable {
	return network.CompoundTable{
		1: {
			CrnID:        network.SingleLabel("64f1a0"),
			XYZ:          []geometry.Coords{{{Symbol: "C", Pos: r3.Vec{X: 0.1, Y: -0.2, Z: 1.5}}}},
			Charge:       network.Scalars{0},
			Multiplicity: network.Scalars{1},
			Energy:       network.Scalars{-40.51},
			Method:       "pbe-d3bj",
			BasisSet:     "def2-tzvp",
			Program:      "orca",
			Solvent:      strPtr("water"),
			Solvation:    strPtr("cpcm"),
		},
		2: {
			CrnID: network.AdductLabel("64f1a1", "64f1a2"),
			XYZ: []geometry.Coords{
				{{Symbol: "O", Pos: r3.Vec{}}},
				{{Symbol: "H", Pos: r3.Vec{X: 1}}, {Symbol: "H", Pos: r3.Vec{X: -1}}},
			},
			Charge:       network.Scalars{0, -1},
			Multiplicity: network.Scalars{3, 2},
			Energy:       network.Scalars{-75, -1.1},
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Round trip
// ─────────────────────────────────────────────────────────────────────────────

type CodecSuite struct {
	suite.Suite
	dir string
}

func (s *CodecSuite) SetupTest() {
	s.dir = s.T().TempDir()
}

func (s *CodecSuite) paths() (string, string) {
	return filepath.Join(s.dir, "reactions.txt"), filepath.Join(s.dir, "compounds.json")
}

func (s *CodecSuite) TestRoundTrip() {
	edges, comps := s.paths()
	s.Require().NoError(Write(sampleReactions(), sampleCompounds(), edges, comps))

	reactions, compounds, err := Read(edges, comps)
	s.Require().NoError(err)
	s.Equal(sampleReactions(), reactions)
	s.Equal(sampleCompounds(), compounds)
}

func (s *CodecSuite) TestEdgeFileFormat() {
	edges, comps := s.paths()
	s.Require().NoError(Write(sampleReactions(), sampleCompounds(), edges, comps))

	data, err := os.ReadFile(edges)
	s.Require().NoError(err)
	s.Equal("1,2,3\n2,4,None\n4,5,6\n", string(data))
}

func (s *CodecSuite) TestCompoundKeysAreStrings() {
	edges, comps := s.paths()
	s.Require().NoError(Write(nil, sampleCompounds(), edges, comps))

	data, err := os.ReadFile(comps)
	s.Require().NoError(err)
	s.Contains(string(data), `"1":{"crn_id":"64f1a0"`)
	s.Contains(string(data), `"crn_id":["64f1a1","64f1a2"]`)
	s.Contains(string(data), `"xyz":[[["C",[0.1,-0.2,1.5]]]]`)
	s.Contains(string(data), `"solvent":null`)
}

func (s *CodecSuite) TestWriteCreatesParentDirectory() {
	edges := filepath.Join(s.dir, "out", "nested", "reactions.txt")
	comps := filepath.Join(s.dir, "out", "nested", "compounds.json")
	s.Require().NoError(Write(sampleReactions(), sampleCompounds(), edges, comps))
	s.FileExists(edges)
	s.FileExists(comps)
}

func (s *CodecSuite) TestReadMissingFile() {
	edges, comps := s.paths()
	_, _, err := Read(edges, comps)
	s.Require().Error(err)
	s.True(errors.IsCode(err, errors.ErrCodeIO))
}

func TestCodecSuite(t *testing.T) {
	suite.Run(t, new(CodecSuite))
}

// ─────────────────────────────────────────────────────────────────────────────
// Edge parsing
// ─────────────────────────────────────────────────────────────────────────────

func TestDecodeEdges_AcceptsFloatIDsAndBlankLines(t *testing.T) {
	reactions, err := DecodeEdges(strings.NewReader("1.0,2.0,None\n\n 3 , 4 , 5 \n"))
	require.NoError(t, err)
	assert.Equal(t, []network.Reaction{
		{Reactant: 1, Product: 2, TS: network.NoTS},
		{Reactant: 3, Product: 4, TS: network.SomeTS(5)},
	}, reactions)
}

func TestDecodeEdges_Malformed(t *testing.T) {
	cases := map[string]string{
		"two fields":   "1,2\n",
		"four fields":  "1,2,3,4\n",
		"bad reactant": "x,2,None\n",
		"bad product":  "1,2.5,None\n",
		"bad ts":       "1,2,none\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeEdges(strings.NewReader(in))
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeEdgeFileMalformed))
		})
	}
}

func TestDecodeCompounds_Malformed(t *testing.T) {
	for _, in := range []string{"", "{", "null", `{"a": {}}`, `{"1": {"energy": "x"}}`} {
		_, err := DecodeCompounds(strings.NewReader(in))
		require.Error(t, err, in)
		assert.True(t, errors.IsCode(err, errors.CodeCompoundFileMalformed), in)
	}
}

func TestRead_MalformedCompoundFileKeepsCode(t *testing.T) {
	dir := t.TempDir()
	edges := filepath.Join(dir, "e.txt")
	comps := filepath.Join(dir, "c.json")
	require.NoError(t, os.WriteFile(edges, []byte("1,2,None\n"), 0o600))
	require.NoError(t, os.WriteFile(comps, []byte("not json"), 0o600))

	_, _, err := Read(edges, comps)
	require.Error(t, err)
	assert.Equal(t, errors.CodeCompoundFileMalformed, errors.GetCode(err))
}

func TestEncodeEdges_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeEdges(&buf, nil))
	assert.Empty(t, buf.String())
}

// ─────────────────────────────────────────────────────────────────────────────
// Pathfinder file
// ─────────────────────────────────────────────────────────────────────────────

func TestPathfinderFile_SaveLoad(t *testing.T) {
	ctx := context.Background()
	cache := NewPathfinderFile(filepath.Join(t.TempDir(), "pathfinder.json"))

	_, err := cache.Load(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeCacheMiss))

	g := &network.PathfinderGraph{
		Species: []network.PathfinderSpecies{{ID: "a", Type: network.SpeciesCompound, Centroid: "s1"}},
		Reactions: []network.PathfinderReaction{{
			ID: "r1", LHS: []string{"a"}, RHS: []string{"a"},
			ElementaryStepID: "es1", StepType: network.StepBarrierless,
		}},
	}
	require.NoError(t, cache.Save(ctx, g))

	loaded, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, g.Species, loaded.Species)
	assert.Equal(t, g.Reactions, loaded.Reactions)
	sp, ok := loaded.SpeciesByID("a")
	assert.True(t, ok)
	assert.Equal(t, "s1", sp.Centroid)
}
