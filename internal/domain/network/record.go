// Package network models a flattened chemical reaction network and builds the
// attributed display graph from it.
//
// The flat form is a list of Reaction triples plus a CompoundTable keyed by
// integer node id. Builder turns both into a Graph whose nodes are species
// (adducts merged into one node) and whose edges are elementary steps.
package network

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/turtacn/vizcrn/internal/domain/geometry"
	"github.com/turtacn/vizcrn/pkg/errors"
)

// TSRef refers to the transition-state record of a step. The zero value means
// the step is barrierless.
type TSRef struct {
	ID    int64
	Valid bool
}

// SomeTS returns a reference to transition state id.
func SomeTS(id int64) TSRef { return TSRef{ID: id, Valid: true} }

// NoTS marks a barrierless step.
var NoTS = TSRef{}

func (t TSRef) String() string {
	if !t.Valid {
		return "None"
	}
	return strconv.FormatInt(t.ID, 10)
}

// Reaction is one elementary step between two node ids.
type Reaction struct {
	Reactant int64
	Product  int64
	TS       TSRef
}

func (r Reaction) String() string {
	return fmt.Sprintf("%d,%d,%s", r.Reactant, r.Product, r.TS)
}

// Label is a compound display id: one string for a species or transition
// state, an ordered list for a merged adduct.
type Label struct {
	Parts []string
	Multi bool
}

// SingleLabel returns a non-adduct label.
func SingleLabel(id string) Label { return Label{Parts: []string{id}} }

// AdductLabel returns a multi-fragment label.
func AdductLabel(ids ...string) Label { return Label{Parts: ids, Multi: true} }

// Display joins the parts with "+".
func (l Label) Display() string { return strings.Join(l.Parts, "+") }

func (l Label) MarshalJSON() ([]byte, error) {
	if l.Multi {
		if l.Parts == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(l.Parts)
	}
	return json.Marshal(l.Display())
}

func (l *Label) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = Label{}
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		parts := make([]string, len(raw))
		for i, r := range raw {
			s, err := scalarString(r)
			if err != nil {
				return fmt.Errorf("crn_id[%d]: %w", i, err)
			}
			parts[i] = s
		}
		*l = Label{Parts: parts, Multi: true}
		return nil
	}
	s, err := scalarString(data)
	if err != nil {
		return fmt.Errorf("crn_id: %w", err)
	}
	*l = SingleLabel(s)
	return nil
}

// scalarString accepts a JSON string or number.
func scalarString(data json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", fmt.Errorf("expected string or number, got %s", string(data))
	}
	return n.String(), nil
}

// Scalars is a per-fragment numeric list. A bare JSON number decodes to a
// singleton list, so decoded records are always normalized.
type Scalars []float64

func (s *Scalars) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var list []float64
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*s = list
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Scalars{v}
	return nil
}

// Sum adds all entries.
func (s Scalars) Sum() float64 {
	var total float64
	for _, v := range s {
		total += v
	}
	return total
}

// Join formats each entry in shortest form and joins with ";".
func (s Scalars) Join() string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ";")
}

// CompoundRecord holds per-fragment attributes of one node. Geometries and
// energies are in the source database's native units.
type CompoundRecord struct {
	CrnID        Label             `json:"crn_id"`
	XYZ          []geometry.Coords `json:"xyz"`
	Charge       Scalars           `json:"charge"`
	Multiplicity Scalars           `json:"multiplicity"`
	Energy       Scalars           `json:"energy"`
	Method       string            `json:"method"`
	BasisSet     string            `json:"basis_set"`
	Program      string            `json:"program"`
	Solvent      *string           `json:"solvent"`
	Solvation    *string           `json:"solvation"`
}

// Validate checks that every per-fragment list has one entry per fragment.
func (c *CompoundRecord) Validate() error {
	n := len(c.XYZ)
	if len(c.Charge) != n || len(c.Multiplicity) != n || len(c.Energy) != n {
		return errors.New(errors.CodeCompoundInvalid, "per-fragment lists differ in length").
			WithDetailf("crn_id=%s xyz=%d charge=%d multiplicity=%d energy=%d",
				c.CrnID.Display(), n, len(c.Charge), len(c.Multiplicity), len(c.Energy))
	}
	return nil
}

// Formulas returns the per-fragment formulas joined with ";".
func (c *CompoundRecord) Formulas() string {
	parts := make([]string, len(c.XYZ))
	for i, frag := range c.XYZ {
		parts[i] = geometry.Formula(frag)
	}
	return strings.Join(parts, ";")
}

// CompoundTable maps node id to record. JSON keys are decimal strings.
type CompoundTable map[int64]*CompoundRecord

// Lookup returns the record for id or a CodeCompoundMissing error.
func (t CompoundTable) Lookup(id int64) (*CompoundRecord, error) {
	rec, ok := t[id]
	if !ok || rec == nil {
		return nil, errors.New(errors.CodeCompoundMissing, "no compound record for node").
			WithDetailf("id=%d", id)
	}
	return rec, nil
}
