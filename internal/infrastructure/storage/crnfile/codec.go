// Package crnfile reads and writes the two flat network artifacts: the edge
// file ("<reactant>,<product>,<ts|None>" per line) and the compound file (one
// JSON object keyed by node id).
package crnfile

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/turtacn/vizcrn/internal/domain/network"
	"github.com/turtacn/vizcrn/pkg/errors"
)

// noneToken is the literal written for a barrierless step.
const noneToken = "None"

// Write stores reactions and compounds, overwriting both destinations.
func Write(reactions []network.Reaction, compounds network.CompoundTable, edgesPath, compoundsPath string) error {
	if err := writeFile(edgesPath, func(w io.Writer) error { return EncodeEdges(w, reactions) }); err != nil {
		return err
	}
	return writeFile(compoundsPath, func(w io.Writer) error { return EncodeCompounds(w, compounds) })
}

// Read loads both artifacts.
func Read(edgesPath, compoundsPath string) ([]network.Reaction, network.CompoundTable, error) {
	ef, err := os.Open(edgesPath)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeIO, "open edge file").WithDetail(edgesPath)
	}
	defer ef.Close()
	reactions, err := DecodeEdges(ef)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeUnknown, "read edge file").WithDetail(edgesPath)
	}

	cf, err := os.Open(compoundsPath)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeIO, "open compound file").WithDetail(compoundsPath)
	}
	defer cf.Close()
	compounds, err := DecodeCompounds(cf)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeUnknown, "read compound file").WithDetail(compoundsPath)
	}
	return reactions, compounds, nil
}

// EncodeEdges writes one line per reaction.
func EncodeEdges(w io.Writer, reactions []network.Reaction) error {
	bw := bufio.NewWriter(w)
	for _, r := range reactions {
		if _, err := fmt.Fprintf(bw, "%d,%d,%s\n", r.Reactant, r.Product, r.TS); err != nil {
			return errors.Wrap(err, errors.ErrCodeIO, "write edge line")
		}
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrCodeIO, "flush edge file")
	}
	return nil
}

// DecodeEdges parses edge lines. Blank lines are ignored.
func DecodeEdges(r io.Reader) ([]network.Reaction, error) {
	var reactions []network.Reaction
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, ",")
		if len(fields) != 3 {
			return nil, errors.New(errors.CodeEdgeFileMalformed, "edge line must have 3 fields").
				WithDetailf("line %d: %q", line, text)
		}
		reactant, err := parseID(fields[0])
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeEdgeFileMalformed, "bad reactant id").WithDetailf("line %d", line)
		}
		product, err := parseID(fields[1])
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeEdgeFileMalformed, "bad product id").WithDetailf("line %d", line)
		}
		ts := network.NoTS
		if tsField := strings.TrimSpace(fields[2]); tsField != noneToken {
			id, err := parseID(tsField)
			if err != nil {
				return nil, errors.Wrap(err, errors.CodeEdgeFileMalformed, "bad transition-state id").WithDetailf("line %d", line)
			}
			ts = network.SomeTS(id)
		}
		reactions = append(reactions, network.Reaction{Reactant: reactant, Product: product, TS: ts})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeIO, "scan edge file")
	}
	return reactions, nil
}

// parseID accepts plain integers and integral floats such as "3.0".
func parseID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("id %q is not integral", s)
	}
	return int64(f), nil
}

// EncodeCompounds writes the table as a single JSON object.
func EncodeCompounds(w io.Writer, compounds network.CompoundTable) error {
	if compounds == nil {
		compounds = network.CompoundTable{}
	}
	if err := json.NewEncoder(w).Encode(compounds); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode compounds")
	}
	return nil
}

// DecodeCompounds parses the compound JSON object.
func DecodeCompounds(r io.Reader) (network.CompoundTable, error) {
	var compounds network.CompoundTable
	if err := json.NewDecoder(r).Decode(&compounds); err != nil {
		return nil, errors.Wrap(err, errors.CodeCompoundFileMalformed, "decode compounds")
	}
	if compounds == nil {
		return nil, errors.New(errors.CodeCompoundFileMalformed, "compound file holds no object")
	}
	return compounds, nil
}

func writeFile(path string, encode func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, errors.ErrCodeIO, "create output directory").WithDetail(dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeIO, "create file").WithDetail(path)
	}
	if err := encode(f); err != nil {
		_ = f.Close()
		return errors.Wrap(err, errors.CodeUnknown, "write file").WithDetail(path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeIO, "close file").WithDetail(path)
	}
	return nil
}
