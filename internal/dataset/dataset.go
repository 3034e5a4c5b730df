// Package dataset loads the semicolon-separated tabular datasets the
// fuzzy systems are trained on and derives the universe of discourse of
// every variable.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Cell is one numeric dataset value. Missing marks a cell whose text did
// not parse as a decimal float.
type Cell struct {
	Value   float64
	Missing bool
}

// Universe is the observed [Min, Max] of a variable over the dataset.
type Universe struct {
	Min float64
	Max float64
}

// Table is a read-only dataset: a header naming the variables followed
// by sample rows. Column 0 of the source file carries the sample id and
// is dropped; the remaining columns are inputs then outputs.
type Table struct {
	Name      string
	VarNames  []string
	NbInVars  int
	NbOutVars int

	cells     [][]Cell
	universes []Universe
}

// Load reads a semicolon-separated dataset file. nbOutVars tells how
// many trailing columns are outputs.
func Load(path string, nbOutVars int) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(f, name, nbOutVars)
}

// Parse reads a dataset from r. The first record is the header; its
// first column is the sample-id column and does not name a variable.
func Parse(r io.Reader, name string, nbOutVars int) (*Table, error) {
	if nbOutVars <= 0 {
		return nil, fmt.Errorf("output variable count must be > 0")
	}

	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", name, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("dataset %s has no samples", name)
	}
	header := records[0]
	if len(header) < nbOutVars+2 {
		return nil, fmt.Errorf("dataset %s has %d columns, need at least %d", name, len(header), nbOutVars+2)
	}

	nbVars := len(header) - 1
	t := &Table{
		Name:      name,
		VarNames:  append([]string(nil), header[1:]...),
		NbInVars:  nbVars - nbOutVars,
		NbOutVars: nbOutVars,
		cells:     make([][]Cell, 0, len(records)-1),
	}

	for rowNum, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("dataset %s: row %d has %d columns, want %d", name, rowNum+1, len(record), len(header))
		}
		row := make([]Cell, nbVars)
		for i := 0; i < nbVars; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[i+1]), 64)
			if err != nil {
				row[i] = Cell{Missing: true}
				continue
			}
			row[i] = Cell{Value: v}
		}
		t.cells = append(t.cells, row)
	}

	t.detectUniverses()
	return t, nil
}

// detectUniverses observes per-variable bounds once at load. Missing
// cells do not contribute.
func (t *Table) detectUniverses() {
	nbVars := t.NbInVars + t.NbOutVars
	t.universes = make([]Universe, nbVars)
	for i := 0; i < nbVars; i++ {
		first := true
		for _, row := range t.cells {
			c := row[i]
			if c.Missing {
				continue
			}
			if first {
				t.universes[i] = Universe{Min: c.Value, Max: c.Value}
				first = false
				continue
			}
			if c.Value < t.universes[i].Min {
				t.universes[i].Min = c.Value
			}
			if c.Value > t.universes[i].Max {
				t.universes[i].Max = c.Value
			}
		}
	}
}

// Samples returns the number of data rows.
func (t *Table) Samples() int {
	return len(t.cells)
}

// In returns the input cell of variable varIdx in the given sample.
func (t *Table) In(sample, varIdx int) Cell {
	return t.cells[sample][varIdx]
}

// Out returns the output value of variable varIdx in the given sample.
// An unparseable output reads as 0.
func (t *Table) Out(sample, varIdx int) float64 {
	return t.cells[sample][t.NbInVars+varIdx].Value
}

// InUniverse returns the universe of input variable varIdx.
func (t *Table) InUniverse(varIdx int) Universe {
	return t.universes[varIdx]
}

// OutUniverse returns the universe of output variable varIdx.
func (t *Table) OutUniverse(varIdx int) Universe {
	return t.universes[t.NbInVars+varIdx]
}

// InName returns the name of input variable varIdx.
func (t *Table) InName(varIdx int) string {
	return t.VarNames[varIdx]
}

// OutName returns the name of output variable varIdx.
func (t *Table) OutName(varIdx int) string {
	return t.VarNames[t.NbInVars+varIdx]
}
