// Copyright (c) 2026 The Okavango Project and its Contributors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// This package joins each downloaded tabular dataset to the boundary layer
// by country identity. The boundary layer always drives the join: every
// country in the layer survives with its geometry, countries the tabular
// dataset doesn't cover keep null value cells, and tabular rows for
// countries outside the layer are dropped.
package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/deliveryhero/pipeline/v2"
	"github.com/paulmach/orb"

	"github.com/okavango/envdata/boundary"
	"github.com/okavango/envdata/catalog"
	"github.com/okavango/envdata/dataset"
)

// tabular key columns that don't become value columns
var keyColumns = map[string]bool{
	"entity": true,
	"code":   true,
}

// A Feature is one row of a merged dataset: a boundary-layer country with
// the tabular dataset's values for it. A nil value cell means the dataset
// has no data for that country.
type Feature struct {
	// normalized country identifier
	Code string
	// country display name (from the boundary layer)
	Country string
	// country outline (from the boundary layer, never empty)
	Geometry orb.MultiPolygon
	// value cells, keyed by value column name
	Values map[string]*float64
}

// A Merged dataset is a geometry-bearing table with exactly one feature per
// boundary-layer row. It is immutable once built.
type Merged struct {
	// logical name of the tabular dataset
	Name string
	// human-readable name for consumers
	DisplayName string
	// names of the value columns, in file order
	Columns []string
	// one feature per boundary-layer row, in layer order
	Features []Feature
}

// returns the number of rows in the merged dataset
func (m *Merged) Len() int {
	return len(m.Features)
}

// used to drive a merge stage for a single dataset
type job struct {
	entry catalog.Descriptor
	path  string
}

// Joins every tabular dataset in the given path mapping to the boundary
// layer, returning one merged dataset per entry. The archive entry, if
// present in the mapping, is ignored. Datasets merge independently: one
// dataset's failure never blocks the others, and every failure carries its
// dataset's name.
func Datasets(ctx context.Context, layer *boundary.Layer,
	files map[string]string) (map[string]*Merged, error) {

	jobs := make([]job, 0, len(files))
	for _, entry := range catalog.Tabular() {
		if path, found := files[entry.Name]; found {
			jobs = append(jobs, job{entry: entry, path: path})
		}
	}

	if len(jobs) == 0 {
		return make(map[string]*Merged), nil
	}

	// each dataset gets its own merge stage; failed jobs land on the
	// failures channel instead of the output channel
	failures := make(chan error, len(jobs))
	stage := pipeline.NewProcessor(
		func(ctx context.Context, j job) (*Merged, error) {
			return One(j.entry, layer, j.path)
		},
		func(j job, err error) {
			failures <- err
		})

	merged := make(map[string]*Merged)
	out := pipeline.ProcessConcurrently(ctx, len(jobs), stage, pipeline.Emit(jobs...))
	for result := range out {
		merged[result.Name] = result
	}
	close(failures)

	errs := make([]error, 0)
	for err := range failures {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return merged, errors.Join(errs...)
	}
	return merged, nil
}

// Reads a single tabular dataset, reduces it to one row per country
// (most recent year), and joins it to the boundary layer.
func One(entry catalog.Descriptor, layer *boundary.Layer, path string) (*Merged, error) {
	slog.Info(fmt.Sprintf("Merging %s with the boundary layer...", entry.Name))

	table, err := dataset.Read(path)
	if err != nil {
		return nil, &Error{Dataset: entry.Name, Cause: err}
	}
	table, err = dataset.LatestPerCountry(table)
	if err != nil {
		return nil, &Error{Dataset: entry.Name, Cause: err}
	}
	return Table(entry, layer, table)
}

// Joins a pre-reduced table to the boundary layer. The table must carry at
// most one row per country: a duplicate country key makes the join's row
// multiplicity undefined, so it is rejected as a contract violation.
func Table(entry catalog.Descriptor, layer *boundary.Layer, table *dataset.Table) (*Merged, error) {
	codeIndex, err := table.CountryColumn()
	if err != nil {
		return nil, &Error{Dataset: entry.Name, Cause: err}
	}

	// index the tabular rows by normalized country code
	rowsByCode := make(map[string][]string, len(table.Rows))
	for _, row := range table.Rows {
		code := dataset.NormalizeCode(row[codeIndex])
		if _, found := rowsByCode[code]; found {
			return nil, &JoinIntegrityError{Dataset: entry.Name, Code: code}
		}
		rowsByCode[code] = row
	}

	// the value columns are everything that isn't a key column
	valueIndexes := make([]int, 0, len(table.Columns))
	valueNames := make([]string, 0, len(table.Columns))
	for i, column := range table.Columns {
		if !keyColumns[strings.ToLower(strings.TrimSpace(column))] {
			valueIndexes = append(valueIndexes, i)
			valueNames = append(valueNames, column)
		}
	}

	// left join with the boundary layer driving: every country in the
	// layer appears exactly once; tabular rows for countries outside the
	// layer are dropped
	merged := Merged{
		Name:        entry.Name,
		DisplayName: entry.DisplayName,
		Columns:     valueNames,
		Features:    make([]Feature, 0, layer.Len()),
	}
	for _, country := range layer.Countries {
		values := make(map[string]*float64, len(valueNames))
		row := rowsByCode[country.Code]
		for k, index := range valueIndexes {
			values[valueNames[k]] = cellValue(row, index)
		}
		merged.Features = append(merged.Features, Feature{
			Code:     country.Code,
			Country:  country.Name,
			Geometry: country.Geometry,
			Values:   values,
		})
	}
	return &merged, nil
}

// parses a single value cell; a missing row, empty cell or non-numeric
// cell yields nil ("no data")
func cellValue(row []string, index int) *float64 {
	if row == nil {
		return nil
	}
	cell := strings.TrimSpace(row[index])
	if cell == "" {
		return nil
	}
	value, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil
	}
	return &value
}
