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

// This package reads the catalog's tabular datasets as row-oriented tables.
// Our World in Data grapher exports carry one row per country-year with the
// columns Entity, Code, Year and one or more indicator columns; the Code
// column holds the ISO 3166-1 alpha-3 identifier shared with the boundary
// layer.
package dataset

import (
	"encoding/csv"
	"os"
	"sort"
	"strconv"
	"strings"
)

// names of the well-known OWID columns (matched case-insensitively)
const (
	codeColumn = "Code"
	yearColumn = "Year"
)

// A Table is a row-oriented tabular dataset read from a CSV file.
type Table struct {
	// column names, in file order
	Columns []string
	// rows of cell values, each as long as Columns
	Rows [][]string
}

// Reads the CSV file at the given path into a Table. The first row is
// required to be a header.
func Read(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // ragged rows are rejected below, with context
	records, err := reader.ReadAll()
	if err != nil {
		return nil, FormatError{Path: path, Message: err.Error()}
	}
	if len(records) == 0 {
		return nil, FormatError{Path: path, Message: "file contains no header row"}
	}

	table := Table{
		Columns: records[0],
		Rows:    make([][]string, 0, len(records)-1),
	}
	for i, row := range records[1:] {
		if len(row) != len(table.Columns) {
			return nil, FormatError{
				Path:    path,
				Message: "row " + strconv.Itoa(i+2) + " has a mismatched number of cells",
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return &table, nil
}

// returns the index of the column with the given name (case-insensitive),
// or -1 if the table has no such column
func (t *Table) ColumnIndex(name string) int {
	for i, column := range t.Columns {
		if strings.EqualFold(strings.TrimSpace(column), name) {
			return i
		}
	}
	return -1
}

// returns the index of the table's country-identifier column
func (t *Table) CountryColumn() (int, error) {
	index := t.ColumnIndex(codeColumn)
	if index < 0 {
		return -1, MissingColumnError{Column: codeColumn}
	}
	return index, nil
}

// Normalizes a country identifier the same way for tabular datasets and the
// boundary layer: surrounding whitespace stripped, upper-cased.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Reduces a table with one row per country-year to one row per country,
// keeping the most recent year for each. Rows without a country code are
// dropped (OWID uses an empty Code for aggregates like "World"), as are
// rows whose year doesn't parse. The result's rows are ordered by country
// code.
func LatestPerCountry(t *Table) (*Table, error) {
	codeIndex, err := t.CountryColumn()
	if err != nil {
		return nil, err
	}
	yearIndex := t.ColumnIndex(yearColumn)
	if yearIndex < 0 {
		return nil, MissingColumnError{Column: yearColumn}
	}

	type latest struct {
		year int
		row  []string
	}
	byCode := make(map[string]latest)
	for _, row := range t.Rows {
		code := NormalizeCode(row[codeIndex])
		if code == "" {
			continue
		}
		year, err := strconv.Atoi(strings.TrimSpace(row[yearIndex]))
		if err != nil {
			continue
		}
		if current, found := byCode[code]; !found || year > current.year {
			byCode[code] = latest{year: year, row: row}
		}
	}

	codes := make([]string, 0, len(byCode))
	for code := range byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	reduced := Table{
		Columns: t.Columns,
		Rows:    make([][]string, 0, len(codes)),
	}
	for _, code := range codes {
		reduced.Rows = append(reduced.Rows, byCode[code].row)
	}
	return &reduced, nil
}
