package merge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"

	"github.com/okavango/envdata/boundary"
	"github.com/okavango/envdata/catalog"
	"github.com/okavango/envdata/dataset"
	"github.com/okavango/envdata/envtest"
)

// a small multipolygon used for fixture countries
func square(offset float64) orb.MultiPolygon {
	return orb.MultiPolygon{{{
		{offset, 0}, {offset, 1}, {offset + 1, 1}, {offset + 1, 0}, {offset, 0},
	}}}
}

// a three-country boundary layer: the canned tabular fixture covers BRA and
// NOR but not KEN
func testLayer() *boundary.Layer {
	return &boundary.Layer{Countries: []boundary.Country{
		{Code: "BRA", Name: "Brazil", Geometry: square(0)},
		{Code: "NOR", Name: "Norway", Geometry: square(2)},
		{Code: "KEN", Name: "Kenya", Geometry: square(4)},
	}}
}

// writes the canned tabular fixture to disk and returns its path
func tabularFile(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "table.csv")
	err := os.WriteFile(path, []byte(envtest.TabularCSV), 0644)
	assert.Nil(t, err, "Couldn't write the tabular fixture")
	return path
}

func testEntry() catalog.Descriptor {
	entry, _ := catalog.Lookup("annual_deforestation")
	return entry
}

// tests the fundamental left-join invariants: row count equals the layer's,
// geometry never null, uncovered countries keep null cells
func TestOnePreservesBoundaryRows(t *testing.T) {
	assert := assert.New(t)
	layer := testLayer()
	merged, err := One(testEntry(), layer, tabularFile(t))
	assert.Nil(err, fmt.Sprintf("Merging a valid dataset reported an error: %s", err))
	assert.Equal(layer.Len(), merged.Len(),
		"Merged row count doesn't equal the boundary layer's")

	for _, feature := range merged.Features {
		assert.NotEmpty(feature.Geometry,
			fmt.Sprintf("Feature %s lost its geometry", feature.Code))
	}

	// BRA is covered (most recent year 2020 -> 900); KEN is not
	byCode := make(map[string]Feature)
	for _, feature := range merged.Features {
		byCode[feature.Code] = feature
	}
	value := byCode["BRA"].Values["indicator"]
	assert.NotNil(value, "A covered country has a null value cell")
	assert.Equal(900.0, *value, "The most recent year was not selected")
	assert.Nil(byCode["KEN"].Values["indicator"],
		"An uncovered country doesn't have a null value cell")
	assert.Nil(byCode["KEN"].Values["Year"],
		"An uncovered country doesn't have a null year cell")
}

// tests that tabular rows for countries outside the layer are dropped
func TestOneDropsUnmatchedTabularRows(t *testing.T) {
	assert := assert.New(t)
	layer := testLayer()
	merged, err := One(testEntry(), layer, tabularFile(t))
	assert.Nil(err)
	assert.Equal(layer.Len(), merged.Len(),
		"A tabular-only country added a row to the merged result")
	for _, feature := range merged.Features {
		assert.NotEqual("ATL", feature.Code,
			"A country absent from the boundary layer survived the join")
	}
}

// tests that a duplicate country key is rejected as a contract violation
func TestTableRejectsDuplicateCountryKeys(t *testing.T) {
	assert := assert.New(t)
	table := &dataset.Table{
		Columns: []string{"Entity", "Code", "Year", "indicator"},
		Rows: [][]string{
			{"Brazil", "BRA", "2020", "900"},
			{"Brazil", "bra ", "2019", "1000"}, // same key after normalization
		},
	}
	_, err := Table(testEntry(), testLayer(), table)
	assert.NotNil(err, "A duplicate country key didn't trigger an error")
	var joinErr *JoinIntegrityError
	assert.True(errors.As(err, &joinErr), "The error isn't a JoinIntegrityError")
	assert.Equal("BRA", joinErr.Code)
	assert.Equal(testEntry().Name, joinErr.Dataset)
}

// tests that merging the same inputs twice yields identical results
func TestOneIsIdempotent(t *testing.T) {
	assert := assert.New(t)
	layer := testLayer()
	path := tabularFile(t)
	first, err := One(testEntry(), layer, path)
	assert.Nil(err)
	second, err := One(testEntry(), layer, path)
	assert.Nil(err)
	assert.Equal(first, second, "Two merges of the same inputs differ")
}

// tests that datasets merge independently: a broken dataset fails with its
// name while the others still merge
func TestDatasetsIsolatesFailures(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	files := make(map[string]string)
	for _, entry := range catalog.Tabular() {
		path := filepath.Join(dir, entry.Filename)
		content := envtest.TabularCSV
		if entry.Name == "share_land_degraded" {
			content = "Entity,NoCodeHere,Year\nBrazil,BRA,2020\n"
		}
		err := os.WriteFile(path, []byte(content), 0644)
		assert.Nil(err)
		files[entry.Name] = path
	}

	merged, err := Datasets(context.Background(), testLayer(), files)
	assert.NotNil(err, "A broken dataset didn't trigger an error")
	assert.Contains(err.Error(), "share_land_degraded",
		"The error doesn't name the failed dataset")
	assert.Equal(len(catalog.Tabular())-1, len(merged),
		"Other datasets didn't survive one dataset's failure")
	_, found := merged["share_land_degraded"]
	assert.False(found, "The failed dataset appears in the results")
}

// tests that the archive entry in the path mapping is ignored
func TestDatasetsIgnoresArchiveEntry(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	files := make(map[string]string)
	for _, entry := range catalog.Tabular() {
		path := filepath.Join(dir, entry.Filename)
		err := os.WriteFile(path, []byte(envtest.TabularCSV), 0644)
		assert.Nil(err)
		files[entry.Name] = path
	}
	files[catalog.Geodata] = filepath.Join(dir, "boundaries.zip")

	merged, err := Datasets(context.Background(), testLayer(), files)
	assert.Nil(err, fmt.Sprintf("Merging with an archive entry present reported an error: %s", err))
	assert.Equal(len(catalog.Tabular()), len(merged))
	_, found := merged[catalog.Geodata]
	assert.False(found, "The archive entry leaked into the merged results")
}
