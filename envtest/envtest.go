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

// This package contains testing utilities for the environment data service:
// canned tabular datasets, a synthetic boundary archive builder, and a local
// HTTP server that stands in for the remote dataset sources.
package envtest

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"

	"github.com/okavango/envdata/catalog"
)

// Enables DEBUG log messages for the service's structured log (slog).
func EnableDebugLogging() {
	logLevel := new(slog.LevelVar)
	logLevel.Set(slog.LevelDebug)
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(h))
}

// A canned OWID-style tabular dataset. BRA and NOR match the default
// boundary fixture; ATL ("Atlantis") matches nothing in it, and KEN has no
// row here, so merges against the default fixture exercise both unmatched
// sides.
const TabularCSV = `Entity,Code,Year,indicator
Brazil,BRA,2015,1000
Brazil,BRA,2020,900
Norway,NOR,2018,5
Atlantis,ATL,2020,42
World,,2020,123456
`

// a country written into a synthetic boundary archive
type FixtureCountry struct {
	IsoCode  string // value of the ISO_A3 attribute
	Adm0Code string // value of the ADM0_A3 attribute
	Name     string // value of the ADMIN attribute
}

// The default boundary fixture. France carries the Natural Earth -99
// ISO_A3 quirk, so loading it exercises the ADM0_A3 fallback.
func DefaultCountries() []FixtureCountry {
	return []FixtureCountry{
		{IsoCode: "BRA", Adm0Code: "BRA", Name: "Brazil"},
		{IsoCode: "NOR", Adm0Code: "NOR", Name: "Norway"},
		{IsoCode: "KEN", Adm0Code: "KEN", Name: "Kenya"},
		{IsoCode: "-99", Adm0Code: "FRA", Name: "France"},
	}
}

// Writes a zip archive holding a synthetic boundary shapefile with one
// square polygon per given country. Pass component extensions to omit
// (e.g. ".dbf") to produce a deliberately broken archive.
func WriteBoundaryArchive(path string, countries []FixtureCountry,
	omit ...string) error {
	workDir, err := os.MkdirTemp("", "envtest-boundary")
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	shpPath := filepath.Join(workDir, "boundaries.shp")
	err = writeBoundaryShapefile(shpPath, countries)
	if err != nil {
		return err
	}

	omitted := make(map[string]bool)
	for _, ext := range omit {
		omitted[strings.ToLower(ext)] = true
	}

	archive, err := os.Create(path)
	if err != nil {
		return err
	}
	defer archive.Close()
	zipWriter := zip.NewWriter(archive)
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		if omitted[ext] {
			continue
		}
		component := strings.TrimSuffix(shpPath, ".shp") + ext
		err = addArchiveMember(zipWriter, component)
		if err != nil {
			return err
		}
	}
	return zipWriter.Close()
}

// writes the synthetic shapefile itself (a unit square per country, offset
// so geometries are distinct)
func writeBoundaryShapefile(path string, countries []FixtureCountry) error {
	writer, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return err
	}
	defer writer.Close()

	writer.SetFields([]shp.Field{
		shp.StringField("ADMIN", 64),
		shp.StringField("ISO_A3", 8),
		shp.StringField("ADM0_A3", 8),
	})

	for n, country := range countries {
		offset := float64(2 * n)
		// the exterior ring winds clockwise, as ESRI shapefiles require
		square := [][]shp.Point{{
			{X: offset, Y: 0},
			{X: offset, Y: 1},
			{X: offset + 1, Y: 1},
			{X: offset + 1, Y: 0},
			{X: offset, Y: 0},
		}}
		polygon := shp.Polygon(*shp.NewPolyLine(square))
		writer.Write(&polygon)
		writer.WriteAttribute(n, 0, padField(country.Name, 64))
		writer.WriteAttribute(n, 1, padField(country.IsoCode, 8))
		writer.WriteAttribute(n, 2, padField(country.Adm0Code, 8))
	}
	return nil
}

// go-shp fills dbf records with NUL bytes, but dBASE character fields are
// space-padded (as in real Natural Earth data), so pad values to field width
func padField(value string, size int) string {
	for len(value) < size {
		value += " "
	}
	return value
}

// copies a shapefile component into the zip archive under its base name
func addArchiveMember(zipWriter *zip.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	member, err := zipWriter.Create(filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(member, file)
	return err
}

//-------------------------
// Download Server Fixture
//-------------------------

// Starts a local HTTP server whose paths are the catalog's local filenames,
// each answering with the given payload. Paths without a payload answer 404.
// The caller is responsible for calling Close() on the returned server.
func NewDownloadServer(payloads map[string][]byte) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		payload, found := payloads[strings.TrimPrefix(r.URL.Path, "/")]
		if !found {
			http.NotFound(w, r)
			return
		}
		w.Write(payload)
	})
	return httptest.NewServer(mux)
}

// Returns a copy of the full catalog whose URLs point at the given download
// server, so acquisition runs entirely against local fixtures.
func CatalogFor(serverURL string) []catalog.Descriptor {
	entries := catalog.All()
	for i := range entries {
		entries[i].URL = fmt.Sprintf("%s/%s", serverURL, entries[i].Filename)
	}
	return entries
}

// Payloads for a complete local catalog: the canned tabular CSV for every
// tabular entry and a synthetic boundary archive for the geodata entry.
func CatalogPayloads() (map[string][]byte, error) {
	workDir, err := os.MkdirTemp("", "envtest-payloads")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(workDir)

	archivePath := filepath.Join(workDir, "boundaries.zip")
	err = WriteBoundaryArchive(archivePath, DefaultCountries())
	if err != nil {
		return nil, err
	}
	archiveBytes, err := os.ReadFile(archivePath)
	if err != nil {
		return nil, err
	}

	payloads := make(map[string][]byte)
	for _, entry := range catalog.All() {
		if entry.Kind == catalog.KindTabular {
			payloads[entry.Filename] = []byte(TabularCSV)
		} else {
			payloads[entry.Filename] = archiveBytes
		}
	}
	return payloads, nil
}
