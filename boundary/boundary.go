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

// This package loads the world country-boundary layer from a downloaded
// Natural Earth archive. The archive is a zip holding a shapefile component
// set; the layer it describes is the spatial join target for every tabular
// dataset, so it is loaded once and shared read-only.
package boundary

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"

	"github.com/okavango/envdata/dataset"
)

// names of the Natural Earth attributes we read
const (
	isoCodeField  = "ISO_A3"
	adm0CodeField = "ADM0_A3"
	adminField    = "ADMIN"
)

// Natural Earth marks territories without a usable ISO code with this value
const missingIsoCode = "-99"

// shapefile components that must be present in the archive
var requiredComponents = []string{".shp", ".shx", ".dbf"}

// A Country is one row of the boundary layer.
type Country struct {
	// normalized ISO 3166-1 alpha-3 identifier
	Code string
	// display name
	Name string
	// country/territory outline
	Geometry orb.MultiPolygon
}

// A Layer is the world country-boundary geometry collection, one row per
// country/territory. It is immutable after loading.
type Layer struct {
	Countries []Country
}

// returns the number of countries in the layer
func (l *Layer) Len() int {
	return len(l.Countries)
}

// Loads the boundary layer from the zip archive at the given path. The
// shapefile component set is extracted into a directory alongside the
// archive before reading.
func Load(archivePath string) (*Layer, error) {
	shpPath, err := extractShapefile(archivePath)
	if err != nil {
		return nil, err
	}

	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, FormatError{Archive: archivePath, Message: err.Error()}
	}
	defer reader.Close()

	// locate the attribute fields we need
	isoIndex, adm0Index, adminIndex := -1, -1, -1
	for i, field := range reader.Fields() {
		switch strings.ToUpper(field.String()) {
		case isoCodeField:
			isoIndex = i
		case adm0CodeField:
			adm0Index = i
		case adminField:
			adminIndex = i
		}
	}
	if isoIndex < 0 || adminIndex < 0 {
		return nil, FormatError{
			Archive: archivePath,
			Message: fmt.Sprintf("layer lacks the %s or %s attribute", isoCodeField, adminField),
		}
	}

	layer := Layer{Countries: make([]Country, 0)}
	for reader.Next() {
		n, shape := reader.Shape()

		code := dataset.NormalizeCode(reader.ReadAttribute(n, isoIndex))
		if code == missingIsoCode && adm0Index >= 0 {
			// a handful of territories carry -99 here; ADM0_A3 is still usable
			code = dataset.NormalizeCode(reader.ReadAttribute(n, adm0Index))
		}

		geometry, err := multiPolygonFromShape(shape)
		if err != nil {
			return nil, FormatError{Archive: archivePath, Message: err.Error()}
		}

		layer.Countries = append(layer.Countries, Country{
			Code:     code,
			Name:     strings.TrimSpace(reader.ReadAttribute(n, adminIndex)),
			Geometry: geometry,
		})
	}
	if len(layer.Countries) == 0 {
		return nil, FormatError{Archive: archivePath, Message: "layer contains no rows"}
	}
	return &layer, nil
}

// This helper extracts the shapefile component set from the archive into a
// working directory next to it, returning the path of the extracted .shp
// file. A missing required component is a FormatError; any trouble reading
// or writing is an ExtractionError.
func extractShapefile(archivePath string) (string, error) {
	zipReader, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", ExtractionError{Archive: archivePath, Cause: err}
	}
	defer zipReader.Close()

	workDir := strings.TrimSuffix(archivePath, filepath.Ext(archivePath))
	err = os.MkdirAll(workDir, 0755)
	if err != nil {
		return "", ExtractionError{Archive: archivePath, Cause: err}
	}

	var shpPath string
	extracted := make(map[string]bool)
	for _, member := range zipReader.File {
		// archive members are treated as flat; no paths from the zip are trusted
		name := filepath.Base(member.Name)
		ext := strings.ToLower(filepath.Ext(name))
		path := filepath.Join(workDir, name)
		err = extractMember(member, path)
		if err != nil {
			return "", ExtractionError{Archive: archivePath, Cause: err}
		}
		extracted[ext] = true
		if ext == ".shp" {
			shpPath = path
		}
	}

	for _, component := range requiredComponents {
		if !extracted[component] {
			return "", FormatError{
				Archive: archivePath,
				Message: fmt.Sprintf("archive is missing the %s shapefile component", component),
			}
		}
	}
	return shpPath, nil
}

// writes a single archive member to the given path
func extractMember(member *zip.File, path string) error {
	in, err := member.Open()
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	if err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Converts a shapefile shape to an orb multipolygon. In ESRI shapefiles the
// outer ring of a polygon winds clockwise and holes wind counter-clockwise;
// each clockwise ring starts a new polygon here.
func multiPolygonFromShape(shape shp.Shape) (orb.MultiPolygon, error) {
	polygon, ok := shape.(*shp.Polygon)
	if !ok {
		return nil, fmt.Errorf("unexpected geometry type %T (want polygon)", shape)
	}

	var multi orb.MultiPolygon
	numParts := len(polygon.Parts)
	for i, start := range polygon.Parts {
		end := len(polygon.Points)
		if i+1 < numParts {
			end = int(polygon.Parts[i+1])
		}
		ring := make(orb.Ring, 0, end-int(start))
		for _, point := range polygon.Points[start:end] {
			ring = append(ring, orb.Point{point.X, point.Y})
		}
		if clockwise(ring) || len(multi) == 0 {
			multi = append(multi, orb.Polygon{ring})
		} else { // a hole in the most recent polygon
			multi[len(multi)-1] = append(multi[len(multi)-1], ring)
		}
	}
	return multi, nil
}

// reports whether a ring winds clockwise (negative signed area)
func clockwise(ring orb.Ring) bool {
	var area float64
	for i := 0; i < len(ring); i++ {
		j := (i + 1) % len(ring)
		area += ring[i][0]*ring[j][1] - ring[j][0]*ring[i][1]
	}
	return area < 0
}
