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

// Package environment assembles the complete environment dataset: it drives
// the acquisition of every catalog entry, loads the country boundary layer,
// and joins each tabular dataset to it. The result is held in a fixed set of
// named fields, one per dataset, so callers never discover datasets by
// string.
package environment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/okavango/envdata/boundary"
	"github.com/okavango/envdata/catalog"
	"github.com/okavango/envdata/config"
	"github.com/okavango/envdata/fetch"
	"github.com/okavango/envdata/journal"
	"github.com/okavango/envdata/merge"
)

// Data holds every merged dataset the service exposes. A freshly constructed
// Data is inert: all fields are nil until Build (or BuildFromFiles) succeeds,
// and they remain untouched if it fails.
type Data struct {
	AnnualChangeForestArea *merge.Merged
	AnnualDeforestation    *merge.Merged
	ShareLandProtected     *merge.Merged
	ShareLandDegraded      *merge.Merged
	ForestAreaTotal        *merge.Merged

	// the catalog entries acquired by Build
	entries []catalog.Descriptor
}

// creates an empty Data; call Build to populate it
func New() *Data {
	return &Data{entries: catalog.All()}
}

// Build downloads every catalog entry into the configured download
// directory, loads the boundary layer, and merges each tabular dataset with
// it. On success all five dataset fields are populated at once. On any
// failure the receiver is left exactly as it was, and the returned error
// names every dataset that failed. If the acquisition journal is open, the
// session is recorded either way.
func (data *Data) Build(ctx context.Context) error {
	startTime := time.Now()
	files, acquisitions, err := fetch.DatasetsFrom(ctx, data.entries,
		config.Data.DownloadDir)
	if err != nil {
		recordSession(startTime, acquisitions, err)
		return err
	}

	err = data.BuildFromFiles(ctx, files)
	recordSession(startTime, acquisitions, err)
	return err
}

// BuildFromFiles merges previously downloaded files, given as a mapping from
// catalog entry names to local paths. The mapping must cover the full
// catalog, including the boundary archive. No network access occurs and no
// journal record is written.
func (data *Data) BuildFromFiles(ctx context.Context, files map[string]string) error {
	archivePath, found := files[catalog.Geodata]
	if !found {
		return &MissingDatasetError{Dataset: catalog.Geodata}
	}
	layer, err := boundary.Load(archivePath)
	if err != nil {
		return err
	}

	merged, err := merge.Datasets(ctx, layer, files)
	if err != nil {
		return err
	}
	for _, entry := range catalog.Tabular() {
		if _, found := merged[entry.Name]; !found {
			return &MissingDatasetError{Dataset: entry.Name}
		}
	}

	// every dataset merged, so the receiver can be updated safely
	data.AnnualChangeForestArea = merged["annual_change_forest_area"]
	data.AnnualDeforestation = merged["annual_deforestation"]
	data.ShareLandProtected = merged["share_land_protected"]
	data.ShareLandDegraded = merged["share_land_degraded"]
	data.ForestAreaTotal = merged["forest_area_total"]
	return nil
}

// Built indicates whether the data has been successfully assembled.
func (data *Data) Built() bool {
	return data.AnnualChangeForestArea != nil &&
		data.AnnualDeforestation != nil &&
		data.ShareLandProtected != nil &&
		data.ShareLandDegraded != nil &&
		data.ForestAreaTotal != nil
}

// ListAvailableMaps returns the merged datasets keyed by their display
// names, for presentation. The mapping is empty until the data is built.
func (data *Data) ListAvailableMaps() map[string]*merge.Merged {
	maps := make(map[string]*merge.Merged)
	if !data.Built() {
		return maps
	}
	for _, merged := range []*merge.Merged{
		data.AnnualChangeForestArea,
		data.AnnualDeforestation,
		data.ShareLandProtected,
		data.ShareLandDegraded,
		data.ForestAreaTotal,
	} {
		maps[merged.DisplayName] = merged
	}
	return maps
}

// writes an acquisition session record if the journal is open
func recordSession(startTime time.Time, acquisitions []fetch.Acquisition, buildErr error) {
	if !journal.IsOpen() {
		return
	}

	record := journal.Record{
		Id:          uuid.New(),
		StartTime:   startTime,
		StopTime:    time.Now(),
		NumDatasets: len(acquisitions),
	}
	for _, acquisition := range acquisitions {
		record.PayloadSize += acquisition.Size
	}
	if buildErr != nil {
		record.Status = "failed"
	} else {
		record.Status = "succeeded"
		manifest, err := journal.NewManifest(acquisitions)
		if err != nil {
			slog.Error(fmt.Sprintf("Couldn't create a session manifest: %s", err))
		} else {
			record.Manifest = manifest
		}
	}
	if err := journal.RecordSession(record); err != nil {
		slog.Error(fmt.Sprintf("Couldn't record the acquisition session: %s", err))
	}
}
