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

// This package downloads the catalog's datasets into a local directory.
// Every call re-fetches each dataset and overwrites its local file, so a
// fresh acquisition is always a faithful copy of the remote source.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okavango/envdata/catalog"
	"github.com/okavango/envdata/config"
)

// number of downloads allowed in flight at once
const maxInFlight = 4

// An Acquisition describes a single completed download.
type Acquisition struct {
	// logical name of the dataset
	Dataset string
	// remote URL the dataset was fetched from
	URL string
	// local path the dataset was written to
	Path string
	// size of the local file in bytes
	Size int64
	// times at which the download started and finished
	StartTime time.Time
	StopTime  time.Time
}

// Fetches every catalog entry into the given directory, creating it if
// needed, and returns a mapping from each dataset's logical name to the
// local path it was written to. Failures are isolated per dataset and
// reported together, each carrying the dataset's name and cause.
func Datasets(ctx context.Context, dir string) (map[string]string, error) {
	files, _, err := DatasetsFrom(ctx, catalog.All(), dir)
	return files, err
}

// Like Datasets, but fetches the given catalog entries and also returns a
// record of each successful acquisition (used by the acquisition journal).
func DatasetsFrom(ctx context.Context, entries []catalog.Descriptor,
	dir string) (map[string]string, []Acquisition, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, nil, fmt.Errorf("Couldn't create download directory %s: %s",
			dir, err.Error())
	}

	client := SecureHttpClient(time.Duration(config.Data.RequestTimeout) * time.Second)

	// the downloads are independent, so we run a few at a time; each
	// failure stays attributable to its dataset
	var mutex sync.Mutex
	files := make(map[string]string)
	acquisitions := make([]Acquisition, 0, len(entries))
	failures := make([]error, 0)

	var group errgroup.Group
	group.SetLimit(maxInFlight)
	for _, entry := range entries {
		entry := entry // per-iteration copy; module builds with a pre-1.22 go directive
		group.Go(func() error {
			acquisition, err := One(ctx, &client, entry, dir)
			mutex.Lock()
			defer mutex.Unlock()
			if err != nil {
				failures = append(failures, err)
			} else {
				files[entry.Name] = acquisition.Path
				acquisitions = append(acquisitions, acquisition)
			}
			return nil // errors are collected above, not short-circuited
		})
	}
	group.Wait()

	if len(failures) > 0 {
		return files, acquisitions, errors.Join(failures...)
	}
	return files, acquisitions, nil
}

// Fetches a single catalog entry into the given directory, overwriting any
// existing file.
func One(ctx context.Context, client *http.Client, entry catalog.Descriptor,
	dir string) (Acquisition, error) {
	slog.Info(fmt.Sprintf("Downloading %s...", entry.Name))
	startTime := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.URL, http.NoBody)
	if err != nil {
		return Acquisition{}, DownloadError{Dataset: entry.Name, URL: entry.URL, Cause: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Acquisition{}, DownloadError{Dataset: entry.Name, URL: entry.URL, Cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Acquisition{}, DownloadError{
			Dataset: entry.Name,
			URL:     entry.URL,
			Cause:   BadStatusError{URL: entry.URL, StatusCode: resp.StatusCode},
		}
	}

	path := filepath.Join(dir, entry.Filename)
	file, err := os.Create(path)
	if err != nil {
		return Acquisition{}, WriteError{Dataset: entry.Name, Path: path, Cause: err}
	}
	size, err := io.Copy(file, resp.Body)
	if err != nil {
		file.Close()
		os.Remove(path) // don't leave a truncated file behind
		return Acquisition{}, WriteError{Dataset: entry.Name, Path: path, Cause: err}
	}
	err = file.Close()
	if err != nil {
		return Acquisition{}, WriteError{Dataset: entry.Name, Path: path, Cause: err}
	}

	return Acquisition{
		Dataset:   entry.Name,
		URL:       entry.URL,
		Path:      path,
		Size:      size,
		StartTime: startTime,
		StopTime:  time.Now(),
	}, nil
}
