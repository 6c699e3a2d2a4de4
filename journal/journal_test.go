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

// These tests must be run serially, since the journal is coordinated by a
// single goroutine.

package journal

import (
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/okavango/envdata/config"
	"github.com/okavango/envdata/envtest"
	"github.com/okavango/envdata/fetch"
)

// a temporary directory holding the journal under test
var TESTING_DIR string

// runs all tests serially
func TestRunner(t *testing.T) {
	tester := SerialTests{Test: t}
	tester.TestInitAndFinalize()
	tester.TestRecordSuccessfulSession()
	tester.TestRecordFailedSession()
	tester.TestRejectsInvalidStatus()
}

// This runs setup, runs all tests, and does breakdown.
func TestMain(m *testing.M) {
	var status int
	setup()
	status = m.Run()
	breakdown()
	os.Exit(status)
}

// this function gets called at the beginning of a test session
func setup() {
	envtest.EnableDebugLogging()

	log.Print("Creating testing directory...\n")
	var err error
	TESTING_DIR, err = os.MkdirTemp(os.TempDir(), "envdata-journal-tests-")
	if err != nil {
		log.Panicf("Couldn't create testing directory: %s", err)
	}

	yaml := fmt.Sprintf("data:\n  download_dir: %s\n", TESTING_DIR)
	err = config.Init([]byte(yaml))
	if err != nil {
		log.Panicf("Couldn't initialize configuration: %s", err)
	}
}

// this function gets called after all tests have been run
func breakdown() {
	if IsOpen() {
		Finalize()
	}
	if TESTING_DIR != "" {
		log.Printf("Deleting testing directory %s...\n", TESTING_DIR)
		os.RemoveAll(TESTING_DIR)
	}
}

// To run the tests serially, we attach them to a SerialTests type and
// have them run by a single test runner.
type SerialTests struct{ Test *testing.T }

func (t *SerialTests) TestInitAndFinalize() {
	assert := assert.New(t.Test)

	assert.False(IsOpen())
	err := Init()
	assert.Nil(err)
	assert.True(IsOpen())
	err = Finalize()
	assert.Nil(err)
	assert.False(IsOpen())
}

func (t *SerialTests) TestRecordSuccessfulSession() {
	assert := assert.New(t.Test)

	err := Init()
	assert.Nil(err)

	// a manifest describing a pair of fetched artifacts
	manifest, err := NewManifest([]fetch.Acquisition{
		{Dataset: "annual_deforestation", URL: "https://example.com/a.csv",
			Path: "/tmp/a.csv", Size: 1234},
		{Dataset: "geodata", URL: "https://example.com/b.zip",
			Path: "/tmp/b.zip", Size: 5678},
	})
	assert.Nil(err, "Couldn't create a session manifest")

	record := Record{
		Id:          uuid.New(),
		StartTime:   time.Now().Add(-2 * time.Second),
		StopTime:    time.Now(),
		Status:      "succeeded",
		NumDatasets: 2,
		PayloadSize: 6912,
	}
	record.Manifest = manifest
	err = RecordSession(record)
	assert.Nil(err, "Couldn't record a successful session")

	// fetch it back (generous bounds to avoid timestamp truncation trouble)
	records, err := Sessions(record.StartTime.Add(-time.Minute),
		record.StopTime.Add(time.Minute))
	assert.Nil(err, "Couldn't fetch session records")
	assert.Equal(1, len(records))
	assert.Equal(record.Id, records[0].Id)
	assert.Equal("succeeded", records[0].Status)
	assert.Equal(2, records[0].NumDatasets)
	assert.NotNil(records[0].Manifest, "The session's manifest was not restored")
	assert.Equal(2, len(records[0].Manifest.ResourceNames()))

	err = Finalize()
	assert.Nil(err)
}

func (t *SerialTests) TestRecordFailedSession() {
	assert := assert.New(t.Test)

	err := Init()
	assert.Nil(err)

	record := Record{
		Id:        uuid.New(),
		StartTime: time.Now().Add(time.Hour), // off to the side of other tests
		StopTime:  time.Now().Add(time.Hour + time.Second),
		Status:    "failed",
	}
	err = RecordSession(record)
	assert.Nil(err, "Couldn't record a failed session")

	records, err := Sessions(record.StartTime.Add(-time.Minute),
		record.StopTime.Add(time.Minute))
	assert.Nil(err)
	assert.Equal(1, len(records))
	assert.Equal("failed", records[0].Status)
	assert.Nil(records[0].Manifest, "A failed session shouldn't have a manifest")

	err = Finalize()
	assert.Nil(err)
}

func (t *SerialTests) TestRejectsInvalidStatus() {
	assert := assert.New(t.Test)

	err := Init()
	assert.Nil(err)

	err = RecordSession(Record{Id: uuid.New(), Status: "on a break"})
	assert.NotNil(err, "An invalid status didn't trigger an error")

	err = Finalize()
	assert.Nil(err)
}
