package services

// This file defines a unit test setup for the prototype map service. The
// service is backed by environment data built entirely from local fixtures.
import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"

	"github.com/okavango/envdata/catalog"
	"github.com/okavango/envdata/config"
	"github.com/okavango/envdata/environment"
	"github.com/okavango/envdata/envtest"
)

// temporary testing directory
var TESTING_DIR string

// service URLs
var (
	baseUrl   = "http://localhost:8085/"
	apiPrefix = "api/v1/"
)

// service instance
var service MapService

const serviceConfig string = `
service:
  port: 8085
  max_connections: 100
data:
  download_dir: TESTING_DIR
`

// performs testing setup
func setup() {
	envtest.EnableDebugLogging()

	log.Print("Creating testing directory...\n")
	var err error
	TESTING_DIR, err = os.MkdirTemp(os.TempDir(), "envdata-service-tests-")
	if err != nil {
		log.Panicf("Couldn't create testing directory: %s", err)
	}

	// read in the config file with TESTING_DIR replaced
	myConfig := strings.ReplaceAll(serviceConfig, "TESTING_DIR", TESTING_DIR)
	err = config.Init([]byte(myConfig))
	if err != nil {
		log.Panicf("Couldn't initialize configuration: %s", err)
	}

	// build the environment data from local fixture files
	payloads, err := envtest.CatalogPayloads()
	if err != nil {
		log.Panicf("Couldn't build catalog payloads: %s", err)
	}
	files := make(map[string]string)
	for _, entry := range catalog.All() {
		path := filepath.Join(TESTING_DIR, entry.Filename)
		err = os.WriteFile(path, payloads[entry.Filename], 0644)
		if err != nil {
			log.Panicf("Couldn't write fixture file: %s", err)
		}
		files[entry.Name] = path
	}
	data := environment.New()
	err = data.BuildFromFiles(context.Background(), files)
	if err != nil {
		log.Panicf("Couldn't build environment data: %s", err)
	}

	// Start the service.
	log.Print("Starting test map service...\n")
	go func() {
		service, err = NewMapService(data)
		if err != nil {
			log.Panicf("Couldn't construct the service: %s", err.Error())
		}
		err = service.Start(config.Service.Port)
		if err != nil {
			log.Panicf("Couldn't start map service: %s", err.Error())
		}
	}()

	// Give the service time to start up.
	time.Sleep(100 * time.Millisecond)
}

// Performs testing breakdown.
func breakdown() {

	if service != nil {
		// Gracefully shut the service down when it finishes its work.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		service.Shutdown(ctx)
	}

	if TESTING_DIR != "" {
		// Remove the testing directory and its contents.
		log.Printf("Deleting testing directory %s...\n", TESTING_DIR)
		os.RemoveAll(TESTING_DIR)
	}
}

// sends a GET query
func get(resource string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, resource, http.NoBody)
	if err != nil {
		return nil, err
	}
	return http.DefaultClient.Do(req)
}

// queries the service's root endpoint
func TestQueryRoot(t *testing.T) {
	assert := assert.New(t)

	resp, err := get(baseUrl)
	assert.Nil(err)

	respBody, err := io.ReadAll(resp.Body)
	assert.Nil(err)
	defer resp.Body.Close()

	var root ServiceInfoResponse
	err = json.Unmarshal(respBody, &root)
	assert.Nil(err)
	assert.Equal("envdata prototype", root.Name)
	assert.Equal(version, root.Version)
}

// queries the service's maps endpoint
func TestQueryMaps(t *testing.T) {
	assert := assert.New(t)

	resp, err := get(baseUrl + apiPrefix + "maps")
	assert.Nil(err)

	respBody, err := io.ReadAll(resp.Body)
	assert.Nil(err)
	defer resp.Body.Close()

	var maps []MapResponse
	err = json.Unmarshal(respBody, &maps)
	assert.Nil(err)
	assert.Equal(5, len(maps))

	// the listing is sorted by identifier
	assert.Equal("annual_change_forest_area", maps[0].Id)
	assert.Equal("annual_deforestation", maps[1].Id)
	assert.Equal("forest_area_total", maps[2].Id)
	assert.Equal("share_land_degraded", maps[3].Id)
	assert.Equal("share_land_protected", maps[4].Id)
	for _, m := range maps {
		assert.NotEmpty(m.Name)
		assert.Equal(len(envtest.DefaultCountries()), m.Countries)
		assert.Contains(m.Columns, "Year")
	}
}

// fetches a single map as GeoJSON
func TestQueryMap(t *testing.T) {
	assert := assert.New(t)

	resp, err := get(baseUrl + apiPrefix + "maps/annual_deforestation")
	assert.Nil(err)
	assert.Equal(http.StatusOK, resp.StatusCode)

	respBody, err := io.ReadAll(resp.Body)
	assert.Nil(err)
	defer resp.Body.Close()

	collection, err := geojson.UnmarshalFeatureCollection(respBody)
	assert.Nil(err, "The map endpoint didn't produce valid GeoJSON")
	assert.Equal(len(envtest.DefaultCountries()), len(collection.Features))

	features := make(map[string]*geojson.Feature)
	for _, feature := range collection.Features {
		code, ok := feature.Properties["code"].(string)
		assert.True(ok, "A feature is missing its country code")
		features[code] = feature
	}

	// Brazil has a matching row (most recent year wins)
	assert.Contains(features, "BRA")
	assert.Equal("Brazil", features["BRA"].Properties["country"])
	assert.Equal(900.0, features["BRA"].Properties["indicator"])
	assert.Equal(2020.0, features["BRA"].Properties["Year"])

	// Kenya has no tabular row, so its values are null but its geometry stands
	assert.Contains(features, "KEN")
	assert.Nil(features["KEN"].Properties["indicator"])
	assert.Nil(features["KEN"].Properties["Year"])
	assert.NotNil(features["KEN"].Geometry)
}

// asks for a map that doesn't exist
func TestQueryMissingMap(t *testing.T) {
	assert := assert.New(t)

	resp, err := get(baseUrl + apiPrefix + "maps/lost_continent")
	assert.Nil(err)
	defer resp.Body.Close()
	assert.Equal(http.StatusNotFound, resp.StatusCode)
}

// This runs setup, runs all tests, and does breakdown.
func TestMain(m *testing.M) {
	var status int
	setup()
	status = m.Run()
	breakdown()
	os.Exit(status)
}
