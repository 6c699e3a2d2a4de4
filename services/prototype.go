package services

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humamux"
	"github.com/gorilla/mux"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/net/netutil"

	"github.com/okavango/envdata/config"
	"github.com/okavango/envdata/environment"
	"github.com/okavango/envdata/merge"
)

// Version numbers
var majorVersion = 0
var minorVersion = 1
var patchVersion = 0

// Version string
var version = fmt.Sprintf("%d.%d.%d", majorVersion, minorVersion, patchVersion)

// This type implements the MapService interface, serving merged environment
// datasets as GeoJSON maps.
type prototype struct {
	// name of the service
	Name string
	// service version identifier
	Version string
	// time which the service was started
	StartTime time.Time
	// port on which the service currently runs
	Port int
	// router for REST endpoints
	Router *mux.Router
	// API wrapper
	API huma.API
	// HTTP server.
	Server *http.Server
	// the merged datasets served by this service, keyed by identifier
	Maps map[string]*merge.Merged
}

type ServiceInfoOutput struct {
	Body ServiceInfoResponse `doc:"information about the service itself"`
}

// handler method for root
func (service *prototype) getRoot(ctx context.Context,
	input *struct{}) (*ServiceInfoOutput, error) {

	slog.Info("Querying root endpoint...")
	return &ServiceInfoOutput{
		Body: ServiceInfoResponse{
			Name:          service.Name,
			Version:       service.Version,
			Uptime:        int(service.uptime()),
			Documentation: "/docs",
		},
	}, nil
}

type MapsOutput struct {
	Body []MapResponse `doc:"A list of information about the available maps"`
}

// handler method for querying all available maps
func (service *prototype) getMaps(ctx context.Context,
	input *struct{}) (*MapsOutput, error) {

	slog.Info("Querying available maps...")
	output := &MapsOutput{
		Body: make([]MapResponse, 0),
	}
	for id, merged := range service.Maps {
		output.Body = append(output.Body, MapResponse{
			Id:        id,
			Name:      merged.DisplayName,
			Countries: merged.Len(),
			Columns:   merged.Columns,
		})
	}
	slices.SortFunc(output.Body, func(m1, m2 MapResponse) int { // sort by id
		return cmp.Compare(m1.Id, m2.Id)
	})
	return output, nil
}

type MapOutput struct {
	Body json.RawMessage `doc:"A GeoJSON FeatureCollection holding one feature per country, with dataset values as properties"`
}

// handler method for fetching a single map as GeoJSON
func (service *prototype) getMap(ctx context.Context,
	input *struct {
		Id string `path:"map" example:"annual_deforestation" doc:"the identifier of a merged dataset"`
	}) (*MapOutput, error) {

	slog.Info(fmt.Sprintf("Querying map %s...", input.Id))
	merged, ok := service.Maps[input.Id]
	if !ok {
		return nil, huma.Error404NotFound(fmt.Sprintf("Map %s not found", input.Id))
	}
	geoJson, err := geoJsonFor(merged)
	if err != nil {
		return nil, err
	}
	return &MapOutput{
		Body: geoJson,
	}, nil
}

// Encodes a merged dataset as a GeoJSON FeatureCollection. Each country
// becomes one feature carrying its code, name, and dataset values; countries
// without data keep null-valued properties.
func geoJsonFor(merged *merge.Merged) (json.RawMessage, error) {
	collection := geojson.NewFeatureCollection()
	for _, feature := range merged.Features {
		geoFeature := geojson.NewFeature(feature.Geometry)
		geoFeature.Properties["code"] = feature.Code
		geoFeature.Properties["country"] = feature.Country
		for _, column := range merged.Columns {
			if value := feature.Values[column]; value != nil {
				geoFeature.Properties[column] = *value
			} else {
				geoFeature.Properties[column] = nil
			}
		}
		collection.Append(geoFeature)
	}
	return collection.MarshalJSON()
}

// returns the uptime for the service in seconds
func (service *prototype) uptime() float64 {
	return time.Since(service.StartTime).Seconds()
}

// constructs a prototype map service serving the given environment data
func NewMapService(data *environment.Data) (MapService, error) {

	if data == nil || !data.Built() {
		return nil, NotBuiltError{}
	}

	service := new(prototype)
	service.Name = "envdata prototype"
	service.Version = version
	service.Port = -1

	// index the merged datasets by identifier
	service.Maps = make(map[string]*merge.Merged)
	for _, merged := range data.ListAvailableMaps() {
		service.Maps[merged.Name] = merged
	}

	// set up routing
	service.Router = mux.NewRouter()
	api := humamux.New(service.Router, huma.DefaultConfig(service.Name, service.Version))
	huma.Get(api, "/", service.getRoot)

	// API v1
	huma.Get(api, "/api/v1/maps", service.getMaps)
	huma.Get(api, "/api/v1/maps/{map}", service.getMap)

	return service, nil
}

// starts the prototype map service
func (service *prototype) Start(port int) error {
	slog.Info(fmt.Sprintf("Starting %s service on port %d...", service.Name, port))
	slog.Info(fmt.Sprintf("(Accepting up to %d connections)", config.Service.MaxConnections))

	service.StartTime = time.Now()

	// create a listener that limits the number of incoming connections
	service.Port = port
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return err
	}
	defer listener.Close()
	listener = netutil.LimitListener(listener, config.Service.MaxConnections)

	// start the server
	service.Server = &http.Server{
		Handler: service.Router}
	err = service.Server.Serve(listener)

	// we don't report the server closing as an error
	if err != http.ErrServerClosed {
		return err
	}
	return nil
}

// gracefully shuts down the service without interrupting active connections
func (service *prototype) Shutdown(ctx context.Context) error {
	if service.Server != nil {
		return service.Server.Shutdown(ctx)
	}
	return nil
}

// closes down the service abruptly, freeing all resources
func (service *prototype) Close() {
	if service.Server != nil {
		service.Server.Close()
	}
}
