package services

import (
	"context"
)

// this type encodes a JSON object for responding to root queries
type ServiceInfoResponse struct {
	Name          string `json:"name" example:"envdata" doc:"The name of the service API"`
	Version       string `json:"version" example:"1.0.0" doc:"The version string (major.minor.patch)"`
	Uptime        int    `json:"uptime" example:"345600" doc:"The time the service has been up (seconds)"`
	Documentation string `json:"documentation" example:"/docs" doc:"The OpenAPI documentation endpoint"`
}

// a response describing a single available map (GET)
type MapResponse struct {
	Id        string   `json:"id" example:"annual_deforestation" doc:"the identifier of the merged dataset"`
	Name      string   `json:"name" example:"Annual deforestation" doc:"the human-readable name of the merged dataset"`
	Countries int      `json:"countries" example:"177" doc:"the number of country features in the map"`
	Columns   []string `json:"columns" doc:"the dataset's value columns"`
}

// MapService defines the interface for our environment data service.
type MapService interface {
	// Starts the service on the selected port, returning an error that indicates
	// success or failure.
	Start(port int) error
	// Gracefully shuts down the service without interrupting active connections.
	Shutdown(ctx context.Context) error
	// Closes down the service, freeing all resources.
	Close()
}
