package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// a type with service configuration parameters
type serviceConfig struct {
	// Port on which the service listens.
	Port int `json:"port" yaml:"port"`
	// Maximum number of allowed incoming connections.
	MaxConnections int `json:"maxConnections" yaml:"max_connections"`
}

// a type with dataset acquisition parameters
type dataConfig struct {
	// Directory into which all fetched artifacts are written. Created
	// (with parents) if it does not exist.
	DownloadDir string `json:"downloadDir" yaml:"download_dir"`
	// Timeout (in seconds) applied to each HTTP request.
	RequestTimeout int `json:"requestTimeout" yaml:"request_timeout"`
	// Path to the acquisition journal file. Relative paths are resolved
	// against the download directory.
	JournalFile string `json:"journalFile" yaml:"journal_file"`
}

// global config variables
var Service serviceConfig
var Data dataConfig

// This struct performs the unmarshalling from the YAML config file and then
// copies its fields to the globals above.
type configFile struct {
	Service serviceConfig `yaml:"service"`
	Data    dataConfig    `yaml:"data"`
}

// This helper reads configuration data, returning an error indicating
// success or failure. All environment variables of the form ${ENV_VAR} are
// expanded.
func readConfig(bytes []byte) error {
	// Before we do anything else, expand any provided environment variables.
	bytes = []byte(os.ExpandEnv(string(bytes)))

	var conf configFile
	conf.Service.Port = 8080
	conf.Service.MaxConnections = 100
	conf.Data.DownloadDir = "downloads"
	conf.Data.RequestTimeout = 30
	conf.Data.JournalFile = "journal.db"
	err := yaml.Unmarshal(bytes, &conf)
	if err != nil {
		log.Printf("Couldn't parse configuration data: %s\n", err)
		return err
	}

	// copy the config data into place
	Service = conf.Service
	Data = conf.Data

	return err
}

// This helper validates the given service parameters, returning an
// error indicating success or failure.
func validateServiceParameters(params serviceConfig) error {
	if params.Port < 0 || params.Port > 65535 {
		return fmt.Errorf("Invalid port: %d (must be 0-65535)", params.Port)
	}
	if params.MaxConnections <= 0 {
		return fmt.Errorf("Invalid maxConnections: %d (must be positive)",
			params.MaxConnections)
	}
	return nil
}

// This helper validates the given data parameters, creating the download
// directory if needed.
func validateDataParameters(params dataConfig) error {
	if params.DownloadDir == "" {
		return fmt.Errorf("No download directory was provided!")
	}
	if params.RequestTimeout <= 0 {
		return fmt.Errorf("Invalid requestTimeout: %d (must be positive)",
			params.RequestTimeout)
	}
	err := os.MkdirAll(params.DownloadDir, 0755)
	if err != nil {
		return fmt.Errorf("Couldn't create download directory %s: %s",
			params.DownloadDir, err.Error())
	}
	return nil
}

// This helper validates the configuration, returning an error that indicates
// success or failure.
func validateConfig() error {
	err := validateServiceParameters(Service)
	if err != nil {
		return err
	}
	err = validateDataParameters(Data)
	if err != nil {
		return err
	}

	// resolve the journal file against the download directory
	if !filepath.IsAbs(Data.JournalFile) {
		Data.JournalFile = filepath.Join(Data.DownloadDir, Data.JournalFile)
	}
	return nil
}

// Initializes the environment data service configuration using the given
// YAML byte data.
func Init(yamlData []byte) error {

	// Read the configuration from our YAML file.
	err := readConfig(yamlData)
	if err != nil {
		return err
	}

	// Validate the configuration.
	err = validateConfig()
	return err
}
