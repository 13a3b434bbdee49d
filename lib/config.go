package lib

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/units"
)

/* This file implements logic for 'user controlled' global configuration of a replica */

const (
	// FILE NAMES in the 'data directory'
	ConfigFilePath = "config.json" // the file path for the node configuration
)

// Config is the structure of the user configuration options for a replica process
type Config struct {
	MainConfig      // logging options
	ConsensusConfig // order-fair hotstuff options
	StoreConfig     // data directory and persistence options for the committed-block store
	MetricsConfig   // telemetry options
}

// DefaultConfig() returns a Config with developer set options
func DefaultConfig() Config {
	return Config{
		MainConfig:      DefaultMainConfig(),
		ConsensusConfig: DefaultConsensusConfig(),
		StoreConfig:     DefaultStoreConfig(),
		MetricsConfig:   DefaultMetricsConfig(),
	}
}

// MAIN CONFIG BELOW

type MainConfig struct {
	LogLevel string `json:"logLevel"` // any level includes the levels above it: debug < info < warning < error
}

// DefaultMainConfig() sets log level to 'info'
func DefaultMainConfig() MainConfig {
	return MainConfig{
		LogLevel: "info", // everything but debug is the default
	}
}

// GetLogLevel() parses the log string in the config file into a LogLevel Enum
func (m *MainConfig) GetLogLevel() int32 {
	switch {
	case strings.Contains(strings.ToLower(m.LogLevel), "deb"):
		return DebugLevel
	case strings.Contains(strings.ToLower(m.LogLevel), "inf"):
		return InfoLevel
	case strings.Contains(strings.ToLower(m.LogLevel), "war"):
		return WarnLevel
	case strings.Contains(strings.ToLower(m.LogLevel), "err"):
		return ErrorLevel
	default:
		return DebugLevel
	}
}

// CONSENSUS CONFIG BELOW

// ConsensusConfig defines the replica-set size, fault tolerance, fairness, and pruning
// parameters of the order-fair three-chain core
type ConsensusConfig struct {
	NumReplicas       int     `json:"numReplicas"`       // n: total number of replicas in the committee
	NumFaulty         int     `json:"numFaulty"`         // f: the number of byzantine replicas tolerated
	FairnessParameter float64 `json:"fairnessParameter"` // gamma: the decay factor used by fair_finalize, in (0, 1]
	StalenessWindow   uint64  `json:"stalenessWindow"`   // how many committed heights a block may lag behind before it is eligible for prune()
}

// NumMajority() returns the quorum size n - f used as the vote/local-order threshold
func (c *ConsensusConfig) NumMajority() int {
	return c.NumReplicas - c.NumFaulty
}

// DefaultConsensusConfig() configures a 4 replica, 1 fault committee with gamma=0.5
func DefaultConsensusConfig() ConsensusConfig {
	return ConsensusConfig{
		NumReplicas:       4,
		NumFaulty:         1,
		FairnessParameter: 0.5,
		StalenessWindow:   10,
	}
}

// STORE CONFIG BELOW

// StoreConfig is user configuration for the key value database backing the committed-block store
type StoreConfig struct {
	DataDirPath  string `json:"dataDirPath"`  // path of the designated folder where the replica stores its data
	DBName       string `json:"dbName"`       // name of the database
	InMemory     bool   `json:"inMemory"`     // non-disk database, only for testing
	CacheSizeMB  uint64 `json:"cacheSizeMB"`  // block cache size, in megabytes
	ValueLogSize uint64 `json:"valueLogSize"` // maximum size of a single value log file, in bytes
}

// CacheSizeBytes() converts CacheSizeMB into bytes for badger's cache size option
func (s *StoreConfig) CacheSizeBytes() int64 {
	return int64(s.CacheSizeMB) * int64(units.MB)
}

// DefaultDataDirPath() is $USERHOME/.order-fair-hotstuff
func DefaultDataDirPath() string {
	// get the user home
	home, err := os.UserHomeDir()
	// if unable to get the user home
	if err != nil {
		// fatal error
		panic(err)
	}
	// exit with full default data directory path
	return filepath.Join(home, ".order-fair-hotstuff")
}

// DefaultStoreConfig() returns the developer recommended store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		DataDirPath:  DefaultDataDirPath(),      // use the default data dir path
		DBName:       "entities",                // 'entities' database name
		InMemory:     false,                     // persist to disk, not memory
		CacheSizeMB:  64,                        // 64 MB block cache
		ValueLogSize: uint64(1 * units.Gigabyte), // 1 GB max value log file size
	}
}

// METRICS CONFIG BELOW

// MetricsConfig represents the configuration for the metrics server
type MetricsConfig struct {
	Enabled           bool   `json:"enabled"`           // if the metrics are enabled
	PrometheusAddress string `json:"prometheusAddress"` // the address of the server
}

// DefaultMetricsConfig() returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:           true,           // enabled by default
		PrometheusAddress: "0.0.0.0:9090", // the default prometheus address
	}
}

// WriteToFile() saves the Config object to a JSON file
func (c Config) WriteToFile(filepath string) error {
	// convert the config to indented 'pretty' json bytes
	jsonBytes, err := json.MarshalIndent(c, "", "  ")
	// if an error occurred during the conversion
	if err != nil {
		// exit with error
		return err
	}
	// write the config.json file to the data directory
	return os.WriteFile(filepath, jsonBytes, os.ModePerm)
}

// NewConfigFromFile() populates a Config object from a JSON file
func NewConfigFromFile(filepath string) (Config, error) {
	// read the file into bytes using
	fileBytes, err := os.ReadFile(filepath)
	// if an error occurred
	if err != nil {
		// exit with error
		return Config{}, err
	}
	// define the default config to fill in any blanks in the file
	c := DefaultConfig()
	// populate the default config with the file bytes
	if err = json.Unmarshal(fileBytes, &c); err != nil {
		// exit with error
		return Config{}, err
	}
	// exit
	return c, nil
}
