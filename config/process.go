// Package config loads the ambient YAML process configuration shared by
// the computer/router/controller CLI roles, and the JSON computer
// descriptor that describes a computer's processors, lambdas and
// containers.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ComputerConfig is the process-level configuration of a computer role:
// where it listens for lambda requests, where it announces itself, and
// which descriptor file to load.
type ComputerConfig struct {
	LogLevel          string `yaml:"log_level"`
	LambdaEndpoint    string `yaml:"lambda_endpoint"`
	ControllerAddress string `yaml:"controller_address"`
	DescriptorPath    string `yaml:"descriptor_path"`
}

// RouterConfig is the process-level configuration of a router role.
type RouterConfig struct {
	LogLevel          string `yaml:"log_level"`
	LambdaEndpoint    string `yaml:"lambda_endpoint"`
	ConfigEndpoint    string `yaml:"config_endpoint"`
	ControllerAddress string `yaml:"controller_address"`

	// EntryType selects the scheduling entry variant shared by both of
	// the router's tables: "random", "least-impedance", "round-robin"
	// or "proportional-fairness".
	EntryType string `yaml:"entry_type"`

	// OptimizerKind selects the local optimizer: "none", "trivial",
	// "async" or "async-pf".
	OptimizerKind string `yaml:"optimizer_kind"`
	// OptimizerPeriod is the flush interval in seconds for "trivial".
	OptimizerPeriod float64 `yaml:"optimizer_period"`
	// OptimizerAlpha is the EWMA coefficient for "async".
	OptimizerAlpha float64 `yaml:"optimizer_alpha"`

	// SubtractResponderTime enables the responder-time-excluded latency
	// policy: see router.Dispatcher.SubtractResponderTime.
	SubtractResponderTime bool `yaml:"subtract_responder_time"`
}

// ControllerConfig is the process-level configuration of a controller
// role.
type ControllerConfig struct {
	LogLevel string `yaml:"log_level"`
	Endpoint string `yaml:"endpoint"`

	// Installer selects "flat" or "hier".
	Installer string `yaml:"installer"`

	// Objective selects "min-max" or "min-avg"; hier only.
	Objective string `yaml:"objective"`
	// TopologyPath points at the distance-matrix text file; hier only.
	TopologyPath string `yaml:"topology_path"`
}

// loadStrict decodes path into out, rejecting unknown fields so a typo in
// a config file fails loudly instead of being silently ignored.
func loadStrict(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

// LoadComputerConfig loads a ComputerConfig from path.
func LoadComputerConfig(path string) (*ComputerConfig, error) {
	var c ComputerConfig
	if err := loadStrict(path, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadRouterConfig loads a RouterConfig from path.
func LoadRouterConfig(path string) (*RouterConfig, error) {
	var c RouterConfig
	if err := loadStrict(path, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadControllerConfig loads a ControllerConfig from path.
func LoadControllerConfig(path string) (*ControllerConfig, error) {
	var c ControllerConfig
	if err := loadStrict(path, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
