// Package config handles endpoint configuration: which transport to bind,
// how large the worker pool should start and grow, and how strictly to
// validate inbound Content-Type headers.
// file: internal/config/app_config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/lsprpc/internal/logging"
	"github.com/dkoosis/lsprpc/internal/rpcerr"
	"gopkg.in/yaml.v3"
)

var logger = logging.GetLogger("config")

// Settings is the root configuration for an endpoint.
type Settings struct {
	Endpoint  EndpointConfig  `yaml:"endpoint"`
	Transport TransportConfig `yaml:"transport"`
	Pool      PoolConfig      `yaml:"pool"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// EndpointConfig names the endpoint and governs Content-Type leniency.
type EndpointConfig struct {
	Name              string `yaml:"name"`
	Version           string `yaml:"version"`
	StrictContentType bool   `yaml:"strict_content_type"`
}

// TransportConfig selects and parameterizes the byte stream an endpoint
// frames messages over.
type TransportConfig struct {
	// Kind is one of "stdio", "tcp", or "childprocess".
	Kind    string   `yaml:"kind"`
	Address string   `yaml:"address"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Backlog int      `yaml:"backlog"`
}

// PoolConfig sizes the async-handler worker pool (internal/workerpool).
type PoolConfig struct {
	InitialThreads int `yaml:"initial_threads"`
	MaxThreads     int `yaml:"max_threads"`
}

// LoggingConfig governs the endpoint's logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// New returns Settings populated with the framework's defaults: stdio
// transport, lenient Content-Type checking, one initial worker growing up
// to the host's CPU count (runtime.NumCPU), info-level logging.
func New() *Settings {
	logger.Debug("Creating new configuration settings with defaults.")
	return &Settings{
		Endpoint: EndpointConfig{
			Name:              "lsprpc-endpoint",
			Version:           "0.1.0",
			StrictContentType: false,
		},
		Transport: TransportConfig{
			Kind:    "stdio",
			Backlog: 128,
		},
		Pool: PoolConfig{
			InitialThreads: 1,
			MaxThreads:     runtime.NumCPU(),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads Settings from a YAML file at path, applying New's defaults to
// any field the file leaves unset.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rpcerr.New(err, rpcerr.CategoryProtocol, rpcerr.CodeInternalError,
			map[string]any{"path": path})
	}

	settings := New()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, rpcerr.New(err, rpcerr.CategoryProtocol, rpcerr.CodeInternalError,
			map[string]any{"path": path})
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate reports whether the settings describe a usable endpoint.
func (s *Settings) Validate() error {
	switch s.Transport.Kind {
	case "stdio":
	case "tcp":
		if s.Transport.Address == "" {
			return rpcerr.Newf(rpcerr.CategoryProtocol, rpcerr.CodeInternalError, "transport.address is required for tcp")
		}
	case "childprocess":
		if s.Transport.Command == "" {
			return rpcerr.Newf(rpcerr.CategoryProtocol, rpcerr.CodeInternalError, "transport.command is required for childprocess")
		}
	default:
		return rpcerr.Newf(rpcerr.CategoryProtocol, rpcerr.CodeInternalError, "unknown transport.kind %q", s.Transport.Kind)
	}
	if s.Pool.MaxThreads < 1 {
		return rpcerr.Newf(rpcerr.CategoryProtocol, rpcerr.CodeInternalError, "pool.max_threads must be at least 1")
	}
	return nil
}

// GetEndpointName returns the configured endpoint name.
func (s *Settings) GetEndpointName() string {
	return s.Endpoint.Name
}

// String renders the transport configuration for logging, e.g. "tcp://127.0.0.1:4389".
func (t TransportConfig) String() string {
	switch t.Kind {
	case "tcp":
		return fmt.Sprintf("tcp://%s", t.Address)
	case "childprocess":
		return fmt.Sprintf("childprocess:%s", t.Command)
	default:
		return t.Kind
	}
}

// ExpandPath expands a leading "~" to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		wrapped := errors.Wrap(err, "ExpandPath: failed to get user home directory")
		return "", rpcerr.New(wrapped, rpcerr.CategoryProtocol, rpcerr.CodeInternalError,
			map[string]any{"input_path": path})
	}

	return filepath.Join(home, path[1:]), nil
}
