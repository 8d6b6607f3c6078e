package config

import (
	"fmt"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

const (
	productionAPI  = "https://api.darkerdb.com"
	developmentAPI = "https://api-dev.darkerdb.com"
)

// Runtime holds process-level switches read from GRIMVAULT_* environment
// variables. Unlike Settings they are not meant to be edited by players.
type Runtime struct {
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogDir      string `envconfig:"LOG_DIR"`
	APIURL      string `envconfig:"API_URL"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`
	NativeDLL   string `envconfig:"NATIVE_DLL" default:"screen.dll"`
	ModelsDir   string `envconfig:"MODELS_DIR"`
}

// LoadRuntime reads the runtime configuration from the environment.
func LoadRuntime() (*Runtime, error) {
	var rt Runtime
	if err := envconfig.Process("grimvault", &rt); err != nil {
		return nil, fmt.Errorf("failed to load runtime config: %w", err)
	}
	return &rt, nil
}

// API returns the lookup service base URL.
func (rt *Runtime) API() string {
	if rt.APIURL != "" {
		return rt.APIURL
	}
	if rt.Debug {
		return developmentAPI
	}
	return productionAPI
}

// LogPath returns the log directory, defaulting to <configDir>/logs.
func (rt *Runtime) LogPath(configDir string) string {
	if rt.LogDir != "" {
		return rt.LogDir
	}
	return filepath.Join(configDir, "logs")
}

// ModelPaths returns the Tesseract model directory and the tooltip detection
// model file. Models ship next to the executable unless GRIMVAULT_MODELS_DIR
// points elsewhere.
func (rt *Runtime) ModelPaths(exeDir string) (tesseract, detection string) {
	dir := rt.ModelsDir
	if dir == "" {
		dir = filepath.Join(exeDir, "models")
	}
	return dir, filepath.Join(dir, "tooltip.onnx")
}
