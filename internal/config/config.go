package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Databricks domain suffixes for tracking URI detection
var databricksDomains = []string{
	".cloud.databricks.com",
	".azuredatabricks.net",
	".gcp.databricks.com",
}

var validDevices = map[string]bool{
	"cpu": true, "gpu": true,
}

type Config struct {
	BaseDir         string
	TrackingURI     string
	Metric          string
	Device          string
	TrainCommand    string
	MaxConcurrent   int
	DatabricksHost  string
	DatabricksToken string
}

func New() *Config {
	return &Config{
		BaseDir:         viper.GetString("base_dir"),
		TrackingURI:     viper.GetString("tracking_uri"),
		Metric:          viper.GetString("metric"),
		Device:          viper.GetString("device"),
		TrainCommand:    viper.GetString("train_command"),
		MaxConcurrent:   viper.GetInt("max_concurrent"),
		DatabricksHost:  viper.GetString("databricks_host"),
		DatabricksToken: viper.GetString("databricks_token"),
	}
}

func (c *Config) Validate() error {
	if c.BaseDir == "" {
		return fmt.Errorf("base directory is required")
	}
	if c.Metric == "" {
		return fmt.Errorf("primary metric is required")
	}
	if !validDevices[c.Device] {
		return fmt.Errorf("invalid device: %s (valid: cpu, gpu)", c.Device)
	}
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("max concurrent runs must not be negative")
	}
	return nil
}

// Context holds the directory layout every component works against. It is
// passed explicitly at construction; nothing reads process-wide paths.
type Context struct {
	ConfigDir    string
	DataDir      string
	TrackingDir  string
	ArtifactsDir string
}

// Context derives the directory layout from the base directory.
func (c *Config) Context() Context {
	return Context{
		ConfigDir:    filepath.Join(c.BaseDir, "experiment_configs"),
		DataDir:      filepath.Join(c.BaseDir, "datasets"),
		TrackingDir:  filepath.Join(c.BaseDir, "tracking"),
		ArtifactsDir: filepath.Join(c.BaseDir, "checkpoints"),
	}
}

// TrackingEnabled reports whether metrics should be mirrored to an external
// tracking server.
func (c *Config) TrackingEnabled() bool {
	return c.TrackingURI != ""
}

// IsDatabricks checks if the tracking URI points to Databricks
func (c *Config) IsDatabricks() bool {
	if c.TrackingURI == "databricks" {
		return true
	}

	// Check for databricks:// protocol
	if strings.HasPrefix(c.TrackingURI, "databricks://") {
		return true
	}

	// Check for Databricks URLs
	if strings.HasPrefix(c.TrackingURI, "https://") {
		host := c.extractHostFromURL(c.TrackingURI)
		return c.isDatabricksHost(host)
	}

	return false
}

// extractHostFromURL extracts the hostname from a URL
func (c *Config) extractHostFromURL(url string) string {
	host := strings.TrimPrefix(url, "https://")
	// Remove any path components
	if idx := strings.Index(host, "/"); idx != -1 {
		host = host[:idx]
	}
	return host
}

// isDatabricksHost checks if a hostname belongs to Databricks
func (c *Config) isDatabricksHost(host string) bool {
	for _, domain := range databricksDomains {
		if strings.HasSuffix(host, domain) {
			return true
		}
	}
	return false
}

// GetDatabricksProfile extracts the profile name from databricks://{profile} URI
func (c *Config) GetDatabricksProfile() string {
	if !strings.HasPrefix(c.TrackingURI, "databricks://") {
		return ""
	}

	profile := strings.TrimPrefix(c.TrackingURI, "databricks://")
	// Remove any trailing slashes or paths
	if idx := strings.Index(profile, "/"); idx != -1 {
		profile = profile[:idx]
	}
	return profile
}
