package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "ci-jobs.yml"

// Config is the top-level job matrix configuration.
type Config struct {
	Jenkins     JenkinsConfig  `yaml:"jenkins" toml:"jenkins"`
	Scripts     ScriptsConfig  `yaml:"scripts" toml:"scripts"`
	TemplateDir string         `yaml:"template_dir" toml:"template_dir"`
	Base        map[string]any `yaml:"base" toml:"base"`
	Matrix      Matrix         `yaml:"matrix" toml:"matrix"`
	Jobs        []Job          `yaml:"jobs" toml:"jobs"`
}

// JenkinsConfig holds the connection target of the job service.
type JenkinsConfig struct {
	URL        string `yaml:"url" toml:"url"`
	User       string `yaml:"user" toml:"user"`
	MinVersion string `yaml:"min_version" toml:"min_version"`
}

// ScriptsConfig locates the repository the generated jobs clone their CI scripts from.
type ScriptsConfig struct {
	Repository    string `yaml:"repository" toml:"repository"`
	DefaultBranch string `yaml:"default_branch" toml:"default_branch"`
}

// Matrix is the axis definition: platforms crossed with distributions.
type Matrix struct {
	Platforms     []Platform `yaml:"platforms" toml:"platforms"`
	Distributions []string   `yaml:"distributions" toml:"distributions"`

	// RollingDistribution names the unstable channel whose repos URL uses RollingAlias.
	RollingDistribution string `yaml:"rolling_distribution" toml:"rolling_distribution"`
	RollingAlias        string `yaml:"rolling_alias" toml:"rolling_alias"`

	// ReposURL is a URL template with a {ros_distro} placeholder.
	ReposURL string `yaml:"repos_url" toml:"repos_url"`
}

// Platform is one value of the platform axis.
type Platform struct {
	ID                  string         `yaml:"id" toml:"id"`
	DisplayName         string         `yaml:"display_name" toml:"display_name"`
	LabelExpression     string         `yaml:"label_expression" toml:"label_expression"`
	ShellType           string         `yaml:"shell_type" toml:"shell_type"`
	DefaultDistribution string         `yaml:"default_distribution" toml:"default_distribution"`
	Overrides           map[string]any `yaml:"overrides" toml:"overrides"`
}

// Job is one kind of generated job. Every kind is expanded over the full matrix.
type Job struct {
	Kind      string         `yaml:"kind" toml:"kind"`
	Template  string         `yaml:"template" toml:"template"`
	Overrides map[string]any `yaml:"overrides" toml:"overrides"`
}

// Load reads configuration from a YAML or TOML file.
// If path is empty, it tries the default file.
// Returns the built-in matrix if the file doesn't exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return defaults(), nil
		}
		return nil, Precondition(err, "reading config %s", path)
	}

	var file Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &file)
	} else {
		err = yaml.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, Precondition(err, "parsing config %s", path)
	}

	cfg := defaults()
	cfg.apply(file)
	return cfg, nil
}

// apply lays file values over the defaults. Base keys merge over the default
// base; every other section replaces its default only when the file sets it.
func (c *Config) apply(file Config) {
	if file.Jenkins.URL != "" {
		c.Jenkins.URL = file.Jenkins.URL
	}
	if file.Jenkins.User != "" {
		c.Jenkins.User = file.Jenkins.User
	}
	if file.Jenkins.MinVersion != "" {
		c.Jenkins.MinVersion = file.Jenkins.MinVersion
	}
	if file.Scripts.Repository != "" {
		c.Scripts.Repository = file.Scripts.Repository
	}
	if file.Scripts.DefaultBranch != "" {
		c.Scripts.DefaultBranch = file.Scripts.DefaultBranch
	}
	if file.TemplateDir != "" {
		c.TemplateDir = file.TemplateDir
	}
	for k, v := range file.Base {
		c.Base[k] = v
	}
	if len(file.Matrix.Platforms) > 0 {
		c.Matrix.Platforms = file.Matrix.Platforms
	}
	if len(file.Matrix.Distributions) > 0 {
		c.Matrix.Distributions = file.Matrix.Distributions
	}
	if file.Matrix.RollingDistribution != "" {
		c.Matrix.RollingDistribution = file.Matrix.RollingDistribution
	}
	if file.Matrix.RollingAlias != "" {
		c.Matrix.RollingAlias = file.Matrix.RollingAlias
	}
	if file.Matrix.ReposURL != "" {
		c.Matrix.ReposURL = file.Matrix.ReposURL
	}
	if len(file.Jobs) > 0 {
		c.Jobs = file.Jobs
	}
}

// BaseValues returns a copy of the base values with the CI script location
// injected, ready to become the immutable base of one run.
func (c *Config) BaseValues() map[string]any {
	out := make(map[string]any, len(c.Base)+2)
	for k, v := range c.Base {
		out[k] = v
	}
	out[KeyScriptsRepository] = c.Scripts.Repository
	out[KeyScriptsDefaultBranch] = c.Scripts.DefaultBranch
	return out
}

