package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsWhenDefaultFileMissing(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultJenkinsURL, cfg.Jenkins.URL)
	assert.Equal(t, []string{"foxy", "rolling", "galactic"}, cfg.Matrix.Distributions)
	assert.Len(t, cfg.Matrix.Platforms, 3)
	assert.Equal(t, []Job{DefaultJob()}, cfg.Jobs)

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestLoad_ExplicitMissingFileIsPrecondition(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
	assert.True(t, IsPrecondition(err))
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "ci-jobs.yml", `
jenkins:
  url: https://jenkins.example.com
scripts:
  default_branch: develop
base:
  ubuntu_distro: jammy
  build_timeout_mins: 90
matrix:
  platforms:
    - id: linux
      label_expression: linux
      shell_type: Shell
  distributions: [humble, rolling]
jobs:
  - kind: nightly
    template: ci_job.xml
    overrides:
      time_trigger_spec: "H 2 * * *"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://jenkins.example.com", cfg.Jenkins.URL)
	assert.Equal(t, DefaultJenkinsMinVersion, cfg.Jenkins.MinVersion)
	assert.Equal(t, DefaultScriptsRepository, cfg.Scripts.Repository)
	assert.Equal(t, "develop", cfg.Scripts.DefaultBranch)

	// base keys merge over the built-in base
	assert.Equal(t, "jammy", cfg.Base["ubuntu_distro"])
	assert.Equal(t, 90, cfg.Base["build_timeout_mins"])
	assert.Equal(t, "true", cfg.Base["use_isolated_default"])

	assert.Equal(t, []string{"humble", "rolling"}, cfg.Matrix.Distributions)
	assert.Equal(t, DefaultRollingAlias, cfg.Matrix.RollingAlias)
	assert.Equal(t, DefaultReposURL, cfg.Matrix.ReposURL)
	require.Len(t, cfg.Jobs, 1)
	assert.Equal(t, "H 2 * * *", cfg.Jobs[0].Overrides["time_trigger_spec"])

	_, err = Validate(cfg)
	require.NoError(t, err)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "ci-jobs.toml", `
[jenkins]
url = "https://jenkins.example.com"
user = "bot"

[base]
mailer_recipients = "ci@example.com"

[matrix]
distributions = ["foxy"]

[[matrix.platforms]]
id = "windows"
label_expression = "windows-container"
shell_type = "BatchFile"

[matrix.platforms.overrides]
use_isolated_default = "false"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bot", cfg.Jenkins.User)
	assert.Equal(t, "ci@example.com", cfg.Base["mailer_recipients"])
	require.Len(t, cfg.Matrix.Platforms, 1)
	p := cfg.Matrix.Platforms[0]
	assert.Equal(t, "windows", p.ID)
	assert.Equal(t, "false", p.Overrides["use_isolated_default"])
}

func TestLoad_ParseErrorIsPrecondition(t *testing.T) {
	_, err := Load(writeFile(t, "bad.yml", "matrix: [unclosed"))
	require.Error(t, err)
	assert.True(t, IsPrecondition(err))

	_, err = Load(writeFile(t, "bad.toml", "matrix = "))
	assert.True(t, IsPrecondition(err))
}

func TestBaseValues_InjectsScriptLocation(t *testing.T) {
	cfg := defaults()
	cfg.Scripts.Repository = "https://example.com/ci.git"

	v := cfg.BaseValues()
	assert.Equal(t, "https://example.com/ci.git", v[KeyScriptsRepository])
	assert.Equal(t, DefaultScriptsBranch, v[KeyScriptsDefaultBranch])

	v["ubuntu_distro"] = "changed"
	assert.Equal(t, "focal", cfg.Base["ubuntu_distro"])
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"empty base", func(c *Config) { c.Base = nil }, "base: must not be empty"},
		{"no platforms", func(c *Config) { c.Matrix.Platforms = nil }, "at least one platform"},
		{"no distributions", func(c *Config) { c.Matrix.Distributions = nil }, "at least one distribution"},
		{"bad distribution", func(c *Config) { c.Matrix.Distributions = []string{"Foxy"} }, "not a valid identifier"},
		{"duplicate distribution", func(c *Config) { c.Matrix.Distributions = []string{"foxy", "foxy"} }, `duplicate distribution "foxy"`},
		{"duplicate platform", func(c *Config) { c.Matrix.Platforms = append(c.Matrix.Platforms, c.Matrix.Platforms[0]) }, `duplicate platform id "linux"`},
		{"missing shell", func(c *Config) { c.Matrix.Platforms[0].ShellType = "" }, "shell_type is required"},
		{"placeholder", func(c *Config) { c.Matrix.ReposURL = "https://example.com/ros2.repos" }, "no {ros_distro} placeholder"},
		{"no jobs", func(c *Config) { c.Jobs = nil }, "at least one job"},
		{"no template", func(c *Config) { c.Jobs[0].Template = "" }, "template is required"},
		{"name collision", func(c *Config) {
			c.Matrix.Platforms = append(c.Matrix.Platforms, Platform{ID: "linux_aarch64", LabelExpression: "arm", ShellType: "Shell"})
		}, `job name "ci_linux_aarch64_foxy" is produced by both`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			_, err := Validate(cfg)
			require.Error(t, err)
			assert.True(t, IsPrecondition(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_Warnings(t *testing.T) {
	cfg := defaults()
	cfg.Matrix.RollingDistribution = "kilted"
	cfg.Matrix.Platforms[0].DefaultDistribution = "humble"
	cfg.Jobs[0].Overrides["ros_distro"] = "foxy"

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	assert.Len(t, warnings, 3)
}

func TestJobName(t *testing.T) {
	assert.Equal(t, "ci_linux_foxy", JobName("ci", "linux", "foxy"))
	assert.Equal(t, "ci_linux_aarch64_rolling", JobName("ci", "linux-aarch64", "rolling"))
	assert.Equal(t, "ci_win_x64_foxy", JobName("CI", "Win.X64", "foxy"))
}
