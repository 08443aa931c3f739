package config

// Keys the generator itself writes into job values. Every other key is carried
// through untouched; templates decide what is relevant.
const (
	KeyScriptsRepository    = "ci_scripts_repository"
	KeyScriptsDefaultBranch = "ci_scripts_default_branch"
	KeyOSName               = "os_name"
	KeyDisplayName          = "display_name"
	KeyROSDistro            = "ros_distro"
	KeyReposURL             = "default_repos_url"
	KeyLabelExpression      = "label_expression"
	KeyShellType            = "shell_type"
)

const (
	DefaultJenkinsURL          = "https://ci.gurum.cc"
	DefaultJenkinsMinVersion   = ">= 2.60"
	DefaultScriptsRepository   = "git@github.com:taewoong0/ci.git"
	DefaultScriptsBranch       = "master"
	DefaultReposURL            = "https://raw.githubusercontent.com/gurumnet/ros2/{ros_distro}/ros2.repos"
	DefaultRollingDistribution = "rolling"
	DefaultRollingAlias        = "master"
	DefaultJobKind             = "ci"
	DefaultJobTemplate         = "ci_job.xml"
	PeriodicJobSpec            = "30 7 * * *"
)

func defaults() *Config {
	return &Config{
		Jenkins: JenkinsConfig{
			URL:        DefaultJenkinsURL,
			MinVersion: DefaultJenkinsMinVersion,
		},
		Scripts: ScriptsConfig{
			Repository:    DefaultScriptsRepository,
			DefaultBranch: DefaultScriptsBranch,
		},
		Base:   DefaultBase(),
		Matrix: DefaultMatrix(),
		Jobs:   []Job{DefaultJob()},
	}
}

// DefaultBase returns a fresh copy of the built-in base values.
func DefaultBase() map[string]any {
	return map[string]any{
		"build_discard": map[string]any{
			"days_to_keep": 1000,
			"num_to_keep":  3000,
		},
		"default_repos_url":      "",
		"supplemental_repos_url": "",
		"time_trigger_spec":      "",
		"mailer_recipients":      "",
		"ignore_rmw_default": []any{
			"rmw_connext_dynamic_cpp",
			"rmw_fastrtps_dynamic_cpp",
		},
		"use_isolated_default":             "true",
		"colcon_mixin_url":                 "https://raw.githubusercontent.com/colcon/colcon-mixin-repository/master/index.yaml",
		"build_args_default":               "--event-handlers console_cohesion+ console_package_list+ --cmake-args -DINSTALL_EXAMPLES=OFF -DSECURITY=ON",
		"test_args_default":                `--event-handlers console_direct+ --executor sequential --retest-until-pass 2 --ctest-args -LE xfail --pytest-args -m "not xfail"`,
		"compile_with_clang_default":       "false",
		"enable_coverage_default":          "false",
		"dont_notify_every_unstable_build": "false",
		"build_timeout_mins":               0,
		"ubuntu_distro":                    "focal",
		"ros_distro":                       "",
	}
}

// DefaultMatrix returns the built-in platform and distribution axes.
func DefaultMatrix() Matrix {
	return Matrix{
		Platforms: []Platform{
			{
				ID:              "linux",
				DisplayName:     "Linux",
				LabelExpression: "linux",
				ShellType:       "Shell",
			},
			{
				ID:              "linux-aarch64",
				DisplayName:     "Linux aarch64",
				LabelExpression: "linux_aarch64",
				ShellType:       "Shell",
			},
			{
				ID:              "windows",
				DisplayName:     "Windows",
				LabelExpression: "windows-container",
				ShellType:       "BatchFile",
				Overrides: map[string]any{
					"use_isolated_default": "false",
				},
			},
		},
		// Release-support priority, not alphabetical.
		Distributions:       []string{"foxy", "rolling", "galactic"},
		RollingDistribution: DefaultRollingDistribution,
		RollingAlias:        DefaultRollingAlias,
		ReposURL:            DefaultReposURL,
	}
}

// DefaultJob is the nightly CI job generated for every matrix cell.
func DefaultJob() Job {
	return Job{
		Kind:     DefaultJobKind,
		Template: DefaultJobTemplate,
		Overrides: map[string]any{
			"cmake_build_type":  "None",
			"time_trigger_spec": PeriodicJobSpec,
		},
	}
}
