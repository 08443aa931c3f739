package config

import (
	"errors"
	"fmt"
	"strings"
)

// derivedKeys are written per matrix cell after the platform layer; a job
// override of one of them silently wins over the axis value.
var derivedKeys = []string{KeyOSName, KeyROSDistro, KeyReposURL}

// Validate checks structural invariants of a loaded Config.
// Returns warnings (soft issues) and a PreconditionError if the config is invalid.
func Validate(cfg *Config) (warnings []string, err error) {
	var errs []string

	if len(cfg.Base) == 0 {
		errs = append(errs, "base: must not be empty")
	}
	if cfg.Jenkins.URL == "" {
		errs = append(errs, "jenkins.url: is required")
	}

	// ── Matrix ────────────────────────────────────────────────────────────

	m := cfg.Matrix
	if len(m.Platforms) == 0 {
		errs = append(errs, "matrix.platforms: at least one platform is required")
	}
	if len(m.Distributions) == 0 {
		errs = append(errs, "matrix.distributions: at least one distribution is required")
	}

	distros := make(map[string]bool, len(m.Distributions))
	for i, d := range m.Distributions {
		dpath := fmt.Sprintf("matrix.distributions[%d]", i)
		if !isIdentifier(d) {
			errs = append(errs, fmt.Sprintf("%s: %q is not a valid identifier (must match %s)", dpath, d, identifierRe))
		} else if distros[d] {
			errs = append(errs, fmt.Sprintf("%s: duplicate distribution %q", dpath, d))
		}
		distros[d] = true
	}

	platforms := make(map[string]bool, len(m.Platforms))
	for i, p := range m.Platforms {
		ppath := fmt.Sprintf("matrix.platforms[%d]", i)
		if !isIdentifier(p.ID) {
			errs = append(errs, fmt.Sprintf("%s: id %q is not a valid identifier (must match %s)", ppath, p.ID, identifierRe))
		} else if platforms[p.ID] {
			errs = append(errs, fmt.Sprintf("%s: duplicate platform id %q", ppath, p.ID))
		}
		platforms[p.ID] = true

		if p.LabelExpression == "" {
			errs = append(errs, fmt.Sprintf("%s: label_expression is required", ppath))
		}
		if p.ShellType == "" {
			errs = append(errs, fmt.Sprintf("%s: shell_type is required", ppath))
		}
		if p.DefaultDistribution != "" && !distros[p.DefaultDistribution] {
			warnings = append(warnings, fmt.Sprintf("%s: default_distribution %q is not in matrix.distributions", ppath, p.DefaultDistribution))
		}
	}

	if m.RollingDistribution != "" && !distros[m.RollingDistribution] {
		warnings = append(warnings, fmt.Sprintf("matrix.rolling_distribution: %q is not in matrix.distributions", m.RollingDistribution))
	}
	if m.RollingDistribution != "" && m.RollingAlias == "" {
		errs = append(errs, "matrix.rolling_alias: is required when rolling_distribution is set")
	}
	if m.ReposURL != "" && !strings.Contains(m.ReposURL, "{ros_distro}") {
		errs = append(errs, fmt.Sprintf("matrix.repos_url: %q has no {ros_distro} placeholder", m.ReposURL))
	}

	// ── Jobs ──────────────────────────────────────────────────────────────

	if len(cfg.Jobs) == 0 {
		errs = append(errs, "jobs: at least one job is required")
	}
	kinds := make(map[string]bool, len(cfg.Jobs))
	for i, j := range cfg.Jobs {
		jpath := fmt.Sprintf("jobs[%d]", i)
		if !isIdentifier(j.Kind) {
			errs = append(errs, fmt.Sprintf("%s: kind %q is not a valid identifier (must match %s)", jpath, j.Kind, identifierRe))
		} else if kinds[j.Kind] {
			errs = append(errs, fmt.Sprintf("%s: duplicate job kind %q", jpath, j.Kind))
		}
		kinds[j.Kind] = true

		if j.Template == "" {
			errs = append(errs, fmt.Sprintf("%s: template is required", jpath))
		}
		for _, k := range derivedKeys {
			if _, ok := j.Overrides[k]; ok {
				warnings = append(warnings, fmt.Sprintf("%s: override of %q replaces the per-cell value", jpath, k))
			}
		}
	}

	// ── Job names ─────────────────────────────────────────────────────────

	// Identifiers may contain '-', which names map to '_'; two cells can then
	// land on the same name.
	seen := make(map[string]string)
	for _, j := range cfg.Jobs {
		for _, p := range m.Platforms {
			for _, d := range m.Distributions {
				name := JobName(j.Kind, p.ID, d)
				cell := fmt.Sprintf("%s/%s/%s", j.Kind, p.ID, d)
				if other, ok := seen[name]; ok {
					errs = append(errs, fmt.Sprintf("job name %q is produced by both %s and %s", name, other, cell))
					continue
				}
				seen[name] = cell
			}
		}
	}

	if len(errs) > 0 {
		return warnings, &PreconditionError{Reason: "invalid config", Err: errors.New(strings.Join(errs, "; "))}
	}
	return warnings, nil
}
