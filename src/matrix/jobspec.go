package matrix

import (
	"fmt"
	"iter"
	"strings"

	"github.com/gurumnet/ci-jobs/src/config"
)

// JobSpec is the merged, named configuration of one matrix cell, ready for
// rendering. A fresh JobSpec is built for every cell; none is reused.
type JobSpec struct {
	Name         string
	Kind         string
	Platform     string
	Distribution string
	TemplateID   string
	Values       Values
}

// Planner builds job specs for every job kind over the matrix.
type Planner struct {
	base   Base
	matrix config.Matrix
	jobs   []config.Job
}

// NewPlanner returns a planner over an immutable base.
func NewPlanner(base Base, m config.Matrix, jobs []config.Job) *Planner {
	return &Planner{base: base, matrix: m, jobs: jobs}
}

// Candidates yields every cell of every job kind: job kinds in declared
// order, then the Enumerate order within each kind.
func (p *Planner) Candidates() iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		for _, job := range p.jobs {
			for c := range EnumerateJob(job, p.matrix.Platforms, p.matrix.Distributions).All() {
				if !yield(c) {
					return
				}
			}
		}
	}
}

// Len returns the number of cells over all job kinds.
func (p *Planner) Len() int {
	return len(p.jobs) * len(p.matrix.Platforms) * len(p.matrix.Distributions)
}

// Lookup finds the candidate with the given job name.
func (p *Planner) Lookup(name string) (Candidate, bool) {
	for c := range p.Candidates() {
		if c.Name == name {
			return c, true
		}
	}
	return Candidate{}, false
}

// Build assembles the job spec of one candidate. Layers, later winning:
// base, platform, distribution-derived fields, job overrides.
func (p *Planner) Build(c Candidate) (JobSpec, error) {
	values, err := Assemble(p.base,
		PlatformOverlay(c.Platform),
		DistributionOverlay(c.Platform.ID, c.Distribution, p.matrix),
		Overlay(c.Job.Overrides),
	)
	if err != nil {
		return JobSpec{}, fmt.Errorf("job %s: %w", c.Name, err)
	}
	return JobSpec{
		Name:         c.Name,
		Kind:         c.Job.Kind,
		Platform:     c.Platform.ID,
		Distribution: c.Distribution,
		TemplateID:   c.Job.Template,
		Values:       values,
	}, nil
}

// PlatformOverlay returns the platform layer: the scheduling fields of the
// platform followed by its own overrides.
func PlatformOverlay(p config.Platform) Overlay {
	display := p.DisplayName
	if display == "" {
		display = p.ID
	}
	o := Overlay{
		config.KeyLabelExpression: p.LabelExpression,
		config.KeyShellType:       p.ShellType,
		config.KeyDisplayName:     display,
	}
	if p.DefaultDistribution != "" {
		o[config.KeyROSDistro] = p.DefaultDistribution
	}
	for k, v := range p.Overrides {
		o[k] = v
	}
	return o
}

// DistributionOverlay returns the fields derived from the cell itself.
func DistributionOverlay(platform, distribution string, m config.Matrix) Overlay {
	o := Overlay{
		config.KeyOSName:    platform,
		config.KeyROSDistro: distribution,
	}
	if m.ReposURL != "" {
		o[config.KeyReposURL] = DistributionURL(m.ReposURL, distribution, m.RollingDistribution, m.RollingAlias)
	}
	return o
}

// DistributionURL fills the {ros_distro} placeholder of tmpl. The rolling
// distribution is replaced by alias, every other one by its identifier.
func DistributionURL(tmpl, distribution, rolling, alias string) string {
	value := distribution
	if rolling != "" && distribution == rolling {
		value = alias
	}
	return strings.ReplaceAll(tmpl, "{ros_distro}", value)
}
