package matrix

import (
	"iter"
	"sort"

	"github.com/gurumnet/ci-jobs/src/config"
)

// Candidate is one cell of the matrix, before selection and assembly.
type Candidate struct {
	Job          config.Job
	Platform     config.Platform
	Distribution string
	Name         string
}

// Sequence is a finite, restartable walk over the matrix. It performs no I/O.
type Sequence struct {
	job           config.Job
	platforms     []config.Platform
	distributions []string
}

// Enumerate crosses platforms with distributions for the default job kind.
// Platforms are visited by identifier; distributions in declared order.
func Enumerate(platforms []config.Platform, distributions []string) Sequence {
	return EnumerateJob(config.Job{Kind: config.DefaultJobKind}, platforms, distributions)
}

// EnumerateJob crosses platforms with distributions for one job kind.
func EnumerateJob(job config.Job, platforms []config.Platform, distributions []string) Sequence {
	ps := make([]config.Platform, len(platforms))
	copy(ps, platforms)
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })

	ds := make([]string, len(distributions))
	copy(ds, distributions)

	return Sequence{job: job, platforms: ps, distributions: ds}
}

// All yields every candidate in enumeration order.
func (s Sequence) All() iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		for _, p := range s.platforms {
			for _, d := range s.distributions {
				c := Candidate{
					Job:          s.job,
					Platform:     p,
					Distribution: d,
					Name:         config.JobName(s.job.Kind, p.ID, d),
				}
				if !yield(c) {
					return
				}
			}
		}
	}
}

// Len returns the number of candidates.
func (s Sequence) Len() int {
	return len(s.platforms) * len(s.distributions)
}

// Names returns every job name in enumeration order.
func (s Sequence) Names() []string {
	names := make([]string, 0, s.Len())
	for c := range s.All() {
		names = append(names, c.Name)
	}
	return names
}
