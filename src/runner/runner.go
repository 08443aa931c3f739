// Package runner walks the job matrix and drives each selected job through
// rendering, the secret guard and synchronization. Jobs run one at a time in
// enumeration order; a failing job is recorded and the walk continues.
package runner

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/gurumnet/ci-jobs/src/config"
	"github.com/gurumnet/ci-jobs/src/jobsync"
	"github.com/gurumnet/ci-jobs/src/matrix"
	"github.com/gurumnet/ci-jobs/src/template"
)

// Syncer reconciles one rendered document with the job service.
type Syncer interface {
	Sync(ctx context.Context, name string, doc []byte, mode jobsync.Mode) (jobsync.Result, error)
}

// Config wires a Runner. Planner, Expander and Syncer are required.
type Config struct {
	Planner  *matrix.Planner
	Selector matrix.Selector
	Expander template.Expander
	Syncer   Syncer
	Mode     jobsync.Mode

	// Guard is consulted before syncing. Nil disables it.
	Guard Guard

	// Reporter receives each outcome as soon as its job finishes.
	Reporter func(Outcome)

	Logger logrus.FieldLogger
}

// Outcome is the result of one selected job.
type Outcome struct {
	Spec     matrix.JobSpec
	Result   jobsync.Result
	Err      error
	Duration time.Duration
}

// Failed reports whether the job ended in an error.
func (o Outcome) Failed() bool { return o.Err != nil }

// Summary counts outcomes over a run.
type Summary struct {
	Outcomes []Outcome

	Total     int // cells in the matrix
	Skipped   int // cells not selected
	Created   int
	Updated   int
	Unchanged int
	Failed    int
}

// Selected is the number of jobs that were processed.
func (s Summary) Selected() int { return len(s.Outcomes) }

func (s *Summary) add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	if o.Failed() {
		s.Failed++
		return
	}
	switch o.Result.Action {
	case jobsync.Create:
		s.Created++
	case jobsync.Update:
		s.Updated++
	default:
		s.Unchanged++
	}
}

// Runner executes one pass over the matrix.
type Runner struct {
	cfg Config
	log logrus.FieldLogger
}

// New returns a runner. A nil Selector selects every job.
func New(cfg Config) *Runner {
	if cfg.Selector == nil {
		cfg.Selector = matrix.All
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{cfg: cfg, log: log}
}

// Run processes every selected job in enumeration order. The returned error
// aggregates the *JobError of each failed job. When the run is interrupted it
// also wraps the context error; the summary covers the jobs processed so far.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var (
		sum  Summary
		errs *multierror.Error
	)

	for c := range r.cfg.Planner.Candidates() {
		if err := ctx.Err(); err != nil {
			if errs != nil {
				return sum, errors.Join(err, errs)
			}
			return sum, err
		}
		sum.Total++
		if !r.cfg.Selector.Match(c.Name) {
			sum.Skipped++
			continue
		}

		o := r.runJob(ctx, c)
		sum.add(o)
		if r.cfg.Reporter != nil {
			r.cfg.Reporter(o)
		}
		if jerr, ok := o.Err.(*JobError); ok {
			errs = appendJobError(errs, jerr)
		}
	}
	return sum, errs.ErrorOrNil()
}

func (r *Runner) runJob(ctx context.Context, c matrix.Candidate) Outcome {
	start := time.Now()
	o := Outcome{
		Spec:   matrix.JobSpec{Name: c.Name, Kind: c.Job.Kind, Platform: c.Platform.ID, Distribution: c.Distribution, TemplateID: c.Job.Template},
		Result: jobsync.Result{JobName: c.Name, Mode: r.cfg.Mode},
	}
	log := r.log.WithFields(logrus.Fields{
		"job":          c.Name,
		"platform":     c.Platform.ID,
		"distribution": c.Distribution,
	})

	fail := func(stage string, err error) Outcome {
		o.Err = &JobError{JobName: c.Name, Stage: stage, Err: err}
		o.Duration = time.Since(start)
		log.WithError(err).WithField("stage", stage).Debug("job failed")
		return o
	}

	spec, err := r.cfg.Planner.Build(c)
	if err != nil {
		return fail(StageRender, err)
	}
	o.Spec = spec

	log.WithFields(logrus.Fields{
		"template": spec.TemplateID,
		"node":     spec.Values.String(config.KeyLabelExpression),
	}).Debug("rendering job")
	doc, err := r.cfg.Expander.Expand(spec.TemplateID, spec.Values)
	if err != nil {
		return fail(StageRender, err)
	}

	if r.cfg.Guard != nil {
		if err := r.cfg.Guard.Check(spec.Name, doc); err != nil {
			return fail(StageGuard, err)
		}
	}

	res, err := r.cfg.Syncer.Sync(ctx, spec.Name, doc, r.cfg.Mode)
	o.Result = res
	if err != nil {
		return fail(StageSync, err)
	}

	o.Duration = time.Since(start)
	log.WithFields(logrus.Fields{
		"action":  res.Action.String(),
		"applied": res.Applied,
	}).Debug("job done")
	return o
}
