package runner

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Stages a job passes through. JobError.Stage names the failing one.
const (
	StageRender = "render"
	StageGuard  = "guard"
	StageSync   = "sync"
)

// JobError is a failure scoped to one job. The run continues past it.
type JobError struct {
	JobName string
	Stage   string
	Err     error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %s: %s: %v", e.JobName, e.Stage, e.Err)
}

func (e *JobError) Unwrap() error { return e.Err }

// formatJobErrors lists every failed job on its own line.
func formatJobErrors(errs []error) string {
	if len(errs) == 1 {
		return errs[0].Error()
	}
	lines := make([]string, 0, len(errs)+1)
	lines = append(lines, fmt.Sprintf("%d jobs failed:", len(errs)))
	for _, err := range errs {
		lines = append(lines, "  * "+err.Error())
	}
	return strings.Join(lines, "\n")
}

func appendJobError(agg *multierror.Error, err *JobError) *multierror.Error {
	agg = multierror.Append(agg, err)
	agg.ErrorFormat = formatJobErrors
	return agg
}
