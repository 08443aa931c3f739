// Package jobsync reconciles rendered job documents with the job service.
//
// A Synchronizer fetches the remote document, classifies the job as new,
// changed or unchanged, and in commit mode issues the single create or update
// call that makes the remote side match. Preview mode never mutates.
package jobsync

import (
	"context"
	"fmt"
	"slices"
)

// Mode selects whether Sync may mutate the remote side.
type Mode int

const (
	// Preview computes the action and diff without any mutating call.
	Preview Mode = iota
	// Commit applies the action.
	Commit
)

func (m Mode) String() string {
	if m == Commit {
		return "commit"
	}
	return "preview"
}

// Action is the reconciliation outcome for one job.
type Action int

const (
	Unchanged Action = iota
	Create
	Update
)

func (a Action) String() string {
	switch a {
	case Create:
		return "create"
	case Update:
		return "update"
	default:
		return "unchanged"
	}
}

// Operations reported in SyncError.Op.
const (
	OpFetch  = "fetch"
	OpCreate = "create"
	OpUpdate = "update"
)

// Client is the narrow view of the job service the synchronizer needs.
type Client interface {
	// JobConfig returns the stored document of name. A job that does not
	// exist is reported with exists == false and a nil error.
	JobConfig(ctx context.Context, name string) (doc []byte, exists bool, err error)
	CreateJob(ctx context.Context, name string, doc []byte) error
	UpdateJob(ctx context.Context, name string, doc []byte) error
}

// Result describes what Sync decided and did for one job.
type Result struct {
	JobName string
	Mode    Mode
	Action  Action

	// Diff is the unified diff from the remote to the new document, one line
	// per element. Empty when the job is unchanged.
	Diff []string

	// Applied is true when a create or update call succeeded.
	Applied bool
}

// SyncError reports a failed client call for one job.
type SyncError struct {
	JobName string
	Op      string
	Err     error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s job %q: %v", e.Op, e.JobName, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// Options tunes the synchronizer.
type Options struct {
	// ContextLines is the number of unchanged lines shown around each change.
	ContextLines int
}

// Synchronizer compares and applies job documents through a Client.
type Synchronizer struct {
	client Client
	opts   Options
}

// New returns a synchronizer over client.
func New(client Client, opts Options) *Synchronizer {
	if opts.ContextLines < 0 {
		opts.ContextLines = 0
	}
	return &Synchronizer{client: client, opts: opts}
}

// Sync reconciles one job. In Preview mode no mutating call is made under any
// circumstance. In Commit mode at most one create or update call is made, and
// none when the documents are equivalent, so repeated commits are no-ops.
func (s *Synchronizer) Sync(ctx context.Context, name string, doc []byte, mode Mode) (Result, error) {
	res := Result{JobName: name, Mode: mode}

	remote, exists, err := s.client.JobConfig(ctx, name)
	if err != nil {
		return res, &SyncError{JobName: name, Op: OpFetch, Err: err}
	}

	local := Normalize(doc)
	if !exists {
		res.Action = Create
		res.Diff = UnifiedDiff(nil, local.Lines, s.opts.ContextLines)
	} else {
		theirs := Normalize(remote)
		if !theirs.Comparable(local) {
			theirs, local = TextLines(remote), TextLines(doc)
		}
		if slices.Equal(theirs.Lines, local.Lines) {
			res.Action = Unchanged
			return res, nil
		}
		res.Action = Update
		res.Diff = UnifiedDiff(theirs.Lines, local.Lines, s.opts.ContextLines)
	}

	if mode != Commit {
		return res, nil
	}

	switch res.Action {
	case Create:
		if err := s.client.CreateJob(ctx, name, doc); err != nil {
			return res, &SyncError{JobName: name, Op: OpCreate, Err: err}
		}
	case Update:
		if err := s.client.UpdateJob(ctx, name, doc); err != nil {
			return res, &SyncError{JobName: name, Op: OpUpdate, Err: err}
		}
	}
	res.Applied = true
	return res, nil
}
