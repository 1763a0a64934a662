// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"time"

	"github.com/pdiddy/pandoc-runner/internal/process"
	"github.com/pdiddy/pandoc-runner/pkg/types"
)

// Outcome is the result of a finished job. File is set for file jobs,
// Folder and Err for folder jobs.
type Outcome struct {
	File       process.Result
	Folder     types.FolderResult
	Err        error
	PreviewURL string
}

// Succeeded reports whether every conversion in the job succeeded.
func (o Outcome) Succeeded(kind types.JobKind) bool {
	if kind == types.JobFile {
		return o.File.Success
	}
	return o.Err == nil && !o.Folder.HasFailures()
}

// Job is a running or finished conversion.
type Job struct {
	ID      string
	Kind    types.JobKind
	Input   string
	Output  string
	Format  types.OutputFormat
	Started time.Time

	done     chan struct{}
	outcome  Outcome
	finished time.Time
}

// Done is closed when the job finishes.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job finishes or ctx is done.
func (j *Job) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-j.done:
		return j.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Finished returns when the job ended, or the zero time while running.
func (j *Job) Finished() time.Time {
	select {
	case <-j.done:
		return j.finished
	default:
		return time.Time{}
	}
}

func (j *Job) finish(out Outcome, at time.Time) {
	j.outcome = out
	j.finished = at
	close(j.done)
}
