// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// JobKind distinguishes single-file from folder conversions.
type JobKind string

const (
	JobFile   JobKind = "file"
	JobFolder JobKind = "folder"
)

// ConversionJob is one unit of work: an input, an output and the
// renderer overrides supplied for this invocation only.
type ConversionJob struct {
	Input     string
	Output    string
	Overrides Overrides
}

// FileError records a failed conversion inside a folder job.
type FileError struct {
	// Path is relative to the input root.
	Path string `json:"path" yaml:"path"`

	// Message is the converter's stderr, or "Unknown error" when empty.
	Message string `json:"message" yaml:"message"`
}

// FolderResult is the aggregate outcome of a folder conversion.
type FolderResult struct {
	Succeeded int
	Failed    int

	// CopyFailed counts pass-through files that could not be copied. It is
	// reported separately and does not contribute to Failed.
	CopyFailed int

	// Skipped counts convertible files never attempted because the
	// conversion was cancelled.
	Skipped int

	Errors []FileError
}

// Total returns the number of convertible files attempted.
func (r FolderResult) Total() int {
	return r.Succeeded + r.Failed
}

// HasFailures reports whether any conversion failed.
func (r FolderResult) HasFailures() bool {
	return r.Failed > 0
}
