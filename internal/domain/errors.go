package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("post not found")
	ErrSlugExists = errors.New("slug already exists")

	// ErrBackendUnconfigured is returned on write attempts when the datastore
	// credentials are absent. Reads degrade to empty results instead.
	ErrBackendUnconfigured = errors.New("datastore is not configured")
)

// StepError tags a write-pipeline failure with the step that failed
// (base, translations, images, locations, categories), so callers can report
// where a non-transactional multi-step write stopped.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("step %s: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

// FailedStep extracts the pipeline step name from err, if any.
func FailedStep(err error) string {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step
	}
	return ""
}
