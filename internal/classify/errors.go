package classify

import "errors"

var (
	ErrEmptyFileKey    = errors.New("file key is required")
	ErrEmptyTaskID     = errors.New("task id is required")
	ErrJobFailed       = errors.New("classification job failed")
	ErrMalformedResult = errors.New("classification result is malformed")
)
