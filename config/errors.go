package config

import "errors"

var (
	// ErrParse indicates the job file is not valid YAML for a Job.
	ErrParse = errors.New("cannot parse job file")

	// ErrInvalid indicates a job value is out of range or inconsistent.
	ErrInvalid = errors.New("invalid job configuration")

	// ErrMissingInput indicates a command needs a path the job does not set.
	ErrMissingInput = errors.New("missing input")
)
