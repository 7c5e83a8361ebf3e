package controlplane

import "errors"

var (
	// ErrEmptyBatch indicates a request with no tasks or no employees.
	ErrEmptyBatch = errors.New("batch must contain at least one task and one employee")
	// ErrUnknownTask indicates a reference to a task id outside the request.
	ErrUnknownTask = errors.New("unknown task")
)
