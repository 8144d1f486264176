package permissions

import "errors"

var (
	// ErrNotFound signals that the requested resource does not exist. A
	// resource with zero assignments is a valid state and does not produce
	// this error.
	ErrNotFound = errors.New("permissions: resource not found")

	// ErrUnknownResourceType rejects resource types outside the closed set.
	ErrUnknownResourceType = errors.New("permissions: unknown resource type")

	// ErrInvalidAssignee rejects malformed assignees, e.g. a role assignee
	// without a role id or a public assignee carrying a write-level.
	ErrInvalidAssignee = errors.New("permissions: invalid assignee")
)
