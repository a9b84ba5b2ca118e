package materials

import "errors"

var (
	// ErrNotFound indicates the material does not exist.
	ErrNotFound = errors.New("material not found")
	// ErrUnauthorized indicates the requester does not own the material.
	ErrUnauthorized = errors.New("not authorized to modify this material")
	// ErrTitleRequired indicates a material was submitted without a title.
	ErrTitleRequired = errors.New("title is required")
)
