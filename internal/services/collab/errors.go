package collab

import "errors"

// Every error below turns the offending event into a silent no-op.
var (
	ErrUnknownEvent  = errors.New("unknown event")
	ErrMalformed     = errors.New("malformed event")
	ErrUnknownRoom   = errors.New("unknown room")
	ErrNotMember     = errors.New("not a room member")
	ErrDuplicateFile = errors.New("file id already exists")
	ErrFileNotFound  = errors.New("file not found")
	ErrNothingToSync = errors.New("room has no document")
)
