package generate

import "errors"

var (
	// ErrTypeReject is returned when a candidate text parses but none of its
	// trees type checks. The branch is dead: no continuation can revive it.
	ErrTypeReject = errors.New("type reject")

	// ErrAmbiguous is returned when a candidate text has more parse trees
	// than are built and none of those built type checks. Unlike
	// ErrTypeReject it says nothing about the remaining trees.
	ErrAmbiguous = errors.New("ambiguity limit")

	// ErrUsage is returned when an operation is called before its
	// precondition holds.
	ErrUsage = errors.New("usage error")
)
