package vfs

import "errors"

// Error kinds returned by tree operations. Every precondition violation maps
// to exactly one of these; a failed operation never leaves a partially
// mutated snapshot behind.
var (
	ErrNotFound         = errors.New("node not found")
	ErrDuplicateName    = errors.New("a sibling with that name already exists")
	ErrInvalidName      = errors.New("invalid node name")
	ErrParentNotFound   = errors.New("parent folder not found")
	ErrWrongKind        = errors.New("operation not valid for this node kind")
	ErrCyclicMove       = errors.New("cannot move a folder into its own subtree")
	ErrCannotDeleteRoot = errors.New("cannot delete the workspace root")
)
