package net

import "github.com/pkg/errors"

var (
	// ErrConfiguration reports an invalid topology, a non-positive batch
	// size or an empty training set. No state is mutated when it is returned.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrInputShapeMismatch reports a vector whose length does not match the
	// network's input or output width. It is returned before any layer is
	// evaluated.
	ErrInputShapeMismatch = errors.New("input shape mismatch")
)
