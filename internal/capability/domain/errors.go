package domain

import (
	"github.com/allisson/missionhub/internal/errors"
)

// Capability errors.
var (
	// ErrGrantNotFound indicates the identity does not hold the capability.
	ErrGrantNotFound = errors.Wrap(errors.ErrNotFound, "capability grant not found")
)
