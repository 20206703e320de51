package testutil

import (
	ierr "github.com/billforge/billforge/internal/errors"
)

func notFound(entity, id string) error {
	return ierr.NewError(entity + " not found").
		WithHintf("no %s stored under %s", entity, id).
		Mark(ierr.ErrNotFound)
}
