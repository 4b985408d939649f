package cerr

import (
	"errors"
	"fmt"

	"github.com/fieldops/dispatch/pkg/storage"
)

// WrapStorageError translates a storage failure into a coded error. A
// missing record maps to NotFound; anything else becomes an internal
// error carrying the failed operation for the log.
func WrapStorageError(op, target string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return NewError(NotFound, fmt.Sprintf("%s not found", target), err)
	}
	return NewError(Internal, "server error", fmt.Errorf("failed to %s %s: %w", op, target, err))
}
