// registration/store/errors.go
package store

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound  = fmt.Errorf("record not found")
	ErrDuplicate = fmt.Errorf("record already exists")
)

// translate maps driver errors onto the store sentinels, keeping the
// original error in the chain.
func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w: %v", op, ErrDuplicate, err)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}
