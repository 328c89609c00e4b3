package sqlite

import (
	"errors"
	"fmt"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store"
)

// unavailable tags a driver failure as store.ErrUnavailable while keeping
// the original error in the chain.
func unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, store.ErrUnavailable, err)
}
