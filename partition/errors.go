package partition

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrWriteIntentExists = errors.New("partition: write intent exists")

// TxIDMismatchError is returned when a row holds the write intent of
// another transaction and no commit timestamp was given to clean it up.
type TxIDMismatchError struct {
	// Expected owns the write intent.
	Expected uuid.UUID
	// Conflicting tried to write.
	Conflicting uuid.UUID
}

func (e *TxIDMismatchError) Error() string {
	return fmt.Sprintf("partition: mismatched transaction id (expected %s, conflicting %s)", e.Expected, e.Conflicting)
}
