package ledger

import (
	"errors"

	"github.com/dvloznov/budget-ledger/internal/store"
)

var (
	// ErrNotFound mirrors store.ErrNotFound so callers can depend on the
	// ledger package alone.
	ErrNotFound = store.ErrNotFound

	// ErrInvalidArgument is returned when an operation's inputs violate a
	// precondition, e.g. a reduction that is not strictly less than the
	// current amount.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConflict is returned when an operation would violate ledger
	// consistency, e.g. cumulative refunds exceeding the original amount.
	ErrConflict = errors.New("conflict")
)
