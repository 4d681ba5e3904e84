package cell

import (
	"errors"
	"fmt"
)

// Sentinel error kinds, matched with errors.Is. Errors returned by
// Cell methods name the cell; scheduler.Execute adds the active pid to
// an error escaping Process. Under the scheduler, an UnsuppliedError
// is retried like DO_OVER instead of being returned.
var (
	// ErrAlreadyDeclared is returned by DeclareParams/DeclareIO when
	// called a second time on the same cell.
	ErrAlreadyDeclared = errors.New("cell: already declared")
	// ErrUnsupplied is returned by Process when a required input has
	// never received a value.
	ErrUnsupplied = errors.New("cell: required input unsupplied")
	// ErrNotCloneable is returned by Clone when the user compute object
	// is neither a struct nor a pointer to a struct, so no independent
	// copy can be made.
	ErrNotCloneable = errors.New("cell: user object is not cloneable")
)

// UnsuppliedError names the input socket that triggered ErrUnsupplied.
type UnsuppliedError struct {
	Cell  string
	Input string
}

func (e *UnsuppliedError) Error() string {
	return fmt.Sprintf("cell %q: required input %q was never supplied", e.Cell, e.Input)
}

func (e *UnsuppliedError) Unwrap() error { return ErrUnsupplied }
