package sim

import (
	"fmt"
	"strings"
)

// Structural errors (duplicate names, unknown references, supplier conflicts,
// cycles) are raised while the store and graph are being built and are fatal
// to setup. PlatformTransferError is the only recoverable kind, and only when
// a previous host copy exists.

// DuplicateNameError reports a second declaration of a buffer or operator name.
type DuplicateNameError struct {
	Kind string // "buffer" or "operator"
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("%s %q already declared", e.Kind, e.Name)
}

// UnknownBufferError reports a reference to a buffer that was never declared.
// Operator is empty when the lookup did not come from an operator binding.
type UnknownBufferError struct {
	Name     string
	Operator string
}

func (e *UnknownBufferError) Error() string {
	if e.Operator != "" {
		return fmt.Sprintf("operator %q references undeclared buffer %q", e.Operator, e.Name)
	}
	return fmt.Sprintf("undeclared buffer %q", e.Name)
}

// ConflictingSupplierError reports two operators supplying the same buffer.
type ConflictingSupplierError struct {
	Buffer   string
	Existing string
	Incoming string
}

func (e *ConflictingSupplierError) Error() string {
	return fmt.Sprintf("buffer %q is supplied by both %q and %q", e.Buffer, e.Existing, e.Incoming)
}

// CyclicDependencyError carries the operator cycle that prevents a
// topological order. The first and last entries are the same operator.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return "cyclic operator dependency: " + strings.Join(e.Cycle, " → ")
}

// InvalidDimensionError reports a dimension index outside [0, Rank), or a
// per-dimension parameter list whose length disagrees with the rank.
type InvalidDimensionError struct {
	Dim  int
	Rank int
	What string
}

func (e *InvalidDimensionError) Error() string {
	if e.What != "" {
		return fmt.Sprintf("%s has %d entries, grid rank is %d", e.What, e.Dim, e.Rank)
	}
	return fmt.Sprintf("dimension %d out of range for rank %d grid", e.Dim, e.Rank)
}

// UnsupportedRankError reports a dimensionality without an implemented path.
type UnsupportedRankError struct {
	Rank int
	Op   string
}

func (e *UnsupportedRankError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s is not implemented for rank %d", e.Op, e.Rank)
	}
	return fmt.Sprintf("unsupported rank %d", e.Rank)
}

// PlatformTransferError reports a failed host-copy materialization.
type PlatformTransferError struct {
	Buffer string
	Err    error
}

func (e *PlatformTransferError) Error() string {
	return fmt.Sprintf("host copy of buffer %q failed: %v", e.Buffer, e.Err)
}

func (e *PlatformTransferError) Unwrap() error { return e.Err }

// SpaceMismatchError reports a real-space access to a reciprocal buffer or
// the other way round.
type SpaceMismatchError struct {
	Buffer         string
	WantReciprocal bool
}

func (e *SpaceMismatchError) Error() string {
	if e.WantReciprocal {
		return fmt.Sprintf("buffer %q is a real-space buffer, reciprocal expected", e.Buffer)
	}
	return fmt.Sprintf("buffer %q is a reciprocal-space buffer, real expected", e.Buffer)
}

// HistoryDisabledError reports a history request on a buffer declared
// without history tracking.
type HistoryDisabledError struct {
	Buffer string
}

func (e *HistoryDisabledError) Error() string {
	return fmt.Sprintf("buffer %q does not track history", e.Buffer)
}

// ShapeMismatchError reports incompatible array shapes.
type ShapeMismatchError struct {
	Want []int
	Got  []int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch: want %v, got %v", e.Want, e.Got)
}
