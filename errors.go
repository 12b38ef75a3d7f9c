package mongomap

import "fmt"

// The mapper fails with exactly one of the error kinds below, or passes the
// driver's own error through untouched. Storage failures (duplicate keys,
// network loss) are never wrapped or retried here; retry policy belongs to
// the caller, who knows whether the operation is safe to repeat.

// ValidationError reports a schema constraint violated while encoding an
// instance. It is always raised before any network I/O.
type ValidationError struct {
	Model      string
	Field      string
	Constraint string
	Value      any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("mongomap: %s.%s: %s constraint violated (value %v)",
		e.Model, e.Field, e.Constraint, e.Value)
}

// DoesNotExistError reports zero results where exactly one was required.
type DoesNotExistError struct {
	Model string
}

func (e *DoesNotExistError) Error() string {
	return fmt.Sprintf("mongomap: %s matching query does not exist", e.Model)
}

// MultipleObjectsReturnedError reports more than one result where exactly
// one was required.
type MultipleObjectsReturnedError struct {
	Model string
}

func (e *MultipleObjectsReturnedError) Error() string {
	return fmt.Sprintf("mongomap: query returned more than one %s", e.Model)
}

// BrokenReferenceError reports a reference whose target document no longer
// exists. Only raised in strict mode; the default policy substitutes a
// BrokenRef sentinel instead.
type BrokenReferenceError struct {
	Model string
	ID    any
}

func (e *BrokenReferenceError) Error() string {
	return fmt.Sprintf("mongomap: broken reference to %s %v", e.Model, e.ID)
}

// OperationError reports a mapper operation used in a state it does not
// support, such as refreshing a never-saved instance or deleting a document
// that another document references under a Deny rule.
type OperationError struct {
	Msg string
}

func (e *OperationError) Error() string {
	return "mongomap: " + e.Msg
}
