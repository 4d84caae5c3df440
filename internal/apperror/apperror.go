// Package apperror defines the application's error values.
//
// Storage layers never hand raw driver errors upward. They classify each
// failure into an *Error carrying a Kind from a closed enumeration, and
// callers switch on that Kind (see Translate) instead of on driver types.
package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinels let callers use errors.Is without knowing about Kind.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrDatabase   = errors.New("database error")
)

// Kind enumerates every failure class the storage layer reports.
type Kind int

const (
	KindUnknown Kind = iota
	KindModelValidation
	KindNotFound
	KindUniqueViolation
	KindNotNullViolation
	KindForeignKeyViolation
	KindCheckViolation
	KindInvalidData
	KindDatabase
)

// String returns the type tag used in error responses.
func (k Kind) String() string {
	switch k {
	case KindModelValidation:
		return "ModelValidation"
	case KindNotFound:
		return "NotFound"
	case KindUniqueViolation:
		return "UniqueViolation"
	case KindNotNullViolation:
		return "NotNullViolation"
	case KindForeignKeyViolation:
		return "ForeignKeyViolation"
	case KindCheckViolation:
		return "CheckViolation"
	case KindInvalidData:
		return "InvalidData"
	case KindDatabase:
		return "UnknownDatabaseError"
	default:
		return "UnknownError"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindModelValidation, KindNotNullViolation, KindCheckViolation, KindInvalidData:
		return ErrValidation
	case KindNotFound:
		return ErrNotFound
	case KindUniqueViolation, KindForeignKeyViolation:
		return ErrConflict
	case KindDatabase:
		return ErrDatabase
	default:
		return nil
	}
}

// FieldError describes one failed schema rule on an entity field.
type FieldError struct {
	Message string         `json:"message"`
	Keyword string         `json:"keyword"`
	Params  map[string]any `json:"params"`
}

// Error is a classified storage or model failure.
type Error struct {
	Kind       Kind
	Message    string
	Table      string
	Columns    []string
	Column     string
	Constraint string
	Fields     map[string][]FieldError // KindModelValidation only
	Err        error                   // underlying driver error, if any
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ModelValidation reports entity fields that failed their schema rules.
func ModelValidation(fields map[string][]FieldError) *Error {
	names := make([]string, 0, len(fields))
	for name, errs := range fields {
		for _, fe := range errs {
			names = append(names, name+": "+fe.Message)
		}
	}
	sort.Strings(names)
	return &Error{
		Kind:    KindModelValidation,
		Message: strings.Join(names, ", "),
		Fields:  fields,
	}
}

func NotFound(resource, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func UniqueViolation(table, constraint string, columns []string, cause error) *Error {
	return &Error{
		Kind:       KindUniqueViolation,
		Message:    causeMessage(cause, "unique constraint violated"),
		Table:      table,
		Columns:    columns,
		Constraint: constraint,
		Err:        cause,
	}
}

func NotNullViolation(table, column string, cause error) *Error {
	return &Error{
		Kind:    KindNotNullViolation,
		Message: causeMessage(cause, "not-null constraint violated"),
		Table:   table,
		Column:  column,
		Err:     cause,
	}
}

func ForeignKeyViolation(table, constraint string, cause error) *Error {
	return &Error{
		Kind:       KindForeignKeyViolation,
		Message:    causeMessage(cause, "foreign key constraint violated"),
		Table:      table,
		Constraint: constraint,
		Err:        cause,
	}
}

func CheckViolation(table, constraint string, cause error) *Error {
	return &Error{
		Kind:       KindCheckViolation,
		Message:    causeMessage(cause, "check constraint violated"),
		Table:      table,
		Constraint: constraint,
		Err:        cause,
	}
}

func InvalidData(cause error) *Error {
	return &Error{Kind: KindInvalidData, Message: causeMessage(cause, "invalid data"), Err: cause}
}

func Database(cause error) *Error {
	return &Error{Kind: KindDatabase, Message: causeMessage(cause, "database error"), Err: cause}
}

func causeMessage(cause error, fallback string) string {
	if cause == nil {
		return fallback
	}
	return cause.Error()
}
