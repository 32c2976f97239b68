package importer

import "fmt"

// ErrorKind discriminates every failure the pipeline can produce.
//
// FormatError, TooLarge and TooManyRows are fatal: they abort the whole
// batch before any row is processed and surface as a request-level failure
// with no report. The remaining kinds are row-scoped: they are recorded in
// the report and processing continues with the next row.
type ErrorKind string

const (
	KindFormatError         ErrorKind = "FormatError"
	KindTooLarge            ErrorKind = "TooLarge"
	KindTooManyRows         ErrorKind = "TooManyRows"
	KindMissingField        ErrorKind = "MissingField"
	KindTypeMismatch        ErrorKind = "TypeMismatch"
	KindInvalidEnum         ErrorKind = "InvalidEnum"
	KindUnresolvedReference ErrorKind = "UnresolvedReference"
	KindPersistenceFailure  ErrorKind = "PersistenceFailure"
)

// RowError is one row-scoped failure. Column is empty for row-level
// structural errors (wrong field count, unparseable row).
type RowError struct {
	Row     int
	Column  string
	Kind    ErrorKind
	Message string
}

func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column %q: %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// FatalError aborts a batch before row processing. The HTTP layer turns it
// into a request-level failure; no report is produced.
type FatalError struct {
	Kind    ErrorKind
	Message string
}

func (e *FatalError) Error() string {
	return e.Message
}

func fatal(kind ErrorKind, format string, args ...any) *FatalError {
	return &FatalError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
