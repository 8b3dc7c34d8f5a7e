// Package errs defines the single error family returned by the serialization
// engine.
//
// Every failure surfaced by the codec, the document surfaces and the caller
// API is a *SerializationError carrying a Code. Callers branch on the code
// with Is or CodeOf rather than on message text. The underlying cause, when
// there is one, stays reachable through errors.Unwrap.
package errs

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Code categorizes serialization failures.
type Code string

const (
	// CodeFileNotFound indicates a read of a name that was never written.
	CodeFileNotFound Code = "FILE_NOT_FOUND"

	// CodeMalformedDocument indicates text that is not valid in its surface format.
	CodeMalformedDocument Code = "MALFORMED_DOCUMENT"

	// CodeTypeMismatch indicates a document node whose kind does not fit the target.
	CodeTypeMismatch Code = "TYPE_MISMATCH"

	// CodeMissingConstructorArgument indicates a constructor parameter with no
	// matching field or no matching document key.
	CodeMissingConstructorArgument Code = "MISSING_CONSTRUCTOR_ARGUMENT"

	// CodeUnknownImplementation indicates a discriminant with no registered type.
	CodeUnknownImplementation Code = "UNKNOWN_IMPLEMENTATION"

	// CodeUnregisteredImplementation indicates a runtime type with no discriminant.
	CodeUnregisteredImplementation Code = "UNREGISTERED_IMPLEMENTATION"

	// CodeAmbiguousImplementation indicates a discriminant or concrete type
	// registered twice for one base.
	CodeAmbiguousImplementation Code = "AMBIGUOUS_IMPLEMENTATION"

	// CodeInvalidValue indicates a well-typed node with an unusable value:
	// overflow, unknown enum name, non-finite float, failing constructor.
	CodeInvalidValue Code = "INVALID_VALUE"

	// CodeUnsupportedType indicates a Go type the engine cannot represent.
	CodeUnsupportedType Code = "UNSUPPORTED_TYPE"

	// CodeInvalidDescriptor indicates bad tags or registrations.
	CodeInvalidDescriptor Code = "INVALID_DESCRIPTOR"

	// CodeDepthExceeded indicates traversal deeper than the configured limit,
	// which is how cyclic graphs fail.
	CodeDepthExceeded Code = "DEPTH_EXCEEDED"
)

var knownCodes = map[Code]bool{
	CodeFileNotFound:               true,
	CodeMalformedDocument:          true,
	CodeTypeMismatch:               true,
	CodeMissingConstructorArgument: true,
	CodeUnknownImplementation:      true,
	CodeUnregisteredImplementation: true,
	CodeAmbiguousImplementation:    true,
	CodeInvalidValue:               true,
	CodeUnsupportedType:            true,
	CodeInvalidDescriptor:          true,
	CodeDepthExceeded:              true,
}

// IsKnownCode reports whether c is one of the codes defined here.
func IsKnownCode(c Code) bool { return knownCodes[c] }

// SerializationError is the error type for all engine failures.
type SerializationError struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Type names the Go type involved, when known.
	Type string

	// Path locates the failing node, e.g. "$.children[1].value".
	Path string

	// Err is the underlying cause (optional).
	Err error
}

// Error implements the error interface.
func (e *SerializationError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)

	var details []string
	if e.Type != "" {
		details = append(details, "type="+e.Type)
	}
	if e.Path != "" {
		details = append(details, "path="+e.Path)
	}
	if len(details) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(details, ", "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *SerializationError) Unwrap() error {
	return e.Err
}

// New creates a SerializationError with a formatted message.
func New(code Code, format string, args ...any) *SerializationError {
	return &SerializationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a SerializationError around cause.
func Wrap(code Code, cause error, format string, args ...any) *SerializationError {
	return &SerializationError{Code: code, Message: fmt.Sprintf(format, args...), Err: cause}
}

// WithType sets the Type field and returns e.
func (e *SerializationError) WithType(typeName string) *SerializationError {
	e.Type = typeName
	return e
}

// WithPath sets the Path field and returns e.
func (e *SerializationError) WithPath(path string) *SerializationError {
	e.Path = path
	return e
}

// As extracts the first SerializationError in err's chain.
func As(err error) (*SerializationError, bool) {
	var se *SerializationError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Is reports whether err carries a SerializationError with the given code.
// Uses errors.As so wrapped errors match.
func Is(err error, code Code) bool {
	se, ok := As(err)
	return ok && se.Code == code
}

// CodeOf returns the code of the first SerializationError in err's chain,
// or the empty code when there is none.
func CodeOf(err error) Code {
	if se, ok := As(err); ok {
		return se.Code
	}
	return ""
}

// IsFileNotFound reports whether err is a FILE_NOT_FOUND error.
func IsFileNotFound(err error) bool { return Is(err, CodeFileNotFound) }

// IsMalformedDocument reports whether err is a MALFORMED_DOCUMENT error.
func IsMalformedDocument(err error) bool { return Is(err, CodeMalformedDocument) }

// IsTypeMismatch reports whether err is a TYPE_MISMATCH error.
func IsTypeMismatch(err error) bool { return Is(err, CodeTypeMismatch) }
