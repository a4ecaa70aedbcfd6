package spec

import "errors"

// ErrorCode categorizes document errors for clearer handling and messaging.
type ErrorCode string

const (
	Structural         ErrorCode = "StructuralError"
	DuplicateRoute     ErrorCode = "DuplicateRouteError"
	DanglingReference  ErrorCode = "DanglingReferenceError"
	NotInitialized     ErrorCode = "NotInitializedError"
	AlreadyInitialized ErrorCode = "AlreadyInitializedError"
	UnsupportedFormat  ErrorCode = "UnsupportedFormatError"

	// Importer codes.
	InputError      ErrorCode = "InputError"
	NetworkError    ErrorCode = "NetworkError"
	ParseError      ErrorCode = "ParseError"
	ValidationError ErrorCode = "ValidationError"
	ConversionError ErrorCode = "ConversionError"
)

// Sentinels for errors.Is matching on the code of a *SpecError.
var (
	ErrStructural         = &SpecError{Code: Structural}
	ErrDuplicateRoute     = &SpecError{Code: DuplicateRoute}
	ErrDanglingReference  = &SpecError{Code: DanglingReference}
	ErrNotInitialized     = &SpecError{Code: NotInitialized}
	ErrAlreadyInitialized = &SpecError{Code: AlreadyInitialized}
	ErrInputError         = &SpecError{Code: InputError}
)

// SpecError is a structured error with an optional JSON pointer. Every
// rejection leaves the document as it was.
type SpecError struct {
	Code     ErrorCode
	Message  string
	Location string // file path or URL, importer only
	Pointer  string // e.g. "/components/schemas/Pet/properties/age"
	Names    []string
	Cause    error
}

func (e *SpecError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

func (e *SpecError) Unwrap() error { return e.Cause }

// Is matches any *SpecError carrying the same code.
func (e *SpecError) Is(target error) bool {
	var t *SpecError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the first *SpecError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var se *SpecError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return "", false
}
