package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound       = errors.New("requested resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden access")
	ErrBadRequest     = errors.New("bad request")
	ErrConflict       = errors.New("resource conflict") // e.g., email already exists
	ErrInternalServer = errors.New("internal server error")
	ErrValidation     = errors.New("validation failed")

	// Judge-layer failures. These surface as 5xx: they describe the remote
	// execution service, not the caller's input.
	ErrJudgeUnavailable = errors.New("judge service unavailable")
	ErrJudgeProtocol    = errors.New("judge service returned a malformed response")
	ErrJudgeTimeout     = errors.New("judge polling exceeded the wait ceiling")
)

// UnsupportedLanguageError reports a reference-solution or submission
// language that has no judge language id. It is a caller-input problem and
// unwraps to ErrValidation.
type UnsupportedLanguageError struct {
	Language string
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("language %q is not supported", e.Language)
}

func (e *UnsupportedLanguageError) Unwrap() error { return ErrValidation }

// TestCaseFailedError identifies the first reference solution that failed
// validation: which language, which test case, and the judge's raw result
// detail so the caller can fix the draft without guessing.
type TestCaseFailedError struct {
	Language      string
	TestCaseIndex int
	Input         string
	Status        string
	Stdout        string
	Stderr        string
	CompileOutput string
}

func (e *TestCaseFailedError) Error() string {
	return fmt.Sprintf("reference solution for %s failed test case %d (input %q): %s",
		e.Language, e.TestCaseIndex, e.Input, e.Status)
}

func (e *TestCaseFailedError) Unwrap() error { return ErrValidation }

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrValidation) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrConflict) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrJudgeUnavailable) {
		return http.StatusServiceUnavailable
	}
	if errors.Is(err, ErrJudgeTimeout) {
		return http.StatusGatewayTimeout
	}
	if errors.Is(err, ErrJudgeProtocol) {
		return http.StatusBadGateway
	}

	// Check for pgx specific errors (example for unique constraint)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" { // Unique violation
			return http.StatusConflict
		}
	}

	return http.StatusInternalServerError
}

// Errorf creates a new error with formatting, useful for wrapping.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
