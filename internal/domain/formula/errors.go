package formula

import (
	"errors"

	"github.com/assettrack/backend/internal/domain/shared"
)

// Error codes for formula failures. Failures are never silent zeros; callers
// inspect the code to decide whether a formula is broken or merely empty.
const (
	CodeSyntax             = "FORMULA_SYNTAX"
	CodeDisallowedFunction = "FORMULA_DISALLOWED_FUNCTION"
	CodeMalformedReference = "FORMULA_MALFORMED_REFERENCE"
	CodeNoValue            = "FORMULA_NO_VALUE"
)

// ErrNoValue is returned when an empty expression is compiled or evaluated.
// An empty formula means "no value", which is distinct from the number 0.
var ErrNoValue = shared.NewDomainError(CodeNoValue, "Formula has no value")

func newSyntaxError(detail string) *shared.DomainError {
	return shared.NewDomainError(CodeSyntax, "Formula syntax error: "+detail)
}

func newDisallowedFunctionError(name string) *shared.DomainError {
	return shared.NewDomainError(CodeDisallowedFunction, "Function not allowed in formulas: "+name)
}

func newMalformedReferenceError(detail string) *shared.DomainError {
	return shared.NewDomainError(CodeMalformedReference, "Malformed field reference: "+detail)
}

// CodeOf extracts the formula error code from an error, or "" when the error
// is not a domain error.
func CodeOf(err error) string {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}
