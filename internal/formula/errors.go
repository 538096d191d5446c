package formula

import "fmt"

// FormulaError reports why a formula could not be evaluated.
type FormulaError struct {
	Reason string
}

func (e *FormulaError) Error() string {
	return "formula: " + e.Reason
}

func errf(format string, args ...any) *FormulaError {
	return &FormulaError{Reason: fmt.Sprintf(format, args...)}
}
