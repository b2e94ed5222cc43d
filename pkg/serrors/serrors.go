package serrors

import "fmt"

// Base is a coded error shared across service boundaries. Code is stable
// and machine-readable, Message is the human-readable default.
type Base struct {
	Code    string
	Message string
	Details string
}

func NewError(code, message, details string) *Base {
	return &Base{Code: code, Message: message, Details: details}
}

func (e *Base) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithDetails returns a copy carrying call-site context. The copy still
// matches the original via errors.Is.
func (e *Base) WithDetails(format string, args ...any) *Base {
	return &Base{Code: e.Code, Message: e.Message, Details: fmt.Sprintf(format, args...)}
}

func (e *Base) Is(target error) bool {
	t, ok := target.(*Base)
	if !ok {
		return false
	}
	return t.Code == e.Code
}
