package app

import "fmt"

// DomainError carries an HTTP status and a stable machine-readable code.
// Handlers map it straight onto the error response body.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{Status: status, Code: code, Message: message, Details: details}
}
