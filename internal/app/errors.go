package app

import (
	"fmt"
	"net/http"
)

// DomainError is a request-fatal failure raised by the service layer and
// rendered into the response envelope at the boundary. Errors carries
// per-field message lists for validation failures.
type DomainError struct {
	Status  int
	Message string
	Errors  map[string][]string
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func notFound(resource string) *DomainError {
	return &DomainError{Status: http.StatusNotFound, Message: resource + " not found"}
}

// forbidden is raised whenever a policy predicate denies an actor. It is
// deliberately distinct from validation failures.
func forbidden() *DomainError {
	return &DomainError{Status: http.StatusForbidden, Message: "This action is unauthorized"}
}

func validationFailed(fieldErrors map[string][]string) *DomainError {
	return &DomainError{
		Status:  http.StatusUnprocessableEntity,
		Message: "The given data was invalid",
		Errors:  fieldErrors,
	}
}

func fieldError(field, message string) *DomainError {
	return validationFailed(map[string][]string{field: {message}})
}

// fieldErrors accumulates per-field validation messages before a payload
// is allowed anywhere near the store.
type fieldErrors map[string][]string

func (f fieldErrors) add(field, message string) {
	f[field] = append(f[field], message)
}

func (f fieldErrors) err() *DomainError {
	if len(f) == 0 {
		return nil
	}
	return validationFailed(f)
}
