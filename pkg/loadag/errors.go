package loadag

import "fmt"

// NotInitializedError means a required .agents/ file is missing.
type NotInitializedError struct {
	Path string
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf(".agents is not initialized: missing %s", e.Path)
}

// ParseError wraps a document that failed to decode.
type ParseError struct {
	Path    string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: %s", e.Path, e.Message)
}

// DuplicateIDError reports two documents of one kind sharing an id.
type DuplicateIDError struct {
	Kind string
	ID   string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate id %s in %s", e.ID, e.Kind)
}

// MissingIDError reports a referenced id with no loaded entity.
type MissingIDError struct {
	Kind string
	ID   string
}

func (e *MissingIDError) Error() string {
	return fmt.Sprintf("missing required id %s in %s", e.ID, e.Kind)
}

// Warning is a non-fatal load finding.
type Warning struct {
	Path    string
	Message string
}

// Report collects warnings emitted while loading.
type Report struct {
	Warnings []Warning
}

// Warn appends a warning.
func (r *Report) Warn(path, message string) {
	r.Warnings = append(r.Warnings, Warning{Path: path, Message: message})
}
