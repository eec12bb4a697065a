package validate

import (
	"errors"
	"fmt"
	"strings"
)

// Severity orders issues from most to least serious.
type Severity int

const (
	// SeverityError blocks persistence and generation.
	SeverityError Severity = iota
	// SeverityWarning is reported but tolerated.
	SeverityWarning
	// SeverityInfo is a notice.
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Issue is a single problem found in a document.
type Issue struct {
	// Path locates the entity, e.g. "endpoints.GET./users/{id}.params.id".
	Path     string
	Message  string
	Severity Severity
	// Field is the offending field of the entity, if any.
	Field string
	// Value is the offending value, if any.
	Value any
}

// String renders the issue with a severity marker.
func (i Issue) String() string {
	var symbol string
	switch i.Severity {
	case SeverityError:
		symbol = "✗"
	case SeverityWarning:
		symbol = "⚠"
	case SeverityInfo:
		symbol = "ℹ"
	default:
		symbol = "?"
	}
	if i.Path == "" {
		return fmt.Sprintf("%s %s", symbol, i.Message)
	}
	return fmt.Sprintf("%s %s: %s", symbol, i.Path, i.Message)
}

// ErrInvalid matches every *Error.
var ErrInvalid = errors.New("invalid document")

// Error carries the error-severity issues of a failed validation.
type Error struct {
	Issues []Issue
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		if i.Path == "" {
			msgs = append(msgs, i.Message)
			continue
		}
		msgs = append(msgs, i.Path+": "+i.Message)
	}
	return fmt.Sprintf("%v: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func (e *Error) Is(target error) bool { return target == ErrInvalid }

// Report collects issues in the order they were found.
type Report struct {
	Issues []Issue
}

type issueOption func(*Issue)

func withField(field string) issueOption {
	return func(i *Issue) { i.Field = field }
}

func withValue(value any) issueOption {
	return func(i *Issue) { i.Value = value }
}

func (r *Report) add(sev Severity, path, message string, opts ...issueOption) {
	issue := Issue{Path: path, Message: message, Severity: sev}
	for _, opt := range opts {
		opt(&issue)
	}
	r.Issues = append(r.Issues, issue)
}

func (r *Report) addError(path, message string, opts ...issueOption) {
	r.add(SeverityError, path, message, opts...)
}

func (r *Report) addWarning(path, message string, opts ...issueOption) {
	r.add(SeverityWarning, path, message, opts...)
}

func (r *Report) merge(other *Report) {
	r.Issues = append(r.Issues, other.Issues...)
}

// Filter returns the issues of one severity.
func (r *Report) Filter(sev Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}

// Valid reports whether no error-severity issue was found.
func (r *Report) Valid() bool {
	return len(r.Filter(SeverityError)) == 0
}

// Err returns an *Error holding the error-severity issues, or nil.
func (r *Report) Err() error {
	errs := r.Filter(SeverityError)
	if len(errs) == 0 {
		return nil
	}
	return &Error{Issues: errs}
}
