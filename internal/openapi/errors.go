package openapi

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Stage names the step of ImportFrom that failed.
type Stage string

const (
	StageInput    Stage = "read"     // unusable input or unreadable file
	StageFetch    Stage = "fetch"    // HTTP download
	StageParse    Stage = "parse"    // not YAML/JSON, or no known version
	StageConvert  Stage = "convert"  // Swagger 2 to OpenAPI 3
	StageValidate Stage = "validate" // kin-openapi validation
	StageImport   Stage = "import"   // mapping into the document model
)

// Error locates a description that could not be turned into a document.
type Error struct {
	Stage    Stage
	Location string // file path or URL
	Pointer  string // JSON Pointer into the description, when known
	Err      error
}

func (e *Error) Error() string {
	if e.Location == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Location, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func stageErr(stage Stage, location string, err error) *Error {
	return &Error{Stage: stage, Location: location, Err: err}
}

// validationErr classifies a kin-openapi load or validation failure. Syntax
// problems surface from the same calls, so they are told apart by message.
func validationErr(err error, location string) *Error {
	stage := StageValidate
	if msg := strings.ToLower(err.Error()); strings.Contains(msg, "parse") || strings.Contains(msg, "invalid character") {
		stage = StageParse
	}
	e := stageErr(stage, location, err)
	e.Pointer = pointerOf(err)
	return e
}

var pointerRe = regexp.MustCompile(`#/[^\s'"]+`)

func pointerOf(err error) string {
	var multi openapi3.MultiError
	if errors.As(err, &multi) && len(multi) > 0 {
		return pointerOf(multi[0])
	}
	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		if parts := schemaErr.JSONPointer(); len(parts) > 0 {
			return "#/" + strings.Join(parts, "/")
		}
		if schemaErr.SchemaField != "" {
			return schemaErr.SchemaField
		}
	}
	return pointerRe.FindString(err.Error())
}

// tolerable reports validation failures an import can live with: the
// affected schemas come through as strings.
func tolerable(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unresolved ref")
}
