package store

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsValidator "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed apidoc.schema.json
var documentSchemaJSON []byte

const schemaURL = "apidoc.schema.json"

var (
	documentSchema     *jsValidator.Schema
	documentSchemaOnce sync.Once
	defaultPrinter     = message.NewPrinter(language.English)
)

func compiledSchema() *jsValidator.Schema {
	documentSchemaOnce.Do(func() {
		doc, err := jsValidator.UnmarshalJSON(bytes.NewReader(documentSchemaJSON))
		if err != nil {
			panic(fmt.Sprintf("store: embedded schema: %v", err))
		}
		c := jsValidator.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			panic(fmt.Sprintf("store: embedded schema: %v", err))
		}
		documentSchema = c.MustCompile(schemaURL)
	})
	return documentSchema
}

// Violation is one schema failure in a document file.
type Violation struct {
	Location string // JSON pointer into the file, "/" for the root
	Message  string
}

func (v Violation) String() string {
	return v.Location + ": " + v.Message
}

// SchemaError lists every leaf failure of a schema check.
type SchemaError struct {
	Violations []Violation
}

func (e *SchemaError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return "document does not match schema: " + strings.Join(parts, "; ")
}

// checkSchema validates raw file content against the embedded document
// schema. Syntax errors are returned as is.
func checkSchema(raw []byte) error {
	inst, err := jsValidator.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("parse document: %w", err)
	}
	err = compiledSchema().Validate(inst)
	if err == nil {
		return nil
	}
	var verr *jsValidator.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	return &SchemaError{Violations: rootCauses(verr)}
}

func rootCauses(err *jsValidator.ValidationError) []Violation {
	if len(err.Causes) == 0 {
		return []Violation{violation(err)}
	}
	var out []Violation
	for _, cause := range err.Causes {
		out = append(out, rootCauses(cause)...)
	}
	return out
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func violation(err *jsValidator.ValidationError) Violation {
	parts := make([]string, len(err.InstanceLocation))
	for i, p := range err.InstanceLocation {
		parts[i] = pointerEscaper.Replace(p)
	}
	loc := "/" + strings.Join(parts, "/")
	msg := err.ErrorKind.LocalizedString(defaultPrinter)
	switch err.ErrorKind.(type) {
	case *kind.Type:
		msg = "wrong type: " + msg
	case *kind.Required:
		msg = "missing field: " + msg
	}
	return Violation{Location: loc, Message: msg}
}
