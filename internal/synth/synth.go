package synth

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/okapi-tools/okapi/internal/apidoc"
	"github.com/speakeasy-api/openapi/sequencedmap"
)

var (
	// ErrCycle marks a model that references itself through its attributes.
	ErrCycle = errors.New("model reference cycle")
	// ErrUnknownModel marks a reference to a model that does not exist.
	ErrUnknownModel = errors.New("unknown model")
	// ErrCoercion marks an example that does not match its declared type.
	ErrCoercion = errors.New("example does not match type")
)

// JSON has no spelling for infinities or NaN.
var errNotFinite = errors.New("not a finite number")

// CycleError reports the model chain that closed a cycle, e.g. A -> B -> A.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v: %s", ErrCycle, strings.Join(e.Chain, " -> "))
}

func (e *CycleError) Is(target error) bool { return target == ErrCycle }

// CoercionError reports an attribute example that could not be converted.
// The attribute falls back to its type default.
type CoercionError struct {
	Model     string
	Attribute string
	Type      string
	Example   string
	Err       error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("%s.%s: example %q is not a valid %s: %v", e.Model, e.Attribute, e.Example, e.Type, e.Err)
}

func (e *CoercionError) Is(target error) bool { return target == ErrCoercion }

func (e *CoercionError) Unwrap() error { return e.Err }

// Models is the model table examples are built from.
type Models = *sequencedmap.Map[string, *apidoc.Model]

// Default returns the zero example of a primitive type. Unknown types yield
// an empty string.
func Default(typ string) Value {
	base, _ := apidoc.ParseType(typ)
	switch base {
	case apidoc.TypeInteger:
		return Int(0)
	case apidoc.TypeDecimal:
		return Float(0)
	case apidoc.TypeBoolean:
		return Bool(false)
	case apidoc.TypeObject:
		return Object()
	default:
		return String("")
	}
}

// Coerce converts an example string to the given primitive type. Objects are
// parsed as raw JSON.
func Coerce(typ, example string) (Value, error) {
	base, _ := apidoc.ParseType(typ)
	s := strings.TrimSpace(example)
	switch base {
	case apidoc.TypeInteger:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Default(base), err
		}
		return Int(n), nil
	case apidoc.TypeDecimal:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Default(base), err
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return Default(base), errNotFinite
		}
		return Float(f), nil
	case apidoc.TypeBoolean:
		b, err := strconv.ParseBool(strings.ToLower(s))
		if err != nil {
			return Default(base), err
		}
		return Bool(b), nil
	case apidoc.TypeObject:
		v, err := ParseJSON(s)
		if err != nil {
			return Default(base), err
		}
		return v, nil
	default:
		return String(example), nil
	}
}

// Synthesize builds an example object for the named model. Nested models
// are expanded, examples are coerced to their declared types and everything
// else gets its type default. Array attributes hold a single element.
//
// The returned Value is always usable. Problems found on the way (coercion
// failures, unknown models, cycles) are joined into the error; a cycle is cut
// with an empty object at the point where it closes.
func Synthesize(name string, models Models) (Value, error) {
	s := &synthesizer{models: models}
	v := s.model(name)
	return v, errors.Join(s.errs...)
}

type synthesizer struct {
	models Models
	stack  []string
	errs   []error
}

func (s *synthesizer) model(name string) Value {
	if slices.Contains(s.stack, name) {
		chain := append(slices.Clone(s.stack), name)
		s.errs = append(s.errs, &CycleError{Chain: chain})
		return Object()
	}
	m, ok := s.models.Get(name)
	if !ok {
		s.errs = append(s.errs, fmt.Errorf("%w %q", ErrUnknownModel, name))
		return Object()
	}

	s.stack = append(s.stack, name)
	defer func() { s.stack = s.stack[:len(s.stack)-1] }()

	obj := Object()
	for attr, a := range m.Attributes.All() {
		obj.Set(attr, s.attribute(name, attr, a))
	}
	return obj
}

func (s *synthesizer) attribute(model, name string, a *apidoc.Attribute) Value {
	base, isArray := apidoc.ParseType(a.Type)
	isArray = isArray || a.IsArray

	var v Value
	switch {
	case s.models.Has(base):
		v = s.model(base)
	case !apidoc.IsPrimitive(base):
		s.errs = append(s.errs, fmt.Errorf("%s.%s: %w %q", model, name, ErrUnknownModel, base))
		v = Object()
	case a.Example != "":
		var err error
		v, err = Coerce(base, a.Example)
		if err != nil {
			s.errs = append(s.errs, &CoercionError{Model: model, Attribute: name, Type: base, Example: a.Example, Err: err})
		}
	default:
		v = Default(base)
	}

	if isArray {
		return Array(v)
	}
	return v
}
