package apidoc

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/speakeasy-api/openapi/sequencedmap"
	"gopkg.in/yaml.v3"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Encode renders the document as indented JSON with a trailing newline.
// Key order follows insertion order.
func Encode(d *Document) ([]byte, error) {
	raw, err := codec.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("indent document: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Fingerprint hashes the encoded document; two documents with the same
// fingerprint produce the same artifacts.
func Fingerprint(d *Document) (string, error) {
	raw, err := codec.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Decode parses a persisted document. Decoding goes through a yaml.v3 node
// tree, which keeps mapping order, so every ordered collection comes back in
// file order. Unknown keys are ignored.
func Decode(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, errors.New("decode document: empty input")
	}
	d := New("", "")
	err := eachPair(root.Content[0], "", func(key string, v *yaml.Node) error {
		var err error
		switch key {
		case "name":
			d.Name, err = str(v, key)
		case "version":
			d.Version, err = str(v, key)
		case "info":
			d.Info, err = str(v, key)
		case "address":
			d.Address, err = str(v, key)
		case "headers":
			d.Headers, err = strMap(v, key)
		case "auth":
			err = decodeAuth(&d.Auth, v)
		case "models":
			err = eachPair(v, key, func(name string, mv *yaml.Node) error {
				m, err := decodeModel(mv, key+"."+name)
				if err != nil {
					return err
				}
				d.Models.Set(name, m)
				return nil
			})
		case "endpoints":
			err = decodeEndpoints(d, v)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return d, nil
}

func decodeAuth(a *Auth, n *yaml.Node) error {
	return eachPair(n, "auth", func(key string, v *yaml.Node) error {
		var err error
		switch key {
		case "type":
			a.Type, err = str(v, "auth.type")
		case "params":
			a.Params, err = strMap(v, "auth.params")
		}
		return err
	})
}

func decodeModel(n *yaml.Node, at string) (*Model, error) {
	m := NewModel("")
	err := eachPair(n, at, func(key string, v *yaml.Node) error {
		var err error
		switch key {
		case "info":
			m.Info, err = str(v, at+".info")
		case "attributes":
			err = eachPair(v, at+".attributes", func(name string, av *yaml.Node) error {
				a, err := decodeAttribute(av, at+".attributes."+name)
				if err != nil {
					return err
				}
				m.Attributes.Set(name, a)
				return nil
			})
		}
		return err
	})
	return m, err
}

func decodeAttribute(n *yaml.Node, at string) (*Attribute, error) {
	a := &Attribute{}
	err := eachPair(n, at, func(key string, v *yaml.Node) error {
		var err error
		switch key {
		case "type":
			a.Type, err = str(v, at+".type")
		case "required":
			a.Required, err = boolean(v, at+".required")
		case "is_array":
			a.IsArray, err = boolean(v, at+".is_array")
		case "values":
			a.Values, err = strList(v, at+".values")
		case "example":
			a.Example, err = str(v, at+".example")
		case "info":
			a.Info, err = str(v, at+".info")
		}
		return err
	})
	if base, isArray := ParseType(a.Type); isArray {
		a.Type, a.IsArray = base, true
	}
	return a, err
}

func decodeEndpoints(d *Document, n *yaml.Node) error {
	return eachPair(n, "endpoints", func(method string, uv *yaml.Node) error {
		m := Method(strings.ToUpper(method))
		uris := sequencedmap.New[string, *Endpoint]()
		err := eachPair(uv, "endpoints."+method, func(uri string, ev *yaml.Node) error {
			ep, err := decodeEndpoint(ev, endpointPath(m, uri))
			if err != nil {
				return err
			}
			uris.Set(uri, ep)
			return nil
		})
		if err != nil {
			return err
		}
		d.Endpoints.Set(m, uris)
		return nil
	})
}

func decodeEndpoint(n *yaml.Node, at string) (*Endpoint, error) {
	ep := NewEndpoint("")
	err := eachPair(n, at, func(key string, v *yaml.Node) error {
		var err error
		switch key {
		case "summary":
			ep.Summary, err = str(v, at+".summary")
		case "info":
			ep.Info, err = str(v, at+".info")
		case "params":
			err = eachPair(v, at+".params", func(name string, pv *yaml.Node) error {
				p, err := decodeParameter(pv, at+".params."+name)
				if err != nil {
					return err
				}
				return addParam(ep, at, name, p)
			})
		case "response":
			err = eachPair(v, at+".response", func(code string, rv *yaml.Node) error {
				r, err := decodeResponse(rv, at+".response."+code)
				if err != nil {
					return err
				}
				ep.Responses.Set(code, r)
				return nil
			})
		}
		return err
	})
	return ep, err
}

func decodeParameter(n *yaml.Node, at string) (*Parameter, error) {
	p := &Parameter{}
	err := eachPair(n, at, func(key string, v *yaml.Node) error {
		var err error
		switch key {
		case "type":
			p.Type, err = str(v, at+".type")
		case "source":
			p.Source, err = str(v, at+".source")
		case "required":
			p.Required, err = boolean(v, at+".required")
		case "is_array":
			p.IsArray, err = boolean(v, at+".is_array")
		case "content_type":
			p.ContentType, err = str(v, at+".content_type")
		case "values":
			p.Values, err = strList(v, at+".values")
		case "info":
			p.Info, err = str(v, at+".info")
		}
		return err
	})
	if base, isArray := ParseType(p.Type); isArray {
		p.Type, p.IsArray = base, true
	}
	return p, err
}

func decodeResponse(n *yaml.Node, at string) (*Response, error) {
	r := NewResponse("")
	err := eachPair(n, at, func(key string, v *yaml.Node) error {
		var err error
		switch key {
		case "summary":
			r.Summary, err = str(v, at+".summary")
		case "content_type":
			r.ContentType, err = str(v, at+".content_type")
		case "example":
			r.Example, err = str(v, at+".example")
		case "model":
			r.Model, err = str(v, at+".model")
		case "headers":
			r.Headers, err = strMap(v, at+".headers")
		case "info":
			r.Info, err = str(v, at+".info")
		}
		return err
	})
	return r, err
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

// eachPair walks a mapping node in order. A null node is an empty mapping.
func eachPair(n *yaml.Node, at string, fn func(key string, v *yaml.Node) error) error {
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("%s: expected object (line %d)", displayPath(at), n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if err := fn(n.Content[i].Value, n.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func displayPath(at string) string {
	if at == "" {
		return "document"
	}
	return at
}

func str(n *yaml.Node, at string) (string, error) {
	if isNull(n) {
		return "", nil
	}
	if n.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("%s: expected scalar (line %d)", at, n.Line)
	}
	return n.Value, nil
}

// boolean accepts JSON booleans and the 0/1 integers older files carry.
func boolean(n *yaml.Node, at string) (bool, error) {
	if isNull(n) {
		return false, nil
	}
	if n.Kind == yaml.ScalarNode {
		switch strings.ToLower(n.Value) {
		case "true", "1":
			return true, nil
		case "false", "0", "":
			return false, nil
		}
	}
	return false, fmt.Errorf("%s: expected boolean, got %q (line %d)", at, n.Value, n.Line)
}

func strList(n *yaml.Node, at string) ([]string, error) {
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%s: expected list (line %d)", at, n.Line)
	}
	out := make([]string, 0, len(n.Content))
	for _, item := range n.Content {
		s, err := str(item, at)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func strMap(n *yaml.Node, at string) (*sequencedmap.Map[string, string], error) {
	out := sequencedmap.New[string, string]()
	err := eachPair(n, at, func(key string, v *yaml.Node) error {
		s, err := str(v, at+"."+key)
		if err != nil {
			return err
		}
		out.Set(key, s)
		return nil
	})
	return out, err
}
