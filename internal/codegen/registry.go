package codegen

import (
	"slices"
	"sync"

	"github.com/okapi-tools/okapi/internal/apidoc"
	"github.com/okapi-tools/okapi/internal/emitter"
	"github.com/okapi-tools/okapi/internal/emitter/clientemitter"
	"github.com/okapi-tools/okapi/internal/emitter/htmlemitter"
	"github.com/okapi-tools/okapi/internal/emitter/oasemitter"
	"github.com/okapi-tools/okapi/internal/emitter/serveremitter"
	"github.com/okapi-tools/okapi/internal/emitter/textemitter"
)

// Built-in target names.
const (
	TargetText    = "text"
	TargetHTML    = "html"
	TargetClient  = "client"
	TargetServer  = "server"
	TargetOpenAPI = "openapi"
)

// Factory builds an emitter for a document snapshot.
type Factory func(*apidoc.Document, emitter.Options) emitter.Emitter

// Target is a registered generator.
type Target struct {
	Suffix string // appended to the output base name
	New    Factory
}

var (
	mu      sync.RWMutex
	targets = map[string]Target{}
)

func init() {
	Register(TargetText, Target{Suffix: textemitter.Suffix, New: textemitter.New})
	Register(TargetHTML, Target{Suffix: htmlemitter.Suffix, New: htmlemitter.New})
	Register(TargetClient, Target{Suffix: clientemitter.Suffix, New: clientemitter.New})
	Register(TargetServer, Target{Suffix: serveremitter.Suffix, New: serveremitter.New})
	Register(TargetOpenAPI, Target{Suffix: oasemitter.Suffix, New: oasemitter.New})
}

// Register adds or replaces a target.
func Register(name string, t Target) {
	mu.Lock()
	defer mu.Unlock()
	targets[name] = t
}

// Lookup returns the named target.
func Lookup(name string) (Target, bool) {
	mu.RLock()
	defer mu.RUnlock()
	t, ok := targets[name]
	return t, ok
}

// Targets lists the registered target names, sorted.
func Targets() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
