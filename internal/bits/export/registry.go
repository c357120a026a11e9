package export

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Encoder renders a Document in one output format.
type Encoder interface {
	Name() string
	Aliases() []string
	Encode(w io.Writer, doc Document) error
}

var (
	mu       sync.RWMutex
	registry = map[string]Encoder{}
)

// Register makes e available by its name and aliases, matched without
// regard to case. Later registrations replace earlier ones under the same key.
func Register(e Encoder) {
	mu.Lock()
	defer mu.Unlock()
	registry[formatKey(e.Name())] = e
	for _, alias := range e.Aliases() {
		registry[formatKey(alias)] = e
	}
}

func Get(name string) (Encoder, bool) {
	mu.RLock()
	defer mu.RUnlock()
	e, ok := registry[formatKey(name)]
	return e, ok
}

func formatKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Names lists the registered primary format names in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for key, e := range registry {
		if key == formatKey(e.Name()) {
			names = append(names, key)
		}
	}
	sort.Strings(names)
	return names
}

// Write renders doc in the named format.
func Write(w io.Writer, format string, doc Document) error {
	e, ok := Get(format)
	if !ok {
		return fmt.Errorf("export: unknown format %q (have %s)", format, strings.Join(Names(), ", "))
	}
	return e.Encode(w, doc)
}

type encoderFunc struct {
	name    string
	aliases []string
	fn      func(io.Writer, Document) error
}

func (e encoderFunc) Name() string                           { return e.name }
func (e encoderFunc) Aliases() []string                      { return e.aliases }
func (e encoderFunc) Encode(w io.Writer, doc Document) error { return e.fn(w, doc) }

func writeCBOR(w io.Writer, doc Document) error {
	b, err := CBOR(doc)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func init() {
	Register(encoderFunc{name: "json", fn: JSON})
	Register(encoderFunc{name: "yaml", aliases: []string{"yml"}, fn: YAML})
	Register(encoderFunc{name: "cbor", fn: writeCBOR})
}
