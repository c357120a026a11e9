// Package export renders decoded packet trees as structured documents.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/danmuck/bits/internal/bits"
	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// Node is the document shape of one packet.
type Node struct {
	Version  uint8   `json:"version" yaml:"version" cbor:"version"`
	Type     string  `json:"type" yaml:"type" cbor:"type"`
	TypeID   uint8   `json:"type_id" yaml:"type_id" cbor:"type_id"`
	Value    *uint64 `json:"value,omitempty" yaml:"value,omitempty" cbor:"value,omitempty"`
	Bits     string  `json:"bits,omitempty" yaml:"bits,omitempty" cbor:"bits,omitempty"`
	Mode     string  `json:"length_mode,omitempty" yaml:"length_mode,omitempty" cbor:"length_mode,omitempty"`
	Children []Node  `json:"children,omitempty" yaml:"children,omitempty" cbor:"children,omitempty"`
}

// Document is a full export: the tree plus both derived values.
type Document struct {
	VersionTotal uint64  `json:"version_total" yaml:"version_total" cbor:"version_total"`
	Value        *uint64 `json:"value,omitempty" yaml:"value,omitempty" cbor:"value,omitempty"`
	Error        string  `json:"error,omitempty" yaml:"error,omitempty" cbor:"error,omitempty"`
	Root         Node    `json:"root" yaml:"root" cbor:"root"`
}

// Tree converts p into its document form. Literals wider than 64 bits keep
// their raw bits and have no Value.
func Tree(p *bits.Packet) (Node, error) {
	if p == nil {
		return Node{}, fmt.Errorf("export: nil packet")
	}
	n := Node{
		Version: p.Version,
		Type:    p.Type.String(),
		TypeID:  uint8(p.Type),
	}
	switch c := p.Contents.(type) {
	case *bits.Literal:
		n.Bits = c.Bits().String()
		if v, err := c.Value(); err == nil {
			n.Value = &v
		}
	case *bits.Operator:
		n.Mode = c.Mode.String()
		n.Children = make([]Node, 0, len(c.Children))
		for _, child := range c.Children {
			cn, err := Tree(child)
			if err != nil {
				return Node{}, err
			}
			n.Children = append(n.Children, cn)
		}
	default:
		return Node{}, fmt.Errorf("export: %s packet has no contents", p.Type)
	}
	return n, nil
}

// NewDocument builds the export of p. An evaluation failure is recorded in
// Error rather than returned, so malformed expressions can still be dumped.
func NewDocument(p *bits.Packet) (Document, error) {
	root, err := Tree(p)
	if err != nil {
		return Document{}, err
	}
	doc := Document{VersionTotal: bits.VersionTotal(p), Root: root}
	if v, err := bits.Evaluate(p); err != nil {
		doc.Error = err.Error()
	} else {
		doc.Value = &v
	}
	return doc, nil
}

func JSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func YAML(w io.Writer, doc Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("export: CBOR encoder initialization failed: " + err.Error())
	}
}

// CBOR encodes doc with core deterministic encoding.
func CBOR(doc Document) ([]byte, error) {
	return encMode.Marshal(doc)
}
