package skg

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/dekarrin/rezi"
	"github.com/dekarrin/skein/slp"
	"github.com/ulikunitz/xz"
)

// binaryMagic starts every binary SKG file, before any compression is
// removed.
var binaryMagic = []byte("SKGB\x01")

// EncodeBinary encodes the Definition in the binary SKG format, compressing it
// with xz if compress is set.
func EncodeBinary(def Definition, compress bool) ([]byte, error) {
	data, err := MarshalBinary(def)
	if err != nil {
		return nil, err
	}

	if !compress {
		return data, nil
	}

	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("creating xz writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compressing: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compressing: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeBinary decodes a Definition in the binary SKG format, first removing
// xz compression if compressed is set.
func DecodeBinary(data []byte, compressed bool) (Definition, error) {
	if compressed {
		r, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return Definition{}, fmt.Errorf("reading xz header: %w", err)
		}
		data, err = io.ReadAll(r)
		if err != nil {
			return Definition{}, fmt.Errorf("decompressing: %w", err)
		}
	}
	return UnmarshalBinary(data)
}

// LoadBinaryFile loads a Definition from a binary SKG file.
func LoadBinaryFile(path string, compressed bool) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("%q: reading from disk: %w", path, err)
	}

	def, err := DecodeBinary(data, compressed)
	if err != nil {
		return Definition{}, fmt.Errorf("%q: %w", path, err)
	}
	return def, nil
}

// MarshalBinary encodes the Definition without compression. The encoding is
// the encoded grammar followed by the labels in sorted order, each with the ID
// of the rule it names.
func MarshalBinary(def Definition) ([]byte, error) {
	var data []byte
	data = append(data, binaryMagic...)
	data = append(data, rezi.EncBinary(def.Grammar)...)

	labels := def.SortedLabels()
	data = append(data, rezi.EncInt(len(labels))...)
	for _, l := range labels {
		data = append(data, rezi.EncString(l)...)
		data = append(data, rezi.EncInt(int(def.Labels[l]))...)
	}
	return data, nil
}

// UnmarshalBinary decodes a Definition encoded with MarshalBinary.
func UnmarshalBinary(data []byte) (Definition, error) {
	if !bytes.HasPrefix(data, binaryMagic) {
		return Definition{}, fmt.Errorf("%w: not a binary SKG file", slp.ErrMalformedGrammar)
	}
	data = data[len(binaryMagic):]

	def := NewDefinition()

	gl := &grammarLoader{g: def.Grammar}
	n, err := rezi.DecBinary(data, gl)
	if err != nil {
		return Definition{}, fmt.Errorf("grammar: %w", err)
	}
	data = data[n:]

	count, n, err := rezi.DecInt(data)
	if err != nil {
		return Definition{}, fmt.Errorf("%w: label count: %v", slp.ErrMalformedGrammar, err)
	}
	data = data[n:]

	ruleCount := len(gl.ids)
	for i := 0; i < count; i++ {
		label, n, err := rezi.DecString(data)
		if err != nil {
			return Definition{}, fmt.Errorf("%w: label %d: %v", slp.ErrMalformedGrammar, i, err)
		}
		data = data[n:]

		id, n, err := rezi.DecInt(data)
		if err != nil {
			return Definition{}, fmt.Errorf("%w: label %q: %v", slp.ErrMalformedGrammar, label, err)
		}
		data = data[n:]

		norm, err := NormalizeLabel(label)
		if err != nil {
			return Definition{}, fmt.Errorf("%w: %v", slp.ErrMalformedGrammar, err)
		}
		// label IDs are as written; duplicate rules may have been merged on load
		if id < 0 || id >= ruleCount {
			return Definition{}, fmt.Errorf("%w: label %q refers to rule #%d", slp.ErrMalformedGrammar, label, id)
		}
		def.Labels[norm] = gl.ids[id]
	}

	return def, nil
}

// grammarLoader keeps the ID mapping from loading a grammar through rezi.
type grammarLoader struct {
	g   *slp.Grammar[string]
	ids []slp.RuleID
}

func (gl *grammarLoader) UnmarshalBinary(data []byte) error {
	ids, err := gl.g.Load(data)
	if err != nil {
		return err
	}
	gl.ids = ids
	return nil
}
