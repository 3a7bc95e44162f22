package slp

import "github.com/dekarrin/rezi"

// Codec converts alphabet values to and from bytes. A Grammar uses its Codec
// both to build the canonical key of a rule and to encode terminals when the
// Grammar is marshaled.
//
// EncodeValue must be deterministic and self-delimiting: DecodeValue must be
// able to read back exactly the bytes that EncodeValue wrote when they are
// followed by other data, and must return the number of bytes it consumed.
type Codec[V comparable] interface {
	EncodeValue(v V) []byte
	DecodeValue(data []byte) (V, int, error)
}

// StringCodec is a Codec for string alphabets.
type StringCodec struct{}

func (StringCodec) EncodeValue(v string) []byte {
	return rezi.EncString(v)
}

func (StringCodec) DecodeValue(data []byte) (string, int, error) {
	return rezi.DecString(data)
}

// IntCodec is a Codec for int alphabets.
type IntCodec struct{}

func (IntCodec) EncodeValue(v int) []byte {
	return rezi.EncInt(v)
}

func (IntCodec) DecodeValue(data []byte) (int, int, error) {
	return rezi.DecInt(data)
}

// RuneCodec is a Codec for rune alphabets, such as a grammar built over the
// characters of a string.
type RuneCodec struct{}

func (RuneCodec) EncodeValue(v rune) []byte {
	return rezi.EncInt(int(v))
}

func (RuneCodec) DecodeValue(data []byte) (rune, int, error) {
	v, n, err := rezi.DecInt(data)
	if err != nil {
		return 0, 0, err
	}
	return rune(v), n, nil
}
