// Package skg has functions for loading and saving grammars in the SKG (Skein
// Grammar) file formats. The text format is TOML-based and is meant to be
// written by hand; it defines labeled rules and named roots, and can be split
// across several files tied together by a manifest. The binary formats hold an
// encoded grammar with its labels, optionally xz-compressed.
package skg

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/BurntSushi/toml"
	"github.com/dekarrin/skein/slp"
)

const MaxManifestRecursionDepth = 32

const (
	// ExtText is the file extension of the TOML-based text format.
	ExtText = ".skg"

	// ExtBinary is the file extension of the binary format.
	ExtBinary = ".skgb"

	// ExtBinaryXZ is the file extension of the xz-compressed binary format.
	ExtBinaryXZ = ".skgb.xz"
)

var (
	// ErrManifestEmpty is the error returned when a manifest file is read
	// successfully but specifies no additional files to load.
	ErrManifestEmpty = errors.New("does not list any valid files to include")

	// ErrManifestStackOverflow is the error returned when the recusion level of
	// MaxManifestRecursionDepth is reached and an additional Manifest is then
	// specified, which would cause recursion to go deeper.
	ErrManifestStackOverflow = errors.New("too many manifests deep")

	// ErrManifestCircularRef is the error returned when a manifest specifies any
	// series of files that with their own manifests refer back to the original
	// manifest, and therefore cannot be followed.
	ErrManifestCircularRef = errors.New("manifest inclusion chain refers back to itself")
)

// Manifest contains data loaded from one or more SKG Manifest files.
type Manifest struct {
	Files []string
}

// Definition is a grammar along with the labels its rules are known by.
type Definition struct {
	// Grammar holds every rule and root that was defined.
	Grammar *slp.Grammar[string]

	// Labels maps each (case-folded) label to the rule it names. More than
	// one label may name the same rule.
	Labels map[string]slp.RuleID
}

// NewDefinition returns an empty Definition ready for use.
func NewDefinition() Definition {
	return Definition{
		Grammar: slp.New[string](slp.StringCodec{}),
		Labels:  make(map[string]slp.RuleID),
	}
}

// LabelsOf returns all labels that name the given rule, sorted.
func (def Definition) LabelsOf(id slp.RuleID) []string {
	var labels []string
	for l, lid := range def.Labels {
		if lid == id {
			labels = append(labels, l)
		}
	}
	sort.Strings(labels)
	return labels
}

// SortedLabels returns all labels of the Definition, sorted.
func (def Definition) SortedLabels() []string {
	labels := make([]string, 0, len(def.Labels))
	for l := range def.Labels {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// FileInfo contains the essential information all SKG text files must
// contain. It can be obtained from a file by reading it into memory and calling
// ScanFileInfo on the bytes.
type FileInfo struct {
	Format string `toml:"format"`
	Type   string `toml:"type"`
}

// LoadFile loads a Definition from the file at path. The format is chosen by
// extension: files ending in ExtBinary or ExtBinaryXZ are read as binary, and
// anything else is read as an SKG text file with LoadResourceBundle.
func LoadFile(path string) (Definition, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ExtBinaryXZ):
		return LoadBinaryFile(path, true)
	case strings.HasSuffix(lower, ExtBinary):
		return LoadBinaryFile(path, false)
	default:
		return LoadResourceBundle(path)
	}
}

// SaveFile saves the Definition to path, in the format chosen by extension the
// same way as LoadFile.
func SaveFile(path string, def Definition) error {
	var data []byte
	var err error

	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ExtBinaryXZ):
		data, err = EncodeBinary(def, true)
	case strings.HasSuffix(lower, ExtBinary):
		data, err = EncodeBinary(def, false)
	default:
		data, err = Marshal(def)
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%q: writing to disk: %w", path, err)
	}
	return nil
}

// LoadResourceBundle loads a grammar from the given SKG file. The file's type
// is auto-detected and decoding is handled appropriately; the type can either
// be "DATA" type or "MANIFEST" type; if it's manifest type, the files listed in
// it relative to it will also be loaded. All rules from all included files are
// combined in inclusion order before being checked, so a rule can refer to any
// rule defined in an earlier file.
func LoadResourceBundle(path string) (Definition, error) {
	unmarshaled, err := recursiveUnmarshalResource(path, nil)
	if err != nil {
		return Definition{}, err
	}

	return parseData(unmarshaled)
}

// LoadManifestFile loads manifest data from an SKG file.
func LoadManifestFile(path string) (manif Manifest, err error) {
	manifestData, loadErr := os.ReadFile(path)
	if loadErr != nil {
		return manif, loadErr
	}

	unmarshaled, err := unmarshalManifest(manifestData)
	if err != nil {
		return manif, err
	}
	return parseManifest(unmarshaled)
}

// LoadDataFile loads a grammar from a single SKG data file.
func LoadDataFile(path string) (Definition, error) {
	data, loadErr := os.ReadFile(path)
	if loadErr != nil {
		return Definition{}, loadErr
	}

	return Parse(data)
}

// Parse reads a grammar from the bytes of a single SKG data file.
func Parse(data []byte) (Definition, error) {
	unmarshaled, err := unmarshalData(data)
	if err != nil {
		return Definition{}, err
	}

	return parseData(unmarshaled)
}

// ScanFileInfo takes the given data bytes of bytes and attempts to read the SKG
// format common header info from it. The bytes are read up to the first
// instance of a table definition header and those bytes are parsed for the
// info. If there is an error reading the info, returns a non-nil error.
func ScanFileInfo(data []byte) (FileInfo, error) {
	// only run the toml parser up to the end of the top-lev table
	var topLevelEnd int = -1
	var onNewLine bool = true
	for b := range data {
		if onNewLine {
			if data[b] == '[' {
				topLevelEnd = b
				break
			}
		}

		if data[b] == '\n' {
			onNewLine = true
		} else if !unicode.IsSpace(rune(data[b])) {
			onNewLine = false
		}
	}

	scanData := data
	if topLevelEnd != -1 {
		scanData = data[:topLevelEnd]
	}

	var info FileInfo
	err := toml.Unmarshal(scanData, &info)
	return info, err
}
