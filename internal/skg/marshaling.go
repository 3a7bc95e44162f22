package skg

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dekarrin/skein/slp"
)

// manifStack is for two reasons ->
// * detect circular deps (not an error, but we need to know to avoid them)
// * avoid infinite recursion (allow up to MaxManifestRecursionDepth levels)
//
// Returns ErrManifestEmpty if and only if the first manifest in the stack is
// empty, otherwise it is not an error.
func recursiveUnmarshalResource(path string, manifStack []string) (data topLevelData, err error) {
	path = filepath.Clean(path)

	fileData, loadErr := os.ReadFile(path)
	if loadErr != nil {
		return topLevelData{}, fmt.Errorf("%q: reading from disk: %w", path, loadErr)
	}

	fileInfo, err := ScanFileInfo(fileData)
	if err != nil {
		return topLevelData{}, fmt.Errorf("%q: detecting file type: %w", path, err)
	}

	if strings.ToUpper(fileInfo.Format) != "SKEIN" {
		return topLevelData{}, fmt.Errorf("%q: file does not have a 'format = \"SKEIN\"' entry", path)
	}

	fileType := strings.ToUpper(fileInfo.Type)
	switch fileType {
	case "DATA":
		unmarshaled, err := unmarshalData(fileData)
		if err != nil {
			return unmarshaled, fmt.Errorf("grammar data file %q: %w", path, err)
		}
		return unmarshaled, nil
	case "MANIFEST":
		// check the stack to be sure we havent recursed too far and to be sure
		// we aren't about to re-scan a circular-ref'd manifest file we've
		// already brought in.
		if len(manifStack) >= MaxManifestRecursionDepth {
			return topLevelData{}, fmt.Errorf("manifest file %q: %w", path, ErrManifestStackOverflow)
		}
		for i := range manifStack {
			if manifStack[i] == path {
				return topLevelData{}, fmt.Errorf("manifest file %q: %w", path, ErrManifestCircularRef)
			}
		}

		unmarshaledManif, err := unmarshalManifest(fileData)
		if err != nil {
			return topLevelData{}, fmt.Errorf("manifest file %q: %w", path, err)
		}
		manif, err := parseManifest(unmarshaledManif)
		if err != nil {
			return topLevelData{}, fmt.Errorf("manifest file %q: %w", path, err)
		}

		// the len of manifStack is included in the check because an empty
		// manifest error is really only a problem for the very first manifest.
		if len(manif.Files) < 1 && len(manifStack) == 0 {
			return topLevelData{}, fmt.Errorf("manifest file %q: %w", path, ErrManifestEmpty)
		}

		unmarshaled := topLevelData{}

		// copy the manif stack into a new value and add self to it for recursive calls
		manifSubStack := make([]string, len(manifStack)+1)
		copy(manifSubStack, manifStack)
		manifSubStack[len(manifSubStack)-1] = path

		manifDir := filepath.Dir(path)

		processedFiles := 0

		for _, manifRelPath := range manif.Files {
			includedFilePath := filepath.Join(manifDir, manifRelPath)

			unmarshaledFileData, err := recursiveUnmarshalResource(includedFilePath, manifSubStack)
			if err != nil {
				// if it's a circular reference, that's actually okay. we will
				// just skip reading it and move on to the next entry.
				if errors.Is(err, ErrManifestCircularRef) {
					continue
				}

				return topLevelData{}, fmt.Errorf("in file referred to by manifest file:\n    %q\n%w", path, err)
			}

			// order matters; rules may only refer to rules included before
			// them.
			unmarshaled.Rules = append(unmarshaled.Rules, unmarshaledFileData.Rules...)
			unmarshaled.Roots = append(unmarshaled.Roots, unmarshaledFileData.Roots...)
			processedFiles++
		}

		if len(manifStack) == 0 && processedFiles == 0 {
			// then we are in a case of the first file is a manifest file, and
			// gave NO valid definitions. This is an error, fail immediately
			return unmarshaled, fmt.Errorf("manifest file %q: %w", path, ErrManifestEmpty)
		}
		return unmarshaled, nil

	default:
		return topLevelData{}, fmt.Errorf("%q: file does not have 'type = ' entry set to either \"DATA\" or \"MANIFEST\"", path)
	}
}

// unmarshalData unmarshals grammar data from the given bytes. It does not
// parse or check the rules.
func unmarshalData(tomlData []byte) (topLevelData, error) {
	var skg topLevelData
	if tomlErr := toml.Unmarshal(tomlData, &skg); tomlErr != nil {
		return skg, tomlErr
	}

	if strings.ToUpper(skg.Format) != "SKEIN" {
		return skg, fmt.Errorf("in header: 'format' key must exist and be set to 'SKEIN'")
	}
	if strings.ToUpper(skg.Type) != "DATA" {
		return skg, fmt.Errorf("in header: 'type' must exist and be set to 'DATA'")
	}

	return skg, nil
}

// unmarshalManifest unmarshals an SKG manifest from the given bytes.
func unmarshalManifest(tomlData []byte) (topLevelManifest, error) {
	var skg topLevelManifest
	if tomlErr := toml.Unmarshal(tomlData, &skg); tomlErr != nil {
		return skg, tomlErr
	}

	if strings.ToUpper(skg.Format) != "SKEIN" {
		return skg, fmt.Errorf("in header: 'format' key must exist and be set to 'SKEIN'")
	}
	if strings.ToUpper(skg.Type) != "MANIFEST" {
		return skg, fmt.Errorf("in header: 'type' must exist and be set to 'MANIFEST'")
	}

	return skg, nil
}

// Marshal writes the Definition as a single SKG data file. Every rule is
// written out as symbols in ID order, so the output can always be read back.
// Rules with no label are given generated ones; rules with more than one label
// get one alias entry per extra label.
func Marshal(def Definition) ([]byte, error) {
	g := def.Grammar
	top := topLevelData{
		Format: "SKEIN",
		Type:   "DATA",
	}

	primary := make(map[slp.RuleID]string, g.Len())
	for id := slp.RuleID(0); int(id) < g.Len(); id++ {
		labels := def.LabelsOf(id)
		var label string
		if len(labels) > 0 {
			label = labels[0]
		} else {
			label = generatedLabel(def, id)
		}
		primary[id] = label

		syms, err := g.Rule(id)
		if err != nil {
			return nil, err
		}
		rd := ruleDef{Label: label, Symbols: make([]string, len(syms))}
		for i, s := range syms {
			if s.IsTerminal() {
				rd.Symbols[i] = "'" + s.Value()
			} else {
				rd.Symbols[i] = primary[s.Rule()]
			}
		}
		top.Rules = append(top.Rules, rd)

		for _, alias := range labels[min(1, len(labels)):] {
			top.Rules = append(top.Rules, ruleDef{Label: alias, Concat: []string{label}})
		}
	}

	for _, r := range g.Roots() {
		top.Roots = append(top.Roots, rootDef{Name: r.Name, Rule: primary[r.Rule]})
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(top); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func generatedLabel(def Definition, id slp.RuleID) string {
	label := fmt.Sprintf("r.%d", int(id))
	for {
		owner, taken := def.Labels[label]
		if !taken || owner == id {
			return label
		}
		label += "_"
	}
}
