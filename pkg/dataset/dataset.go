// Package dataset loads directory sync payloads from JSON or YAML files.
package dataset

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/hashicorp-forge/dirsync/pkg/directory"
)

//go:embed sample.yaml
var sampleYAML []byte

// Format of a payload file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported data file extension %q (want .json, .yaml or .yml)", filepath.Ext(path))
	}
}

// Load reads a payload of the form {departments: [...], users: [...]}.
// Unknown fields are rejected so typos in field names surface early.
func Load(fs afero.Fs, path string) (directory.SyncData, error) {
	format, err := FormatFor(path)
	if err != nil {
		return directory.SyncData{}, err
	}

	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return directory.SyncData{}, fmt.Errorf("error reading data file: %w", err)
	}

	data, err := Decode(b, format)
	if err != nil {
		return directory.SyncData{}, fmt.Errorf("error decoding %s: %w", path, err)
	}
	return data, nil
}

// Decode parses a payload in the given format.
func Decode(b []byte, format Format) (directory.SyncData, error) {
	var data directory.SyncData

	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&data); err != nil {
			return directory.SyncData{}, err
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&data); err != nil {
			return directory.SyncData{}, err
		}
	default:
		return directory.SyncData{}, fmt.Errorf("unknown format %q", format)
	}

	return data, nil
}

// Sample returns the Acme Corporation sample organisation: eight departments
// three levels deep and five users.
func Sample() directory.SyncData {
	data, err := Decode(sampleYAML, FormatYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded sample data is invalid: %v", err))
	}
	return data
}
