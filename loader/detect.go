// Package loader reads batch files of expressions. YAML, JSON and plain text
// files are supported; the format is chosen from the file extension.
package loader

import (
	"path/filepath"
	"strings"
)

// Format identifies how a batch file is parsed.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// DetectFormat picks the parse format from the file extension:
// .yaml/.yml is YAML, .json is JSON and anything else is plain text.
func DetectFormat(path string) Format {
	switch {
	case isYAML(path):
		return FormatYAML
	case isJSON(path):
		return FormatJSON
	default:
		return FormatText
	}
}

// isYAML returns true if the file path has a YAML extension.
func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func isJSON(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".json"
}
