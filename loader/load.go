package loader

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Batch is a loaded batch file.
type Batch struct {
	Path        string
	Format      Format
	Expressions []string
}

// document is the object form shared by YAML and JSON batch files.
type document struct {
	Expressions []string `json:"expressions" yaml:"expressions"`
}

// ParseError reports a batch file whose content could not be parsed.
type ParseError struct {
	Path   string
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parsing %s: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("parsing %s file %s: %v", e.Format, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// LoadBatch reads path and parses it according to its extension. A missing
// file is reported with an error wrapping fs.ErrNotExist; unparseable
// content with a *ParseError.
func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path from caller
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}

	format := DetectFormat(path)
	exprs, err := ParseExpressions(data, format)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Path = path
		}
		return nil, err
	}
	return &Batch{Path: path, Format: format, Expressions: exprs}, nil
}

// ParseExpressions extracts expressions from data.
//
//   - YAML: a list, or a mapping with an "expressions" list.
//   - JSON: an array of strings, or {"expressions": [...]}.
//   - Text: one expression per non-blank line; lines starting with # are skipped.
func ParseExpressions(data []byte, format Format) ([]string, error) {
	var (
		exprs []string
		err   error
	)
	switch format {
	case FormatYAML:
		exprs, err = parseYAML(data)
	case FormatJSON:
		exprs, err = parseJSON(data)
	case FormatText:
		exprs, err = parseText(data)
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return nil, &ParseError{Format: format, Err: err}
	}
	return exprs, nil
}

func parseYAML(data []byte) ([]string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, nil
	}

	node := root.Content[0]
	switch node.Kind {
	case yaml.SequenceNode:
		var exprs []string
		if err := node.Decode(&exprs); err != nil {
			return nil, err
		}
		return exprs, nil
	case yaml.MappingNode:
		var doc document
		if err := node.Decode(&doc); err != nil {
			return nil, err
		}
		if doc.Expressions == nil {
			return nil, errors.New(`missing "expressions" list`)
		}
		return doc.Expressions, nil
	default:
		return nil, errors.New(`expected a list or an "expressions" mapping`)
	}
}

func parseJSON(data []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty document")
	}

	if trimmed[0] == '[' {
		var exprs []string
		if err := json.Unmarshal(trimmed, &exprs); err != nil {
			return nil, err
		}
		return exprs, nil
	}

	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, err
	}
	if doc.Expressions == nil {
		return nil, errors.New(`missing "expressions" array`)
	}
	return doc.Expressions, nil
}

func parseText(data []byte) ([]string, error) {
	var exprs []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		exprs = append(exprs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return exprs, nil
}
