package main

import (
	"encoding/json"
	"io"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Exit codes shared by the commands
const (
	exitOK          = 0
	exitFailure     = 1
	exitParseFailed = 2
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var outputFormats = []string{formatText, formatJSON, formatYAML}

func validateFormat(format string) error {
	if !slices.Contains(outputFormats, format) {
		return errors.Errorf("invalid format %q, must be one of: %s", format, strings.Join(outputFormats, ", "))
	}
	return nil
}

// writeStructured encodes v as indented JSON or YAML
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(v), "failed to encode JSON")
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "failed to encode YAML")
		}
		return errors.Wrap(enc.Close(), "failed to encode YAML")
	default:
		return errors.Errorf("format %q is not structured", format)
	}
}
