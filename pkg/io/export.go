package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	errs "github.com/matzehuels/flowmaker/pkg/errors"
)

// Write encodes a document in the given format and writes it to w.
// Output read back with [Read] builds the same flow.
func Write(d *Document, w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(d); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return errs.New(errs.ErrCodeUnsupported, "unsupported document format %q", format)
	}
	return nil
}

// WriteJSON encodes d as indented JSON.
func WriteJSON(d *Document, w io.Writer) error { return Write(d, w, FormatJSON) }

// ExportFile writes d to path, picking the format from the extension.
func ExportFile(d *Document, path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(d, f, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
