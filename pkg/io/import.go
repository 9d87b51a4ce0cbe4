package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	errs "github.com/matzehuels/flowmaker/pkg/errors"
)

// Format names a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", errs.New(errs.ErrCodeUnsupported, "cannot infer document format from %q", path)
}

// Read decodes a document in the given format from r.
// Read does not close r.
func Read(r io.Reader, format Format) (*Document, error) {
	var d Document
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&d); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode json")
		}
	case FormatTOML:
		md, err := toml.NewDecoder(r).Decode(&d)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode toml")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 && !onlyMeta(undecoded) {
			return nil, errs.New(errs.ErrCodeInvalidFormat, "decode toml: unknown key %s", undecoded[0])
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&d); err != nil && err != io.EOF {
			return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode yaml")
		}
	default:
		return nil, errs.New(errs.ErrCodeUnsupported, "unsupported document format %q", format)
	}
	return &d, nil
}

// onlyMeta reports whether every undecoded key sits below a meta table,
// which is free-form.
func onlyMeta(keys []toml.Key) bool {
	for _, k := range keys {
		if !containsMeta(k) {
			return false
		}
	}
	return true
}

func containsMeta(k toml.Key) bool {
	for _, part := range k {
		if part == "meta" {
			return true
		}
	}
	return false
}

// ReadJSON decodes a JSON document from r.
func ReadJSON(r io.Reader) (*Document, error) { return Read(r, FormatJSON) }

// ReadTOML decodes a TOML document from r.
func ReadTOML(r io.Reader) (*Document, error) { return Read(r, FormatTOML) }

// ReadYAML decodes a YAML document from r.
func ReadYAML(r io.Reader) (*Document, error) { return Read(r, FormatYAML) }

// ImportFile reads the document at path, picking the format from the
// extension.
func ImportFile(path string) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, format)
}
