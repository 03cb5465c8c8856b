// Package manifest provides the loader for the cocoon.yaml project manifest
// and the resolution lockfile written next to it.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.cocoon.sh/cocoon/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ManifestLoader using a YAML file.
type Loader struct{}

// NewLoader creates a new manifest Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// manifestFile represents the structure of the cocoon.yaml manifest file.
type manifestFile struct {
	Version     string         `yaml:"version"`
	Interpreter string         `yaml:"interpreter"`
	Packages    []packageEntry `yaml:"packages"`
}

// packageEntry accepts either a bare package name or a single-pair mapping
// of name to version constraint:
//
//	packages:
//	  - ortools
//	  - numpy: "^1.26"
type packageEntry struct {
	name       string
	constraint string
	line       int
}

// UnmarshalYAML implements yaml.Unmarshaler for the two entry shapes.
func (e *packageEntry) UnmarshalYAML(node *yaml.Node) error {
	e.line = node.Line
	switch node.Kind {
	case yaml.ScalarNode:
		e.name = node.Value
		return nil
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			err := zerr.With(domain.ErrMalformedManifest, "line", node.Line)
			return zerr.With(err, "reason", "package entry must be a name or a single name-to-constraint pair")
		}
		e.name = node.Content[0].Value
		e.constraint = node.Content[1].Value
		return nil
	default:
		err := zerr.With(domain.ErrMalformedManifest, "line", node.Line)
		return zerr.With(err, "reason", "package entry must be a name or a single name-to-constraint pair")
	}
}

// Load reads the manifest at path and converts it into the domain model.
func (l *Loader) Load(path string) (*domain.Manifest, error) {
	f, err := os.Open(path) //nolint:gosec // path is provided by user
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(domain.ErrManifestNotFound, "path", path)
		}
		return nil, zerr.Wrap(err, domain.ErrManifestNotFound.Error())
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var mf manifestFile
	if err := dec.Decode(&mf); err != nil {
		parseErr := zerr.Wrap(err, domain.ErrMalformedManifest.Error())
		return nil, zerr.With(parseErr, "path", path)
	}

	return l.toDomain(&mf, path)
}

// toDomain validates the file structure and builds the domain manifest.
func (l *Loader) toDomain(mf *manifestFile, path string) (*domain.Manifest, error) {
	if strings.TrimSpace(mf.Interpreter) == "" {
		return nil, zerr.With(domain.ErrNoInterpreter, "path", path)
	}

	interpreter, err := parseInterpreter(mf.Interpreter)
	if err != nil {
		return nil, err
	}

	m := &domain.Manifest{
		Version:     mf.Version,
		Interpreter: interpreter,
	}

	seen := make(map[string]struct{}, len(mf.Packages))
	for _, entry := range mf.Packages {
		if strings.TrimSpace(entry.name) == "" {
			err := zerr.With(domain.ErrMalformedManifest, "line", entry.line)
			return nil, zerr.With(err, "reason", "package entry has an empty name")
		}
		if _, dup := seen[entry.name]; dup {
			err := zerr.With(domain.ErrMalformedManifest, "line", entry.line)
			return nil, zerr.With(err, "reason", fmt.Sprintf("package %q declared twice", entry.name))
		}
		seen[entry.name] = struct{}{}

		req, err := domain.NewPackageRequest(entry.name, entry.constraint)
		if err != nil {
			return nil, zerr.With(err, "line", entry.line)
		}
		m.Packages = append(m.Packages, req)
	}

	return m, nil
}

// parseInterpreter accepts "name" or "name@range" interpreter declarations.
func parseInterpreter(raw string) (domain.PackageRequest, error) {
	name, constraint, _ := strings.Cut(raw, "@")
	req, err := domain.NewPackageRequest(strings.TrimSpace(name), strings.TrimSpace(constraint))
	if err != nil {
		return domain.PackageRequest{}, zerr.With(err, "interpreter", raw)
	}
	return req, nil
}

// Digest returns the xxhash64 content digest of the manifest file.
func (l *Loader) Digest(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", zerr.With(domain.ErrManifestNotFound, "path", path)
		}
		return "", zerr.Wrap(err, domain.ErrManifestNotFound.Error())
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data)), nil
}
