// Package projectio reads the repository's own small YAML dialect for
// demo models and test fixtures, producing a *datamodel.Project. It is
// explicitly not an XMILE or MDL reader: spec.md treats front-end
// parsing as an external collaborator, and this package exists only so
// cmd/sdsim has something to load a project from without a real
// system-dynamics interchange format.
//
// The loader's cache-by-path and search-path shape is adapted from the
// teacher's internal/module.ModuleLoader (.sn script lookup/caching),
// generalized from "find and compile a script" to "find and decode a
// YAML project"; there is no stdlib-module concept in this domain, so
// ModuleLoader's builtin-module table has no analog here.
package projectio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"sdsim/internal/datamodel"
)

// Loader caches decoded projects by the path they were loaded from and
// resolves bare project names against a search path, mirroring
// internal/module.ModuleLoader's cache+searchPath pair.
type Loader struct {
	mu         sync.RWMutex
	cache      map[string]*datamodel.Project
	searchPath []string
}

// NewLoader returns a Loader searching the current directory and
// ./projects by default.
func NewLoader() *Loader {
	return &Loader{
		cache:      make(map[string]*datamodel.Project),
		searchPath: []string{".", "./projects"},
	}
}

// AddSearchPath appends a directory to the search path.
func (l *Loader) AddSearchPath(dir string) {
	l.searchPath = append(l.searchPath, dir)
}

// Load resolves name (a direct path or a bare name to search for) and
// returns the decoded project, using a cached copy if this exact path
// was already loaded.
func (l *Loader) Load(name string) (*datamodel.Project, error) {
	path, err := l.resolve(name)
	if err != nil {
		return nil, err
	}

	l.mu.RLock()
	if cached, ok := l.cache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	project, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[path] = project
	l.mu.Unlock()
	return project, nil
}

func (l *Loader) resolve(name string) (string, error) {
	if fileExists(name) {
		return name, nil
	}
	for _, dir := range l.searchPath {
		candidate := filepath.Join(dir, name)
		if fileExists(candidate) {
			return candidate, nil
		}
		candidate = filepath.Join(dir, name+".yaml")
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("projectio: project not found: %s", name)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// LoadFile decodes a single YAML project file without going through a
// Loader's cache.
func LoadFile(path string) (*datamodel.Project, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("projectio: read %s: %w", path, err)
	}
	project, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("projectio: decode %s: %w", path, err)
	}
	return project, nil
}

// Decode parses the YAML dialect's bytes into a *datamodel.Project.
func Decode(raw []byte) (*datamodel.Project, error) {
	var doc yamlProject
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc.toDatamodel(), nil
}
