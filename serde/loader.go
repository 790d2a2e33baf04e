package serde

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/pipekit/errors"
)

// LoadFile reads a pipeline definition from path and revives it through reg.
// Files ending in .yaml or .yml are converted to canonical JSON first; any
// other extension is read as JSON.
func LoadFile(path string, reg *Registry) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("serde: reading %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("serde: parsing %s: %w", path, err)
		}
	}
	return Deserialize(data, reg)
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// Loader resolves pipeline definitions by name.
type Loader interface {
	Load(name string) (any, error)
}

// FileLoader searches directories for {name}.json, {name}.yaml and {name}.yml.
type FileLoader struct {
	dirs []string
	reg  *Registry
}

// NewFileLoader creates a loader over dirs.
func NewFileLoader(reg *Registry, dirs ...string) *FileLoader {
	return &FileLoader{dirs: dirs, reg: reg}
}

// Load revives the first definition named name. A definition that exists but
// fails to revive is reported instead of falling through to the next match.
// Names are plain file stems: anything that is not a local path or that
// contains a separator is reported as not found.
func (l *FileLoader) Load(name string) (any, error) {
	if !validName(name) {
		return nil, errors.PipelineNotFound(name)
	}
	for _, dir := range l.dirs {
		for _, ext := range []string{".json", ".yaml", ".yml"} {
			path := filepath.Join(dir, name+ext)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			return LoadFile(path, l.reg)
		}
	}
	return nil, errors.PipelineNotFound(name)
}

func validName(name string) bool {
	return filepath.IsLocal(name) && !strings.ContainsAny(name, `/\`) && name != "."
}
