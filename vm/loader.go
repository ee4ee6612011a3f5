package vm

import "fmt"

// FileLoader resolves the module named by a load statement. currentFile is
// the file containing the statement, for relative resolution.
type FileLoader interface {
	Load(path, currentFile string) (*FrozenModule, error)
}

// MapLoader serves already-frozen modules by path.
type MapLoader map[string]*FrozenModule

// Load implements FileLoader.
func (m MapLoader) Load(path, currentFile string) (*FrozenModule, error) {
	fm, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("module `%s` not found (loaded from %s)", path, currentFile)
	}
	return fm, nil
}
