package schema

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

//go:embed schemas/*.json
var embedded embed.FS

// ErrSchemaNotFound is returned when no file backs a schema name.
var ErrSchemaNotFound = errors.New("schema not found")

const fileExt = ".json"

// Schema is one JSON Schema document and the name it was loaded under.
type Schema struct {
	Name string
	Data []byte
}

// Loader resolves schema names against a filesystem.
type Loader struct {
	fsys   fs.FS
	origin string
}

// NewLoader returns a Loader reading from fsys. origin is only used in
// error messages.
func NewLoader(fsys fs.FS, origin string) *Loader {
	return &Loader{fsys: fsys, origin: origin}
}

// DefaultLoader reads the schemas compiled into the binary.
func DefaultLoader() *Loader {
	sub, err := fs.Sub(embedded, "schemas")
	if err != nil {
		panic(fmt.Sprintf("schema: embedded schemas missing: %v", err))
	}
	return NewLoader(sub, "embedded")
}

// DirLoader reads schemas from a directory on disk.
func DirLoader(dir string) *Loader {
	return NewLoader(os.DirFS(dir), dir)
}

// Origin describes where the loader reads from.
func (l *Loader) Origin() string {
	return l.origin
}

// Load reads the schema called name. The .json suffix is optional.
func (l *Loader) Load(name string) (*Schema, error) {
	file, err := fileName(name)
	if err != nil {
		return nil, err
	}

	data, err := fs.ReadFile(l.fsys, file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s (in %s)", ErrSchemaNotFound, name, l.origin)
		}
		return nil, fmt.Errorf("reading schema %s: %w", name, err)
	}

	return &Schema{
		Name: strings.TrimSuffix(file, fileExt),
		Data: data,
	}, nil
}

// Names lists every schema the loader can see, sorted.
func (l *Loader) Names() ([]string, error) {
	matches, err := fs.Glob(l.fsys, "*"+fileExt)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(m, fileExt))
	}
	sort.Strings(names)
	return names, nil
}

// Validate loads the named schema and validates body against it.
func (l *Loader) Validate(name string, body any) error {
	s, err := l.Load(name)
	if err != nil {
		return err
	}
	return Validate(body, s)
}

// fileName maps a schema name to a file in the loader root. Names must be
// bare file names.
func fileName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("schema name is empty")
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid schema name %q: must be a bare file name", name)
	}
	if path.Ext(name) != fileExt {
		name += fileExt
	}
	return name, nil
}
