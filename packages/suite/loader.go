package suite

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// caseFile is the on-disk YAML layout.
type caseFile struct {
	Cases []*Case `yaml:"cases"`
}

// IsCaseFile reports whether path has an extension the loaders understand.
func IsCaseFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".xlsx":
		return true
	}
	return false
}

// CollectFiles expands files and directories into a sorted list of case
// files. Directories are walked recursively.
func CollectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && IsCaseFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", arg, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

// LoadFiles loads every file, choosing the loader by extension.
func LoadFiles(paths []string) ([]*Case, error) {
	var cases []*Case
	for _, path := range paths {
		var (
			loaded []*Case
			err    error
		)
		if strings.EqualFold(filepath.Ext(path), ".xlsx") {
			loaded, err = LoadWorkbook(path, "")
		} else {
			loaded, err = LoadFile(path)
		}
		if err != nil {
			return nil, err
		}
		cases = append(cases, loaded...)
	}
	return cases, nil
}

// LoadFile reads a YAML case file.
func LoadFile(path string) ([]*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cases, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, c := range cases {
		c.Source = path
	}
	return cases, nil
}

// Parse decodes YAML case definitions. Unknown keys are rejected so typos
// do not silently drop assertions.
func Parse(data []byte) ([]*Case, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file caseFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("no cases defined")
		}
		return nil, fmt.Errorf("parsing cases: %w", err)
	}
	if len(file.Cases) == 0 {
		return nil, fmt.Errorf("no cases defined")
	}

	seen := make(map[string]bool, len(file.Cases))
	for i, c := range file.Cases {
		if c == nil {
			return nil, fmt.Errorf("case %d is empty", i+1)
		}
		c.normalize()
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate case name %q", c.Name)
		}
		seen[c.Name] = true
	}
	return file.Cases, nil
}
