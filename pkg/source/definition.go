package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	perrors "github.com/matzehuels/pipescope/pkg/errors"
)

// Definition is one named pipeline read from a file.
type Definition struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Tasks []Task `json:"tasks"`
}

// Task is a single pipeline step.
type Task struct {
	ID         string         `json:"id" yaml:"id" toml:"id"`
	Operator   string         `json:"op_type,omitempty" yaml:"op_type" toml:"op_type"`
	SourceFile string         `json:"source_file,omitempty" yaml:"source_file" toml:"source_file"`
	Params     map[string]any `json:"params,omitempty" yaml:"params" toml:"params"`
	DependsOn  []string       `json:"depends_on,omitempty" yaml:"depends_on" toml:"depends_on"`
}

// Param returns a string parameter, or "" when it is missing.
func (t Task) Param(key string) string {
	v, ok := t.Params[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

type pipeline struct {
	Tasks []Task `yaml:"tasks" toml:"tasks"`
}

// Supports reports whether path has a definition file extension.
func Supports(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml", ".toml":
		return true
	}
	return false
}

// ParseFile reads the pipelines defined in one file, in file order. An
// empty file yields no definitions.
func ParseFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, perrors.Wrap(perrors.ErrCodeFileNotFound, err, "definition %s not found", path)
		}
		return nil, err
	}
	return Parse(path, data)
}

// Parse decodes definition data. The path selects the format and is
// recorded on each definition.
func Parse(path string, data []byte) ([]Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var defs []Definition
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yml", ".yaml":
		defs, err = parseYAML(data)
	case ".toml":
		defs, err = parseTOML(data)
	default:
		return nil, perrors.New(perrors.ErrCodeUnsupported, "unsupported definition file: %s", filepath.Base(path))
	}
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeInvalidDefinition, err, "parse %s", path)
	}
	for i := range defs {
		defs[i].Path = path
	}
	return defs, nil
}

func parseYAML(data []byte) ([]Definition, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping of pipeline names", root.Line)
	}

	var defs []Definition
	for i := 0; i+1 < len(root.Content); i += 2 {
		name, body := root.Content[i].Value, root.Content[i+1]
		var p pipeline
		if body.Kind != 0 && !isNull(body) {
			if err := body.Decode(&p); err != nil {
				return nil, fmt.Errorf("pipeline %q: %w", name, err)
			}
		}
		defs = append(defs, Definition{Name: name, Tasks: p.Tasks})
	}
	return defs, nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func parseTOML(data []byte) ([]Definition, error) {
	var raw map[string]pipeline
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, err
	}

	var order []string
	for _, key := range md.Keys() {
		if len(key) > 0 && !slices.Contains(order, key[0]) {
			order = append(order, key[0])
		}
	}
	defs := make([]Definition, 0, len(order))
	for _, name := range order {
		defs = append(defs, Definition{Name: name, Tasks: raw[name].Tasks})
	}
	return defs, nil
}

// LoadDir reads every definition file under dir, recursively. Files are
// decoded in parallel and returned sorted by path, then file order.
func LoadDir(ctx context.Context, dir string) ([]Definition, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, perrors.Wrap(perrors.ErrCodeFileNotFound, err, "directory %s not found", dir)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, perrors.New(perrors.ErrCodeInvalidPath, "%s is not a directory", dir)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && Supports(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	slices.Sort(paths)

	results := make([][]Definition, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			defs, err := ParseFile(path)
			if err != nil {
				return err
			}
			results[i] = defs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slices.Concat(results...), nil
}
