package steps

import (
	"context"
	"os"
	"path/filepath"

	"github.com/robotdad/recipe-tool/internal/rcontext"
	"github.com/robotdad/recipe-tool/internal/rerrors"
	"github.com/robotdad/recipe-tool/internal/step"
)

type fileSpec struct {
	path    string
	content string
}

type writeFilesStep struct {
	deps     step.Deps
	files    interface{}
	filesKey interface{}
	root     interface{}
}

// NewWriteFiles builds the write_files step.
func NewWriteFiles(deps step.Deps, cfg map[string]interface{}) (step.Step, error) {
	files, hasFiles := cfg["files"]
	filesKey, hasFilesKey := cfg["files_key"]
	if !hasFiles && !hasFilesKey {
		return nil, rerrors.ConfigError("write_files", "requires either \"files\" or \"files_key\"")
	}
	root := cfg["root"]
	if root == nil {
		root = "."
	}
	return &writeFilesStep{deps: deps, files: files, filesKey: filesKey, root: root}, nil
}

func (s *writeFilesStep) Execute(ctx context.Context, rc *rcontext.Context) error {
	root, err := renderString(s.deps, rc, s.root)
	if err != nil {
		return err
	}

	var source interface{}
	if s.filesKey != nil {
		key, err := renderString(s.deps, rc, s.filesKey)
		if err != nil {
			return err
		}
		v, err := rc.MustGet(key)
		if err != nil {
			return rerrors.ConfigError("write_files", "files_key %q: %s", key, err)
		}
		source = v
	} else {
		rendered, err := renderAny(s.deps, rc, s.files)
		if err != nil {
			return err
		}
		source = rendered
	}

	specs, err := parseFileSpecs(source)
	if err != nil {
		return err
	}

	for _, f := range specs {
		target := filepath.Join(root, f.path)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return rerrors.IOError(target, err)
		}
		if err := os.WriteFile(target, []byte(f.content), 0o644); err != nil {
			return rerrors.IOError(target, err)
		}
		if s.deps.Logger != nil {
			s.deps.Logger.Info("wrote file", "path", target)
		}
	}
	return nil
}

// parseFileSpecs accepts a single file spec mapping, a list of them, or a
// record containing a "files" sequence.
func parseFileSpecs(v interface{}) ([]fileSpec, error) {
	switch val := v.(type) {
	case map[string]interface{}:
		if nested, ok := val["files"]; ok {
			return parseFileSpecs(nested)
		}
		spec, err := parseOneFileSpec(val)
		if err != nil {
			return nil, err
		}
		return []fileSpec{spec}, nil
	case []interface{}:
		out := make([]fileSpec, 0, len(val))
		for _, item := range val {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, rerrors.ConfigError("write_files", "each file entry must be a mapping")
			}
			spec, err := parseOneFileSpec(m)
			if err != nil {
				return nil, err
			}
			out = append(out, spec)
		}
		return out, nil
	default:
		return nil, rerrors.ConfigError("write_files", "files source must be a file spec, a list of file specs, or a {files: [...]} record")
	}
}

func parseOneFileSpec(m map[string]interface{}) (fileSpec, error) {
	path, _ := m["path"].(string)
	if path == "" {
		return fileSpec{}, rerrors.ConfigError("write_files", "file spec missing a non-empty \"path\"")
	}
	content, _ := m["content"].(string)
	return fileSpec{path: path, content: content}, nil
}
