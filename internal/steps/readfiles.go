package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/robotdad/recipe-tool/internal/fileutil"
	"github.com/robotdad/recipe-tool/internal/rcontext"
	"github.com/robotdad/recipe-tool/internal/rerrors"
	"github.com/robotdad/recipe-tool/internal/step"
)

type readFilesStep struct {
	deps       step.Deps
	path       interface{}
	contentKey interface{}
	optional   bool
	mergeMode  string
}

// NewReadFiles builds the read_files step.
func NewReadFiles(deps step.Deps, cfg map[string]interface{}) (step.Step, error) {
	path, ok := cfg["path"]
	if !ok {
		return nil, rerrors.ConfigError("read_files", "missing required field \"path\"")
	}
	contentKey, ok := cfg["content_key"]
	if !ok {
		return nil, rerrors.ConfigError("read_files", "missing required field \"content_key\"")
	}
	mergeMode, _ := configString(cfg, "merge_mode")
	if mergeMode == "" {
		mergeMode = "concat"
	}
	if mergeMode != "concat" && mergeMode != "dict" {
		return nil, rerrors.ConfigError("read_files", "merge_mode must be \"concat\" or \"dict\", got %q", mergeMode)
	}
	return &readFilesStep{
		deps:       deps,
		path:       path,
		contentKey: contentKey,
		optional:   configBool(cfg, "optional", false),
		mergeMode:  mergeMode,
	}, nil
}

func (s *readFilesStep) Execute(ctx context.Context, rc *rcontext.Context) error {
	renderedPath, err := renderAny(s.deps, rc, s.path)
	if err != nil {
		return err
	}
	paths, err := splitPaths(renderedPath)
	if err != nil {
		return err
	}

	contentKey, err := renderString(s.deps, rc, s.contentKey)
	if err != nil {
		return err
	}

	if len(paths) == 1 {
		content, ok, err := s.readOne(paths[0])
		if err != nil {
			return err
		}
		if !ok {
			content = ""
		}
		rc.Set(contentKey, content)
		return nil
	}

	if s.mergeMode == "dict" {
		out := make(map[string]interface{}, len(paths))
		for _, p := range paths {
			content, ok, err := s.readOne(p)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			out[p] = content
		}
		rc.Set(contentKey, out)
		return nil
	}

	var sb strings.Builder
	for _, p := range paths {
		content, ok, err := s.readOne(p)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("--- %s ---\n", p))
		sb.WriteString(toText(content))
		sb.WriteString("\n")
	}
	rc.Set(contentKey, sb.String())
	return nil
}

// readOne reads and, for .json/.yaml/.yml suffixes, parses one file. The
// second return value is false when the file was missing and optional is
// set.
func (s *readFilesStep) readOne(path string) (interface{}, bool, error) {
	expanded, err := fileutil.ExpandPath(path)
	if err != nil {
		return nil, false, rerrors.IOError(path, err)
	}

	raw, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			if s.optional {
				return nil, false, nil
			}
			return nil, false, rerrors.FileNotFound(path, err)
		}
		return nil, false, rerrors.IOError(path, err)
	}

	switch strings.ToLower(filepath.Ext(expanded)) {
	case ".json":
		var v interface{}
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, true, nil
		}
	case ".yaml", ".yml":
		var v interface{}
		if err := yaml.Unmarshal(raw, &v); err == nil {
			return v, true, nil
		}
	}
	return string(raw), true, nil
}

// toText re-serializes a parsed (non-string) value for concat mode.
func toText(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
