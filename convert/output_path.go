package convert

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"ttsub/config"
	"ttsub/state"
)

// buildOutputPath returns output file path for decoded document. src is the
// source path relative to input (file name for single file input). Name comes
// either from source file name or from user template, which may contain
// subdirectories. Source directory structure is kept unless NoDirs is set.
func buildOutputPath(doc *Document, src, dst string, format config.OutputFmt, env *state.LocalEnv) string {
	outDir := dst
	if !env.NoDirs {
		outDir = filepath.Join(dst, filepath.Dir(src))
	}

	name := ""
	if tmpl := env.Cfg.Output.OutputNameTemplate; tmpl != "" {
		expanded, err := expandTemplate(doc, config.OutputNameTemplateFieldName, tmpl, format)
		if err != nil {
			env.Log.Warn("Unable to prepare output filename", zap.Error(err))
		}
		name = filepath.FromSlash(expanded)
	}

	segments := splitPath(name)
	if len(segments) == 0 {
		segments = []string{strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))}
	}

	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, outDir)
	for _, s := range segments {
		parts = append(parts, cleanPathSegment(s, env))
	}
	parts[len(parts)-1] += format.Ext()
	return filepath.Join(parts...)
}

func splitPath(path string) []string {
	var segments []string
	for _, s := range strings.Split(path, string(os.PathSeparator)) {
		if s = strings.TrimSpace(s); s != "" && s != "." && s != ".." {
			segments = append(segments, s)
		}
	}
	return slices.Clip(segments)
}

func cleanPathSegment(segment string, env *state.LocalEnv) string {
	if env.Cfg.Output.FileNameTransliterate {
		segment = slug.Make(segment)
	}
	return config.CleanFileName(segment)
}
