// Package analyzer walks project trees and extracts structural facts from
// source files: functions, imports, line counts, the dependency edges between
// files, and coarse architecture signals. Extraction is regex based by
// design: it is language-tolerant and fast enough to run inline with an HTTP
// request, at the cost of missing exotic declaration forms.
package analyzer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// skipDirs are directory names never descended into during a project scan.
var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
	"vendor":       true,
}

// FileInfo is the analysis of one source file.
type FileInfo struct {
	Path        string   `json:"path"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Size        int64    `json:"size"`
	LinesOfCode int      `json:"lines_of_code"`
	Functions   []string `json:"functions"`
	Imports     []string `json:"imports"`
}

// Dependency is one import edge from a scanned file to the module it pulls in.
type Dependency struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type"`
}

// Metrics are the project-level aggregates.
type Metrics struct {
	TotalFiles      int      `json:"total_files"`
	TotalLines      int      `json:"total_lines"`
	TotalFunctions  int      `json:"total_functions"`
	AvgLinesPerFile float64  `json:"avg_lines_per_file"`
	Languages       []string `json:"languages"`
}

// Result is the full analysis of a project tree.
type Result struct {
	ProjectPath          string       `json:"project_path"`
	Files                []FileInfo   `json:"files"`
	Dependencies         []Dependency `json:"dependencies"`
	Metrics              Metrics      `json:"metrics"`
	ArchitecturePatterns []string     `json:"architecture_patterns"`
	ManifestDependencies []string     `json:"manifest_dependencies"`
}

// PrimaryLanguage returns the first detected language, or "unknown".
func (r Result) PrimaryLanguage() string {
	if len(r.Metrics.Languages) == 0 {
		return "unknown"
	}
	return r.Metrics.Languages[0]
}

// Analyzer scans projects. Safe for concurrent use.
type Analyzer struct {
	log *zap.Logger
}

// New creates an Analyzer.
func New(log *zap.Logger) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{log: log.Named("analyzer")}
}

// AnalyzeFile analyzes a single file. Non-source files get only identity
// fields; content extraction runs for the languages the extractors know.
func (a *Analyzer) AnalyzeFile(path string) (FileInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to stat %q: %w", path, err)
	}

	ext := filepath.Ext(path)
	info := FileInfo{
		Path:      path,
		Name:      filepath.Base(path),
		Type:      fileType(ext),
		Size:      stat.Size(),
		Functions: []string{},
		Imports:   []string{},
	}

	lang, ok := languageForExt(ext)
	if !ok {
		return info, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		// Unreadable source is reported without content facts, matching how
		// the scan treats individual file failures.
		a.log.Warn("failed to read file", zap.String("path", path), zap.Error(err))
		return info, nil
	}

	text := string(content)
	info.LinesOfCode = strings.Count(text, "\n") + 1
	info.Functions = lang.functions(text)
	info.Imports = lang.imports(text)
	return info, nil
}

// AnalyzeProject walks root and analyzes every recognized source file,
// skipping dependency and build directories. Individual file failures are
// logged and skipped; only a missing root is an error. ctx cancellation
// aborts the walk.
func (a *Analyzer) AnalyzeProject(ctx context.Context, root string) (Result, error) {
	if _, err := os.Stat(root); err != nil {
		return Result{}, fmt.Errorf("project path not found: %w", err)
	}

	result := Result{
		ProjectPath:          root,
		Files:                []FileInfo{},
		Dependencies:         []Dependency{},
		ArchitecturePatterns: []string{},
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			a.log.Warn("walk error", zap.String("path", path), zap.Error(err))
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !scannableExt(filepath.Ext(path)) {
			return nil
		}

		info, fileErr := a.AnalyzeFile(path)
		if fileErr != nil {
			a.log.Warn("failed to analyze file", zap.String("path", path), zap.Error(fileErr))
			return nil
		}
		result.Files = append(result.Files, info)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("project scan aborted: %w", err)
	}

	for _, f := range result.Files {
		for _, imp := range f.Imports {
			result.Dependencies = append(result.Dependencies, Dependency{
				From: f.Path,
				To:   imp,
				Type: "import",
			})
		}
	}

	result.Metrics = computeMetrics(result.Files)
	result.ArchitecturePatterns = detectPatterns(result.Files)
	result.ManifestDependencies = a.manifestDependencies(root)

	a.log.Info("project analyzed",
		zap.String("path", root),
		zap.Int("files", result.Metrics.TotalFiles),
		zap.Int("lines", result.Metrics.TotalLines),
		zap.Strings("languages", result.Metrics.Languages),
	)
	return result, nil
}

// computeMetrics aggregates the per-file facts.
func computeMetrics(files []FileInfo) Metrics {
	m := Metrics{TotalFiles: len(files), Languages: []string{}}
	seen := map[string]bool{}
	for _, f := range files {
		m.TotalLines += f.LinesOfCode
		m.TotalFunctions += len(f.Functions)
		if f.Type != "unknown" && !seen[f.Type] {
			seen[f.Type] = true
			m.Languages = append(m.Languages, f.Type)
		}
	}
	if len(files) > 0 {
		m.AvgLinesPerFile = float64(m.TotalLines) / float64(len(files))
	}
	return m
}

// detectPatterns derives coarse architecture signals from file paths.
func detectPatterns(files []FileInfo) []string {
	var hasComponent, hasService, hasTest bool
	for _, f := range files {
		lower := strings.ToLower(f.Path)
		if strings.Contains(lower, "component") {
			hasComponent = true
		}
		if strings.Contains(lower, "api") || strings.Contains(lower, "service") {
			hasService = true
		}
		if strings.Contains(lower, "test") {
			hasTest = true
		}
	}

	patterns := []string{}
	if hasComponent {
		patterns = append(patterns, "Component Architecture")
	}
	if hasService {
		patterns = append(patterns, "Service Layer")
	}
	if hasTest {
		patterns = append(patterns, "Test Coverage")
	}
	return patterns
}

func fileType(ext string) string {
	if ext == "" {
		return "unknown"
	}
	return strings.TrimPrefix(ext, ".")
}
