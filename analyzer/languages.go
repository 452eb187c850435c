package analyzer

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// language bundles the extraction rules for one language family.
type language struct {
	functions func(content string) []string
	imports   func(content string) []string
}

var (
	jsFunctionRe = regexp.MustCompile(`function\s+(\w+)|const\s+(\w+)\s*=.*?=>|(\w+)\s*:\s*\([^)]*\)\s*=>`)
	jsImportRe   = regexp.MustCompile(`import.*?from\s+['"]([^'"]+)['"]`)

	pyFunctionRe = regexp.MustCompile(`def\s+(\w+)`)
	pyImportRe   = regexp.MustCompile(`from\s+(\S+)\s+import|import\s+(\S+)`)

	goFunctionRe    = regexp.MustCompile(`func\s+(?:\([^)]+\)\s+)?(\w+)\s*\(`)
	goImportLineRe  = regexp.MustCompile(`(?m)^import\s+(?:\w+\s+)?"([^"]+)"`)
	goImportBlockRe = regexp.MustCompile(`(?s)import\s*\((.*?)\)`)
	goQuotedPathRe  = regexp.MustCompile(`"([^"]+)"`)
)

var languages = map[string]language{
	"javascript": {functions: jsFunctions, imports: jsImports},
	"python":     {functions: pyFunctions, imports: pyImports},
	"go":         {functions: goFunctions, imports: goImports},
}

// extByLanguage maps file extensions to a language family. HTML and CSS are
// scanned for size and line counts but have no extractors.
var extByLanguage = map[string]string{
	".js":  "javascript",
	".ts":  "javascript",
	".tsx": "javascript",
	".jsx": "javascript",
	".py":  "python",
	".go":  "go",
}

// scannableExts are all extensions included in a project scan.
var scannableExts = map[string]bool{
	".js": true, ".ts": true, ".tsx": true, ".jsx": true,
	".py": true, ".go": true, ".html": true, ".css": true,
}

func scannableExt(ext string) bool {
	return scannableExts[strings.ToLower(ext)]
}

func languageForExt(ext string) (language, bool) {
	name, ok := extByLanguage[strings.ToLower(ext)]
	if !ok {
		return language{}, false
	}
	return languages[name], true
}

func jsFunctions(content string) []string {
	var out []string
	for _, groups := range jsFunctionRe.FindAllStringSubmatch(content, -1) {
		for _, g := range groups[1:] {
			if g != "" {
				out = append(out, g)
			}
		}
	}
	return dedupe(out)
}

func jsImports(content string) []string {
	var out []string
	for _, groups := range jsImportRe.FindAllStringSubmatch(content, -1) {
		out = append(out, groups[1])
	}
	return dedupe(out)
}

func pyFunctions(content string) []string {
	var out []string
	for _, groups := range pyFunctionRe.FindAllStringSubmatch(content, -1) {
		out = append(out, groups[1])
	}
	return dedupe(out)
}

func pyImports(content string) []string {
	var out []string
	for _, groups := range pyImportRe.FindAllStringSubmatch(content, -1) {
		for _, g := range groups[1:] {
			if g != "" {
				out = append(out, g)
			}
		}
	}
	return dedupe(out)
}

func goFunctions(content string) []string {
	var out []string
	for _, groups := range goFunctionRe.FindAllStringSubmatch(content, -1) {
		out = append(out, groups[1])
	}
	return dedupe(out)
}

func goImports(content string) []string {
	var out []string
	for _, groups := range goImportLineRe.FindAllStringSubmatch(content, -1) {
		out = append(out, groups[1])
	}
	for _, block := range goImportBlockRe.FindAllStringSubmatch(content, -1) {
		for _, quoted := range goQuotedPathRe.FindAllStringSubmatch(block[1], -1) {
			out = append(out, quoted[1])
		}
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	if in == nil {
		return []string{}
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// manifestDependencies reads declared third-party dependencies from whichever
// manifests exist at the project root: package.json, go.mod, requirements.txt.
func (a *Analyzer) manifestDependencies(root string) []string {
	deps := []string{}
	deps = append(deps, packageJSONDeps(a.log, filepath.Join(root, "package.json"))...)
	deps = append(deps, goModDeps(a.log, filepath.Join(root, "go.mod"))...)
	deps = append(deps, requirementsDeps(a.log, filepath.Join(root, "requirements.txt"))...)
	return deps
}

func packageJSONDeps(log *zap.Logger, path string) []string {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var manifest struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(content, &manifest); err != nil {
		log.Warn("unparseable package.json", zap.String("path", path), zap.Error(err))
		return nil
	}

	var out []string
	for name := range manifest.Dependencies {
		out = append(out, name)
	}
	for name := range manifest.DevDependencies {
		out = append(out, name)
	}
	return out
}

func goModDeps(log *zap.Logger, path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []string
	inBlock := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "require (":
			inBlock = true
		case inBlock && line == ")":
			inBlock = false
		case inBlock && line != "":
			fields := strings.Fields(line)
			if len(fields) >= 2 && !strings.HasPrefix(fields[0], "//") {
				out = append(out, fields[0])
			}
		case strings.HasPrefix(line, "require "):
			fields := strings.Fields(line)
			if len(fields) >= 3 {
				out = append(out, fields[1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warn("failed to scan go.mod", zap.String("path", path), zap.Error(err))
	}
	return out
}

func requirementsDeps(log *zap.Logger, path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		// Strip version pins: requests==2.31.0, flask>=2.0.
		name := line
		for _, sep := range []string{"==", ">=", "<=", "~=", ">", "<", "["} {
			if idx := strings.Index(name, sep); idx >= 0 {
				name = name[:idx]
			}
		}
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warn("failed to scan requirements.txt", zap.String("path", path), zap.Error(err))
	}
	return out
}

// ExtractConcepts does a keyword-level pass over a code snippet, naming the
// programming concepts it touches. Used as the offline fallback for code
// explanation when no AI provider is configured.
func ExtractConcepts(code string) []string {
	concepts := []string{}
	if strings.Contains(code, "function") || strings.Contains(code, "def ") || strings.Contains(code, "func ") {
		concepts = append(concepts, "functions")
	}
	if strings.Contains(code, "const ") || strings.Contains(code, "let ") || strings.Contains(code, "var ") {
		concepts = append(concepts, "variables")
	}
	if strings.Contains(code, "import") {
		concepts = append(concepts, "modules")
	}
	if strings.Contains(code, "class") {
		concepts = append(concepts, "classes")
	}
	return concepts
}
