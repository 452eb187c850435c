package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func TestAnalyzeFileJavaScript(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.js", `import React from 'react';
import { render } from 'react-dom';

function renderApp() {}
const handleClick = (e) => e.preventDefault();
`)

	a := New(nil)
	info, err := a.AnalyzeFile(filepath.Join(root, "app.js"))
	if err != nil {
		t.Fatalf("AnalyzeFile: %v", err)
	}

	if info.Type != "js" {
		t.Errorf("Type = %q, want js", info.Type)
	}
	if info.LinesOfCode != 6 {
		t.Errorf("LinesOfCode = %d, want 6", info.LinesOfCode)
	}
	wantFuncs := map[string]bool{"renderApp": true, "handleClick": true}
	for _, fn := range info.Functions {
		delete(wantFuncs, fn)
	}
	if len(wantFuncs) != 0 {
		t.Errorf("missing functions %v in %v", wantFuncs, info.Functions)
	}
	if len(info.Imports) != 2 || info.Imports[0] != "react" {
		t.Errorf("Imports = %v, want [react react-dom]", info.Imports)
	}
}

func TestAnalyzeFilePython(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "svc.py", `import os
from pathlib import Path

def load():
    pass

def save(data):
    pass
`)

	a := New(nil)
	info, err := a.AnalyzeFile(filepath.Join(root, "svc.py"))
	if err != nil {
		t.Fatalf("AnalyzeFile: %v", err)
	}

	if len(info.Functions) != 2 || info.Functions[0] != "load" || info.Functions[1] != "save" {
		t.Errorf("Functions = %v, want [load save]", info.Functions)
	}
	found := map[string]bool{}
	for _, imp := range info.Imports {
		found[imp] = true
	}
	if !found["os"] || !found["pathlib"] {
		t.Errorf("Imports = %v, want os and pathlib", info.Imports)
	}
}

func TestAnalyzeFileGo(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "server.go", `package server

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

func Start() error { return nil }

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "ok")
	_ = zap.NewNop()
}
`)

	a := New(nil)
	info, err := a.AnalyzeFile(filepath.Join(root, "server.go"))
	if err != nil {
		t.Fatalf("AnalyzeFile: %v", err)
	}

	funcs := map[string]bool{}
	for _, fn := range info.Functions {
		funcs[fn] = true
	}
	if !funcs["Start"] || !funcs["handle"] {
		t.Errorf("Functions = %v, want Start and handle", info.Functions)
	}
	imports := map[string]bool{}
	for _, imp := range info.Imports {
		imports[imp] = true
	}
	for _, want := range []string{"fmt", "net/http", "go.uber.org/zap"} {
		if !imports[want] {
			t.Errorf("import %q not extracted; got %v", want, info.Imports)
		}
	}
}

func TestAnalyzeFileNonSource(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "style.css", "body { margin: 0; }\n")

	a := New(nil)
	info, err := a.AnalyzeFile(filepath.Join(root, "style.css"))
	if err != nil {
		t.Fatalf("AnalyzeFile: %v", err)
	}
	if info.Type != "css" {
		t.Errorf("Type = %q, want css", info.Type)
	}
	if len(info.Functions) != 0 || len(info.Imports) != 0 {
		t.Errorf("non-source file should have no extracted facts: %+v", info)
	}
}

func TestAnalyzeFileMissing(t *testing.T) {
	a := New(nil)
	if _, err := a.AnalyzeFile("/no/such/file.js"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestAnalyzeProject(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/components/Button.tsx", `import React from 'react';
const Button = () => null;
`)
	writeFile(t, root, "src/api/client.py", `import requests

def fetch():
    pass
`)
	writeFile(t, root, "src/api/client_test.py", `def test_fetch():
    pass
`)
	writeFile(t, root, "node_modules/react/index.js", "function leaked() {}\n")
	writeFile(t, root, "README.md", "ignored\n")
	writeFile(t, root, "package.json", `{"dependencies": {"react": "^18.0.0"}}`)

	a := New(nil)
	result, err := a.AnalyzeProject(context.Background(), root)
	if err != nil {
		t.Fatalf("AnalyzeProject: %v", err)
	}

	t.Run("skips excluded directories", func(t *testing.T) {
		if result.Metrics.TotalFiles != 3 {
			t.Errorf("TotalFiles = %d, want 3", result.Metrics.TotalFiles)
		}
		for _, f := range result.Files {
			if filepath.Base(filepath.Dir(f.Path)) == "react" {
				t.Errorf("node_modules file leaked into scan: %s", f.Path)
			}
		}
	})

	t.Run("dependency edges", func(t *testing.T) {
		var toReact, toRequests bool
		for _, d := range result.Dependencies {
			if d.To == "react" {
				toReact = true
			}
			if d.To == "requests" {
				toRequests = true
			}
			if d.Type != "import" {
				t.Errorf("edge type = %q", d.Type)
			}
		}
		if !toReact || !toRequests {
			t.Errorf("edges missing: %v", result.Dependencies)
		}
	})

	t.Run("architecture patterns", func(t *testing.T) {
		want := map[string]bool{"Component Architecture": true, "Service Layer": true, "Test Coverage": true}
		for _, p := range result.ArchitecturePatterns {
			delete(want, p)
		}
		if len(want) != 0 {
			t.Errorf("patterns missing %v; got %v", want, result.ArchitecturePatterns)
		}
	})

	t.Run("manifest dependencies", func(t *testing.T) {
		found := false
		for _, d := range result.ManifestDependencies {
			if d == "react" {
				found = true
			}
		}
		if !found {
			t.Errorf("package.json dependency not read: %v", result.ManifestDependencies)
		}
	})

	t.Run("languages", func(t *testing.T) {
		langs := map[string]bool{}
		for _, l := range result.Metrics.Languages {
			langs[l] = true
		}
		if !langs["tsx"] || !langs["py"] {
			t.Errorf("Languages = %v, want tsx and py", result.Metrics.Languages)
		}
	})
}

func TestAnalyzeProjectMissingRoot(t *testing.T) {
	a := New(nil)
	if _, err := a.AnalyzeProject(context.Background(), "/no/such/project"); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestAnalyzeProjectCancellation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.js", "function a() {}\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := New(nil)
	if _, err := a.AnalyzeProject(ctx, root); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestGoModDeps(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "go.mod", `module example

go 1.24

require (
	go.uber.org/zap v1.27.0
	gopkg.in/yaml.v3 v3.0.1 // indirect
)

require github.com/fatih/color v1.18.0
`)

	a := New(nil)
	deps := a.manifestDependencies(root)
	found := map[string]bool{}
	for _, d := range deps {
		found[d] = true
	}
	for _, want := range []string{"go.uber.org/zap", "gopkg.in/yaml.v3", "github.com/fatih/color"} {
		if !found[want] {
			t.Errorf("dependency %q not parsed; got %v", want, deps)
		}
	}
}

func TestRequirementsDeps(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "requirements.txt", `# comment
fastapi==0.104.1
uvicorn[standard]>=0.24
-r other.txt

psutil
`)

	a := New(nil)
	deps := a.manifestDependencies(root)
	found := map[string]bool{}
	for _, d := range deps {
		found[d] = true
	}
	for _, want := range []string{"fastapi", "uvicorn", "psutil"} {
		if !found[want] {
			t.Errorf("dependency %q not parsed; got %v", want, deps)
		}
	}
	if found["-r other.txt"] || found["# comment"] {
		t.Errorf("directives leaked into deps: %v", deps)
	}
}

func TestExtractConcepts(t *testing.T) {
	concepts := ExtractConcepts(`import x
const a = 1;
function go() {}
class Thing {}`)

	want := map[string]bool{"functions": true, "variables": true, "modules": true, "classes": true}
	for _, c := range concepts {
		delete(want, c)
	}
	if len(want) != 0 {
		t.Errorf("concepts missing %v; got %v", want, concepts)
	}

	if got := ExtractConcepts("x = 1"); len(got) != 0 {
		t.Errorf("plain snippet produced concepts %v", got)
	}
}
