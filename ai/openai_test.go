package ai

import (
	"strings"
	"testing"
)

func TestParseStructuredResponse(t *testing.T) {
	t.Run("valid json", func(t *testing.T) {
		resp := parseStructuredResponse(`{
			"explanation": "This sorts a slice.",
			"concepts": ["sorting"],
			"recommendations": ["use sort.Slice"],
			"examples": [],
			"confidence_score": 0.92
		}`)
		if resp.Explanation != "This sorts a slice." {
			t.Errorf("Explanation = %q", resp.Explanation)
		}
		if resp.ConfidenceScore != 0.92 {
			t.Errorf("ConfidenceScore = %v", resp.ConfidenceScore)
		}
		if len(resp.Concepts) != 1 || resp.Concepts[0] != "sorting" {
			t.Errorf("Concepts = %v", resp.Concepts)
		}
	})

	t.Run("fenced json", func(t *testing.T) {
		resp := parseStructuredResponse("```json\n{\"explanation\": \"fenced\", \"confidence_score\": 0.8}\n```")
		if resp.Explanation != "fenced" {
			t.Errorf("Explanation = %q, fence not stripped", resp.Explanation)
		}
	})

	t.Run("prose fallback", func(t *testing.T) {
		resp := parseStructuredResponse("This code just prints hello world.")
		if !strings.Contains(resp.Explanation, "hello world") {
			t.Errorf("Explanation = %q", resp.Explanation)
		}
		if resp.ConfidenceScore != 0.5 {
			t.Errorf("prose fallback confidence = %v, want 0.5", resp.ConfidenceScore)
		}
		if resp.Concepts == nil || resp.Recommendations == nil || resp.Examples == nil {
			t.Error("slice fields must be non-nil")
		}
	})

	t.Run("out of range confidence clamped", func(t *testing.T) {
		resp := parseStructuredResponse(`{"explanation": "x", "confidence_score": 3.5}`)
		if resp.ConfidenceScore != 1 {
			t.Errorf("ConfidenceScore = %v, want clamped to 1", resp.ConfidenceScore)
		}
	})
}

func TestParseStringList(t *testing.T) {
	t.Run("json array", func(t *testing.T) {
		items := parseStringList(`["use context", "add error handling"]`)
		if len(items) != 2 || items[0] != "use context" {
			t.Errorf("items = %v", items)
		}
	})

	t.Run("bullet list fallback", func(t *testing.T) {
		items := parseStringList("- first suggestion\n- second suggestion\n")
		if len(items) != 2 || items[1] != "second suggestion" {
			t.Errorf("items = %v", items)
		}
	})
}

func TestBuildExplainPrompt(t *testing.T) {
	prompt := buildExplainPrompt(CodeContext{
		FilePath:             "src/app.py",
		FileContent:          "def main(): pass",
		FileType:             "python",
		Functions:            []string{"main"},
		Imports:              []string{"os"},
		ArchitecturePatterns: []string{"Service Layer"},
		LinesOfCode:          1,
	}, LevelAdvanced)

	for _, want := range []string{"python", "advanced", "src/app.py", "main", "os", "Service Layer", "def main(): pass"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestServiceDefaults(t *testing.T) {
	s := NewOpenAIService("key", "", "", nil)
	if s.model != DefaultOpenAIModel {
		t.Errorf("model = %q, want default", s.model)
	}
	if s.Name() != "openai" {
		t.Errorf("Name = %q", s.Name())
	}

	a := NewAnthropicService("key", "", nil)
	if a.model != DefaultAnthropicModel {
		t.Errorf("model = %q, want default", a.model)
	}
	if a.Name() != "anthropic" {
		t.Errorf("Name = %q", a.Name())
	}
}
