// Package ai integrates language-model providers for code explanation,
// improvement suggestions, and pattern detection. A Manager routes each task
// to the preferred configured provider and degrades to an offline heuristic
// response when none is available.
package ai

import (
	"context"
	"errors"
	"time"
)

// Explanation levels accepted by ExplainCode.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// ErrNoProvider is returned when no AI service is configured for a task and
// the caller asked for a hard failure instead of the offline fallback.
var ErrNoProvider = errors.New("no ai provider configured")

// CodeContext carries everything a provider needs to reason about a piece of
// code: the snippet itself plus the project-level facts the analyzer
// extracted around it.
type CodeContext struct {
	FilePath             string         `json:"file_path"`
	FileContent          string         `json:"file_content"`
	FileType             string         `json:"file_type"`
	ProjectInfo          map[string]any `json:"project_info,omitempty"`
	Functions            []string       `json:"functions,omitempty"`
	Imports              []string       `json:"imports,omitempty"`
	ArchitecturePatterns []string       `json:"architecture_patterns,omitempty"`
	LinesOfCode          int            `json:"lines_of_code,omitempty"`
}

// Response is the normalized answer from any provider.
type Response struct {
	Explanation     string        `json:"explanation"`
	Concepts        []string      `json:"concepts"`
	Recommendations []string      `json:"recommendations"`
	Examples        []string      `json:"examples"`
	ConfidenceScore float64       `json:"confidence_score"`
	ProcessingTime  time.Duration `json:"-"`
	Provider        string        `json:"provider"`
}

// Service is one configured language-model provider.
type Service interface {
	// Name identifies the provider in logs and responses.
	Name() string

	// ExplainCode explains the code in context at the given level.
	ExplainCode(ctx context.Context, code CodeContext, level string) (Response, error)

	// SuggestImprovements proposes concrete changes to the code.
	SuggestImprovements(ctx context.Context, code CodeContext) ([]string, error)

	// DetectPatterns names the design patterns the code uses.
	DetectPatterns(ctx context.Context, code CodeContext) ([]string, error)
}
