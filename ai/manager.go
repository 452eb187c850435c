package ai

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mcp_analyzer/analyzer"
	"mcp_analyzer/core"
)

// Provider names used for registration and task routing.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// TaskType selects which provider preference applies.
type TaskType string

const (
	TaskExplanation      TaskType = "explanation"
	TaskImprovement      TaskType = "improvement"
	TaskPatternDetection TaskType = "pattern_detection"
)

// Manager routes tasks to the preferred configured provider and falls back
// down the chain when the preferred one fails. With no providers at all it
// answers from an offline heuristic so the caller's pipeline keeps working.
type Manager struct {
	log      *zap.Logger
	services map[string]Service

	// taskPreferences names the first-choice provider per task.
	taskPreferences map[TaskType]string
	fallbackOrder   []string
}

// NewManager creates an empty manager. Register providers with AddService.
func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		log:      log.Named("ai_manager"),
		services: make(map[string]Service),
		taskPreferences: map[TaskType]string{
			TaskExplanation:      ProviderAnthropic,
			TaskImprovement:      ProviderOpenAI,
			TaskPatternDetection: ProviderAnthropic,
		},
		fallbackOrder: []string{ProviderAnthropic, ProviderOpenAI},
	}
}

// ManagerFromEnv registers every provider whose API key is present in the
// environment: OPENAI_API_KEY (with optional OPENAI_BASE_URL and
// OPENAI_MODEL) and ANTHROPIC_API_KEY (with optional ANTHROPIC_MODEL).
func ManagerFromEnv(log *zap.Logger) *Manager {
	m := NewManager(log)
	if key := core.GetEnvOrDefault("OPENAI_API_KEY", ""); key != "" {
		m.AddService(NewOpenAIService(
			key,
			core.GetEnvOrDefault("OPENAI_MODEL", ""),
			core.GetEnvOrDefault("OPENAI_BASE_URL", ""),
			log,
		))
	}
	if key := core.GetEnvOrDefault("ANTHROPIC_API_KEY", ""); key != "" {
		m.AddService(NewAnthropicService(
			key,
			core.GetEnvOrDefault("ANTHROPIC_MODEL", ""),
			log,
		))
	}
	return m
}

// AddService registers a provider under its own name.
func (m *Manager) AddService(s Service) {
	m.services[s.Name()] = s
	m.log.Info("ai provider registered", zap.String("provider", s.Name()))
}

// HasProviders reports whether any provider is configured.
func (m *Manager) HasProviders() bool {
	return len(m.services) > 0
}

// candidates returns the providers to try for a task, preferred first, with
// the rest of the fallback chain after it.
func (m *Manager) candidates(task TaskType) []Service {
	var out []Service
	seen := map[string]bool{}

	if preferred, ok := m.services[m.taskPreferences[task]]; ok {
		out = append(out, preferred)
		seen[preferred.Name()] = true
	}
	for _, name := range m.fallbackOrder {
		if s, ok := m.services[name]; ok && !seen[name] {
			out = append(out, s)
			seen[name] = true
		}
	}
	return out
}

// ExplainCode explains code through the preferred provider, walking the
// fallback chain on failure. With no providers configured it returns the
// offline heuristic explanation rather than an error.
func (m *Manager) ExplainCode(ctx context.Context, code CodeContext, level string) (Response, error) {
	var lastErr error
	for _, s := range m.candidates(TaskExplanation) {
		resp, err := s.ExplainCode(ctx, code, level)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		m.log.Warn("provider failed, trying next",
			zap.String("provider", s.Name()),
			zap.Error(err),
		)
	}
	if lastErr != nil {
		return Response{}, fmt.Errorf("all ai providers failed: %w", lastErr)
	}
	return m.offlineExplanation(code), nil
}

// SuggestImprovements proposes changes, or an empty list offline.
func (m *Manager) SuggestImprovements(ctx context.Context, code CodeContext) ([]string, error) {
	var lastErr error
	for _, s := range m.candidates(TaskImprovement) {
		suggestions, err := s.SuggestImprovements(ctx, code)
		if err == nil {
			return suggestions, nil
		}
		lastErr = err
		m.log.Warn("provider failed, trying next", zap.String("provider", s.Name()), zap.Error(err))
	}
	if lastErr != nil {
		return nil, fmt.Errorf("all ai providers failed: %w", lastErr)
	}
	return []string{}, nil
}

// DetectPatterns names design patterns, or an empty list offline.
func (m *Manager) DetectPatterns(ctx context.Context, code CodeContext) ([]string, error) {
	var lastErr error
	for _, s := range m.candidates(TaskPatternDetection) {
		patterns, err := s.DetectPatterns(ctx, code)
		if err == nil {
			return patterns, nil
		}
		lastErr = err
		m.log.Warn("provider failed, trying next", zap.String("provider", s.Name()), zap.Error(err))
	}
	if lastErr != nil {
		return nil, fmt.Errorf("all ai providers failed: %w", lastErr)
	}
	return []string{}, nil
}

// offlineExplanation is the no-provider answer: a keyword-level concept scan
// and a generic explanation, clearly low confidence.
func (m *Manager) offlineExplanation(code CodeContext) Response {
	return Response{
		Explanation: fmt.Sprintf(
			"This %s code defines %d functions across %d lines. Configure an AI provider for a full explanation.",
			code.FileType, len(code.Functions), code.LinesOfCode,
		),
		Concepts:        analyzer.ExtractConcepts(code.FileContent),
		Recommendations: []string{},
		Examples:        []string{},
		ConfidenceScore: 0.1,
		Provider:        "offline",
	}
}
