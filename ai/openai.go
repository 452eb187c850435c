package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Default models per provider. The Anthropic provider is reached through its
// OpenAI-compatible chat completions endpoint, so both run on the same client.
const (
	DefaultOpenAIModel    = "gpt-4-turbo-preview"
	DefaultAnthropicModel = "claude-3-5-sonnet-20241022"

	anthropicBaseURL = "https://api.anthropic.com/v1"
)

const systemPrompt = `You are an expert AI assistant for code analysis. Provide deep, practical,
context-aware explanations. Analyze semantics and architecture, not just
syntax. Consider the whole project context, give actionable recommendations,
explain complex concepts simply, and point out potential problems.

Respond with a single JSON object: {"explanation": string, "concepts":
[string], "recommendations": [string], "examples": [string],
"confidence_score": number between 0 and 1}.`

// ChatService is a Service backed by an OpenAI-compatible chat completions
// API.
type ChatService struct {
	name      string
	model     string
	maxTokens int
	client    *openai.Client
	log       *zap.Logger
}

// NewOpenAIService creates a provider against api.openai.com, or baseURL if
// non-empty.
func NewOpenAIService(apiKey, model, baseURL string, log *zap.Logger) *ChatService {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return newChatService("openai", apiKey, model, baseURL, log)
}

// NewAnthropicService creates a provider against Anthropic's
// OpenAI-compatible endpoint.
func NewAnthropicService(apiKey, model string, log *zap.Logger) *ChatService {
	if model == "" {
		model = DefaultAnthropicModel
	}
	return newChatService("anthropic", apiKey, model, anthropicBaseURL, log)
}

func newChatService(name, apiKey, model, baseURL string, log *zap.Logger) *ChatService {
	if log == nil {
		log = zap.NewNop()
	}
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	return &ChatService{
		name:      name,
		model:     model,
		maxTokens: 1500,
		client:    openai.NewClientWithConfig(clientConfig),
		log:       log.Named("ai_" + name),
	}
}

// Name identifies the provider.
func (s *ChatService) Name() string { return s.name }

// ExplainCode asks the model to explain the code and parses the structured
// answer. A model that answers in prose instead of JSON still produces a
// usable Response with the prose as the explanation.
func (s *ChatService) ExplainCode(ctx context.Context, code CodeContext, level string) (Response, error) {
	start := time.Now()

	prompt := buildExplainPrompt(code, level)
	content, err := s.complete(ctx, prompt)
	if err != nil {
		return Response{}, err
	}

	resp := parseStructuredResponse(content)
	resp.ProcessingTime = time.Since(start)
	resp.Provider = s.name

	s.log.Info("code explained",
		zap.String("file", code.FilePath),
		zap.String("level", level),
		zap.Duration("took", resp.ProcessingTime),
	)
	return resp, nil
}

// SuggestImprovements returns a list of concrete improvement proposals.
func (s *ChatService) SuggestImprovements(ctx context.Context, code CodeContext) ([]string, error) {
	prompt := fmt.Sprintf(`Suggest concrete improvements for this %s code. Look for performance
issues, refactoring opportunities, and violations of good practice. Respond
with a JSON array of strings, one suggestion each.

%s`, code.FileType, code.FileContent)

	content, err := s.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseStringList(content), nil
}

// DetectPatterns names the design patterns present in the code.
func (s *ChatService) DetectPatterns(ctx context.Context, code CodeContext) ([]string, error) {
	prompt := fmt.Sprintf(`Identify the design patterns and architectural decisions used in this %s
code. Respond with a JSON array of pattern names.

%s`, code.FileType, code.FileContent)

	content, err := s.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseStringList(content), nil
}

// complete runs one chat completion and returns the first choice's content.
func (s *ChatService) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s completion failed: %w", s.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", s.name)
	}
	return resp.Choices[0].Message.Content, nil
}

// buildExplainPrompt folds the analyzer's project facts into the user prompt
// so the model sees the code in its real context.
func buildExplainPrompt(code CodeContext, level string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Explain this %s code at the %s level.\n\n", code.FileType, level)
	if code.FilePath != "" {
		fmt.Fprintf(&b, "File: %s (%d lines)\n", code.FilePath, code.LinesOfCode)
	}
	if len(code.Functions) > 0 {
		fmt.Fprintf(&b, "Functions: %s\n", strings.Join(code.Functions, ", "))
	}
	if len(code.Imports) > 0 {
		fmt.Fprintf(&b, "Imports: %s\n", strings.Join(code.Imports, ", "))
	}
	if len(code.ArchitecturePatterns) > 0 {
		fmt.Fprintf(&b, "Project patterns: %s\n", strings.Join(code.ArchitecturePatterns, ", "))
	}
	fmt.Fprintf(&b, "\n%s", code.FileContent)
	return b.String()
}

// parseStructuredResponse decodes the model's JSON answer. Models sometimes
// wrap JSON in a markdown fence or answer in prose; both degrade gracefully.
func parseStructuredResponse(content string) Response {
	cleaned := stripFence(content)

	var resp Response
	if err := json.Unmarshal([]byte(cleaned), &resp); err == nil && resp.Explanation != "" {
		return normalized(resp)
	}

	return normalized(Response{
		Explanation:     strings.TrimSpace(content),
		ConfidenceScore: 0.5,
	})
}

// parseStringList decodes a JSON array of strings, falling back to one entry
// per non-empty line.
func parseStringList(content string) []string {
	cleaned := stripFence(content)

	var items []string
	if err := json.Unmarshal([]byte(cleaned), &items); err == nil {
		return items
	}

	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-* \t"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// stripFence removes a surrounding markdown code fence, if present.
func stripFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// normalized ensures slice fields are non-nil and the confidence is in range.
func normalized(resp Response) Response {
	if resp.Concepts == nil {
		resp.Concepts = []string{}
	}
	if resp.Recommendations == nil {
		resp.Recommendations = []string{}
	}
	if resp.Examples == nil {
		resp.Examples = []string{}
	}
	if resp.ConfidenceScore < 0 {
		resp.ConfidenceScore = 0
	}
	if resp.ConfidenceScore > 1 {
		resp.ConfidenceScore = 1
	}
	return resp
}

// Verify ChatService implements the Service interface.
var _ Service = (*ChatService)(nil)
