package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/commitlens/commitlens/internal/config"
	"github.com/commitlens/commitlens/pkg/logger"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

const scoreFunctionName = "report_commit_quality"

// scoreFunctionSchema describes the structured result every backend must
// produce, whether through a function call or constrained JSON output.
const scoreFunctionSchema = `{
  "type": "object",
  "properties": {
    "commit_details": {
      "type": "object",
      "properties": {
        "number_of_comment_lines": {"type": "integer"},
        "commit_changes_quality_score": {"type": "number", "minimum": 0, "maximum": 10},
        "commit_message_quality_score": {"type": "number", "minimum": 0, "maximum": 10},
        "files": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {
              "sha": {"type": "string"},
              "quality_score": {"type": "number", "minimum": 0, "maximum": 10},
              "modification_type": {"type": "string"}
            },
            "required": ["sha", "quality_score", "modification_type"]
          }
        }
      },
      "required": ["number_of_comment_lines", "commit_changes_quality_score", "commit_message_quality_score", "files"]
    }
  },
  "required": ["commit_details"]
}`

const rubricPrompt = `You are a commit quality reviewer. Score the commit below and each of its files on a 0-10 scale using this rubric:

- very low (0-1): deletions only, rename/move only, whitespace-only changes
- low (1-2): variable/class renames, trivial operator rewrites
- medium (3-5): minor improvements to existing code
- high (6-8): significant refactors or performance work
- very high (9-10): new functionality or a major enhancement

A commit mixing low- and high-impact changes is scored by its highest-impact component.

Also count the number of comment lines introduced across the diff, and score the commit message quality (0-10) by how well it describes the change.

Respond with a single JSON object matching this schema, and nothing else:
%s

Commit message:
%s

File changes:
%s`

// LLMScorer calls a configured LLM backend with a fixed rubric. Sampling
// is pinned to temperature 0 so repeated calls stay reproducible.
type LLMScorer struct {
	cfg config.ScorerConfig
}

func NewLLMScorer(cfg config.ScorerConfig) *LLMScorer {
	return &LLMScorer{cfg: cfg}
}

func (s *LLMScorer) Score(ctx context.Context, req *ScoreRequest) (*CommitDetails, error) {
	payload, err := json.Marshal(req.Files)
	if err != nil {
		return nil, &ScoringError{Op: "encode request", Err: err}
	}
	prompt := fmt.Sprintf(rubricPrompt, scoreFunctionSchema, req.CommitMessage, string(payload))

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ScorerTimeout())
	defer cancel()

	var raw string
	switch s.cfg.Provider {
	case "anthropic":
		raw, err = s.callAnthropic(ctx, prompt)
	case "ollama":
		raw, err = s.callOllama(ctx, prompt)
	case "gemini":
		raw, err = s.callGemini(ctx, prompt)
	default:
		// openai and OpenAI-compatible endpoints
		raw, err = s.callOpenAI(ctx, prompt)
	}
	if err != nil {
		return nil, err
	}

	logger.Infof("[Scorer] %s scored commit: %d files, %d response chars", s.cfg.Provider, len(req.Files), len(raw))
	return parseDetails(raw)
}

// callOpenAI uses a forced function call so the result arrives as
// structured arguments rather than free text.
func (s *LLMScorer) callOpenAI(ctx context.Context, prompt string) (string, error) {
	clientConfig := openai.DefaultConfig(s.cfg.APIKey)
	if s.cfg.BaseURL != "" {
		clientConfig.BaseURL = s.cfg.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		// go-openai omits a zero temperature from the request, so send the
		// smallest representable value to pin sampling.
		Temperature: math.SmallestNonzeroFloat32,
		Tools: []openai.Tool{
			{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        scoreFunctionName,
					Description: "Report quality scores for a commit and its files",
					Parameters:  json.RawMessage(scoreFunctionSchema),
				},
			},
		},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: scoreFunctionName},
		},
	})
	if err != nil {
		return "", &ScoringError{Op: "openai call", Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", &ScoringError{Op: "openai call", Err: fmt.Errorf("empty response")}
	}

	msg := resp.Choices[0].Message
	for _, call := range msg.ToolCalls {
		if call.Function.Name == scoreFunctionName {
			logger.Debug().Int("chars", len(call.Function.Arguments)).Msg("openai scorer arguments")
			return call.Function.Arguments, nil
		}
	}
	// Some compatible endpoints answer in plain content instead of a call.
	if msg.Content != "" {
		return msg.Content, nil
	}
	return "", &ScoringError{Op: "openai call", Err: fmt.Errorf("no function call in response")}
}

func (s *LLMScorer) callAnthropic(ctx context.Context, prompt string) (string, error) {
	client := anthropic.NewClient(option.WithAPIKey(s.cfg.APIKey))

	maxTokens := int64(s.cfg.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(s.cfg.Model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", &ScoringError{Op: "anthropic call", Err: err}
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	if content.Len() == 0 {
		return "", &ScoringError{Op: "anthropic call", Err: fmt.Errorf("empty response")}
	}
	return content.String(), nil
}

func (s *LLMScorer) callOllama(ctx context.Context, prompt string) (string, error) {
	baseURL := s.cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", &ScoringError{Op: "ollama call", Err: fmt.Errorf("invalid base URL: %w", err)}
	}
	client := api.NewClient(u, http.DefaultClient)

	var content strings.Builder
	err = client.Chat(ctx, &api.ChatRequest{
		Model: s.cfg.Model,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Format: json.RawMessage(`"json"`),
		Options: map[string]interface{}{
			"temperature": 0.0,
		},
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", &ScoringError{Op: "ollama call", Err: err}
	}
	return content.String(), nil
}

func (s *LLMScorer) callGemini(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: s.cfg.APIKey})
	if err != nil {
		return "", &ScoringError{Op: "gemini call", Err: err}
	}

	resp, err := client.Models.GenerateContent(ctx, s.cfg.Model, genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr[float32](0),
		})
	if err != nil {
		return "", &ScoringError{Op: "gemini call", Err: err}
	}

	content := resp.Text()
	if content == "" {
		return "", &ScoringError{Op: "gemini call", Err: fmt.Errorf("empty response")}
	}
	logger.Debug().Int("chars", len(content)).Msg("gemini scorer response")
	return content, nil
}
