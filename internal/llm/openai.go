package llm

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/examgen/internal/config"
)

// openAICompleter talks to any OpenAI-compatible endpoint (OpenAI, Ollama, vLLM).
type openAICompleter struct {
	api   *openai.Client
	model string
}

func newOpenAI(cfg config.LLMConfig) *openAICompleter {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &openAICompleter{
		api:   openai.NewClientWithConfig(oc),
		model: cfg.Model,
	}
}

func (o *openAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("LLM returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
