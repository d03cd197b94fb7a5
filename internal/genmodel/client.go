package genmodel

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"media-dubber/internal/domain"
)

// ChatClient is the minimal surface genmodel needs from an OpenAI-shaped
// client, letting tests substitute a fake without a live API key.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// RegionEndpoints maps a region name to the base URL the go-openai
// client should target for that region, mirroring the ossrs-oryx
// pattern of driving BaseURL from configuration per call rather than
// hardcoding a single endpoint.
type RegionEndpoints map[string]string

// NewChatClient builds a go-openai client pointed at the given region's
// base URL, following the same DefaultConfig + BaseURL override the
// teacher's Translate/GenerateTTS use.
func NewChatClient(apiKey string, endpoints RegionEndpoints, region string) ChatClient {
	cfg := openai.DefaultConfig(apiKey)
	if url, ok := endpoints[region]; ok && url != "" {
		cfg.BaseURL = url
	}
	return openai.NewClientWithConfig(cfg)
}

// CompleteChat issues one chat completion call and classifies the error
// into the ErrorKind the fallback policy needs to decide model-vs-region
// advancement.
func CompleteChat(ctx context.Context, client ChatClient, model string, messages []openai.ChatCompletionMessage) (string, error) {
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.NewJobError(domain.ErrTransientRemote, "", "generative model returned no choices", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyOpenAIError maps a go-openai error into the ErrorKind taxonomy
// the fallback Policy dispatches on.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return domain.NewJobError(domain.ErrQuotaExceeded, "", "generative model quota exceeded", err)
		case http.StatusNotFound:
			return domain.NewJobError(domain.ErrUnsupportedLang, "", "generative model not found", err)
		case http.StatusServiceUnavailable, http.StatusBadGateway:
			return domain.NewJobError(domain.ErrSourceUnavailable, "", "generative model region unavailable", err)
		case http.StatusInternalServerError:
			return domain.NewJobError(domain.ErrTransientRemote, "", "generative model transient failure", err)
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return domain.NewJobError(domain.ErrTransientNetwork, "", "generative model request failed", err)
	}
	return domain.NewJobError(domain.ErrTransientRemote, "", "generative model call failed", err)
}
