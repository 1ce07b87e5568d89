package classify

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"golang.org/x/time/rate"
)

// OpenAICompleter talks to any OpenAI-compatible chat completion endpoint,
// such as a local Ollama server.
type OpenAICompleter struct {
	client  openai.Client
	limiter *rate.Limiter
	timeout time.Duration
}

// NewOpenAICompleter builds a completer for baseURL. requestsPerMinute <= 0
// disables pacing.
func NewOpenAICompleter(baseURL, apiKey string, requestsPerMinute int, timeout time.Duration) *OpenAICompleter {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if apiKey == "" {
		// Local servers ignore the key but the client refuses to send without one.
		apiKey = "ollama"
	}
	opts = append(opts, option.WithAPIKey(apiKey))

	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}

	return &OpenAICompleter{
		client:  openai.NewClient(opts...),
		limiter: limiter,
		timeout: timeout,
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	response, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(req.Prompt),
					},
				},
			},
		},
		Temperature: openai.Float(req.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}

	return response.Choices[0].Message.Content, nil
}
