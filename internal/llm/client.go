package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/rookhq/rook/internal/credential"
)

// Caller issues one model call with a specific credential. The Call
// Executor is the only intended caller; tests substitute fakes.
type Caller interface {
	Complete(ctx context.Context, cred *credential.Credential, req CallRequest) (string, error)
}

// Client wraps the Anthropic SDK with one underlying SDK client per
// credential, plus aggregate token tracking.
type Client struct {
	model   anthropic.Model
	tracker *TokenTracker

	mu      sync.Mutex
	clients map[string]*anthropic.Client
}

// NewClient creates a Client for the given model. SDK clients are built
// lazily per credential on first use.
func NewClient(model anthropic.Model) *Client {
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	return &Client{
		model:   model,
		tracker: NewTokenTracker(),
		clients: make(map[string]*anthropic.Client),
	}
}

// Model returns the configured model name.
func (c *Client) Model() anthropic.Model {
	return c.model
}

// Tracker returns the aggregate token tracker.
func (c *Client) Tracker() *TokenTracker {
	return c.tracker
}

// sdkFor returns (building if needed) the SDK client for a credential.
func (c *Client) sdkFor(ctx context.Context, cred *credential.Credential) (*anthropic.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if inner, ok := c.clients[cred.ID]; ok {
		return inner, nil
	}

	var opts []option.RequestOption
	if cred.UseBedrock {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cred.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cred.AWSRegion))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		if cred.APIKey == "" {
			return nil, fmt.Errorf("credential %s has no API key", cred.ID)
		}
		opts = append(opts, option.WithAPIKey(cred.APIKey))
	}

	inner := anthropic.NewClient(opts...)
	c.clients[cred.ID] = &inner
	return &inner, nil
}

// Complete issues one Messages call with the given credential and returns
// the concatenated text blocks of the response.
func (c *Client) Complete(ctx context.Context, cred *credential.Credential, req CallRequest) (string, error) {
	inner, err := c.sdkFor(ctx, cred)
	if err != nil {
		return "", err
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: req.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := inner.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	c.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var out strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			out.WriteString(variant.Text)
		}
	}
	return out.String(), nil
}

// TokenTracker tracks token usage across API calls.
type TokenTracker struct {
	mu        sync.Mutex
	inputTok  int64
	outputTok int64
	calls     int
}

// NewTokenTracker creates a new token tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// Add records token usage from an API call.
func (t *TokenTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok += input
	t.outputTok += output
	t.calls++
}

// Total returns the total input and output tokens tracked.
func (t *TokenTracker) Total() (input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputTok, t.outputTok
}

// Calls returns the number of API calls made.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}
