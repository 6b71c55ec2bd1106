// Package gemini wraps the Google generative model API behind a client whose
// failures are values, never panics: every invocation yields a tagged Result
// that call sites handle exhaustively.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Generation parameters, bounded so output size and call cost stay predictable.
const (
	defaultTimeout  = 30 * time.Second
	temperature     = 0.7
	maxOutputTokens = 2000
	topP            = 0.9
	topK            = 40
)

// Outcome tags the result of a model invocation.
type Outcome int

const (
	// OutcomeOK means the model produced text.
	OutcomeOK Outcome = iota
	// OutcomeNotConfigured means no API key was provided.
	OutcomeNotConfigured
	// OutcomeTimeout means the 30s wall clock expired.
	OutcomeTimeout
	// OutcomeTransportError covers every other API or network failure.
	OutcomeTransportError
)

// Result is the outcome of one model invocation.
type Result struct {
	Outcome Outcome
	Text    string
	Err     error
}

// OK reports whether the invocation produced usable text.
func (r Result) OK() bool { return r.Outcome == OutcomeOK }

// ErrorClass names the underlying error type for redacted logging.
func (r Result) ErrorClass() string {
	switch {
	case r.Outcome == OutcomeNotConfigured:
		return "NotConfigured"
	case r.Outcome == OutcomeTimeout:
		return "Timeout"
	case r.Err != nil:
		return fmt.Sprintf("%T", r.Err)
	default:
		return ""
	}
}

// Config holds everything the client needs; it is passed explicitly so tests
// can substitute a fake client instead of reading ambient state.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client invokes the Gemini text-generation API with bounded parameters.
type Client struct {
	cfg Config

	mu    sync.Mutex
	inner *genai.Client
	model *genai.GenerativeModel
}

func NewClient(cfg Config) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{cfg: cfg}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.cfg.APIKey != "" }

// Close releases the underlying API client, if one was created.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inner != nil {
		c.inner.Close()
		c.inner = nil
		c.model = nil
	}
}

// Invoke sends the prompt and returns the raw generated text. It never
// returns an error; failures come back as tagged Results.
func (c *Client) Invoke(ctx context.Context, prompt string) Result {
	if !c.Configured() {
		return Result{Outcome: OutcomeNotConfigured}
	}

	model, err := c.generativeModel(ctx)
	if err != nil {
		return classify(ctx, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var resp *genai.GenerateContentResponse
	err = retry.Do(
		func() error {
			r, err := model.GenerateContent(callCtx, genai.Text(prompt))
			if err != nil {
				return err
			}
			resp = r
			return nil
		},
		retry.Attempts(2),
		retry.Delay(500*time.Millisecond),
		retry.Context(callCtx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return classify(callCtx, err)
	}

	text := responseText(resp)
	if text == "" {
		return Result{Outcome: OutcomeTransportError, Err: errors.New("model returned no text candidates")}
	}
	return Result{Outcome: OutcomeOK, Text: text}
}

func (c *Client) generativeModel(ctx context.Context) (*genai.GenerativeModel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.model != nil {
		return c.model, nil
	}

	inner, err := genai.NewClient(ctx, option.WithAPIKey(c.cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := inner.GenerativeModel(c.cfg.Model)
	model.SetTemperature(temperature)
	model.SetMaxOutputTokens(maxOutputTokens)
	model.SetTopP(topP)
	model.SetTopK(topK)

	c.inner = inner
	c.model = model
	log.Printf("[gemini] client initialised (model=%s)", c.cfg.Model)
	return model, nil
}

func classify(ctx context.Context, err error) Result {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Result{Outcome: OutcomeTimeout, Err: err}
	}
	return Result{Outcome: OutcomeTransportError, Err: err}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return strings.TrimSpace(b.String())
}
